package ir

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// DomainModel separates model fingerprints from any other hash the audit
// log may carry. The version suffix allows changing the document layout.
const DomainModel = "los/model/v1"

// MarshalCanonical produces canonical JSON for hashing.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping
//  3. Strings are NFC normalized
//  4. Floats use the shortest round-trip form; NaN and Inf are rejected
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case string:
		return writeCanonicalString(buf, val)
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("non-finite float in canonical JSON: %v", val)
		}
		buf.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
	case Value:
		return writeCanonical(buf, valueDoc(val))
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareUTF16)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

func compareUTF16(a, b string) int {
	ua, ub := utf16.Encode([]rune(a)), utf16.Encode([]rune(b))
	return slices.Compare(ua, ub)
}

func valueDoc(v Value) any {
	v = v.Normalize()
	switch v.Kind() {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.i != 0
	default:
		return v.s
	}
}

// Fingerprint returns a stable SHA-256 identity for the model's declared
// structure and, when bound, its data. Two compiles of the same source
// with the same data yield the same fingerprint.
func Fingerprint(m *Model) (string, error) {
	doc, err := MarshalCanonical(modelDoc(m))
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(DomainModel))
	h.Write([]byte{0x00})
	h.Write(doc)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func modelDoc(m *Model) map[string]any {
	sets := make([]any, 0, len(m.Sets))
	for _, s := range m.Sets {
		members := make([]any, 0, s.Len())
		for _, v := range s.Members() {
			members = append(members, valueDoc(v))
		}
		sets = append(sets, map[string]any{
			"name":    s.Name,
			"source":  s.Source.String(),
			"members": members,
		})
	}
	params := make([]any, 0, len(m.Params))
	for _, p := range m.Params {
		rows := make([]any, 0, p.Data.Len())
		for t, v := range p.Data.All() {
			rows = append(rows, []any{t.String(), valueDoc(v)})
		}
		doc := map[string]any{"name": p.Name, "index": stringsDoc(p.Index), "data": rows}
		if p.Default != nil {
			doc["default"] = valueDoc(*p.Default)
		}
		params = append(params, doc)
	}
	vars := make([]any, 0, len(m.Vars))
	for _, v := range m.Vars {
		doc := map[string]any{"name": v.Name, "index": stringsDoc(v.Index), "domain": v.Domain.String()}
		if !math.IsInf(v.Lower, 0) {
			doc["lower"] = v.Lower
		}
		if !math.IsInf(v.Upper, 0) {
			doc["upper"] = v.Upper
		}
		vars = append(vars, doc)
	}
	cons := make([]any, 0, len(m.Constraints))
	for _, c := range m.Constraints {
		doc := map[string]any{
			"name": c.Name,
			"rel":  string(c.Rel),
			"lhs":  c.Left.String(),
			"rhs":  c.Right.String(),
			"for":  FormatIterators(c.Iters),
		}
		if c.Filter != nil {
			doc["where"] = c.Filter.String()
		}
		cons = append(cons, doc)
	}
	doc := map[string]any{
		"sets":        sets,
		"params":      params,
		"vars":        vars,
		"constraints": cons,
	}
	if m.Objective != nil {
		doc["objective"] = map[string]any{"sense": string(m.Objective.Sense), "expr": m.Objective.Expr.String()}
	}
	return doc
}

func stringsDoc(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
