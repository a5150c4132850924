package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jowpereira/LOS/internal/ir"
)

// marshalIndex converts an index tuple to canonical JSON TEXT for storage.
// Scalars store as "[]".
func marshalIndex(t ir.Tuple) (string, error) {
	elems := make([]any, len(t))
	for i, v := range t {
		elems[i] = v
	}
	data, err := ir.MarshalCanonical(elems)
	if err != nil {
		return "", fmt.Errorf("marshal index: %w", err)
	}
	return string(data), nil
}

// unmarshalIndex parses canonical JSON TEXT back into a tuple.
// Uses json.Number to keep integers above 2^53 exact.
func unmarshalIndex(data string) (ir.Tuple, error) {
	if data == "" || data == "[]" {
		return ir.Tuple{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal index: %w", err)
	}
	t := make(ir.Tuple, len(raw))
	for i, elem := range raw {
		v, err := indexValue(elem)
		if err != nil {
			return nil, fmt.Errorf("unmarshal index [%d]: %w", i, err)
		}
		t[i] = v
	}
	return t, nil
}

func indexValue(elem any) (ir.Value, error) {
	switch val := elem.(type) {
	case json.Number:
		s := val.String()
		if !strings.ContainsAny(s, ".eE") {
			i, err := val.Int64()
			if err != nil {
				return ir.Value{}, err
			}
			return ir.Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return ir.Value{}, err
		}
		return ir.Float(f), nil
	case string:
		return ir.String(val), nil
	case bool:
		return ir.Bool(val), nil
	default:
		return ir.Value{}, fmt.Errorf("unsupported index element %T", elem)
	}
}
