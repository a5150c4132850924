package binding

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jowpereira/LOS/internal/ir"
)

// LoadYAML reads YAML or JSON data. A top-level list of mappings is one
// table. A top-level mapping yields one table per key: lists of mappings
// become row tables, lists of scalars single-column tables, and scalar
// entries are gathered into one single-row table named after the file.
func LoadYAML(_ context.Context, path string) ([]*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ParseYAML(stem, data)
}

// ParseYAML converts a YAML or JSON document into tables.
func ParseYAML(name string, data []byte) ([]*Table, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%s: empty document", name)
	}
	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		t, err := yamlList(name, root)
		if err != nil {
			return nil, err
		}
		return []*Table{t}, nil
	case yaml.MappingNode:
		var tables []*Table
		var scalars []field
		for i := 0; i+1 < len(root.Content); i += 2 {
			key, val := root.Content[i].Value, root.Content[i+1]
			switch val.Kind {
			case yaml.SequenceNode:
				t, err := yamlList(key, val)
				if err != nil {
					return nil, err
				}
				tables = append(tables, t)
			case yaml.ScalarNode:
				scalars = append(scalars, field{key, yamlScalar(val)})
			default:
				return nil, fmt.Errorf("%s: line %d: key %q must hold a list or a scalar", name, val.Line, key)
			}
		}
		if len(scalars) > 0 {
			tables = append(tables, recordTable(name, [][]field{scalars}))
		}
		return tables, nil
	default:
		return nil, fmt.Errorf("%s: document must be a list or a mapping", name)
	}
}

func yamlList(name string, seq *yaml.Node) (*Table, error) {
	if len(seq.Content) > 0 && seq.Content[0].Kind == yaml.ScalarNode {
		values := make([]ir.Value, 0, len(seq.Content))
		for _, n := range seq.Content {
			if n.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("%s: line %d: mixed list", name, n.Line)
			}
			values = append(values, yamlScalar(n))
		}
		return columnTable(name, values), nil
	}
	records := make([][]field, 0, len(seq.Content))
	for _, n := range seq.Content {
		if n.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%s: line %d: rows must be mappings", name, n.Line)
		}
		rec := make([]field, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			cell := n.Content[i+1]
			if cell.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("%s: line %d: cell %q must be a scalar", name, cell.Line, n.Content[i].Value)
			}
			rec = append(rec, field{n.Content[i].Value, yamlScalar(cell)})
		}
		records = append(records, rec)
	}
	return recordTable(name, records), nil
}

func yamlScalar(n *yaml.Node) ir.Value {
	switch n.ShortTag() {
	case "!!int", "!!float":
		return ir.ParseCell(n.Value)
	case "!!bool":
		b, err := strconv.ParseBool(strings.ToLower(n.Value))
		if err != nil {
			return ir.String(n.Value)
		}
		return ir.Bool(b)
	case "!!null":
		return ir.String("")
	default:
		return ir.String(n.Value)
	}
}
