package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MappingFile is the optional document that maps workbook columns to table
// columns:
//
//	{
//	  "table": "clients",
//	  "columns": {
//	    "Excel Column A": "client_number",
//	    "Excel Column B": "name"
//	  }
//	}
//
// Table is only used when no table was given elsewhere. When Columns is
// absent the importer falls back to auto-matching.
type MappingFile struct {
	Table   string    `json:"table" yaml:"table"`
	Columns ColumnMap `json:"columns" yaml:"columns"`
}

// HasColumns reports whether the file carried a "columns" object, even an
// empty one.
func (m *MappingFile) HasColumns() bool { return m != nil && m.Columns != nil }

// ColumnPair is one source→destination entry.
type ColumnPair struct {
	Source string
	Dest   string
}

// ColumnMap is an object of source→destination names that keeps the order
// entries appear in the file. A repeated key replaces the earlier value in
// place.
type ColumnMap []ColumnPair

func (c *ColumnMap) set(src, dst string) {
	for i := range *c {
		if (*c)[i].Source == src {
			(*c)[i].Dest = dst
			return
		}
	}
	*c = append(*c, ColumnPair{Source: src, Dest: dst})
}

// UnmarshalJSON decodes a JSON object token by token to keep key order.
func (c *ColumnMap) UnmarshalJSON(b []byte) error {
	if string(bytes.TrimSpace(b)) == "null" {
		*c = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("columns: want object, got %v", tok)
	}
	out := ColumnMap{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := kt.(string)
		var val string
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("columns[%q]: %w", key, err)
		}
		out.set(key, val)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

// UnmarshalYAML decodes a YAML mapping node in document order.
func (c *ColumnMap) UnmarshalYAML(n *yaml.Node) error {
	if n.Tag == "!!null" {
		*c = nil
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("columns: line %d: want mapping", n.Line)
	}
	out := ColumnMap{}
	for i := 0; i+1 < len(n.Content); i += 2 {
		var key, val string
		if err := n.Content[i].Decode(&key); err != nil {
			return err
		}
		if err := n.Content[i+1].Decode(&val); err != nil {
			return fmt.Errorf("columns[%q]: %w", key, err)
		}
		out.set(key, val)
	}
	*c = out
	return nil
}
