// Package labels maps upstream item discriminators to display labels.
package labels

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed labels.yaml
var defaultTable []byte

// Table holds the label maps. Unknown keys render as themselves.
type Table struct {
	Type     map[string]string `yaml:"type"`
	SubType  map[string]string `yaml:"sub_type"`
	Category map[string]string `yaml:"category"`
}

// Parse decodes a label table from YAML.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse label table: %w", err)
	}
	return &t, nil
}

var (
	defaultOnce sync.Once
	defaultTbl  *Table
)

// Default returns the embedded table.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Parse(defaultTable)
		if err != nil {
			panic(err)
		}
		defaultTbl = t
	})
	return defaultTbl
}

func lookup(m map[string]string, key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return key
}

// TypeName translates an item type.
func (t *Table) TypeName(typ string) string { return lookup(t.Type, typ) }

// SubTypeName translates an item sub-type.
func (t *Table) SubTypeName(sub string) string { return lookup(t.SubType, sub) }

// CategoryName translates an equipment category.
func (t *Table) CategoryName(cat string) string { return lookup(t.Category, cat) }

// TypeLabel renders "<type> - <sub-type>", or "" unless both are present.
func (t *Table) TypeLabel(typ, sub string) string {
	if typ == "" || sub == "" {
		return ""
	}
	return t.TypeName(typ) + " - " + t.SubTypeName(sub)
}
