package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind selects the entity collection a pipeline works on.
type Kind string

const (
	KindItem Kind = "item"
	KindMob  Kind = "mob"
)

// Kinds lists every supported kind.
var Kinds = []Kind{KindItem, KindMob}

// ParseKind accepts singular or plural kind names ("item", "items", "mob", "mobs").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "item", "items":
		return KindItem, nil
	case "mob", "mobs":
		return KindMob, nil
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// Plural returns the collection name used in URLs and payloads.
func (k Kind) Plural() string {
	return string(k) + "s"
}

// ID is an upstream identifier. The upstream APIs send ids either as JSON
// strings or as numbers; both decode to the same textual form.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Entity is an item or mob record returned by search.
type Entity struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	SpriteOverrideURL string `json:"sprite_override_url,omitempty"`
}

// Suggestion is one autosuggest row.
type Suggestion struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Suggestions projects entities onto suggestion rows, preserving order.
func Suggestions(entities []Entity) []Suggestion {
	out := make([]Suggestion, 0, len(entities))
	for _, e := range entities {
		out = append(out, Suggestion{ID: e.ID, Name: e.Name})
	}
	return out
}
