package model

import "encoding/json"

// ViewKind is the rendering branch selected for a detail payload.
type ViewKind string

const (
	ViewEquipment ViewKind = "equipment"
	ViewScroll    ViewKind = "scroll"
	ViewPotion    ViewKind = "potion"
	ViewGeneric   ViewKind = "generic"
	ViewMob       ViewKind = "mob"
)

// IconSource records which link of the icon fallback chain produced an icon.
type IconSource string

const (
	IconOverride    IconSource = "override"
	IconPrimary     IconSource = "primary"
	IconSecondary   IconSource = "secondary"
	IconPlaceholder IconSource = "placeholder"
)

// Icon is a resolved icon URL: a remote URL, a data URI, or the placeholder.
type Icon struct {
	URL    string     `json:"url"`
	Source IconSource `json:"source"`
	Cached bool       `json:"cached,omitempty"`
}

// CrossRef is one row of cross-reference data: a mob dropping an item, or an
// item dropped by a mob.
type CrossRef struct {
	Kind    Kind    `json:"kind"`
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Chance  float64 `json:"chance"`
	IconURL string  `json:"icon_url"`
}

// DetailHeader holds the discriminator fields read from a detail payload.
type DetailHeader struct {
	Name    string
	Type    string
	SubType string
}

// DetailView is the output of the detail retrieval pipeline.
type DetailView struct {
	Kind      Kind            `json:"kind"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	View      ViewKind        `json:"view"`
	TypeLabel string          `json:"type_label,omitempty"`
	Icon      Icon            `json:"icon"`
	Detail    json.RawMessage `json:"detail"`
	CrossRefs []CrossRef      `json:"cross_refs"`
}
