package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"chronolookup-api/internal/model"
)

// Endpoints holds the upstream base URLs.
type Endpoints struct {
	Search    string
	ItemInfo  string
	MobInfo   string
	MobSearch string
	MobDrops  string

	SpriteBase string
	IconBase   string
	RenderBase string

	LocaleTW       string
	LocaleEN       string
	LocaleENLookup string
}

// API knows the per-kind shape of every upstream endpoint.
type API struct {
	client *Client
	ep     Endpoints
}

// NewAPI creates an API over client.
func NewAPI(client *Client, ep Endpoints) *API {
	return &API{client: client, ep: ep}
}

// Client returns the underlying HTTP client.
func (a *API) Client() *Client { return a.client }

type spriteOverride struct {
	URL string `json:"url"`
}

type searchRow struct {
	ItemID         model.ID        `json:"item_id"`
	ItemName       string          `json:"item_name"`
	MobID          model.ID        `json:"mob_id"`
	MobName        string          `json:"mob_name"`
	SpriteOverride *spriteOverride `json:"sprite_override"`
	Chance         flexFloat       `json:"chance"`
}

func (r searchRow) id(kind model.Kind) string {
	if kind == model.KindMob {
		return string(r.MobID)
	}
	return string(r.ItemID)
}

func (r searchRow) name(kind model.Kind) string {
	if kind == model.KindMob {
		return r.MobName
	}
	return r.ItemName
}

func (r searchRow) override() string {
	if r.SpriteOverride == nil {
		return ""
	}
	return r.SpriteOverride.URL
}

// flexFloat accepts a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// decodeRows decodes a JSON array row by row, skipping rows that do not decode.
func decodeRows(raw json.RawMessage) []searchRow {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil
	}
	rows := make([]searchRow, 0, len(elems))
	for _, e := range elems {
		var r searchRow
		if err := json.Unmarshal(e, &r); err != nil {
			continue
		}
		rows = append(rows, r)
	}
	return rows
}

// Search performs one unified-search call and returns the raw body.
func (a *API) Search(ctx context.Context, query string) ([]byte, error) {
	return a.client.Post(ctx, a.ep.Search, Proxied, map[string]string{"query": query})
}

// ParseSearch normalizes a unified-search body into entities of kind. A missing
// collection field or an unparsable body yields an empty list. Rows without an
// id or a name are dropped.
func (a *API) ParseSearch(kind model.Kind, body []byte) []model.Entity {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return []model.Entity{}
	}

	rows := decodeRows(payload[kind.Plural()])
	out := make([]model.Entity, 0, len(rows))
	for _, r := range rows {
		id, name := r.id(kind), r.name(kind)
		if id == "" || name == "" {
			continue
		}
		e := model.Entity{ID: id, Name: name}
		if o := r.override(); o != "" {
			e.SpriteOverrideURL = a.SpriteURL(o)
		}
		out = append(out, e)
	}
	return out
}

// Detail fetches the raw detail payload of one entity.
func (a *API) Detail(ctx context.Context, kind model.Kind, id string) ([]byte, error) {
	var raw string
	switch kind {
	case model.KindMob:
		raw = a.ep.MobInfo + "?mobId=" + url.QueryEscape(id)
	default:
		raw = a.ep.ItemInfo + "?itemId=" + url.QueryEscape(id)
	}

	body, err := a.client.Get(ctx, raw, Proxied)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: detail for %s %s is not JSON", ErrMalformedResponse, kind, id)
	}
	return body, nil
}

// ParseDetailHeader extracts the name and discriminator fields. Item payloads
// keep them at the top level; mob payloads nest the record under "mob".
func ParseDetailHeader(kind model.Kind, body []byte) (model.DetailHeader, error) {
	if kind == model.KindMob {
		var p struct {
			Mob *struct {
				Name string `json:"mob_name"`
			} `json:"mob"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return model.DetailHeader{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if p.Mob == nil {
			return model.DetailHeader{}, nil
		}
		return model.DetailHeader{Name: p.Mob.Name}, nil
	}

	var p struct {
		Name    string `json:"item_name"`
		Type    string `json:"type"`
		SubType string `json:"sub_type"`
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return model.DetailHeader{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return model.DetailHeader{Name: p.Name, Type: p.Type, SubType: p.SubType}, nil
}

// CrossRefs fetches the other side of the drop relation: mobs that drop an
// item, or items a mob drops.
func (a *API) CrossRefs(ctx context.Context, kind model.Kind, id string) ([]model.CrossRef, error) {
	var raw string
	other := model.KindMob
	switch kind {
	case model.KindMob:
		raw = a.ep.MobDrops + "?mobId=" + url.QueryEscape(id)
		other = model.KindItem
	default:
		raw = a.ep.MobSearch + "?itemId=" + url.QueryEscape(id)
	}

	body, err := a.client.Get(ctx, raw, Proxied)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: cross references for %s %s are not a list", ErrMalformedResponse, kind, id)
	}

	rows := decodeRows(trimmed)
	out := make([]model.CrossRef, 0, len(rows))
	for _, r := range rows {
		rid := r.id(other)
		if rid == "" {
			continue
		}
		ref := model.CrossRef{Kind: other, ID: rid, Name: r.name(other), Chance: float64(r.Chance)}
		if o := r.override(); o != "" {
			ref.IconURL = a.SpriteURL(o)
		} else {
			ref.IconURL = a.crossRefIconURL(other, rid)
		}
		out = append(out, ref)
	}
	return out, nil
}

func (a *API) crossRefIconURL(kind model.Kind, id string) string {
	if kind == model.KindMob {
		return strings.TrimRight(a.ep.RenderBase, "/") + "/mob/" + url.PathEscape(id) + "/render/stand"
	}
	return a.PrimaryIconURL(model.KindItem, id)
}

// SpriteURL makes a sprite override absolute.
func (a *API) SpriteURL(override string) string {
	if strings.HasPrefix(override, "http://") || strings.HasPrefix(override, "https://") || strings.HasPrefix(override, "data:") {
		return override
	}
	base := strings.TrimRight(a.ep.SpriteBase, "/")
	if !strings.HasPrefix(override, "/") {
		override = "/" + override
	}
	return base + override
}

// PrimaryIconURL is the first remote icon source for an entity.
func (a *API) PrimaryIconURL(kind model.Kind, id string) string {
	base := strings.TrimRight(a.ep.IconBase, "/")
	if kind == model.KindMob {
		return base + "/mob/" + url.PathEscape(id) + "/render/stand"
	}
	return base + "/item/" + url.PathEscape(id) + "/icon"
}

// SecondaryIconURL is the fallback remote icon source and the route to reach it.
func (a *API) SecondaryIconURL(kind model.Kind, id string) (string, Route) {
	if kind == model.KindMob {
		return strings.TrimRight(a.ep.RenderBase, "/") + "/mob/" + url.PathEscape(id) + "/render/stand", Direct
	}
	return strings.TrimRight(a.ep.SpriteBase, "/") + "/sprites/" + url.PathEscape(id) + ".png", Proxied
}

// FetchIcon downloads an icon image.
func (a *API) FetchIcon(ctx context.Context, raw string, route Route) (Blob, error) {
	return a.client.GetBytes(ctx, raw, route)
}
