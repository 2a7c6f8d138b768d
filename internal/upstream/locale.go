package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"chronolookup-api/internal/model"
)

type localeRow struct {
	ID   model.ID `json:"id"`
	Name string   `json:"name"`
}

// searchBase is the locale searched by the source language of mode.
func (a *API) searchBase(mode model.TranslateMode) string {
	if mode == model.ModeEnToCh {
		return a.ep.LocaleEN
	}
	return a.ep.LocaleTW
}

// lookupBase is the locale resolved in the target language of mode.
func (a *API) lookupBase(mode model.TranslateMode) string {
	if mode == model.ModeEnToCh {
		return a.ep.LocaleTW
	}
	return a.ep.LocaleENLookup
}

// SearchNames searches the source-language locale for names containing term.
// Rows without an id or a name are dropped; order and duplicate names are kept.
func (a *API) SearchNames(ctx context.Context, kind model.Kind, mode model.TranslateMode, term string) ([]model.Suggestion, error) {
	raw := strings.TrimRight(a.searchBase(mode), "/") + "/" + string(kind) + "?&searchFor=" + url.QueryEscape(term)

	body, err := a.client.Get(ctx, raw, Direct)
	if err != nil {
		return nil, err
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: name search is not a list: %v", ErrMalformedResponse, err)
	}

	out := make([]model.Suggestion, 0, len(rows))
	for _, r := range rows {
		var row localeRow
		if err := json.Unmarshal(r, &row); err != nil {
			continue
		}
		if row.ID == "" || row.Name == "" {
			continue
		}
		out = append(out, model.Suggestion{ID: string(row.ID), Name: row.Name})
	}
	return out, nil
}

// LookupName resolves id in the target-language locale. Item records carry the
// name under description.name on newer endpoint versions and under name on
// older ones; mob records carry it under name.
func (a *API) LookupName(ctx context.Context, kind model.Kind, mode model.TranslateMode, id string) (string, error) {
	raw := strings.TrimRight(a.lookupBase(mode), "/") + "/" + string(kind) + "/" + url.PathEscape(id)

	body, err := a.client.Get(ctx, raw, Direct)
	if err != nil {
		return "", err
	}
	return parseLocaleName(kind, body)
}

func parseLocaleName(kind model.Kind, body []byte) (string, error) {
	var p struct {
		Name        string          `json:"name"`
		Description json.RawMessage `json:"description"`
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if kind == model.KindItem && len(p.Description) > 0 {
		var d struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(p.Description, &d); err == nil && d.Name != "" {
			return d.Name, nil
		}
	}
	if p.Name != "" {
		return p.Name, nil
	}
	return "", fmt.Errorf("%w: no name field for %s", ErrMalformedResponse, kind)
}
