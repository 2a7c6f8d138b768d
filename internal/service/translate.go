package service

import (
	"context"
	"errors"
	"strings"

	"chronolookup-api/internal/model"
	"chronolookup-api/internal/upstream"

	"github.com/agnivade/levenshtein"
	"github.com/rs/zerolog"
)

// DefaultMaxNameDistance bounds the fuzzy name fallback.
const DefaultMaxNameDistance = 2

// Translator translates item and mob names between the Chinese and English
// locales by resolving a name to an id in one locale and reading the name of
// that id in the other.
type Translator struct {
	api         *upstream.API
	maxDistance int
	log         zerolog.Logger
}

// NewTranslator creates a translator.
func NewTranslator(api *upstream.API, log zerolog.Logger) *Translator {
	return &Translator{
		api:         api,
		maxDistance: DefaultMaxNameDistance,
		log:         log.With().Str("component", "Translator").Logger(),
	}
}

// Suggest searches the source locale for term and rebuilds the session's
// translation index from the rows. Duplicate names keep every id in order.
func (t *Translator) Suggest(ctx context.Context, sess *Session, kind model.Kind, mode model.TranslateMode, term string) ([]model.Suggestion, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		sess.SetTranslationIndex(kind, NewNameIndex(nil))
		return []model.Suggestion{}, nil
	}

	rows, err := t.api.SearchNames(ctx, kind, mode, term)
	if err != nil {
		t.log.Error().Err(err).Str("term", term).Msg("name search failed")
		return nil, err
	}
	sess.SetTranslationIndex(kind, NewNameIndex(rows))
	return rows, nil
}

// Translate resolves text to the target locale. The id is taken from, in
// order: selectedID, the session's pending selection, every id indexed under
// the exact name, and the ids of the closest indexed name. Candidates are
// tried in order until one resolves. The pending selection is cleared.
func (t *Translator) Translate(ctx context.Context, sess *Session, kind model.Kind, mode model.TranslateMode, text, selectedID string) model.Translation {
	text = strings.TrimSpace(text)
	out := model.Translation{Original: text}

	pending := sess.takeTranslationSelection(kind)
	if selectedID == "" {
		selectedID = pending
	}

	candidates := t.candidates(sess.TranslationIndex(kind), text, selectedID)
	if len(candidates) == 0 {
		out.Status = model.TranslationNoMatch
		return out
	}

	for _, id := range candidates {
		out.ID = id
		name, err := t.api.LookupName(ctx, kind, mode, id)
		if err == nil {
			out.Translated = name
			out.Status = model.TranslationOK
			return out
		}

		var se *upstream.StatusError
		if errors.As(err, &se) {
			out.Status = model.TranslationNotFound
		} else {
			out.Status = model.TranslationError
		}
		t.log.Debug().Err(err).Str("id", id).Str("mode", string(mode)).Msg("candidate did not resolve")
	}
	return out
}

func (t *Translator) candidates(idx *NameIndex, text, selectedID string) []string {
	if selectedID != "" {
		return []string{selectedID}
	}
	if ids := idx.IDs(text); len(ids) > 0 {
		return ids
	}
	if name, ok := closestName(idx, text, t.maxDistance); ok {
		return idx.IDs(name)
	}
	return nil
}

// closestName returns the indexed name with the smallest edit distance to
// text, if within max. Ties go to the name seen first.
func closestName(idx *NameIndex, text string, max int) (string, bool) {
	if text == "" {
		return "", false
	}
	best, bestDist := "", max+1
	for _, name := range idx.Names() {
		d := levenshtein.ComputeDistance(strings.ToLower(text), strings.ToLower(name))
		if d < bestDist {
			best, bestDist = name, d
		}
	}
	return best, best != ""
}
