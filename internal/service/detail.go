package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"chronolookup-api/internal/cache"
	"chronolookup-api/internal/labels"
	"chronolookup-api/internal/metrics"
	"chronolookup-api/internal/model"
	"chronolookup-api/internal/upstream"

	"github.com/rs/zerolog"
)

// PlaceholderIcon is the embedded "No Icon" image used when every icon source fails.
const PlaceholderIcon = "data:image/svg+xml;base64,PHN2ZyB3aWR0aD0iNjQiIGhlaWdodD0iNjQiIHZpZXdCb3g9IjAgMCA2NCA2NCIgZmlsbD0ibm9uZSIgeG1sbnM9Imh0dHA6Ly93d3cudzMub3JnLzIwMDAvc3ZnIj4KPHJlY3Qgd2lkdGg9IjY0IiBoZWlnaHQ9IjY0IiBmaWxsPSIjRjVGNUY1Ii8+Cjx0ZXh0IHg9IjMyIiB5PSI0MCIgdGV4dC1hbmNob3I9Im1pZGRsZSIgZm9udC1mYW1pbHk9IkFyaWFsIiBmb250LXNpemU9IjEwIiBmaWxsPSIjOTk5Ij5ObyBJY29uPC90ZXh0Pgo8L3N2Zz4K"

var (
	// ErrNoSelection is returned by FetchSelected when nothing is selected.
	ErrNoSelection = errors.New("no entity selected")

	// ErrInvalidID is returned for an empty id.
	ErrInvalidID = errors.New("invalid id")
)

// SelectView picks the rendering branch for a detail payload. Absent or
// unreadable discriminators select the generic branch.
func SelectView(kind model.Kind, payload []byte) model.ViewKind {
	if kind == model.KindMob {
		return model.ViewMob
	}
	h, err := upstream.ParseDetailHeader(kind, payload)
	if err != nil {
		return model.ViewGeneric
	}
	return viewFor(kind, h)
}

func viewFor(kind model.Kind, h model.DetailHeader) model.ViewKind {
	switch {
	case kind == model.KindMob:
		return model.ViewMob
	case h.Type == "Eqp":
		return model.ViewEquipment
	case h.SubType == "Scroll":
		return model.ViewScroll
	case h.SubType == "Potion":
		return model.ViewPotion
	default:
		return model.ViewGeneric
	}
}

// DetailPipeline assembles the detail view of one entity: payload, icon and
// cross references.
type DetailPipeline struct {
	kind   model.Kind
	cache  cache.Cache
	api    *upstream.API
	labels *labels.Table
	log    zerolog.Logger
}

// NewDetailPipeline creates a detail pipeline for one kind.
func NewDetailPipeline(kind model.Kind, c cache.Cache, api *upstream.API, tbl *labels.Table, log zerolog.Logger) *DetailPipeline {
	if tbl == nil {
		tbl = labels.Default()
	}
	return &DetailPipeline{
		kind:   kind,
		cache:  c,
		api:    api,
		labels: tbl,
		log:    log.With().Str("component", "DetailPipeline").Str("kind", string(kind)).Logger(),
	}
}

// Kind returns the entity kind served.
func (p *DetailPipeline) Kind() model.Kind { return p.kind }

// FetchSelected fetches the session's current selection and clears it.
func (p *DetailPipeline) FetchSelected(ctx context.Context, sess *Session) (*model.DetailView, error) {
	id, ok := sess.TakeSelection(p.kind)
	if !ok {
		return nil, ErrNoSelection
	}
	return p.Fetch(ctx, sess, id)
}

// Fetch builds the detail view of id. Only a failure to obtain the detail
// payload fails the call; icon and cross-reference failures degrade.
func (p *DetailPipeline) Fetch(ctx context.Context, sess *Session, id string) (*model.DetailView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidID
	}

	payload, err := p.detail(ctx, id)
	if err != nil {
		return nil, err
	}

	header, err := upstream.ParseDetailHeader(p.kind, payload)
	if err != nil {
		p.log.Warn().Err(err).Str("id", id).Msg("detail payload has unexpected shape")
	}

	view := &model.DetailView{
		Kind:      p.kind,
		ID:        id,
		Name:      header.Name,
		View:      viewFor(p.kind, header),
		Icon:      p.ResolveIcon(ctx, sess, id),
		Detail:    json.RawMessage(payload),
		CrossRefs: p.CrossRefs(ctx, id),
	}
	if p.kind == model.KindItem {
		view.TypeLabel = p.labels.TypeLabel(header.Type, header.SubType)
	}
	return view, nil
}

func (p *DetailPipeline) detail(ctx context.Context, id string) ([]byte, error) {
	if data, err := p.cache.Get(ctx, cache.NamespaceDetail, id); err == nil {
		return data, nil
	}

	payload, err := p.api.Detail(ctx, p.kind, id)
	if err != nil {
		p.log.Error().Err(err).Str("id", id).Msg("failed to fetch detail")
		return nil, fmt.Errorf("fetch %s %s: %w", p.kind, id, err)
	}
	if err := p.cache.Set(ctx, cache.NamespaceDetail, id, payload); err != nil {
		p.log.Warn().Err(err).Str("id", id).Msg("failed to cache detail")
	}
	return payload, nil
}

// ResolveIcon walks the icon fallback chain: the session's sprite override,
// the icon cache, the primary endpoint, the secondary endpoint, and finally
// the placeholder. Sources are tried strictly in order and it never fails.
func (p *DetailPipeline) ResolveIcon(ctx context.Context, sess *Session, id string) model.Icon {
	if sess != nil {
		if u, ok := sess.SpriteOverride(p.kind, id); ok {
			return p.resolved(model.Icon{URL: u, Source: model.IconOverride})
		}
	}

	if data, err := p.cache.Get(ctx, cache.NamespaceIcon, id); err == nil {
		var icon model.Icon
		if err := json.Unmarshal(data, &icon); err == nil && icon.URL != "" {
			icon.Cached = true
			return icon
		}
	}

	primary := p.api.PrimaryIconURL(p.kind, id)
	blob, err := p.api.FetchIcon(ctx, primary, upstream.Direct)
	if err == nil {
		return p.remember(ctx, id, model.Icon{URL: blob.DataURI(), Source: model.IconPrimary})
	}
	p.log.Debug().Err(err).Str("id", id).Msg("primary icon unavailable")

	secondary, route := p.api.SecondaryIconURL(p.kind, id)
	blob, err = p.api.FetchIcon(ctx, secondary, route)
	if err == nil {
		return p.remember(ctx, id, model.Icon{URL: blob.DataURI(), Source: model.IconSecondary})
	}
	p.log.Debug().Err(err).Str("id", id).Msg("secondary icon unavailable")

	return p.resolved(model.Icon{URL: PlaceholderIcon, Source: model.IconPlaceholder})
}

func (p *DetailPipeline) resolved(icon model.Icon) model.Icon {
	metrics.IconResolutions.WithLabelValues(string(p.kind), string(icon.Source)).Inc()
	return icon
}

func (p *DetailPipeline) remember(ctx context.Context, id string, icon model.Icon) model.Icon {
	if data, err := json.Marshal(icon); err == nil {
		if err := p.cache.Set(ctx, cache.NamespaceIcon, id, data); err != nil {
			p.log.Warn().Err(err).Str("id", id).Msg("failed to cache icon")
		}
	}
	return p.resolved(icon)
}

// CrossRefs returns the drop relation rows for id. Any failure yields an
// empty set, which is not cached.
func (p *DetailPipeline) CrossRefs(ctx context.Context, id string) []model.CrossRef {
	if data, err := p.cache.Get(ctx, cache.NamespaceCrossRef, id); err == nil {
		var refs []model.CrossRef
		if err := json.Unmarshal(data, &refs); err == nil {
			if refs == nil {
				refs = []model.CrossRef{}
			}
			return refs
		}
	}

	refs, err := p.api.CrossRefs(ctx, p.kind, id)
	if err != nil {
		p.log.Warn().Err(err).Str("id", id).Msg("cross references unavailable, continuing without them")
		return []model.CrossRef{}
	}

	if data, err := json.Marshal(refs); err == nil {
		if err := p.cache.Set(ctx, cache.NamespaceCrossRef, id, data); err != nil {
			p.log.Warn().Err(err).Str("id", id).Msg("failed to cache cross references")
		}
	}
	return refs
}
