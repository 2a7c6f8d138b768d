package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"chronolookup-api/internal/cache"
	"chronolookup-api/internal/metrics"
	"chronolookup-api/internal/model"
	"chronolookup-api/internal/retry"
	"chronolookup-api/internal/upstream"

	"github.com/rs/zerolog"
)

// ErrEmptyQuery is returned where a non-empty query is required.
var ErrEmptyQuery = errors.New("query is empty")

// KindSpec names what is fixed per entity kind outside the wire adapters.
type KindSpec struct {
	Kind         model.Kind
	SnapshotName string
}

var (
	ItemSpec = KindSpec{Kind: model.KindItem, SnapshotName: "itemSearchCache"}
	MobSpec  = KindSpec{Kind: model.KindMob, SnapshotName: "mobSearchCache"}
)

// SpecFor returns the KindSpec of kind.
func SpecFor(kind model.Kind) KindSpec {
	if kind == model.KindMob {
		return MobSpec
	}
	return ItemSpec
}

// SearchState is the renderable state a search ends in.
type SearchState string

const (
	StateIdle      SearchState = "idle"
	StateResults   SearchState = "results"
	StateNoResults SearchState = "no_results"
	StateStale     SearchState = "stale"
)

// SearchOutcome is the result of one search.
type SearchOutcome struct {
	State       SearchState        `json:"state"`
	Query       string             `json:"query"`
	Suggestions []model.Suggestion `json:"suggestions"`
	Cached      bool               `json:"cached"`
	Token       uint64             `json:"token"`
}

// SuggestionSink receives the outcome of debounced searches.
type SuggestionSink func(SearchOutcome, error)

// SearchPipeline turns queries into suggestion lists through the cache and
// the retrying upstream search.
type SearchPipeline struct {
	spec  KindSpec
	cache cache.Cache
	api   *upstream.API
	retry *retry.Controller
	log   zerolog.Logger
}

// NewSearchPipeline creates a search pipeline for one kind.
func NewSearchPipeline(spec KindSpec, c cache.Cache, api *upstream.API, rc *retry.Controller, log zerolog.Logger) *SearchPipeline {
	return &SearchPipeline{
		spec:  spec,
		cache: c,
		api:   api,
		retry: rc,
		log:   log.With().Str("component", "SearchPipeline").Str("kind", string(spec.Kind)).Logger(),
	}
}

// Kind returns the entity kind served.
func (p *SearchPipeline) Kind() model.Kind { return p.spec.Kind }

// Search runs one query for sess. An empty query clears the suggestions
// without a network call. A result superseded by a newer search of the same
// session is reported as stale and not applied. On retry exhaustion the cache
// is not written and a *retry.ExhaustedError is returned.
func (p *SearchPipeline) Search(ctx context.Context, sess *Session, query string) (SearchOutcome, error) {
	kind := p.spec.Kind
	q := strings.TrimSpace(query)

	token := sess.NextToken(kind)
	if q == "" {
		return SearchOutcome{State: StateIdle, Suggestions: []model.Suggestion{}, Token: token}, nil
	}

	entities, cached, err := p.lookup(ctx, q)
	if err != nil {
		if !sess.IsLatest(kind, token) {
			return p.stale(q, token), nil
		}
		return SearchOutcome{Query: q, Token: token}, err
	}

	if !sess.applySearch(kind, token, entities) {
		return p.stale(q, token), nil
	}

	out := SearchOutcome{
		State:       StateResults,
		Query:       q,
		Suggestions: model.Suggestions(entities),
		Cached:      cached,
		Token:       token,
	}
	if len(entities) == 0 {
		out.State = StateNoResults
	}
	return out, nil
}

func (p *SearchPipeline) stale(q string, token uint64) SearchOutcome {
	metrics.StaleResults.WithLabelValues(string(p.spec.Kind)).Inc()
	p.log.Debug().Str("query", q).Uint64("token", token).Msg("discarding superseded search result")
	return SearchOutcome{State: StateStale, Query: q, Suggestions: []model.Suggestion{}, Token: token}
}

// lookup serves q from the cache, or from upstream with retries.
func (p *SearchPipeline) lookup(ctx context.Context, q string) ([]model.Entity, bool, error) {
	if data, err := p.cache.Get(ctx, cache.NamespaceSearch, q); err == nil {
		var entities []model.Entity
		err = json.Unmarshal(data, &entities)
		if err == nil {
			if entities == nil {
				entities = []model.Entity{}
			}
			return entities, true, nil
		}
		p.log.Warn().Err(err).Str("query", q).Msg("unreadable cached search result, refetching")
	}

	// A started retry sequence runs to completion even if the caller goes away.
	detached := context.WithoutCancel(ctx)

	var body []byte
	err := p.retry.Run(detached, "search:"+string(p.spec.Kind), func(ctx context.Context) error {
		b, err := p.api.Search(ctx, q)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		p.log.Error().Err(err).Str("query", q).Msg("search failed")
		return nil, false, err
	}

	entities := p.api.ParseSearch(p.spec.Kind, body)
	data, err := json.Marshal(entities)
	if err == nil {
		if err := p.cache.Set(detached, cache.NamespaceSearch, q, data); err != nil {
			p.log.Warn().Err(err).Str("query", q).Msg("failed to cache search result")
		}
	}
	return entities, false, nil
}

// Input feeds one keystroke state of the search box. Non-empty input is
// debounced and the outcome delivered to sink; empty input cancels the
// pending search and clears the suggestions at once. Stale outcomes are not
// delivered.
func (p *SearchPipeline) Input(ctx context.Context, sess *Session, query string, sink SuggestionSink) {
	d := sess.Debouncer(p.spec.Kind)
	q := strings.TrimSpace(query)

	if q == "" {
		d.Cancel()
		out, err := p.Search(ctx, sess, "")
		sink(out, err)
		return
	}

	detached := context.WithoutCancel(ctx)
	d.Schedule(func() {
		out, err := p.Search(detached, sess, q)
		if err == nil && out.State == StateStale {
			return
		}
		sink(out, err)
	})
}
