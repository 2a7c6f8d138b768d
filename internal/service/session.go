package service

import (
	"sync"
	"time"

	"chronolookup-api/internal/model"
	"chronolookup-api/pkg/uid"
)

// NameIndex maps display names to the ids that carry them, in upstream order.
// Names are not unique, so one name may map to several ids.
type NameIndex struct {
	ids   map[string][]string
	names []string
}

// NewNameIndex builds an index from suggestion rows.
func NewNameIndex(rows []model.Suggestion) *NameIndex {
	idx := &NameIndex{ids: make(map[string][]string, len(rows))}
	for _, r := range rows {
		if _, seen := idx.ids[r.Name]; !seen {
			idx.names = append(idx.names, r.Name)
		}
		idx.ids[r.Name] = append(idx.ids[r.Name], r.ID)
	}
	return idx
}

// IDs returns the ids indexed under name, in order.
func (n *NameIndex) IDs(name string) []string {
	if n == nil {
		return nil
	}
	return append([]string(nil), n.ids[name]...)
}

// Names returns the distinct names in first-seen order.
func (n *NameIndex) Names() []string {
	if n == nil {
		return nil
	}
	return append([]string(nil), n.names...)
}

// Len returns the number of distinct names.
func (n *NameIndex) Len() int {
	if n == nil {
		return 0
	}
	return len(n.names)
}

// searchState is the per-kind state of one client's search box.
type searchState struct {
	token     uint64
	index     *NameIndex
	overrides map[string]string
	selection string
	debouncer *Debouncer
}

// translateState is the per-kind state of one client's translation box.
type translateState struct {
	index     *NameIndex
	selection string
}

// Session holds the state of one client across requests: search tokens, the
// name index and sprite overrides of the latest applied search, and the
// current selections.
type Session struct {
	id string

	mu        sync.Mutex
	lastSeen  time.Time
	debounce  time.Duration
	search    map[model.Kind]*searchState
	translate map[model.Kind]*translateState
}

// NewSession creates an empty session. An empty id gets a fresh uuid.
func NewSession(id string, debounce time.Duration) *Session {
	if id == "" {
		id = uid.New()
	}
	return &Session{
		id:        id,
		lastSeen:  time.Now(),
		debounce:  debounce,
		search:    make(map[model.Kind]*searchState),
		translate: make(map[model.Kind]*translateState),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

func (s *Session) searchFor(kind model.Kind) *searchState {
	st, ok := s.search[kind]
	if !ok {
		st = &searchState{index: NewNameIndex(nil), overrides: map[string]string{}}
		s.search[kind] = st
	}
	return st
}

func (s *Session) translateFor(kind model.Kind) *translateState {
	st, ok := s.translate[kind]
	if !ok {
		st = &translateState{index: NewNameIndex(nil)}
		s.translate[kind] = st
	}
	return st
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// NextToken issues a new search token for kind, superseding older ones. A
// new search clears the pending selection.
func (s *Session) NextToken(kind model.Kind) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.searchFor(kind)
	st.token++
	st.selection = ""
	return st.token
}

// IsLatest reports whether token is still the newest search token.
func (s *Session) IsLatest(kind model.Kind, token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchFor(kind).token == token
}

// applySearch replaces the name index and sprite overrides with entities,
// unless token has been superseded.
func (s *Session) applySearch(kind model.Kind, token uint64, entities []model.Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.searchFor(kind)
	if st.token != token {
		return false
	}
	st.index = NewNameIndex(model.Suggestions(entities))
	st.overrides = make(map[string]string)
	for _, e := range entities {
		if e.SpriteOverrideURL != "" {
			st.overrides[e.ID] = e.SpriteOverrideURL
		}
	}
	return true
}

// SearchIndex returns the name index of the latest applied search.
func (s *Session) SearchIndex(kind model.Kind) *NameIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchFor(kind).index
}

// SpriteOverride returns the override recorded for id by the latest search.
func (s *Session) SpriteOverride(kind model.Kind, id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.searchFor(kind).overrides[id]
	return u, ok
}

// Select records the chosen id for a later detail request.
func (s *Session) Select(kind model.Kind, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchFor(kind).selection = id
}

// SelectByName selects the first id indexed under name by the latest search.
func (s *Session) SelectByName(kind model.Kind, name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.searchFor(kind)
	ids := st.index.IDs(name)
	if len(ids) == 0 {
		return "", false
	}
	st.selection = ids[0]
	return ids[0], true
}

// Selection returns the current selection without consuming it.
func (s *Session) Selection(kind model.Kind) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.searchFor(kind).selection
	return id, id != ""
}

// TakeSelection returns and clears the current selection.
func (s *Session) TakeSelection(kind model.Kind) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.searchFor(kind)
	id := st.selection
	st.selection = ""
	return id, id != ""
}

// Debouncer returns the search-box debouncer for kind.
func (s *Session) Debouncer(kind model.Kind) *Debouncer {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.searchFor(kind)
	if st.debouncer == nil {
		st.debouncer = NewDebouncer(s.debounce)
	}
	return st.debouncer
}

// SetTranslationIndex replaces the translation name index for kind.
func (s *Session) SetTranslationIndex(kind model.Kind, idx *NameIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.translateFor(kind).index = idx
}

// TranslationIndex returns the translation name index for kind.
func (s *Session) TranslationIndex(kind model.Kind) *NameIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.translateFor(kind).index
}

// SelectTranslation records the id picked from translation suggestions.
func (s *Session) SelectTranslation(kind model.Kind, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.translateFor(kind).selection = id
}

// takeTranslationSelection returns and clears the translation selection.
func (s *Session) takeTranslationSelection(kind model.Kind) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.translateFor(kind)
	id := st.selection
	st.selection = ""
	return id
}

// close cancels any pending debounced work.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.search {
		if st.debouncer != nil {
			st.debouncer.Cancel()
		}
	}
}

// SessionRegistry owns every live session and evicts idle ones.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	idleTTL  time.Duration
	debounce time.Duration
	now      func() time.Time
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry(idleTTL, debounce time.Duration) *SessionRegistry {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &SessionRegistry{
		sessions: make(map[string]*Session),
		idleTTL:  idleTTL,
		debounce: debounce,
		now:      time.Now,
	}
}

// Get returns the session for id, creating it when absent. An empty id
// creates a session with a fresh id.
func (r *SessionRegistry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if s, ok := r.sessions[id]; ok && id != "" {
		s.touch(now)
		return s
	}
	s := NewSession(id, r.debounce)
	s.touch(now)
	r.sessions[s.ID()] = s
	return s
}

// Sweep evicts sessions idle for longer than the TTL.
func (r *SessionRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTTL)
	removed := 0
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			s.close()
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
