package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"chronolookup-api/internal/cache"
	"chronolookup-api/internal/retry"
	"chronolookup-api/internal/upstream"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// instantTimer fires immediately so retry sequences run without sleeping.
type instantTimer struct{ c chan time.Time }

func (t *instantTimer) Start(time.Duration)  { t.c <- time.Now() }
func (t *instantTimer) Stop()                {}
func (t *instantTimer) C() <-chan time.Time  { return t.c }
func newInstantTimer() backoff.Timer         { return &instantTimer{c: make(chan time.Time, 1)} }

// fakeUpstream routes requests by path and counts them.
type fakeUpstream struct {
	mu     sync.Mutex
	calls  map[string]int
	routes map[string]http.HandlerFunc
	srv    *httptest.Server
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{calls: map[string]int{}, routes: map[string]http.HandlerFunc{}}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.URL.Path]++
		h, ok := f.routes[r.URL.Path]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeUpstream) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[path] = h
}

func (f *fakeUpstream) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeUpstream) api() *upstream.API {
	client := upstream.NewClient(upstream.Options{Timeout: 5 * time.Second}, zerolog.Nop())
	return upstream.NewAPI(client, upstream.Endpoints{
		Search:         f.srv.URL + "/api/unified-search",
		ItemInfo:       f.srv.URL + "/api/item-info",
		MobInfo:        f.srv.URL + "/api/mob-info",
		MobSearch:      f.srv.URL + "/api/mob-search",
		MobDrops:       f.srv.URL + "/api/mob-drops",
		SpriteBase:     f.srv.URL,
		IconBase:       f.srv.URL + "/gms62",
		RenderBase:     f.srv.URL + "/gms83",
		LocaleTW:       f.srv.URL + "/twms256",
		LocaleEN:       f.srv.URL + "/gms83",
		LocaleENLookup: f.srv.URL + "/gms62",
	})
}

func newTestRetry() *retry.Controller {
	return retry.NewController(retry.Default(), retry.WithTimer(newInstantTimer))
}

func writeString(w http.ResponseWriter, s string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(s))
}

// memSnapshotStore is an in-memory cache.SnapshotStore.
type memSnapshotStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemSnapshotStore() *memSnapshotStore {
	return &memSnapshotStore{data: map[string][]byte{}}
}

func (s *memSnapshotStore) SaveSnapshot(_ context.Context, name string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = append([]byte(nil), payload...)
	return nil
}

func (s *memSnapshotStore) LoadSnapshot(_ context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data[name]
	if !ok {
		return nil, cache.ErrSnapshotNotFound
	}
	return p, nil
}

func (s *memSnapshotStore) DeleteSnapshot(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
	return nil
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
