package cache

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
	saveErr error
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (s *memStore) SaveSnapshot(_ context.Context, name string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data[name] = append([]byte(nil), payload...)
	return nil
}

func (s *memStore) LoadSnapshot(_ context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data[name]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return p, nil
}

func (s *memStore) DeleteSnapshot(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
	s.deleted = append(s.deleted, name)
	return nil
}

func TestPersister_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src, clock := newTestCache(t)
	store := newMemStore()

	require.NoError(t, src.Set(ctx, NamespaceSearch, "power", []byte(`[{"id":"1302000","name":"Power Sword"}]`)))
	require.NoError(t, src.Set(ctx, NamespaceDetail, "1302000", []byte(`{"id":1302000}`)))
	require.NoError(t, src.Set(ctx, NamespaceIcon, "1302000", []byte(`"data:image/png;base64,AA=="`)))

	require.NoError(t, NewPersister(src, store, "itemSearchCache", zerolog.Nop()).Persist(ctx))

	clock.Advance(time.Hour)
	dst := NewMemoryCache("items", DefaultExpiry, WithClock(clock.Now))
	n, err := NewPersister(dst, store, "itemSearchCache", zerolog.Nop()).Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, ns := range Namespaces {
		for key := range src.Snapshot().Namespaces[ns] {
			want, err := src.Get(ctx, ns, key)
			require.NoError(t, err)
			got, err := dst.Get(ctx, ns, key)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	}
}

func TestPersister_RoundTripKeepsExactBytes(t *testing.T) {
	ctx := context.Background()
	src, _ := newTestCache(t)
	store := newMemStore()

	payload := []byte("{\n  \"item_name\": \"A<B>&C\"\n}")
	require.NoError(t, src.Set(ctx, NamespaceDetail, "1302000", payload))
	require.NoError(t, NewPersister(src, store, "itemSearchCache", zerolog.Nop()).Persist(ctx))

	dst, _ := newTestCache(t)
	_, err := NewPersister(dst, store, "itemSearchCache", zerolog.Nop()).Restore(ctx)
	require.NoError(t, err)

	got, err := dst.Get(ctx, NamespaceDetail, "1302000")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	var buf bytes.Buffer
	require.NoError(t, NewPersister(src, nil, "itemSearchCache", zerolog.Nop()).Export(&buf))
	imported, _ := newTestCache(t)
	_, err = NewPersister(imported, nil, "itemSearchCache", zerolog.Nop()).Import(&buf)
	require.NoError(t, err)
	got, err = imported.Get(ctx, NamespaceDetail, "1302000")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestPersister_ExpiredSnapshotDiscardedWhole(t *testing.T) {
	ctx := context.Background()
	src, clock := newTestCache(t)
	store := newMemStore()

	require.NoError(t, src.Set(ctx, NamespaceSearch, "power", []byte(`[]`)))
	clock.Advance(20 * time.Hour)
	require.NoError(t, src.Set(ctx, NamespaceSearch, "fresh", []byte(`[]`)))
	require.NoError(t, NewPersister(src, store, "itemSearchCache", zerolog.Nop()).Persist(ctx))

	clock.Advance(DefaultExpiry)
	dst := NewMemoryCache("items", DefaultExpiry, WithClock(clock.Now))
	n, err := NewPersister(dst, store, "itemSearchCache", zerolog.Nop()).Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, dst.Stats().Total)
	assert.Equal(t, []string{"itemSearchCache"}, store.deleted)

	_, err = store.LoadSnapshot(ctx, "itemSearchCache")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestPersister_MalformedSnapshotLeavesCacheUntouched(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	store := newMemStore()
	store.data["mobSearchCache"] = []byte("{not json")

	require.NoError(t, c.Set(ctx, NamespaceSearch, "snail", []byte(`[]`)))

	n, err := NewPersister(c, store, "mobSearchCache", zerolog.Nop()).Restore(ctx)
	assert.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, c.Stats().Total)
}

func TestPersister_MissingSnapshotAndNilStore(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	n, err := NewPersister(c, newMemStore(), "itemSearchCache", zerolog.Nop()).Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	p := NewPersister(c, nil, "itemSearchCache", zerolog.Nop())
	require.NoError(t, p.Persist(ctx))
	n, err = p.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPersister_PersistFailure(t *testing.T) {
	c, _ := newTestCache(t)
	store := newMemStore()
	store.saveErr = errors.New("quota exceeded")

	err := NewPersister(c, store, "itemSearchCache", zerolog.Nop()).Persist(context.Background())
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestPersister_ExportImport(t *testing.T) {
	ctx := context.Background()
	src, clock := newTestCache(t)
	require.NoError(t, src.Set(ctx, NamespaceCrossRef, "1302000", []byte(`[{"id":"100100"}]`)))

	var buf bytes.Buffer
	require.NoError(t, NewPersister(src, nil, "itemSearchCache", zerolog.Nop()).Export(&buf))

	dst := NewMemoryCache("items", DefaultExpiry, WithClock(clock.Now))
	n, err := NewPersister(dst, nil, "itemSearchCache", zerolog.Nop()).Import(&buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := dst.Get(ctx, NamespaceCrossRef, "1302000")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"100100"}]`, string(got))

	_, err = NewPersister(dst, nil, "itemSearchCache", zerolog.Nop()).Import(bytes.NewBufferString("nope"))
	assert.Error(t, err)
}
