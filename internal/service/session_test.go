package service

import (
	"sync/atomic"
	"testing"
	"time"

	"chronolookup-api/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestNameIndex_KeepsDuplicateIDsInOrder(t *testing.T) {
	idx := NewNameIndex([]model.Suggestion{
		{ID: "1", Name: "Apple"},
		{ID: "2", Name: "Banana"},
		{ID: "3", Name: "Apple"},
	})

	assert.Equal(t, []string{"1", "3"}, idx.IDs("Apple"))
	assert.Equal(t, []string{"Apple", "Banana"}, idx.Names())
	assert.Equal(t, 2, idx.Len())
	assert.Nil(t, idx.IDs("Cherry"))

	var nilIdx *NameIndex
	assert.Equal(t, 0, nilIdx.Len())
}

func TestSession_TokensAndSelection(t *testing.T) {
	s := NewSession("", 0)
	assert.NotEmpty(t, s.ID())

	t1 := s.NextToken(model.KindItem)
	t2 := s.NextToken(model.KindItem)
	assert.False(t, s.IsLatest(model.KindItem, t1))
	assert.True(t, s.IsLatest(model.KindItem, t2))
	assert.True(t, s.IsLatest(model.KindMob, 0), "kinds have independent tokens")

	assert.False(t, s.applySearch(model.KindItem, t1, []model.Entity{{ID: "9", Name: "Old"}}))
	assert.True(t, s.applySearch(model.KindItem, t2, []model.Entity{
		{ID: "1", Name: "Apple", SpriteOverrideURL: "https://x/1.png"},
		{ID: "3", Name: "Apple"},
	}))

	u, ok := s.SpriteOverride(model.KindItem, "1")
	assert.True(t, ok)
	assert.Equal(t, "https://x/1.png", u)
	_, ok = s.SpriteOverride(model.KindItem, "3")
	assert.False(t, ok)

	id, ok := s.SelectByName(model.KindItem, "Apple")
	assert.True(t, ok)
	assert.Equal(t, "1", id)

	got, ok := s.Selection(model.KindItem)
	assert.True(t, ok)
	assert.Equal(t, "1", got)

	_, ok = s.SelectByName(model.KindItem, "Nope")
	assert.False(t, ok)
}

func TestDebouncer_OnlyLastRuns(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var ran int32
	var last int32

	for i := int32(1); i <= 5; i++ {
		n := i
		d.Schedule(func() {
			atomic.AddInt32(&ran, 1)
			atomic.StoreInt32(&last, n)
		})
	}
	assert.True(t, d.Pending())

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&ran) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
	assert.Equal(t, int32(5), atomic.LoadInt32(&last))
	assert.False(t, d.Pending())
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var ran int32
	d.Schedule(func() { atomic.AddInt32(&ran, 1) })
	d.Cancel()

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))
}

func TestDebouncer_Wait(t *testing.T) {
	d := NewDebouncer(5 * time.Millisecond)
	var ran int32
	d.Schedule(func() { atomic.AddInt32(&ran, 1) })
	d.Schedule(func() { atomic.AddInt32(&ran, 10) })

	d.Wait()
	assert.Equal(t, int32(10), atomic.LoadInt32(&ran))

	d.Schedule(func() { atomic.AddInt32(&ran, 1) })
	d.Cancel()
	d.Wait()
	assert.Equal(t, int32(10), atomic.LoadInt32(&ran))
}

func TestSessionRegistry_GetAndSweep(t *testing.T) {
	r := NewSessionRegistry(time.Minute, 0)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	a := r.Get("")
	assert.NotEmpty(t, a.ID())
	assert.Same(t, a, r.Get(a.ID()))

	b := r.Get("fixed-id")
	assert.Equal(t, "fixed-id", b.ID())
	assert.Equal(t, 2, r.Len())

	now = now.Add(2 * time.Minute)
	r.Get(b.ID())

	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 1, r.Len())
	assert.Same(t, b, r.Get("fixed-id"))
}
