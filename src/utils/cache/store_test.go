package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

type StoreTestSuite struct {
	suite.Suite

	now   time.Time
	store *Store
}

func (s *StoreTestSuite) SetupTest() {
	s.now = time.Unix(1700000000, 0)
	s.store = NewStore(3).WithClock(func() time.Time { return s.now })
}

func (s *StoreTestSuite) advance(d time.Duration) {
	s.now = s.now.Add(d)
}

func (s *StoreTestSuite) TestGetBeforeTtlBoundary() {
	s.store.Set("items:a", "value", 120*time.Second)

	s.advance(119 * time.Second)
	value, ok := s.store.Get("items:a")
	assert.True(s.T(), ok)
	assert.Equal(s.T(), "value", value)

	// Exactly at the boundary the entry is still valid
	s.advance(time.Second)
	_, ok = s.store.Get("items:a")
	assert.True(s.T(), ok)
}

func (s *StoreTestSuite) TestGetPastTtlIsAbsent() {
	s.store.Set("items:a", "value", 120*time.Second)

	s.advance(121 * time.Second)
	_, ok := s.store.Get("items:a")
	assert.False(s.T(), ok)

	// Entry was evicted on the lazy check
	assert.Equal(s.T(), 0, s.store.Len())
}

func (s *StoreTestSuite) TestFifoEviction() {
	s.store.Set("a", 1, time.Minute)
	s.store.Set("b", 2, time.Minute)
	s.store.Set("c", 3, time.Minute)
	s.store.Set("d", 4, time.Minute)

	// Oldest inserted entry went first
	_, ok := s.store.Get("a")
	assert.False(s.T(), ok)

	for _, key := range []string{"b", "c", "d"} {
		_, ok := s.store.Get(key)
		assert.True(s.T(), ok, key)
	}
}

func (s *StoreTestSuite) TestOverwriteKeepsInsertionOrder() {
	s.store.Set("a", 1, time.Minute)
	s.store.Set("b", 2, time.Minute)
	s.store.Set("c", 3, time.Minute)

	// Overwriting does not refresh a's position
	s.store.Set("a", 10, time.Minute)
	s.store.Set("d", 4, time.Minute)

	_, ok := s.store.Get("a")
	assert.False(s.T(), ok)
	value, ok := s.store.Get("b")
	assert.True(s.T(), ok)
	assert.Equal(s.T(), 2, value)
}

func (s *StoreTestSuite) TestInvalidatePrefix() {
	s.store.Set("items:a=1", 1, time.Minute)
	s.store.Set("items:a=2", 2, time.Minute)
	s.store.Set("claims:a=1", 3, time.Minute)

	removed := s.store.Invalidate("items:")
	assert.Equal(s.T(), 2, removed)

	_, ok := s.store.Get("items:a=1")
	assert.False(s.T(), ok)
	_, ok = s.store.Get("claims:a=1")
	assert.True(s.T(), ok)
}

func (s *StoreTestSuite) TestReinsertAfterInvalidateSurvivesEviction() {
	s.store.Set("a", 1, time.Minute)
	s.store.Set("b", 2, time.Minute)
	s.store.Invalidate("a")

	// Re-inserted key must not be evicted through its ghost queue entry
	s.store.Set("a", 10, time.Minute)
	s.store.Set("c", 3, time.Minute)
	s.store.Set("d", 4, time.Minute)

	value, ok := s.store.Get("a")
	assert.True(s.T(), ok)
	assert.Equal(s.T(), 10, value)
}

func (s *StoreTestSuite) TestSweepDropsExpired() {
	s.store.Set("a", 1, time.Minute)
	s.store.Set("b", 2, time.Hour)

	s.advance(2 * time.Minute)
	removed := s.store.Sweep()
	assert.Equal(s.T(), 1, removed)
	assert.Equal(s.T(), 1, s.store.Len())
}

func (s *StoreTestSuite) TestKeyIsDeterministic() {
	a := Key(DomainItems, map[string]any{"status": "available", "category": "food"})
	b := Key(DomainItems, map[string]any{"category": "food", "status": "available"})
	assert.Equal(s.T(), a, b)
	assert.Equal(s.T(), "items:category=food|status=available", a)
}
