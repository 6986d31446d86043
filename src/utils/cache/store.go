package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/gammazero/deque"
)

// Entry is a single cached value with its expiration bookkeeping.
type Entry struct {
	Key      string
	Value    any
	StoredAt time.Time
	Ttl      time.Duration

	// Insertion sequence, used to match the entry against
	// its position in the eviction queue
	seq uint64
}

func (self *Entry) expired(now time.Time) bool {
	return now.Sub(self.StoredAt) > self.Ttl
}

type queued struct {
	key string
	seq uint64
}

// Store is a keyed, TTL-expiring, in-process store.
// Expiration is lazy (checked on Get) plus a periodic Sweep.
// When full it evicts in insertion order (FIFO), not LRU.
// Access-recency tracking is not needed for this workload's TTLs.
type Store struct {
	mtx sync.Mutex

	entries    map[string]*Entry
	order      deque.Deque[queued]
	maxEntries int
	seq        uint64

	now func() time.Time

	// Counters exposed for monitoring, read with Stats()
	hits      uint64
	misses    uint64
	evictions uint64
}

func NewStore(maxEntries int) (self *Store) {
	self = new(Store)
	self.entries = make(map[string]*Entry, maxEntries)
	self.maxEntries = maxEntries
	self.now = time.Now
	return
}

// WithClock overrides the time source. Used in tests.
func (self *Store) WithClock(now func() time.Time) *Store {
	self.now = now
	return self
}

// Get returns the cached value, or ok=false if the key was never set,
// was invalidated, or is older than its TTL. An expired entry is
// evicted on this check, so no caller ever observes a stale value.
func (self *Store) Get(key string) (value any, ok bool) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	entry, ok := self.entries[key]
	if !ok {
		self.misses++
		return nil, false
	}

	if entry.expired(self.now()) {
		delete(self.entries, key)
		self.misses++
		return nil, false
	}

	self.hits++
	return entry.Value, true
}

// Set stores the value under key. When the store is at capacity the
// oldest inserted entry is evicted first.
func (self *Store) Set(key string, value any, ttl time.Duration) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	now := self.now()

	if entry, ok := self.entries[key]; ok {
		// Overwrite in place, insertion order is kept
		entry.Value = value
		entry.StoredAt = now
		entry.Ttl = ttl
		return
	}

	for len(self.entries) >= self.maxEntries {
		self.evictOldest()
	}

	self.seq++
	self.entries[key] = &Entry{
		Key:      key,
		Value:    value,
		StoredAt: now,
		Ttl:      ttl,
		seq:      self.seq,
	}
	self.order.PushBack(queued{key: key, seq: self.seq})
}

// evictOldest pops queue entries until one still matches a live map
// entry. Ghost queue entries are left behind by Invalidate and by
// re-insertions, they are skipped here.
func (self *Store) evictOldest() {
	for self.order.Len() > 0 {
		oldest := self.order.PopFront()
		entry, ok := self.entries[oldest.key]
		if !ok || entry.seq != oldest.seq {
			continue
		}
		delete(self.entries, oldest.key)
		self.evictions++
		return
	}
}

// Invalidate removes every key that begins with prefix, so a single
// write can drop a whole family of derived listings without knowing
// every exact key.
func (self *Store) Invalidate(prefix string) (removed int) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	for key := range self.entries {
		if strings.HasPrefix(key, prefix) {
			delete(self.entries, key)
			removed++
		}
	}
	return
}

// Sweep drops all expired entries. Called periodically, complements
// the lazy expiration check in Get.
func (self *Store) Sweep() (removed int) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	now := self.now()
	for key, entry := range self.entries {
		if entry.expired(now) {
			delete(self.entries, key)
			removed++
		}
	}
	return
}

func (self *Store) Len() int {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return len(self.entries)
}

// Stats returns cumulative hit/miss/eviction counters.
func (self *Store) Stats() (hits, misses, evictions uint64) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return self.hits, self.misses, self.evictions
}
