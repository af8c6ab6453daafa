package order

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotFound is returned when no record exists for the requested ID.
	ErrNotFound = errors.New("order not found")

	// ErrConflict is returned by Transition when the stored state does not
	// match the expected from-state. This is the linearization point that
	// prevents double-execution and double-cancellation: of N racing
	// settlement attempts exactly one observes Active and wins.
	ErrConflict = errors.New("order state conflict")
)

// Store owns all order records and the identifier counter. It is the sole
// mutator of order lifecycle state; callers observe records only through
// copies returned by Get and List.
// Uses in-memory cache + Pebble persistence for durability.
type Store struct {
	mu     sync.Mutex
	db     *pebble.DB
	cache  map[uint64]*Order
	nextID uint64
}

// NewStore opens a Pebble database at the given path and restores the
// identifier counter and existing records.
func NewStore(dbPath string) (*Store, error) {
	opts := &pebble.Options{
		// Performance tuning
		Cache:                 pebble.NewCache(64 << 20), // 64MB cache
		MemTableSize:          32 << 20,                  // 32MB memtable
		L0CompactionThreshold: 2,
		L0StopWritesThreshold: 12,
		MaxOpenFiles:          1000,
		BytesPerSync:          512 << 10, // 512KB
	}

	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", dbPath, err)
	}

	s := &Store{
		db:    db,
		cache: make(map[uint64]*Order),
	}
	if err := s.restore(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// restore loads the identifier counter and all persisted records into the cache.
func (s *Store) restore() error {
	val, closer, err := s.db.Get(nextIDKey())
	switch {
	case err == pebble.ErrNotFound:
		s.nextID = 0
	case err != nil:
		return fmt.Errorf("failed to load id counter: %w", err)
	default:
		s.nextID = binary.BigEndian.Uint64(val)
		closer.Close()
	}

	prefix := orderPrefix()
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return fmt.Errorf("failed to open order iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var ord Order
		if err := json.Unmarshal(iter.Value(), &ord); err != nil {
			return fmt.Errorf("failed to unmarshal order record: %w", err)
		}
		s.cache[ord.ID] = &ord
	}
	return nil
}

// Create assigns the next identifier to the order, inserts it as Active and
// returns the assigned ID. The counter and the record are committed in one
// atomic batch; identifiers are never reused, even across failed placements
// that never reached this point.
func (s *Store) Create(o *Order) (uint64, error) {
	if o == nil {
		return 0, fmt.Errorf("cannot create nil order")
	}
	if err := o.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := o.Clone()
	stored.ID = s.nextID
	stored.Status = Active
	now := time.Now().UnixMilli()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	data, err := json.Marshal(stored)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal order: %w", err)
	}

	counter := make([]byte, 8)
	binary.BigEndian.PutUint64(counter, s.nextID+1)

	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(orderKey(stored.ID), data, nil); err != nil {
		return 0, fmt.Errorf("failed to stage order: %w", err)
	}
	if err := batch.Set(nextIDKey(), counter, nil); err != nil {
		return 0, fmt.Errorf("failed to stage id counter: %w", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, fmt.Errorf("failed to commit order: %w", err)
	}

	s.cache[stored.ID] = stored
	s.nextID++
	return stored.ID, nil
}

// Get returns a copy of the order, or ErrNotFound.
func (s *Store) Get(id uint64) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ord, ok := s.cache[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ord.Clone(), nil
}

// Transition moves an order from one state to another. It succeeds only if
// the stored state currently equals from; otherwise it reports ErrConflict
// without mutating. Observe-and-set happens atomically under the store mutex,
// and the new state is durably persisted before the call returns.
func (s *Store) Transition(id uint64, from, to Status) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("invalid status transition %v -> %v", from, to)
	}
	if from.Terminal() {
		return fmt.Errorf("cannot transition out of terminal status %v", from)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ord, ok := s.cache[id]
	if !ok {
		return ErrNotFound
	}
	if ord.Status != from {
		return ErrConflict
	}

	updated := ord.Clone()
	updated.Status = to
	updated.UpdatedAt = time.Now().UnixMilli()

	data, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	if err := s.db.Set(orderKey(id), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to persist transition: %w", err)
	}

	s.cache[id] = updated
	return nil
}

// ListActive returns copies of all orders still in the Active state,
// in placement order.
func (s *Store) ListActive() []*Order {
	return s.list(func(o *Order) bool { return o.Status == Active })
}

// ListByOwner returns copies of all orders placed by the given owner,
// in placement order.
func (s *Store) ListByOwner(owner common.Address) []*Order {
	return s.list(func(o *Order) bool { return o.Owner == owner })
}

func (s *Store) list(keep func(*Order) bool) []*Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Order
	for id := uint64(0); id < s.nextID; id++ {
		if ord, ok := s.cache[id]; ok && keep(ord) {
			out = append(out, ord.Clone())
		}
	}
	return out
}

// Count returns the total number of records ever created.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}
