package outlinemgr

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/wkalt/outline/division"
	"github.com/wkalt/outline/divisionstore"
	"github.com/wkalt/outline/nestedset"
	"github.com/wkalt/outline/storage"
	"github.com/wkalt/outline/util/log"
)

/*
The outline manager is the mutation engine for book outlines. It is the only
writer of boundaries, depth and sibling order. Every public mutation runs as
one transaction on one book: it reads the anchor, computes the new positions
with the nested-set arithmetic, issues the bulk shifts through the store and
writes the affected rows. Either all of that commits or none of it does.

Mutations are not retried. Repeating an insert after an ambiguous failure
would displace the book twice, so errors go back to the caller unchanged.
RebuildTree is the repair path for a book whose boundaries have drifted.
*/

////////////////////////////////////////////////////////////////////////////////

// Manager is the main interface to the outlinemgr package.
type Manager struct {
	store     divisionstore.Store
	snapshots storage.Provider
	verify    bool
	metrics   *metrics
	now       func() time.Time

	cache       *lru.Cache[string, []division.Division]
	cacheMtx    sync.Mutex
	generations map[string]uint64
}

// NewManager returns a manager over store.
func NewManager(store divisionstore.Store, opts ...Option) *Manager {
	conf := config{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(&conf)
	}
	m := &Manager{
		store:     store,
		snapshots: conf.snapshots,
		verify:    conf.verify,
		metrics:   newMetrics(conf.registerer),
		now:       conf.now,
	}
	if conf.cacheSize > 0 {
		// New only fails for a non-positive size.
		m.cache, _ = lru.New[string, []division.Division](conf.cacheSize)
		m.generations = make(map[string]uint64)
	}
	return m
}

// mutate runs f in a transaction on book, tagging the context for logging
// and recording metrics for op.
func (m *Manager) mutate(
	ctx context.Context,
	op string,
	book string,
	f func(ctx context.Context, tx divisionstore.Tx) error,
) error {
	ctx = log.AddTags(ctx, "op", op, "book", book)
	start := time.Now()
	err := m.store.WithTx(ctx, book, func(tx divisionstore.Tx) error {
		if err := f(ctx, tx); err != nil {
			return err
		}
		if m.verify {
			return verify(ctx, tx)
		}
		return nil
	})
	m.invalidate(book)
	m.metrics.observe(op, start, err)
	if err != nil {
		log.Debugw(ctx, "mutation failed", "error", err, "elapsed", time.Since(start))
		return err
	}
	log.Debugw(ctx, "mutation committed", "elapsed", time.Since(start))
	return nil
}

// invalidate drops the cached listing of book. Bumping the generation keeps
// a scan that started before the mutation from filling the cache with the
// old listing.
func (m *Manager) invalidate(book string) {
	if m.cache == nil {
		return
	}
	m.cacheMtx.Lock()
	defer m.cacheMtx.Unlock()
	m.generations[book]++
	m.cache.Remove(book)
}

func (m *Manager) generation(book string) uint64 {
	m.cacheMtx.Lock()
	defer m.cacheMtx.Unlock()
	return m.generations[book]
}

// fill caches divs as the listing of book if no mutation has touched book
// since generation gen.
func (m *Manager) fill(book string, gen uint64, divs []division.Division) {
	m.cacheMtx.Lock()
	defer m.cacheMtx.Unlock()
	if m.generations[book] == gen {
		m.cache.Add(book, slices.Clone(divs))
	}
}

func verify(ctx context.Context, tx divisionstore.Tx) error {
	divs, err := tx.Scan(ctx, divisionstore.ByLeft)
	if err != nil {
		return fmt.Errorf("failed to scan for verification: %w", err)
	}
	if err := nestedset.Validate(tx.Book(), divs); err != nil {
		log.Errorw(ctx, "mutation broke an invariant, rolling back", "error", err)
		return err
	}
	return nil
}

// lookup resolves id in any book.
func (m *Manager) lookup(ctx context.Context, id division.ID) (division.Division, error) {
	d, err := m.store.Lookup(ctx, id)
	if err != nil {
		if errors.Is(err, divisionstore.ErrNotFound) {
			return d, division.NodeNotFoundError{ID: id}
		}
		return d, fmt.Errorf("failed to look up division: %w", err)
	}
	return d, nil
}

// lookupAnchor resolves an anchor in any book.
func (m *Manager) lookupAnchor(ctx context.Context, id division.ID) (division.Division, error) {
	d, err := m.store.Lookup(ctx, id)
	if err != nil {
		if errors.Is(err, divisionstore.ErrNotFound) {
			return d, division.AnchorNotFoundError{Anchor: id}
		}
		return d, fmt.Errorf("failed to look up anchor: %w", err)
	}
	return d, nil
}

// node reads the target of a mutation inside its transaction.
func node(ctx context.Context, tx divisionstore.Tx, id division.ID) (division.Division, error) {
	d, err := tx.Get(ctx, id)
	if err != nil {
		if errors.Is(err, divisionstore.ErrNotFound) {
			return d, division.NodeNotFoundError{ID: id}
		}
		return d, fmt.Errorf("failed to read division: %w", err)
	}
	return d, nil
}

// anchor reads the anchor of a mutation inside its transaction.
func anchor(ctx context.Context, tx divisionstore.Tx, id division.ID) (division.Division, error) {
	d, err := tx.Get(ctx, id)
	if err != nil {
		if errors.Is(err, divisionstore.ErrNotFound) {
			return d, division.AnchorNotFoundError{Anchor: id}
		}
		return d, fmt.Errorf("failed to read anchor: %w", err)
	}
	return d, nil
}

func invalidPlacement(err error) error {
	return division.InvalidArgumentError{Field: "placement", Reason: err.Error()}
}
