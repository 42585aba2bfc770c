// Package memory implements the platform repositories and unit of work over
// in-process maps. It is the collaborator store used by tests and by
// deployments without a database.
//
// Transaction discipline: Do holds the store-wide write lock for the whole
// unit of work and stages every write in an overlay that is merged into the
// base maps only on success. That serializes all units of work with respect
// to each other, which also satisfies the per-aggregate serialization
// contract the loan ledger requires.
package memory

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/anil-trigital/GST/internal/client"
	"github.com/anil-trigital/GST/internal/errs"
	"github.com/anil-trigital/GST/internal/loan"
	"github.com/anil-trigital/GST/internal/provisioning"
	"github.com/anil-trigital/GST/internal/storage"
)

type txKey struct{}

// overlay stages writes for one unit of work.
type overlay struct {
	clients  map[int64]*client.Client
	loans    map[int64]*loan.Loan
	criteria map[int64]*provisioning.Criteria
}

func newOverlay() *overlay {
	return &overlay{
		clients:  make(map[int64]*client.Client),
		loans:    make(map[int64]*loan.Loan),
		criteria: make(map[int64]*provisioning.Criteria),
	}
}

func overlayFrom(ctx context.Context) (*overlay, bool) {
	ov, ok := ctx.Value(txKey{}).(*overlay)
	return ov, ok
}

// Store is the in-memory collaborator store.
type Store struct {
	mu       sync.RWMutex
	clients  map[int64]*client.Client
	loans    map[int64]*loan.Loan
	criteria map[int64]*provisioning.Criteria

	clientSeq      atomic.Int64
	loanSeq        atomic.Int64
	criteriaSeq    atomic.Int64
	transactionSeq atomic.Int64
}

// Interface assertions: the store backs every repository plus the unit of work.
var (
	_ storage.UnitOfWork   = (*Store)(nil)
	_ client.Repository    = (*Store)(nil)
	_ loan.Repository      = (*Store)(nil)
	_ loan.ClientDirectory = (*Store)(nil)
	_ provisioning.Repository = (*Store)(nil)
)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		clients:  make(map[int64]*client.Client),
		loans:    make(map[int64]*loan.Loan),
		criteria: make(map[int64]*provisioning.Criteria),
	}
}

// Do runs fn inside one unit of work. A nested call joins the enclosing
// unit of work instead of opening a second one.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := overlayFrom(ctx); ok {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ov := newOverlay()
	ctx = storage.MarkUnitOfWork(context.WithValue(ctx, txKey{}, ov))

	if err := fn(ctx); err != nil {
		// Discard the overlay; sequence numbers consumed inside the unit of
		// work leave gaps, which is harmless.
		return err
	}

	for id, c := range ov.clients {
		s.clients[id] = c
	}

	for id, l := range ov.loans {
		s.loans[id] = l
	}

	for id, c := range ov.criteria {
		s.criteria[id] = c
	}

	return nil
}

// ---------------------------------------------------------------------------
// client.Repository
// ---------------------------------------------------------------------------

// CreateClient assigns an id and stores the client.
func (s *Store) CreateClient(ctx context.Context, c *client.Client) (int64, error) {
	id := s.clientSeq.Add(1)
	cp := c.Clone()
	cp.ID = id
	c.ID = id

	if ov, ok := overlayFrom(ctx); ok {
		ov.clients[id] = cp
		return id, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[id] = cp

	return id, nil
}

// FindClient returns a copy of the client with the given id.
func (s *Store) FindClient(ctx context.Context, id int64) (*client.Client, error) {
	if ov, ok := overlayFrom(ctx); ok {
		if c, staged := ov.clients[id]; staged {
			return c.Clone(), nil
		}

		if c, exists := s.clients[id]; exists {
			return c.Clone(), nil
		}

		return nil, errs.NotFound("client", id)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.clients[id]
	if !exists {
		return nil, errs.NotFound("client", id)
	}

	return c.Clone(), nil
}

// UpdateClient replaces the stored client.
func (s *Store) UpdateClient(ctx context.Context, c *client.Client) error {
	if ov, ok := overlayFrom(ctx); ok {
		if _, staged := ov.clients[c.ID]; !staged {
			if _, exists := s.clients[c.ID]; !exists {
				return errs.NotFound("client", c.ID)
			}
		}

		ov.clients[c.ID] = c.Clone()

		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.clients[c.ID]; !exists {
		return errs.NotFound("client", c.ID)
	}

	s.clients[c.ID] = c.Clone()

	return nil
}

// FindActiveClient implements loan.ClientDirectory.
func (s *Store) FindActiveClient(ctx context.Context, id int64) error {
	c, err := s.FindClient(ctx, id)
	if err != nil {
		return err
	}

	if c.Status != client.StatusActive {
		return errs.BusinessRule("client %d is not active", id)
	}

	return nil
}

// ---------------------------------------------------------------------------
// loan.Repository
// ---------------------------------------------------------------------------

// CreateLoan assigns an id and stores the loan.
func (s *Store) CreateLoan(ctx context.Context, l *loan.Loan) (int64, error) {
	id := s.loanSeq.Add(1)
	cp := l.Clone()
	cp.ID = id
	l.ID = id

	if ov, ok := overlayFrom(ctx); ok {
		ov.loans[id] = cp
		return id, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.loans[id] = cp

	return id, nil
}

// FindLoan returns a copy of the loan with the given id.
func (s *Store) FindLoan(ctx context.Context, id int64) (*loan.Loan, error) {
	if ov, ok := overlayFrom(ctx); ok {
		if l, staged := ov.loans[id]; staged {
			return l.Clone(), nil
		}

		if l, exists := s.loans[id]; exists {
			return l.Clone(), nil
		}

		return nil, errs.NotFound("loan", id)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	l, exists := s.loans[id]
	if !exists {
		return nil, errs.NotFound("loan", id)
	}

	return l.Clone(), nil
}

// FindLoanForUpdate returns the loan for mutation. Aggregate-level exclusion
// is already provided by the store-wide lock held for the unit of work.
func (s *Store) FindLoanForUpdate(ctx context.Context, id int64) (*loan.Loan, error) {
	return s.FindLoan(ctx, id)
}

// UpdateLoan replaces the stored loan, guarding against lost updates with
// the loan's version counter.
func (s *Store) UpdateLoan(ctx context.Context, l *loan.Loan) error {
	if ov, ok := overlayFrom(ctx); ok {
		if _, staged := ov.loans[l.ID]; !staged {
			if _, exists := s.loans[l.ID]; !exists {
				return errs.NotFound("loan", l.ID)
			}
		}

		cp := l.Clone()
		cp.Version++
		ov.loans[l.ID] = cp

		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.loans[l.ID]; !exists {
		return errs.NotFound("loan", l.ID)
	}

	cp := l.Clone()
	cp.Version++
	s.loans[l.ID] = cp

	return nil
}

// NextTransactionID reserves the next ledger transaction identifier.
func (s *Store) NextTransactionID(context.Context) (int64, error) {
	return s.transactionSeq.Add(1), nil
}

// ---------------------------------------------------------------------------
// provisioning.Repository
// ---------------------------------------------------------------------------

// CreateCriteria assigns an id and stores the criteria.
func (s *Store) CreateCriteria(ctx context.Context, c *provisioning.Criteria) (int64, error) {
	id := s.criteriaSeq.Add(1)
	cp := c.Clone()
	cp.ID = id
	c.ID = id

	if ov, ok := overlayFrom(ctx); ok {
		ov.criteria[id] = cp
		return id, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.criteria[id] = cp

	return id, nil
}

// FindCriteria returns a copy of the criteria with the given id.
func (s *Store) FindCriteria(ctx context.Context, id int64) (*provisioning.Criteria, error) {
	if ov, ok := overlayFrom(ctx); ok {
		if c, staged := ov.criteria[id]; staged {
			return c.Clone(), nil
		}

		if c, exists := s.criteria[id]; exists {
			return c.Clone(), nil
		}

		return nil, errs.NotFound("provisioning criteria", id)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.criteria[id]
	if !exists {
		return nil, errs.NotFound("provisioning criteria", id)
	}

	return c.Clone(), nil
}

// UpdateCriteria replaces the stored criteria.
func (s *Store) UpdateCriteria(ctx context.Context, c *provisioning.Criteria) error {
	if ov, ok := overlayFrom(ctx); ok {
		if _, staged := ov.criteria[c.ID]; !staged {
			if _, exists := s.criteria[c.ID]; !exists {
				return errs.NotFound("provisioning criteria", c.ID)
			}
		}

		ov.criteria[c.ID] = c.Clone()

		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.criteria[c.ID]; !exists {
		return errs.NotFound("provisioning criteria", c.ID)
	}

	s.criteria[c.ID] = c.Clone()

	return nil
}

// FindCriteriaByName returns the criteria with the given name, or nil when
// no criteria carries it.
func (s *Store) FindCriteriaByName(ctx context.Context, name string) (*provisioning.Criteria, error) {
	match := func(c *provisioning.Criteria) bool {
		return strings.EqualFold(c.Name, name)
	}

	if ov, ok := overlayFrom(ctx); ok {
		for _, c := range ov.criteria {
			if match(c) {
				return c.Clone(), nil
			}
		}

		for id, c := range s.criteria {
			if _, staged := ov.criteria[id]; staged {
				continue
			}

			if match(c) {
				return c.Clone(), nil
			}
		}

		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.criteria {
		if match(c) {
			return c.Clone(), nil
		}
	}

	return nil, nil
}
