package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jmanzanog/investflow/internal/domain"
)

type txKey struct{}

// PortfolioRepository keeps portfolios in process memory. Stored values are
// copies, so callers never share state with the map.
type PortfolioRepository struct {
	mu         sync.RWMutex
	portfolios map[int64]domain.Portfolio
	nextID     int64

	// txMu serializes units of work started through Transact.
	txMu sync.Mutex
	now  func() time.Time
}

func NewPortfolioRepository() *PortfolioRepository {
	return &PortfolioRepository{
		portfolios: make(map[int64]domain.Portfolio),
		now:        time.Now,
	}
}

// Transact runs fn while holding the unit-of-work lock. When fn fails the
// map is restored to the state it had before fn ran.
func (r *PortfolioRepository) Transact(ctx context.Context, _ domain.TxOptions, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	snapshot := maps.Clone(r.portfolios)
	nextID := r.nextID
	r.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		r.mu.Lock()
		r.portfolios = snapshot
		r.nextID = nextID
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *PortfolioRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.nameTaken(name, 0), nil
}

func (r *PortfolioRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.portfolios[id]
	return exists, nil
}

func (r *PortfolioRepository) FindByID(ctx context.Context, id int64) (*domain.Portfolio, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	portfolio, exists := r.portfolios[id]
	if !exists {
		return nil, fmt.Errorf("portfolio %d: %w", id, domain.ErrPortfolioNotFound)
	}

	return &portfolio, nil
}

// FindAll lists portfolios by ascending id.
func (r *PortfolioRepository) FindAll(ctx context.Context) ([]*domain.Portfolio, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	portfolios := make([]*domain.Portfolio, 0, len(r.portfolios))
	for _, id := range slices.Sorted(maps.Keys(r.portfolios)) {
		p := r.portfolios[id]
		portfolios = append(portfolios, &p)
	}

	return portfolios, nil
}

func (r *PortfolioRepository) Save(ctx context.Context, portfolio *domain.Portfolio) (*domain.Portfolio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTaken(portfolio.Name, 0) {
		return nil, fmt.Errorf("name %q: %w", portfolio.Name, domain.ErrPortfolioAlreadyExists)
	}

	r.nextID++
	stored := portfolio.Stamped(r.nextID, domain.DateOf(r.now()))
	r.portfolios[stored.ID] = *stored

	return stored, nil
}

func (r *PortfolioRepository) Update(ctx context.Context, portfolio *domain.Portfolio) (*domain.Portfolio, error) {
	if !portfolio.IsPersisted() {
		return nil, fmt.Errorf("portfolio without id: %w", domain.ErrPortfolioNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.portfolios[portfolio.ID]
	if !exists {
		return nil, fmt.Errorf("portfolio %d: %w", portfolio.ID, domain.ErrPortfolioNotFound)
	}
	if r.nameTaken(portfolio.Name, portfolio.ID) {
		return nil, fmt.Errorf("name %q: %w", portfolio.Name, domain.ErrPortfolioAlreadyExists)
	}

	// CreatedAt always comes from the stored row.
	revised := current.Revise(portfolio.Name, portfolio.MonthlyAmount, portfolio.DurationMonths)
	stored := revised.Touched(domain.DateOf(r.now()))
	r.portfolios[stored.ID] = *stored

	return stored, nil
}

func (r *PortfolioRepository) DeleteByID(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.portfolios[id]; !exists {
		return fmt.Errorf("portfolio %d: %w", id, domain.ErrPortfolioNotFound)
	}

	delete(r.portfolios, id)
	return nil
}

// nameTaken reports whether a portfolio other than except uses name.
// Callers hold mu.
func (r *PortfolioRepository) nameTaken(name string, except int64) bool {
	for id, p := range r.portfolios {
		if id != except && p.Name == name {
			return true
		}
	}
	return false
}
