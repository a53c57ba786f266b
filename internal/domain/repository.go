package domain

import "context"

// PortfolioRepository defines the interface for portfolio persistence.
// All methods accept context.Context to enable proper timeout handling,
// cancellation propagation, and request-scoped values like transactions.
type PortfolioRepository interface {
	ExistsByName(ctx context.Context, name string) (bool, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	// FindByID returns ErrPortfolioNotFound when no row matches.
	FindByID(ctx context.Context, id int64) (*Portfolio, error)
	FindAll(ctx context.Context) ([]*Portfolio, error)
	// Save inserts a new portfolio and returns the stored value with its id and
	// dates assigned. A name conflict yields ErrPortfolioAlreadyExists and
	// nothing is written.
	Save(ctx context.Context, portfolio *Portfolio) (*Portfolio, error)
	// Update overwrites the mutable fields of an existing portfolio and
	// refreshes UpdatedAt.
	Update(ctx context.Context, portfolio *Portfolio) (*Portfolio, error)
	// DeleteByID returns ErrPortfolioNotFound when no row matches.
	DeleteByID(ctx context.Context, id int64) error
}

// TxOptions describes the transaction a unit of work runs in.
type TxOptions struct {
	ReadOnly bool
}

// Transactor is implemented by repositories that can run several calls
// atomically. Repository calls made with the ctx passed to fn join the
// transaction.
type Transactor interface {
	Transact(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error
}
