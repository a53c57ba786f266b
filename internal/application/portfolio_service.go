package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmanzanog/investflow/internal/domain"
)

type PortfolioService struct {
	repo domain.PortfolioRepository
	tx   domain.Transactor
}

// NewPortfolioService builds the service. When repo also implements
// domain.Transactor every operation runs inside one of its transactions.
func NewPortfolioService(repo domain.PortfolioRepository) *PortfolioService {
	s := &PortfolioService{repo: repo}
	if tx, ok := repo.(domain.Transactor); ok {
		s.tx = tx
	}
	return s
}

func (s *PortfolioService) inTx(ctx context.Context, readOnly bool, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.Transact(ctx, domain.TxOptions{ReadOnly: readOnly}, fn)
}

func (s *PortfolioService) Create(ctx context.Context, req *CreatePortfolioRequest) (*PortfolioResponse, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var resp PortfolioResponse
	err := s.inTx(ctx, false, func(ctx context.Context) error {
		exists, err := s.repo.ExistsByName(ctx, req.Name)
		if err != nil {
			return fmt.Errorf("failed to check portfolio name: %w", err)
		}
		if exists {
			return &domain.AlreadyExistsError{Name: req.Name}
		}

		entity := ToEntity(req)
		saved, err := s.repo.Save(ctx, &entity)
		if err != nil {
			// The store's unique constraint catches creates that raced past the check.
			if errors.Is(err, domain.ErrPortfolioAlreadyExists) {
				return &domain.AlreadyExistsError{Name: req.Name}
			}
			return fmt.Errorf("failed to save portfolio: %w", err)
		}

		resp = ToResponse(saved)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Portfolio created", "portfolio_id", resp.ID, "name", resp.Name)
	return &resp, nil
}

func (s *PortfolioService) FindByID(ctx context.Context, id int64) (*PortfolioResponse, error) {
	var resp PortfolioResponse
	err := s.inTx(ctx, true, func(ctx context.Context) error {
		p, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrPortfolioNotFound) {
				return &domain.NotFoundError{ID: id}
			}
			return fmt.Errorf("failed to find portfolio: %w", err)
		}
		resp = ToResponse(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *PortfolioService) FindAll(ctx context.Context) ([]PortfolioResponse, error) {
	var resp []PortfolioResponse
	err := s.inTx(ctx, true, func(ctx context.Context) error {
		portfolios, err := s.repo.FindAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to list portfolios: %w", err)
		}
		resp = ToResponses(portfolios)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *PortfolioService) Update(ctx context.Context, id int64, req *UpdatePortfolioRequest) (*PortfolioResponse, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var resp PortfolioResponse
	err := s.inTx(ctx, false, func(ctx context.Context) error {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrPortfolioNotFound) {
				return &domain.NotFoundError{ID: id}
			}
			return fmt.Errorf("failed to find portfolio: %w", err)
		}

		if req.Name != current.Name {
			taken, err := s.repo.ExistsByName(ctx, req.Name)
			if err != nil {
				return fmt.Errorf("failed to check portfolio name: %w", err)
			}
			if taken {
				return &domain.AlreadyExistsError{Name: req.Name}
			}
		}

		revised := current.Revise(req.Name, req.MonthlyAmount, req.DurationMonths)
		updated, err := s.repo.Update(ctx, &revised)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrPortfolioAlreadyExists):
				return &domain.AlreadyExistsError{Name: req.Name}
			case errors.Is(err, domain.ErrPortfolioNotFound):
				return &domain.NotFoundError{ID: id}
			}
			return fmt.Errorf("failed to update portfolio: %w", err)
		}

		resp = ToResponse(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Portfolio updated", "portfolio_id", resp.ID)
	return &resp, nil
}

func (s *PortfolioService) DeleteByID(ctx context.Context, id int64) error {
	err := s.inTx(ctx, false, func(ctx context.Context) error {
		exists, err := s.repo.ExistsByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to check portfolio: %w", err)
		}
		if !exists {
			return &domain.NotFoundError{ID: id}
		}

		if err := s.repo.DeleteByID(ctx, id); err != nil {
			if errors.Is(err, domain.ErrPortfolioNotFound) {
				return &domain.NotFoundError{ID: id}
			}
			return fmt.Errorf("failed to delete portfolio: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Portfolio deleted", "portfolio_id", id)
	return nil
}
