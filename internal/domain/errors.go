package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPortfolioNotFound      = errors.New("portfolio not found")
	ErrPortfolioAlreadyExists = errors.New("portfolio already exists")
)

// NotFoundError reports that no portfolio carries the given id.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Portfolio Not Found: %d", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrPortfolioNotFound
}

// AlreadyExistsError reports that another portfolio already uses the name.
type AlreadyExistsError struct {
	Name string
}

func (e *AlreadyExistsError) Error() string {
	return "Portfolio Name Already Exists: " + e.Name
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrPortfolioAlreadyExists
}
