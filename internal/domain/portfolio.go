package domain

// Monthly amounts are stored as NUMERIC(19, 4) in every SQL schema.
const (
	MonthlyAmountPrecision = 19
	MonthlyAmountScale     = 4
)

// Portfolio is a savings plan: a fixed monthly contribution over a number of
// months. ID, CreatedAt and UpdatedAt are assigned by the store.
type Portfolio struct {
	ID             int64
	Name           string
	MonthlyAmount  Decimal
	DurationMonths int
	CreatedAt      Date
	UpdatedAt      Date
}

// NewPortfolio builds a portfolio that has not been persisted yet.
func NewPortfolio(name string, monthlyAmount Decimal, durationMonths int) Portfolio {
	return Portfolio{
		Name:           name,
		MonthlyAmount:  monthlyAmount,
		DurationMonths: durationMonths,
	}
}

// RestorePortfolio rebuilds a portfolio from store-assigned fields.
func RestorePortfolio(id int64, name string, monthlyAmount Decimal, durationMonths int, createdAt, updatedAt Date) *Portfolio {
	return &Portfolio{
		ID:             id,
		Name:           name,
		MonthlyAmount:  monthlyAmount,
		DurationMonths: durationMonths,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}
}

// IsPersisted reports whether a store has assigned an id.
func (p Portfolio) IsPersisted() bool {
	return p.ID != 0
}

// Stamped returns a copy carrying the creation dates a store assigns on insert.
func (p Portfolio) Stamped(id int64, today Date) *Portfolio {
	return RestorePortfolio(id, p.Name, p.MonthlyAmount, p.DurationMonths, today, today)
}

// Revise returns a copy with new mutable fields. Dates are left to the store,
// which refreshes UpdatedAt when it writes the copy.
func (p Portfolio) Revise(name string, monthlyAmount Decimal, durationMonths int) Portfolio {
	p.Name = name
	p.MonthlyAmount = monthlyAmount
	p.DurationMonths = durationMonths
	return p
}

// Touched returns a copy whose UpdatedAt is refreshed to today. UpdatedAt
// never moves before CreatedAt.
func (p Portfolio) Touched(today Date) *Portfolio {
	updated := today
	if updated.Before(p.CreatedAt) {
		updated = p.CreatedAt
	}
	return RestorePortfolio(p.ID, p.Name, p.MonthlyAmount, p.DurationMonths, p.CreatedAt, updated)
}
