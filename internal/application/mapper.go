package application

import "github.com/jmanzanog/investflow/internal/domain"

// ToEntity maps a create request to an unsaved portfolio.
func ToEntity(req *CreatePortfolioRequest) domain.Portfolio {
	return domain.NewPortfolio(req.Name, req.MonthlyAmount, req.DurationMonths)
}

// ToResponse maps a stored portfolio to its response shape.
func ToResponse(p *domain.Portfolio) PortfolioResponse {
	return PortfolioResponse{
		ID:             p.ID,
		Name:           p.Name,
		MonthlyAmount:  p.MonthlyAmount,
		DurationMonths: p.DurationMonths,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// ToResponses maps every portfolio, returning an empty slice for none.
func ToResponses(portfolios []*domain.Portfolio) []PortfolioResponse {
	out := make([]PortfolioResponse, 0, len(portfolios))
	for _, p := range portfolios {
		out = append(out, ToResponse(p))
	}
	return out
}
