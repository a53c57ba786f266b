package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmanzanog/investflow/internal/application"
	"github.com/jmanzanog/investflow/internal/domain"
)

// PortfolioService defines the interface for portfolio operations
type PortfolioService interface {
	Create(ctx context.Context, req *application.CreatePortfolioRequest) (*application.PortfolioResponse, error)
	FindByID(ctx context.Context, id int64) (*application.PortfolioResponse, error)
	FindAll(ctx context.Context) ([]application.PortfolioResponse, error)
	Update(ctx context.Context, id int64, req *application.UpdatePortfolioRequest) (*application.PortfolioResponse, error)
	DeleteByID(ctx context.Context, id int64) error
}

type Handler struct {
	portfolioService PortfolioService
}

func NewHandler(portfolioService PortfolioService) *Handler {
	return &Handler{
		portfolioService: portfolioService,
	}
}

type ErrorResponse struct {
	Error  string                   `json:"error"`
	Fields []application.FieldError `json:"fields,omitempty"`
}

func (h *Handler) CreatePortfolio(c *gin.Context) {
	var req application.CreatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.ErrorContext(c.Request.Context(), "Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	portfolio, err := h.portfolioService.Create(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, "Failed to create portfolio", err, "name", req.Name)
		return
	}

	c.JSON(http.StatusCreated, portfolio)
}

func (h *Handler) ListPortfolios(c *gin.Context) {
	portfolios, err := h.portfolioService.FindAll(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to list portfolios", err)
		return
	}

	c.JSON(http.StatusOK, portfolios)
}

func (h *Handler) GetPortfolio(c *gin.Context) {
	id, ok := portfolioID(c)
	if !ok {
		return
	}

	portfolio, err := h.portfolioService.FindByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to get portfolio", err, "portfolio_id", id)
		return
	}

	c.JSON(http.StatusOK, portfolio)
}

func (h *Handler) UpdatePortfolio(c *gin.Context) {
	id, ok := portfolioID(c)
	if !ok {
		return
	}

	var req application.UpdatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.ErrorContext(c.Request.Context(), "Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	portfolio, err := h.portfolioService.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.fail(c, "Failed to update portfolio", err, "portfolio_id", id)
		return
	}

	c.JSON(http.StatusOK, portfolio)
}

func (h *Handler) DeletePortfolio(c *gin.Context) {
	id, ok := portfolioID(c)
	if !ok {
		return
	}

	if err := h.portfolioService.DeleteByID(c.Request.Context(), id); err != nil {
		h.fail(c, "Failed to delete portfolio", err, "portfolio_id", id)
		return
	}

	c.Status(http.StatusNoContent)
}

// portfolioID parses the :id path parameter, answering 400 when it is not a
// positive integer.
func portfolioID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid portfolio id: " + raw})
		return 0, false
	}
	return id, true
}

// fail logs err and writes the response matching its kind.
func (h *Handler) fail(c *gin.Context, msg string, err error, args ...any) {
	ctx := c.Request.Context()

	var verr *application.ValidationError
	switch {
	case errors.As(err, &verr):
		slog.InfoContext(ctx, msg, append(args, "error", err)...)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, domain.ErrPortfolioNotFound):
		slog.InfoContext(ctx, msg, append(args, "error", err)...)
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrPortfolioAlreadyExists):
		slog.InfoContext(ctx, msg, append(args, "error", err)...)
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		slog.ErrorContext(ctx, msg, append(args, "error", err)...)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
