package application

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/jmanzanog/investflow/internal/domain"
)

// ErrNilRequest is returned when an operation receives no request payload.
var ErrNilRequest = errors.New("request must not be nil")

// CreatePortfolioRequest is the payload accepted when creating a portfolio.
type CreatePortfolioRequest struct {
	Name           string         `json:"name" validate:"required,notblank,min=2,max=50"`
	MonthlyAmount  domain.Decimal `json:"monthly_amount" validate:"positive,amount"`
	DurationMonths int            `json:"duration_months" validate:"gt=0"`
}

// UpdatePortfolioRequest replaces the mutable fields of a portfolio.
type UpdatePortfolioRequest struct {
	Name           string         `json:"name" validate:"required,notblank,min=2,max=50"`
	MonthlyAmount  domain.Decimal `json:"monthly_amount" validate:"positive,amount"`
	DurationMonths int            `json:"duration_months" validate:"gt=0"`
}

// PortfolioResponse is the read-only projection of a stored portfolio.
type PortfolioResponse struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	MonthlyAmount  domain.Decimal `json:"monthly_amount"`
	DurationMonths int            `json:"duration_months"`
	CreatedAt      domain.Date    `json:"created_at"`
	UpdatedAt      domain.Date    `json:"updated_at"`
}

func (r *CreatePortfolioRequest) Validate() error {
	return validateStruct(r)
}

func (r *UpdatePortfolioRequest) Validate() error {
	return validateStruct(r)
}

// FieldError is a single rejected field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError carries every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Error)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
			panic(fmt.Sprintf("register notblank: %v", err))
		}
		if err := v.RegisterValidation("positive", positiveAmount); err != nil {
			panic(fmt.Sprintf("register positive: %v", err))
		}
		if err := v.RegisterValidation("amount", storableAmount); err != nil {
			panic(fmt.Sprintf("register amount: %v", err))
		}
		validate = v
	})
	return validate
}

func positiveAmount(fl validator.FieldLevel) bool {
	d, ok := fl.Field().Interface().(domain.Decimal)
	return ok && d.IsPositive()
}

// storableAmount rejects amounts the monthly_amount column would round or overflow.
func storableAmount(fl validator.FieldLevel) bool {
	d, ok := fl.Field().Interface().(domain.Decimal)
	return ok && d.Fits(domain.MonthlyAmountPrecision, domain.MonthlyAmountScale)
}

func validateStruct(s interface{}) error {
	err := requestValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(validationErrors))}
	for _, fe := range validationErrors {
		out.Fields = append(out.Fields, FieldError{
			Field: fe.Field(),
			Error: fieldMessage(fe),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", fe.Param())
	case "gt", "positive":
		return "must be positive"
	case "amount":
		return fmt.Sprintf("must have at most %d integer digits and %d decimal places",
			domain.MonthlyAmountPrecision-domain.MonthlyAmountScale, domain.MonthlyAmountScale)
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
