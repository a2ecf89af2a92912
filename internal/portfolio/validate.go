package portfolio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/finfun/internal/models"
)

// Accepted range for the sum of allocation percentages
var (
	MinTotalAllocation = decimal.RequireFromString("99.5")
	MaxTotalAllocation = decimal.RequireFromString("100.5")
)

var validate = validator.New()

// ValidationError describes why a portfolio was rejected. Row is the 1-based
// data row, or 0 when the problem concerns the whole file.
type ValidationError struct {
	Row int
	Msg string
}

func (e *ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s", e.Row, e.Msg)
	}
	return e.Msg
}

func (r *row) holding(n int) (*models.Holding, error) {
	r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
	r.Allocation = strings.TrimSpace(r.Allocation)

	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, &ValidationError{Row: n, Msg: fieldMessage(verrs[0])}
		}
		return nil, &ValidationError{Row: n, Msg: err.Error()}
	}

	alloc, err := decimal.NewFromString(r.Allocation)
	if err != nil {
		return nil, &ValidationError{Row: n, Msg: fmt.Sprintf("invalid %s %q", ColumnAllocation, r.Allocation)}
	}
	return &models.Holding{Symbol: r.Symbol, AllocationPercentage: alloc}, nil
}

func fieldMessage(fe validator.FieldError) string {
	name := ColumnSymbol
	if fe.Field() == "Allocation" {
		name = ColumnAllocation
	}
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "max":
		return fmt.Sprintf("%s %q is longer than %s characters", name, fe.Value(), fe.Param())
	case "numeric":
		return fmt.Sprintf("%s %q is not a number", name, fe.Value())
	}
	return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
}

// Validate checks a complete set of holdings: at least one line, unique
// symbols, non-negative allocations summing to roughly 100%.
func Validate(holdings []*models.Holding) error {
	if len(holdings) == 0 {
		return &ValidationError{Msg: "portfolio has no holdings"}
	}

	seen := make(map[string]int, len(holdings))
	total := decimal.Zero
	for i, h := range holdings {
		if err := validate.Struct(h); err != nil {
			return &ValidationError{Row: i + 1, Msg: fmt.Sprintf("invalid %s %q", ColumnSymbol, h.Symbol)}
		}
		if prev, ok := seen[h.Symbol]; ok {
			return &ValidationError{Row: i + 1, Msg: fmt.Sprintf("duplicate symbol %s (first seen on row %d)", h.Symbol, prev)}
		}
		seen[h.Symbol] = i + 1
		if h.AllocationPercentage.IsNegative() {
			return &ValidationError{Row: i + 1, Msg: fmt.Sprintf("negative allocation for %s", h.Symbol)}
		}
		total = total.Add(h.AllocationPercentage)
	}

	if total.LessThan(MinTotalAllocation) || total.GreaterThan(MaxTotalAllocation) {
		return &ValidationError{
			Msg: fmt.Sprintf("portfolio allocations must sum to 100%%, got %s", total.String()),
		}
	}
	return nil
}
