// Package analyst produces structured per-symbol market outlooks.
package analyst

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/trogers1052/finfun/internal/models"
)

// Analysis depths
const (
	TypeQuick    = "quick"
	TypeStandard = "standard"
	TypeDeep     = "deep"
)

var (
	// ErrInvalidType is returned for an unknown analysis type
	ErrInvalidType = errors.New("analysis_type must be one of: quick, standard, deep")
	// ErrInvalidReport is returned when the model output is not a valid report
	ErrInvalidReport = errors.New("invalid analyst report")
)

// Analyst analyzes one symbol
type Analyst interface {
	Analyze(ctx context.Context, symbol, analysisType string) (*models.AnalystReport, error)
}

// NormalizeType lower-cases t, defaulting an empty value to standard
func NormalizeType(t string) (string, error) {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" {
		return TypeStandard, nil
	}
	switch t {
	case TypeQuick, TypeStandard, TypeDeep:
		return t, nil
	}
	return "", ErrInvalidType
}

var validate = validator.New()

// ValidateReport checks a decoded report
func ValidateReport(r *models.AnalystReport) error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: field %s failed %s", ErrInvalidReport, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	return nil
}
