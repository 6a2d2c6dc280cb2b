package valuation

import (
	"errors"
	"fmt"
	"math"

	"github.com/sells-group/cma-cli/internal/model"
)

// InvalidInputError reports a field value that cannot enter a valuation:
// negative dimensions, non-positive sale prices, NaN or infinite numerics.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("valuation: invalid input: %s %s", e.Field, e.Reason)
}

func invalidInput(field, reason string) error {
	return &InvalidInputError{Field: field, Reason: reason}
}

// IsInvalidInput returns true if the error (or any error in its chain) is an
// InvalidInputError.
func IsInvalidInput(err error) bool {
	if err == nil {
		return false
	}
	var iie *InvalidInputError
	return errors.As(err, &iie)
}

// validateProperty rejects property records that carry impossible values.
// Missing optional fields are fine; they only disable the factors that
// depend on them.
func validateProperty(role string, p model.Property) error {
	if p.SquareFootage != nil && *p.SquareFootage < 0 {
		return invalidInput(role+".square_footage", "must not be negative")
	}
	if p.Bedrooms != nil && *p.Bedrooms < 0 {
		return invalidInput(role+".bedrooms", "must not be negative")
	}
	if p.Bathrooms != nil {
		if badFloat(*p.Bathrooms) {
			return invalidInput(role+".bathrooms", "must be a finite number")
		}
		if *p.Bathrooms < 0 {
			return invalidInput(role+".bathrooms", "must not be negative")
		}
	}
	if p.YearBuilt != nil && *p.YearBuilt < 0 {
		return invalidInput(role+".year_built", "must not be negative")
	}
	if p.LotSize != nil && *p.LotSize < 0 {
		return invalidInput(role+".lot_size", "must not be negative")
	}
	if p.Coords != nil && (badFloat(p.Coords.Latitude) || badFloat(p.Coords.Longitude)) {
		return invalidInput(role+".coords", "must be finite coordinates")
	}
	return nil
}

// validateSale rejects sale records with non-positive or non-finite prices.
func validateSale(role string, s model.Sale) error {
	if badFloat(s.SalePrice) {
		return invalidInput(role+".sale_price", "must be a finite number")
	}
	if s.SalePrice <= 0 {
		return invalidInput(role+".sale_price", "must be > 0")
	}
	if s.ListPrice != nil && badFloat(*s.ListPrice) {
		return invalidInput(role+".list_price", "must be a finite number")
	}
	return nil
}

func validateCandidate(c model.Candidate) error {
	if err := validateProperty("candidate", c.Property); err != nil {
		return err
	}
	return validateSale("candidate", c.Sale)
}

func badFloat(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
