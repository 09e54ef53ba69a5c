package domain

import (
	"fmt"
	"math/big"
	"strings"
)

// VisitorInsight is the per-visitor answer derived from both datasets.
type VisitorInsight struct {
	VisitorID       *big.Int
	AddressChanged  bool
	OrderPlaced     bool
	OrderDelivered  bool
	ApplicationType string
}

// ValidateVisitorID accepts non-empty strings made only of ASCII decimal digits.
func ValidateVisitorID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: visitor id is empty", ErrInvalidArgument)
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return fmt.Errorf("%w: visitor id %q must contain only digits", ErrInvalidArgument, id)
		}
	}
	return nil
}

// CanonicalVisitorID strips leading zeros so ids compare as integers.
// Non-digit input is returned unchanged.
func CanonicalVisitorID(id string) string {
	if ValidateVisitorID(id) != nil {
		return id
	}
	trimmed := strings.TrimLeft(id, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// ParseVisitorID validates id and returns it as an arbitrary-precision integer.
func ParseVisitorID(id string) (*big.Int, error) {
	if err := ValidateVisitorID(id); err != nil {
		return nil, err
	}
	n, ok := new(big.Int).SetString(id, 10)
	if !ok {
		return nil, fmt.Errorf("%w: visitor id %q is not an integer", ErrInvalidArgument, id)
	}
	return n, nil
}
