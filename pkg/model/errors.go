package model

import (
	"math"

	"github.com/pkg/errors"
)

// ErrValidation is the cause of every data-contract violation raised by
// constructors and Validate methods in this package.
var ErrValidation = errors.New("validation failed")

func checkScore(field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return errors.Wrapf(ErrValidation, "%s must be within [0,1], got %v", field, v)
	}
	return nil
}
