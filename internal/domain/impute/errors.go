package impute

import (
	"errors"
)

// Sentinel errors for imputation.
var (
	ErrInsufficientPrior = errors.New("no observed voters to build a prior from")
)
