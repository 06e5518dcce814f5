package normalize

import (
	"errors"
	"fmt"

	"github.com/voterfile/propensity/internal/domain/model"
)

// Sentinel errors for cohort normalization.
var (
	ErrNormalizationUndefined = errors.New("normalization undefined")
	ErrUnknownMethod          = errors.New("unknown normalization method")
	ErrUnknownPolicy          = errors.New("unknown degenerate-cohort policy")
	ErrNonFiniteScore         = errors.New("non-finite raw score")
)

// UndefinedError reports a cohort whose statistics cannot support the
// configured method under the error policy. It matches
// ErrNormalizationUndefined under errors.Is.
type UndefinedError struct {
	Cohort model.CohortKey
	Reason string
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("cohort %s: normalization undefined: %s", e.Cohort, e.Reason)
}

func (e *UndefinedError) Is(target error) bool {
	return target == ErrNormalizationUndefined
}
