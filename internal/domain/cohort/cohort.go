// Package cohort assigns voters to registration cohorts.
//
// A voter's cohort is derived from their effective registration date: the
// earlier of the date claimed by the voter file and the date of their
// earliest recorded participation. A recorded vote proves the voter was
// registered by that date, so a later claimed date is treated as a clerical
// artifact.
package cohort

import (
	"fmt"
	"time"

	"github.com/voterfile/propensity/internal/domain/model"
)

// Bucket is the granularity of cohort keys.
type Bucket string

const (
	BucketYear    Bucket = "year"
	BucketQuarter Bucket = "quarter"
	BucketMonth   Bucket = "month"
)

// Calendar maps election ids to the dates they were held.
type Calendar map[string]time.Time

// CalendarOf builds a Calendar from an election list.
func CalendarOf(elections []model.Election) Calendar {
	cal := make(Calendar, len(elections))
	for _, e := range elections {
		cal[e.ID] = e.Date
	}
	return cal
}

// Assigner buckets voters into cohorts by effective registration date.
type Assigner struct {
	bucket Bucket
}

// NewAssigner creates an assigner with the default year bucket.
func NewAssigner(opts ...Option) *Assigner {
	a := &Assigner{
		bucket: BucketYear,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Key returns the cohort key for a voter: their effective registration date
// truncated to the configured bucket. Voters with no claimed registration
// and no participation share the zero-date cohort; they carry no observable
// history and are scored through the imputation path.
func (a *Assigner) Key(v model.Voter, cal Calendar) model.CohortKey {
	reg := EffectiveRegistration(v, cal)
	switch a.bucket {
	case BucketMonth:
		return model.CohortKey(reg.Format("2006-01"))
	case BucketQuarter:
		quarter := (int(reg.Month())-1)/3 + 1
		return model.CohortKey(fmt.Sprintf("%04d-Q%d", reg.Year(), quarter))
	default:
		return model.CohortKey(fmt.Sprintf("%04d", reg.Year()))
	}
}

// EffectiveRegistration returns the earlier of the claimed registration date
// and the date of the voter's earliest recorded participation. Participation
// in an election missing from the calendar contributes nothing here; the
// scoring stage rejects such voters.
func EffectiveRegistration(v model.Voter, cal Calendar) time.Time {
	reg := v.RegisteredAt
	for _, id := range v.VotedIn {
		d, ok := cal[id]
		if !ok || d.IsZero() {
			continue
		}
		if reg.IsZero() || d.Before(reg) {
			reg = d
		}
	}
	return reg
}

// EligibleElections counts the elections held on or after the voter's
// effective registration date. A voter with no effective registration date
// was never eligible for anything.
func EligibleElections(v model.Voter, cal Calendar) int {
	reg := EffectiveRegistration(v, cal)
	if reg.IsZero() {
		return 0
	}
	n := 0
	for _, d := range cal {
		if !d.Before(reg) {
			n++
		}
	}
	return n
}
