package synth

import (
	"math/rand"
	"time"

	"github.com/voterfile/propensity/internal/domain/model"
)

// profile is a turnout habit shape.
type profile int

const (
	profileHabitual profile = iota
	profileOccasional
	profileDropout
	profileGhost
	profileNewRegistrant
)

// Profile mix, in shares out of shareTotal. The remainder after the named
// shares are new registrants.
const (
	shareTotal      = 100
	habitualShare   = 35
	occasionalShare = 30
	dropoutShare    = 15
	ghostShare      = 8
)

// Per-profile participation propensities.
const (
	habitualPropensity      = 0.92
	occasionalPropensity    = 0.5
	dropoutEarlyPropensity  = 0.85
	dropoutLatePropensity   = 0.05
	newRegistrantPropensity = 0.65
)

// Claimed-registration artifacts.
const (
	lateClaimRate     = 0.1
	lateClaimMinVotes = 2
	lateClaimLagDays  = 3
)

// pickProfile draws a profile according to the configured mix.
func pickProfile(rng *rand.Rand) profile {
	d := rng.Intn(shareTotal)
	switch {
	case d < habitualShare:
		return profileHabitual
	case d < habitualShare+occasionalShare:
		return profileOccasional
	case d < habitualShare+occasionalShare+dropoutShare:
		return profileDropout
	case d < habitualShare+occasionalShare+dropoutShare+ghostShare:
		return profileGhost
	default:
		return profileNewRegistrant
	}
}

// draws picks the voter's ballot history from the elections on or after
// their registration date, in calendar order.
func draws(rng *rand.Rand, p profile, registered time.Time, calendar []model.Election) []string {
	if p == profileGhost {
		return nil
	}

	eligible := make([]model.Election, 0, len(calendar))
	for _, e := range calendar {
		if !e.Date.Before(registered) {
			eligible = append(eligible, e)
		}
	}

	var votes []string
	for i, e := range eligible {
		if rng.Float64() < propensity(p, i, len(eligible)) {
			votes = append(votes, e.ID)
		}
	}
	return votes
}

// propensity returns the chance of voting in the i-th of n eligible
// elections. Dropouts vote early and then mostly stop.
func propensity(p profile, i, n int) float64 {
	switch p {
	case profileHabitual:
		return habitualPropensity
	case profileOccasional:
		return occasionalPropensity
	case profileDropout:
		if i < n/2 {
			return dropoutEarlyPropensity
		}
		return dropoutLatePropensity
	case profileNewRegistrant:
		return newRegistrantPropensity
	default:
		return 0
	}
}
