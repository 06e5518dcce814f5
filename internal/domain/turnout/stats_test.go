package turnout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voterfile/propensity/internal/domain/cohort"
	"github.com/voterfile/propensity/internal/domain/model"
	"github.com/voterfile/propensity/internal/domain/turnout"
	. "github.com/smartystreets/goconvey/convey"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDeriveStats(t *testing.T) {
	Convey("Given a voter file and an election calendar", t, func() {
		cal := cohort.Calendar{
			"2016-general": day(2016, time.November, 8),
			"2018-midterm": day(2018, time.November, 6),
			"2020-general": day(2020, time.November, 3),
		}
		voters := []model.Voter{
			// eligible for all three, voted in two
			{ID: "v1", RegisteredAt: day(2015, time.May, 1), VotedIn: []string{"2016-general", "2020-general"}},
			// eligible for the last two, voted in none
			{ID: "v2", RegisteredAt: day(2017, time.February, 1)},
			// eligible only for 2020, voted in it
			{ID: "v3", RegisteredAt: day(2019, time.June, 15), VotedIn: []string{"2020-general"}},
			// registered after everything; no elections count
			{ID: "v4", RegisteredAt: day(2024, time.January, 10)},
			// no dates at all; contributes nothing
			{ID: "v5"},
		}

		Convey("When deriving turnout statistics", func() {
			elections, err := turnout.DeriveStats(voters, cal)
			So(err, ShouldBeNil)

			Convey("Then elections come back in date order", func() {
				So(len(elections), ShouldEqual, 3)
				So(elections[0].ID, ShouldEqual, "2016-general")
				So(elections[1].ID, ShouldEqual, "2018-midterm")
				So(elections[2].ID, ShouldEqual, "2020-general")
			})

			Convey("Then eligible counts follow registration dates", func() {
				So(elections[0].Eligible, ShouldEqual, 1) // v1
				So(elections[1].Eligible, ShouldEqual, 2) // v1, v2
				So(elections[2].Eligible, ShouldEqual, 3) // v1, v2, v3
			})

			Convey("Then ballots follow recorded participation", func() {
				So(elections[0].Ballots, ShouldEqual, 1) // v1
				So(elections[1].Ballots, ShouldEqual, 0)
				So(elections[2].Ballots, ShouldEqual, 2) // v1, v3
			})

			Convey("And ballots never exceed the derived population", func() {
				for _, e := range elections {
					So(e.Ballots, ShouldBeLessThanOrEqualTo, e.Eligible)
				}
			})
		})

		Convey("When a recorded vote contradicts a late claimed registration", func() {
			contradicted := []model.Voter{
				{ID: "w1", RegisteredAt: day(2019, time.May, 5), VotedIn: []string{"2016-general"}},
			}
			elections, err := turnout.DeriveStats(contradicted, cal)
			So(err, ShouldBeNil)

			Convey("Then eligibility is counted from the vote date", func() {
				So(elections[0].Eligible, ShouldEqual, 1)
				So(elections[0].Ballots, ShouldEqual, 1)
				So(elections[1].Eligible, ShouldEqual, 1)
				So(elections[2].Eligible, ShouldEqual, 1)
			})
		})

		Convey("When a voter references an election missing from the calendar", func() {
			bad := []model.Voter{
				{ID: "x1", RegisteredAt: day(2015, time.May, 1), VotedIn: []string{"2012-general"}},
			}
			_, err := turnout.DeriveStats(bad, cal)

			Convey("Then the reference is rejected and named", func() {
				So(errors.Is(err, turnout.ErrUnknownElection), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "x1")
				So(err.Error(), ShouldContainSubstring, "2012-general")
			})
		})

		Convey("When the calendar has a zero date", func() {
			broken := cohort.Calendar{"mystery": {}}
			_, err := turnout.DeriveStats(voters, broken)

			Convey("Then the calendar is rejected", func() {
				So(errors.Is(err, turnout.ErrMissingElectionDate), ShouldBeTrue)
			})
		})

		Convey("When the calendar is empty", func() {
			_, err := turnout.DeriveStats(voters, cohort.Calendar{})

			Convey("Then there is nothing to derive", func() {
				So(errors.Is(err, turnout.ErrNoElections), ShouldBeTrue)
			})
		})
	})
}

func TestDeriveStatsFeedsWeights(t *testing.T) {
	Convey("Given statistics derived from a voter file", t, func() {
		cal := cohort.Calendar{
			"low":  day(2018, time.November, 6),
			"high": day(2020, time.November, 3),
		}
		voters := []model.Voter{
			{ID: "a", RegisteredAt: day(2017, time.January, 1), VotedIn: []string{"low", "high"}},
			{ID: "b", RegisteredAt: day(2017, time.January, 1), VotedIn: []string{"high"}},
			{ID: "c", RegisteredAt: day(2017, time.January, 1), VotedIn: []string{"high"}},
			{ID: "d", RegisteredAt: day(2017, time.January, 1), VotedIn: []string{"high"}},
		}
		elections, err := turnout.DeriveStats(voters, cal)
		So(err, ShouldBeNil)

		Convey("When feeding them to the calculator", func() {
			table, err := turnout.NewCalculator().Weights(context.Background(), elections)

			Convey("Then the rarer election weighs more", func() {
				So(err, ShouldBeNil)
				wLow, _ := table.Weight("low")   // 1 of 4 voted
				wHigh, _ := table.Weight("high") // 4 of 4 voted
				So(wLow, ShouldAlmostEqual, 4.0)
				So(wHigh, ShouldAlmostEqual, 1.0)
				So(wLow, ShouldBeGreaterThan, wHigh)
			})
		})
	})
}
