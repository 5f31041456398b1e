package incident

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveTimeframe(t *testing.T) {
	created := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		resolvedAt *time.Time
		expected   Timeframe
	}{
		{
			name:       "unresolved",
			resolvedAt: nil,
			expected:   TimeframeUnresolved,
		},
		{
			name:       "resolved within the same day",
			resolvedAt: tsPtr(time.Date(2025, 3, 10, 23, 59, 59, 0, time.UTC)),
			expected:   TimeframeSameDay,
		},
		{
			name:       "one minute past midnight is multi day",
			resolvedAt: tsPtr(time.Date(2025, 3, 11, 0, 1, 0, 0, time.UTC)),
			expected:   TimeframeMultiDay,
		},
		{
			name:       "resolved weeks later",
			resolvedAt: tsPtr(time.Date(2025, 3, 28, 9, 30, 0, 0, time.UTC)),
			expected:   TimeframeMultiDay,
		},
		{
			name:       "non-UTC resolution is compared on UTC dates",
			resolvedAt: tsPtr(time.Date(2025, 3, 10, 22, 0, 0, 0, time.FixedZone("EST", -5*3600))),
			expected:   TimeframeMultiDay,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveTimeframe(created, tt.resolvedAt))
		})
	}
}

func TestDeriveResolutionBucket(t *testing.T) {
	tests := []struct {
		name     string
		hours    *float64
		expected ResolutionBucket
	}{
		{name: "unresolved", hours: nil, expected: BucketUnresolved},
		{name: "instant", hours: hoursPtr(0), expected: BucketUnderOneHour},
		{name: "exactly one hour", hours: hoursPtr(1), expected: BucketUnderOneHour},
		{name: "just over one hour", hours: hoursPtr(1.01), expected: BucketOneToEightHours},
		{name: "exactly eight hours", hours: hoursPtr(8), expected: BucketOneToEightHours},
		{name: "overnight", hours: hoursPtr(16), expected: BucketEightToDayHours},
		{name: "exactly one day", hours: hoursPtr(24), expected: BucketEightToDayHours},
		{name: "two days", hours: hoursPtr(48), expected: BucketOneToThreeDays},
		{name: "exactly three days", hours: hoursPtr(72), expected: BucketOneToThreeDays},
		{name: "over three days", hours: hoursPtr(72.5), expected: BucketOverThreeDays},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveResolutionBucket(tt.hours))
		})
	}
}

func TestResolutionBucketOrdinal(t *testing.T) {
	assert.Equal(t, 1, BucketUnderOneHour.Ordinal())
	assert.Equal(t, 2, BucketOneToEightHours.Ordinal())
	assert.Equal(t, 3, BucketEightToDayHours.Ordinal())
	assert.Equal(t, 4, BucketOneToThreeDays.Ordinal())
	assert.Equal(t, 5, BucketOverThreeDays.Ordinal())
	assert.Equal(t, 6, BucketUnresolved.Ordinal())
}

func TestDeriveFCR(t *testing.T) {
	tests := []struct {
		name      string
		hours     *float64
		threshold float64
		expected  FCRFlag
	}{
		{name: "under threshold", hours: hoursPtr(0.5), threshold: 1, expected: FCRYes},
		{name: "exactly at threshold", hours: hoursPtr(1), threshold: 1, expected: FCRYes},
		{name: "just over threshold", hours: hoursPtr(1.001), threshold: 1, expected: FCRNo},
		{name: "unresolved", hours: nil, threshold: 1, expected: FCRNo},
		{name: "wider threshold", hours: hoursPtr(3.5), threshold: 4, expected: FCRYes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveFCR(tt.hours, tt.threshold))
		})
	}
}

func TestDeriveDaysOpen(t *testing.T) {
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	created := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("open states accrue age", func(t *testing.T) {
		for _, s := range []State{StateNew, StateInProgress, StateOnHold} {
			days := DeriveDaysOpen(s, created, now)
			require.NotNil(t, days, "state %s", s)
			assert.InDelta(t, 5.0, *days, 1e-9)
		}
	})

	t.Run("terminal states have no age", func(t *testing.T) {
		for _, s := range []State{StateResolved, StateClosed, StateCanceled, StateUnknown} {
			assert.Nil(t, DeriveDaysOpen(s, created, now), "state %s", s)
		}
	})

	t.Run("fractional days", func(t *testing.T) {
		days := DeriveDaysOpen(StateNew, now.Add(-36*time.Hour), now)
		require.NotNil(t, days)
		assert.InDelta(t, 1.5, *days, 1e-9)
	})
}

func TestDeriveAgingBucket(t *testing.T) {
	tests := []struct {
		name     string
		daysOpen *float64
		expected AgingBucket
	}{
		{name: "not open", daysOpen: nil, expected: AgingNotApplicable},
		{name: "hours old", daysOpen: hoursPtr(0.25), expected: AgingUnderOneDay},
		{name: "exactly one day", daysOpen: hoursPtr(1), expected: AgingUnderOneDay},
		{name: "two days", daysOpen: hoursPtr(2), expected: AgingOneToThreeDays},
		{name: "exactly three days", daysOpen: hoursPtr(3), expected: AgingOneToThreeDays},
		{name: "five days", daysOpen: hoursPtr(5), expected: AgingThreeToSevenDays},
		{name: "exactly one week", daysOpen: hoursPtr(7), expected: AgingThreeToSevenDays},
		{name: "ten days", daysOpen: hoursPtr(10), expected: AgingOneToTwoWeeks},
		{name: "exactly two weeks", daysOpen: hoursPtr(14), expected: AgingOneToTwoWeeks},
		{name: "a month", daysOpen: hoursPtr(30), expected: AgingOverTwoWeeks},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveAgingBucket(tt.daysOpen))
		})
	}
}

func tsPtr(t time.Time) *time.Time {
	return &t
}
