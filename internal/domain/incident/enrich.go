package incident

import (
	"time"
)

// Timeframe classifies how an incident's resolution relates to its creation
// date.
type Timeframe int

const (
	TimeframeUnresolved Timeframe = iota
	TimeframeSameDay
	TimeframeMultiDay
)

func (t Timeframe) String() string {
	switch t {
	case TimeframeSameDay:
		return "Same Day"
	case TimeframeMultiDay:
		return "Multi Day"
	default:
		return "Unresolved"
	}
}

// DeriveTimeframe compares the UTC calendar dates of creation and
// resolution. Crossing midnight counts as multi-day even when the elapsed
// time is short.
func DeriveTimeframe(createdAt time.Time, resolvedAt *time.Time) Timeframe {
	if resolvedAt == nil {
		return TimeframeUnresolved
	}
	cy, cm, cd := createdAt.UTC().Date()
	ry, rm, rd := resolvedAt.UTC().Date()
	if cy == ry && cm == rm && cd == rd {
		return TimeframeSameDay
	}
	return TimeframeMultiDay
}

// ResolutionBucket is the ordinal speed band an incident's resolution time
// falls into. The declaration order is the reporting order.
type ResolutionBucket int

const (
	BucketUnderOneHour ResolutionBucket = iota
	BucketOneToEightHours
	BucketEightToDayHours
	BucketOneToThreeDays
	BucketOverThreeDays
	BucketUnresolved
)

// Bucket boundaries in hours. Upper bounds are inclusive.
const (
	bucketHourMax     = 1.0
	bucketShiftMax    = 8.0
	bucketDayMax      = 24.0
	bucketThreeDayMax = 72.0
)

func (b ResolutionBucket) String() string {
	switch b {
	case BucketUnderOneHour:
		return "Under 1 Hour"
	case BucketOneToEightHours:
		return "1-8 Hours"
	case BucketEightToDayHours:
		return "8-24 Hours"
	case BucketOneToThreeDays:
		return "1-3 Days"
	case BucketOverThreeDays:
		return "Over 3 Days"
	default:
		return "Unresolved"
	}
}

// Ordinal returns the bucket's position in the reporting order, starting at 1.
func (b ResolutionBucket) Ordinal() int {
	return int(b) + 1
}

// DeriveResolutionBucket places resolution time into its speed band.
func DeriveResolutionBucket(resolutionHours *float64) ResolutionBucket {
	if resolutionHours == nil {
		return BucketUnresolved
	}
	h := *resolutionHours
	switch {
	case h <= bucketHourMax:
		return BucketUnderOneHour
	case h <= bucketShiftMax:
		return BucketOneToEightHours
	case h <= bucketDayMax:
		return BucketEightToDayHours
	case h <= bucketThreeDayMax:
		return BucketOneToThreeDays
	default:
		return BucketOverThreeDays
	}
}

// FCRFlag marks incidents resolved fast enough to count as first-contact
// resolutions.
type FCRFlag int

const (
	FCRNo FCRFlag = iota
	FCRYes
)

func (f FCRFlag) String() string {
	if f == FCRYes {
		return "FCR"
	}
	return "Non-FCR"
}

// DeriveFCR flags resolutions at or under the threshold. Unresolved
// incidents are Non-FCR.
func DeriveFCR(resolutionHours *float64, thresholdHours float64) FCRFlag {
	if resolutionHours == nil {
		return FCRNo
	}
	if *resolutionHours <= thresholdHours {
		return FCRYes
	}
	return FCRNo
}

// DeriveDaysOpen returns the age in days of an incident that is still being
// worked, measured from creation to the run's reference time. Incidents in
// any other state return nil: age is meaningful only while work is pending.
func DeriveDaysOpen(state State, createdAt time.Time, now time.Time) *float64 {
	if !state.IsOpen() {
		return nil
	}
	days := now.Sub(createdAt).Hours() / 24
	return &days
}

// AgingBucket is the age band of an open incident.
type AgingBucket int

const (
	AgingNotApplicable AgingBucket = iota
	AgingUnderOneDay
	AgingOneToThreeDays
	AgingThreeToSevenDays
	AgingOneToTwoWeeks
	AgingOverTwoWeeks
)

// Age boundaries in days. Upper bounds are inclusive.
const (
	agingDayMax       = 1.0
	agingThreeDayMax  = 3.0
	agingWeekMax      = 7.0
	agingFortnightMax = 14.0
)

func (b AgingBucket) String() string {
	switch b {
	case AgingUnderOneDay:
		return "0-1 Days"
	case AgingOneToThreeDays:
		return "1-3 Days"
	case AgingThreeToSevenDays:
		return "3-7 Days"
	case AgingOneToTwoWeeks:
		return "1-2 Weeks"
	case AgingOverTwoWeeks:
		return "Over 2 Weeks"
	default:
		return "Not Applicable"
	}
}

// DeriveAgingBucket places an open incident's age into its band. Nil means
// the incident is not open, which maps to AgingNotApplicable.
func DeriveAgingBucket(daysOpen *float64) AgingBucket {
	if daysOpen == nil {
		return AgingNotApplicable
	}
	d := *daysOpen
	switch {
	case d <= agingDayMax:
		return AgingUnderOneDay
	case d <= agingThreeDayMax:
		return AgingOneToThreeDays
	case d <= agingWeekMax:
		return AgingThreeToSevenDays
	case d <= agingFortnightMax:
		return AgingOneToTwoWeeks
	default:
		return AgingOverTwoWeeks
	}
}
