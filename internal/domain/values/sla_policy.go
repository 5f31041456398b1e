package values

import (
	"fmt"
)

// SLAPolicy holds the resolution deadline in hours for each priority rank.
// Thresholds are keyed by rank (1 is most urgent) so the policy stays
// decoupled from the priority enum that consults it.
type SLAPolicy struct {
	hours map[int]float64
}

// Priority ranks recognized by the policy.
const (
	RankCritical = 1
	RankHigh     = 2
	RankModerate = 3
	RankLow      = 4
)

// NewSLAPolicy creates an SLAPolicy from per-band deadlines in hours. Every
// deadline must be positive and each band must be at least as generous as
// the band above it.
func NewSLAPolicy(criticalHours, highHours, moderateHours, lowHours float64) (SLAPolicy, error) {
	bands := []struct {
		name  string
		hours float64
	}{
		{"critical", criticalHours},
		{"high", highHours},
		{"moderate", moderateHours},
		{"low", lowHours},
	}
	prev := 0.0
	for _, b := range bands {
		if b.hours <= 0 {
			return SLAPolicy{}, fmt.Errorf("%s threshold must be positive, got %v", b.name, b.hours)
		}
		if b.hours < prev {
			return SLAPolicy{}, fmt.Errorf("%s threshold %v is tighter than the band above it", b.name, b.hours)
		}
		prev = b.hours
	}

	return SLAPolicy{
		hours: map[int]float64{
			RankCritical: criticalHours,
			RankHigh:     highHours,
			RankModerate: moderateHours,
			RankLow:      lowHours,
		},
	}, nil
}

// MustNewSLAPolicy creates an SLAPolicy and panics on error (for constants/tests)
func MustNewSLAPolicy(criticalHours, highHours, moderateHours, lowHours float64) SLAPolicy {
	p, err := NewSLAPolicy(criticalHours, highHours, moderateHours, lowHours)
	if err != nil {
		panic(err)
	}
	return p
}

// DefaultSLAPolicy returns the standard deadlines: 4h critical, 24h high,
// 72h moderate, 168h low.
func DefaultSLAPolicy() SLAPolicy {
	return MustNewSLAPolicy(4, 24, 72, 168)
}

// ThresholdHours returns the deadline for a priority rank. The second return
// is false for ranks the policy does not cover, which is how unknown
// priorities stay out of SLA evaluation.
func (p SLAPolicy) ThresholdHours(rank int) (float64, bool) {
	h, ok := p.hours[rank]
	return h, ok
}

// IsZero reports whether the policy carries no thresholds.
func (p SLAPolicy) IsZero() bool {
	return p.hours == nil
}
