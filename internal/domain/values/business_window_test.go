package values

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBusinessWindow(t *testing.T) {
	weekdays := []time.Weekday{time.Monday, time.Friday}

	tests := []struct {
		name      string
		startHour int
		endHour   int
		weekdays  []time.Weekday
		wantErr   bool
	}{
		{
			name:      "standard office hours",
			startHour: 8,
			endHour:   18,
			weekdays:  weekdays,
			wantErr:   false,
		},
		{
			name:      "full day",
			startHour: 0,
			endHour:   24,
			weekdays:  weekdays,
			wantErr:   false,
		},
		{
			name:      "start after end",
			startHour: 18,
			endHour:   8,
			weekdays:  weekdays,
			wantErr:   true,
		},
		{
			name:      "start equals end",
			startHour: 9,
			endHour:   9,
			weekdays:  weekdays,
			wantErr:   true,
		},
		{
			name:      "negative start",
			startHour: -1,
			endHour:   18,
			weekdays:  weekdays,
			wantErr:   true,
		},
		{
			name:      "end past midnight",
			startHour: 8,
			endHour:   25,
			weekdays:  weekdays,
			wantErr:   true,
		},
		{
			name:      "no weekdays",
			startHour: 8,
			endHour:   18,
			weekdays:  nil,
			wantErr:   true,
		},
		{
			name:      "invalid weekday",
			startHour: 8,
			endHour:   18,
			weekdays:  []time.Weekday{time.Weekday(7)},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewBusinessWindow(tt.startHour, tt.endHour, tt.weekdays)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.startHour, w.StartHour())
			assert.Equal(t, tt.endHour, w.EndHour())
		})
	}
}

func TestBusinessWindowContains(t *testing.T) {
	w := DefaultBusinessWindow()

	tests := []struct {
		name     string
		at       time.Time
		expected bool
	}{
		{
			name:     "monday mid morning",
			at:       time.Date(2025, 3, 10, 10, 30, 0, 0, time.UTC),
			expected: true,
		},
		{
			name:     "monday at opening",
			at:       time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
			expected: true,
		},
		{
			name:     "monday last working minute",
			at:       time.Date(2025, 3, 10, 17, 59, 0, 0, time.UTC),
			expected: true,
		},
		{
			name:     "monday at closing is outside",
			at:       time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC),
			expected: false,
		},
		{
			name:     "monday before opening",
			at:       time.Date(2025, 3, 10, 7, 59, 0, 0, time.UTC),
			expected: false,
		},
		{
			name:     "saturday mid morning",
			at:       time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC),
			expected: false,
		},
		{
			name:     "sunday",
			at:       time.Date(2025, 3, 16, 12, 0, 0, 0, time.UTC),
			expected: false,
		},
		{
			name:     "non-UTC time is evaluated on its UTC hour",
			at:       time.Date(2025, 3, 10, 5, 0, 0, 0, time.FixedZone("EST", -5*3600)),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, w.Contains(tt.at))
		})
	}
}

func TestBusinessWindowIsBusinessDay(t *testing.T) {
	w := DefaultBusinessWindow()

	// Weekday membership ignores the hour entirely.
	assert.True(t, w.IsBusinessDay(time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)))
	assert.False(t, w.IsBusinessDay(time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)))
	assert.False(t, w.IsBusinessDay(time.Date(2025, 3, 16, 10, 0, 0, 0, time.UTC)))
}

func TestBusinessWindowWeekdays(t *testing.T) {
	w := MustNewBusinessWindow(9, 17, []time.Weekday{time.Friday, time.Monday, time.Wednesday})

	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Friday}, w.Weekdays())
}
