package application_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/gitpulse/internal/application"
)

func TestResolveWindow_FixedOffsets(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		window string
		want   time.Time
	}{
		{"last day", application.WindowLastDay, now.Add(-24 * time.Hour)},
		{"last week", application.WindowLastWeek, now.Add(-168 * time.Hour)},
		{"last month", application.WindowLastMonth, time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)},
		{"last 3 months", application.WindowLast3Months, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)},
		{"last 6 months", application.WindowLast6Months, time.Date(2023, 12, 15, 12, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cutoff, bounded := application.ResolveWindow(tt.window, now)
			assert.True(t, bounded)
			assert.True(t, cutoff.Equal(tt.want), "cutoff %v, want %v", cutoff, tt.want)
		})
	}
}

func TestResolveWindow_MonthArithmeticFollowsCalendar(t *testing.T) {
	// A month back from March 31 lands past February's end; AddDate
	// normalizes into early March rather than clamping.
	now := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	cutoff, bounded := application.ResolveWindow(application.WindowLastMonth, now)
	assert.True(t, bounded)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), cutoff)
}

func TestResolveWindow_UnknownNameIsUnbounded(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	for _, name := range []string{"", "yesterday", "LAST WEEK", "last  week"} {
		cutoff, bounded := application.ResolveWindow(name, now)
		assert.False(t, bounded, "window %q should be unbounded", name)
		assert.True(t, cutoff.IsZero())
	}
}
