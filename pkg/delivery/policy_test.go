package delivery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextDelivery(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)

	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{
			name: "wednesday goes to next monday",
			from: time.Date(2026, 10, 14, 15, 0, 0, 0, loc),
			want: time.Date(2026, 10, 19, 8, 0, 0, 0, loc),
		},
		{
			name: "monday before eight is the same day",
			from: time.Date(2026, 10, 19, 7, 30, 0, 0, loc),
			want: time.Date(2026, 10, 19, 8, 0, 0, 0, loc),
		},
		{
			name: "monday at eight goes to the following week",
			from: time.Date(2026, 10, 19, 8, 0, 0, 0, loc),
			want: time.Date(2026, 10, 26, 8, 0, 0, 0, loc),
		},
		{
			name: "sunday night",
			from: time.Date(2026, 10, 18, 23, 59, 0, 0, loc),
			want: time.Date(2026, 10, 19, 8, 0, 0, 0, loc),
		},
		{
			name: "utc input is converted to store timezone",
			from: time.Date(2026, 10, 19, 10, 30, 0, 0, time.UTC), // 07:30 BRT
			want: time.Date(2026, 10, 19, 8, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDelivery(tt.from, loc)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
			assert.Equal(t, time.Monday, got.In(loc).Weekday())
		})
	}
}

func TestAdvance(t *testing.T) {
	loc := time.UTC
	current := time.Date(2026, 10, 5, 8, 0, 0, 0, loc)
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, loc)

	got := Advance(current, now, loc)

	assert.Equal(t, time.Date(2026, 10, 26, 8, 0, 0, 0, loc), got)
	assert.Equal(t, got, Advance(got, now, loc), "future dates are left alone")
}
