package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBookingOverlaps(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }
	b := Booking{StartTime: at(10), EndTime: at(12)}

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{name: "identical", start: at(10), end: at(12), want: true},
		{name: "overlaps tail", start: at(11), end: at(13), want: true},
		{name: "overlaps head", start: at(9), end: at(11), want: true},
		{name: "contains", start: at(8), end: at(14), want: true},
		{name: "inside", start: at(10).Add(time.Minute), end: at(11), want: true},
		{name: "touches end", start: at(12), end: at(14), want: false},
		{name: "touches start", start: at(8), end: at(10), want: false},
		{name: "disjoint", start: at(14), end: at(15), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Overlaps(tt.start, tt.end))
		})
	}
}

func TestBookingActiveAt(t *testing.T) {
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	b := Booking{Status: BookingStatusConfirmed, StartTime: start, EndTime: start.Add(time.Hour)}

	assert.True(t, b.ActiveAt(start))
	assert.True(t, b.ActiveAt(start.Add(59*time.Minute)))
	assert.False(t, b.ActiveAt(start.Add(time.Hour)))
	assert.False(t, b.ActiveAt(start.Add(-time.Second)))

	b.Status = BookingStatusCancelled
	assert.False(t, b.ActiveAt(start))
	assert.InDelta(t, 1.0, b.Hours(), 1e-9)
}
