package model

import "time"

// Booking is an exclusive reservation of a resource over the half-open
// interval [StartTime, EndTime).
type Booking struct {
	ID            string        `json:"id"`
	ResourceID    string        `json:"resource_id"`
	ResourceName  string        `json:"resource_name"`
	BookedBy      string        `json:"booked_by"`
	AgentID       *string       `json:"agent_id"`
	Purpose       string        `json:"purpose"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	Status        BookingStatus `json:"status"`
	EstimatedCost float64       `json:"estimated_cost"`
	ActualCost    *float64      `json:"actual_cost"`
	Notes         string        `json:"notes"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Overlaps reports whether the booking's window intersects [start, end).
// Adjacent windows do not overlap.
func (b Booking) Overlaps(start, end time.Time) bool {
	return start.Before(b.EndTime) && end.After(b.StartTime)
}

// ActiveAt reports whether a confirmed booking covers t.
func (b Booking) ActiveAt(t time.Time) bool {
	return b.Status == BookingStatusConfirmed && !t.Before(b.StartTime) && t.Before(b.EndTime)
}

// Hours returns the booked duration in fractional hours.
func (b Booking) Hours() float64 {
	return b.EndTime.Sub(b.StartTime).Hours()
}

// NewBooking is the input for reserving a resource.
type NewBooking struct {
	ID         string
	ResourceID string `validate:"required"`
	BookedBy   string
	AgentID    *string
	Purpose    string
	StartTime  time.Time `validate:"required"`
	EndTime    time.Time `validate:"required"`
	Notes      string
}

// BookingFilter narrows a booking listing. Zero values match everything.
// From and To select bookings whose window intersects the closed range
// [From, To], boundaries included.
type BookingFilter struct {
	ResourceID string
	AgentID    string
	Status     BookingStatus
	From       time.Time
	To         time.Time
}
