package model

import "time"

// defaultMaxBookingHours caps a single booking when the resource does not set its own limit.
const defaultMaxBookingHours = 24

// DefaultMaxBookingHours returns the booking length cap applied to new resources.
func DefaultMaxBookingHours() float64 {
	return defaultMaxBookingHours
}

// Resource is a bookable asset such as a server, GPU, or license seat.
type Resource struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Type            string         `json:"type"`
	Description     string         `json:"description"`
	Specs           map[string]any `json:"specs"`
	Status          ResourceStatus `json:"status"`
	CostPerHour     float64        `json:"cost_per_hour"`
	MaxBookingHours float64        `json:"max_booking_hours"`
	Owner           string         `json:"owner"`
	Tags            []string       `json:"tags"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// NewResource is the input for registering a resource. Zero values fall back
// to catalog defaults.
type NewResource struct {
	ID              string
	Name            string `validate:"required"`
	Type            string `validate:"required"`
	Description     string
	Specs           map[string]any
	Status          ResourceStatus
	CostPerHour     float64 `validate:"gte=0"`
	MaxBookingHours float64 `validate:"gte=0"`
	Owner           string
	Tags            []string
}

// ResourceUpdate carries a partial update. Nil fields are left unchanged.
type ResourceUpdate struct {
	Name            *string
	Description     *string
	Specs           map[string]any
	Status          *ResourceStatus
	CostPerHour     *float64
	MaxBookingHours *float64
	Owner           *string
	Tags            []string
}
