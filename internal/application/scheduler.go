package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ericfisherdev/missioncontrol/internal/domain/model"
	"github.com/ericfisherdev/missioncontrol/internal/domain/port/driven"
)

// SchedulerService reserves resources for exclusive, non-overlapping time
// windows. Conflict check and write for one resource run under that
// resource's lock, so two overlapping Book calls cannot both succeed.
type SchedulerService struct {
	bookings collection[model.Booking]
	catalog  *CatalogService
	clock    driven.Clock
	locks    keyedMutex
	logger   *slog.Logger
}

// NewSchedulerService creates a new SchedulerService backed by the catalog.
func NewSchedulerService(store driven.DocumentStore, catalog *CatalogService, clock driven.Clock, logger *slog.Logger) *SchedulerService {
	return &SchedulerService{
		bookings: newCollection[model.Booking](store, driven.CollectionBookings),
		catalog:  catalog,
		clock:    clock,
		logger:   logger,
	}
}

// Book reserves a resource for [StartTime, EndTime). It returns
// model.ErrResourceNotFound for unknown resources and a *model.ConflictError
// naming every confirmed booking that overlaps the window.
func (s *SchedulerService) Book(ctx context.Context, in model.NewBooking) (model.Booking, error) {
	if err := validateInput(in); err != nil {
		return model.Booking{}, err
	}
	start, end := in.StartTime.UTC(), in.EndTime.UTC()
	if !start.Before(end) {
		return model.Booking{}, model.NewValidationError("end_time", "must be after start_time")
	}

	unlock := s.locks.Lock(in.ResourceID)
	defer unlock()

	res, err := s.catalog.Get(ctx, in.ResourceID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Booking{}, fmt.Errorf("book %q: %w", in.ResourceID, model.ErrResourceNotFound)
	}
	if err != nil {
		return model.Booking{}, fmt.Errorf("load resource %q: %w", in.ResourceID, err)
	}
	if res.Status == model.ResourceStatusRetired {
		return model.Booking{}, model.NewValidationError("resource_id", fmt.Sprintf("resource %s is retired", res.ID))
	}

	hours := end.Sub(start).Hours()
	if res.MaxBookingHours > 0 && hours > res.MaxBookingHours {
		return model.Booking{}, model.NewValidationError("end_time",
			fmt.Sprintf("booking of %.2fh exceeds the %.2fh limit for %s", hours, res.MaxBookingHours, res.ID))
	}

	if in.ID != "" {
		if _, err := s.bookings.get(ctx, in.ID); err == nil {
			return model.Booking{}, model.NewValidationError("id", fmt.Sprintf("booking %s already exists", in.ID))
		} else if !errors.Is(err, model.ErrNotFound) {
			return model.Booking{}, err
		}
	}

	conflicts, err := s.CheckConflicts(ctx, in.ResourceID, start, end)
	if err != nil {
		return model.Booking{}, err
	}
	if len(conflicts) > 0 {
		ids := make([]string, 0, len(conflicts))
		for _, c := range conflicts {
			ids = append(ids, c.ID)
		}
		s.logger.Warn("booking conflict", "resource_id", in.ResourceID, "conflicts", ids)
		return model.Booking{}, &model.ConflictError{ResourceID: in.ResourceID, BookingIDs: ids}
	}

	now := s.clock.Now()
	booking := model.Booking{
		ID:            in.ID,
		ResourceID:    res.ID,
		ResourceName:  res.Name,
		BookedBy:      in.BookedBy,
		AgentID:       strPtr(derefStr(in.AgentID)),
		Purpose:       in.Purpose,
		StartTime:     start,
		EndTime:       end,
		Status:        model.BookingStatusConfirmed,
		EstimatedCost: hours * res.CostPerHour,
		Notes:         in.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if booking.ID == "" {
		booking.ID = newID("book")
	}

	if err := s.bookings.put(ctx, booking.ID, booking); err != nil {
		return model.Booking{}, fmt.Errorf("store booking %q: %w", booking.ID, err)
	}

	s.logger.Info("resource booked",
		"booking_id", booking.ID,
		"resource_id", booking.ResourceID,
		"start", booking.StartTime,
		"end", booking.EndTime,
		"estimated_cost", booking.EstimatedCost,
	)
	return booking, nil
}

// Cancel marks a booking cancelled, releasing its window. The record is kept.
// Cancelling an already-cancelled booking returns it unchanged.
func (s *SchedulerService) Cancel(ctx context.Context, id string) (model.Booking, error) {
	booking, err := s.bookings.get(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}

	unlock := s.locks.Lock(booking.ResourceID)
	defer unlock()

	// Re-read under the resource lock so a concurrent cancel is observed.
	booking, err = s.bookings.get(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	if booking.Status == model.BookingStatusCancelled {
		return booking, nil
	}

	booking.Status = model.BookingStatusCancelled
	booking.UpdatedAt = s.clock.Now()
	if err := s.bookings.put(ctx, id, booking); err != nil {
		return model.Booking{}, fmt.Errorf("cancel booking %q: %w", id, err)
	}

	s.logger.Info("booking cancelled", "booking_id", id, "resource_id", booking.ResourceID)
	return booking, nil
}

// Get returns a booking by id.
func (s *SchedulerService) Get(ctx context.Context, id string) (model.Booking, error) {
	return s.bookings.get(ctx, id)
}

// List returns bookings matching the filter, ordered by start time. From and
// To select bookings whose window touches [From, To]: a booking ending exactly
// at From or starting exactly at To is included.
func (s *SchedulerService) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	all, err := s.bookings.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	matched := make([]model.Booking, 0, len(all))
	for _, b := range all {
		if f.ResourceID != "" && b.ResourceID != f.ResourceID {
			continue
		}
		if f.AgentID != "" && derefStr(b.AgentID) != f.AgentID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && b.EndTime.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && b.StartTime.After(f.To) {
			continue
		}
		matched = append(matched, b)
	}

	sortBookings(matched)
	return matched, nil
}

// CheckConflicts returns the confirmed bookings on resourceID whose window
// overlaps [start, end). It does not take the resource lock.
func (s *SchedulerService) CheckConflicts(ctx context.Context, resourceID string, start, end time.Time) ([]model.Booking, error) {
	all, err := s.bookings.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	var conflicts []model.Booking
	for _, b := range all {
		if b.ResourceID != resourceID || b.Status == model.BookingStatusCancelled {
			continue
		}
		if b.Overlaps(start, end) {
			conflicts = append(conflicts, b)
		}
	}

	sortBookings(conflicts)
	return conflicts, nil
}

func sortBookings(bookings []model.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].StartTime.Equal(bookings[j].StartTime) {
			return bookings[i].StartTime.Before(bookings[j].StartTime)
		}
		return bookings[i].ID < bookings[j].ID
	})
}
