package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ericfisherdev/missioncontrol/internal/domain/model"
	"github.com/ericfisherdev/missioncontrol/internal/domain/port/driven"
)

// CatalogService is the registry of bookable resources.
type CatalogService struct {
	resources collection[model.Resource]
	clock     driven.Clock
	locks     keyedMutex
	logger    *slog.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(store driven.DocumentStore, clock driven.Clock, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		resources: newCollection[model.Resource](store, driven.CollectionResources),
		clock:     clock,
		logger:    logger,
	}
}

// Create registers a resource, assigning an id and defaults where omitted.
func (s *CatalogService) Create(ctx context.Context, in model.NewResource) (model.Resource, error) {
	if err := validateInput(in); err != nil {
		return model.Resource{}, err
	}
	if in.Status != "" && !in.Status.Valid() {
		return model.Resource{}, model.NewValidationError("status", fmt.Sprintf("unknown status %q", in.Status))
	}

	now := s.clock.Now()
	res := model.Resource{
		ID:              in.ID,
		Name:            in.Name,
		Type:            in.Type,
		Description:     in.Description,
		Specs:           in.Specs,
		Status:          in.Status,
		CostPerHour:     in.CostPerHour,
		MaxBookingHours: in.MaxBookingHours,
		Owner:           in.Owner,
		Tags:            in.Tags,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if res.ID == "" {
		res.ID = newID("res")
	}
	if res.Status == "" {
		res.Status = model.ResourceStatusAvailable
	}
	if res.MaxBookingHours == 0 {
		res.MaxBookingHours = model.DefaultMaxBookingHours()
	}
	if res.Owner == "" {
		res.Owner = "system"
	}
	if res.Specs == nil {
		res.Specs = map[string]any{}
	}
	if res.Tags == nil {
		res.Tags = []string{}
	}

	if err := s.resources.put(ctx, res.ID, res); err != nil {
		return model.Resource{}, fmt.Errorf("create resource %q: %w", res.ID, err)
	}

	s.logger.Info("resource created", "resource_id", res.ID, "type", res.Type, "cost_per_hour", res.CostPerHour)
	return res, nil
}

// Get returns a resource by id. Returns model.ErrNotFound for unknown ids.
func (s *CatalogService) Get(ctx context.Context, id string) (model.Resource, error) {
	return s.resources.get(ctx, id)
}

// List returns every resource ordered by name.
func (s *CatalogService) List(ctx context.Context) ([]model.Resource, error) {
	resources, err := s.resources.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	sort.Slice(resources, func(i, j int) bool {
		if resources[i].Name != resources[j].Name {
			return resources[i].Name < resources[j].Name
		}
		return resources[i].ID < resources[j].ID
	})
	return resources, nil
}

// Update applies a partial update to a resource.
func (s *CatalogService) Update(ctx context.Context, id string, upd model.ResourceUpdate) (model.Resource, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	res, err := s.resources.get(ctx, id)
	if err != nil {
		return model.Resource{}, err
	}

	if upd.Name != nil {
		if *upd.Name == "" {
			return model.Resource{}, model.NewValidationError("name", "is required")
		}
		res.Name = *upd.Name
	}
	if upd.Description != nil {
		res.Description = *upd.Description
	}
	if upd.Specs != nil {
		res.Specs = upd.Specs
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return model.Resource{}, model.NewValidationError("status", fmt.Sprintf("unknown status %q", *upd.Status))
		}
		res.Status = *upd.Status
	}
	if upd.CostPerHour != nil {
		if *upd.CostPerHour < 0 {
			return model.Resource{}, model.NewValidationError("cost_per_hour", "must be at least 0")
		}
		res.CostPerHour = *upd.CostPerHour
	}
	if upd.MaxBookingHours != nil {
		if *upd.MaxBookingHours < 0 {
			return model.Resource{}, model.NewValidationError("max_booking_hours", "must be at least 0")
		}
		res.MaxBookingHours = *upd.MaxBookingHours
	}
	if upd.Owner != nil {
		res.Owner = *upd.Owner
	}
	if upd.Tags != nil {
		res.Tags = upd.Tags
	}
	res.UpdatedAt = s.clock.Now()

	if err := s.resources.put(ctx, id, res); err != nil {
		return model.Resource{}, fmt.Errorf("update resource %q: %w", id, err)
	}
	return res, nil
}
