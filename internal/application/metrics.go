package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/missioncontrol/internal/domain/model"
	"github.com/ericfisherdev/missioncontrol/internal/domain/port/driven"
)

const upcomingLimit = 5

// MetricsService builds read-only rollups across every collection.
type MetricsService struct {
	resources   collection[model.Resource]
	bookings    collection[model.Booking]
	credentials collection[model.StoredCredential]
	costs       collection[model.CostEntry]
	quotas      collection[model.Quota]
	clock       driven.Clock
	logger      *slog.Logger
}

// NewMetricsService creates a new MetricsService.
func NewMetricsService(store driven.DocumentStore, clock driven.Clock, logger *slog.Logger) *MetricsService {
	return &MetricsService{
		resources:   newCollection[model.Resource](store, driven.CollectionResources),
		bookings:    newCollection[model.Booking](store, driven.CollectionBookings),
		credentials: newCollection[model.StoredCredential](store, driven.CollectionCredentials),
		costs:       newCollection[model.CostEntry](store, driven.CollectionCosts),
		quotas:      newCollection[model.Quota](store, driven.CollectionQuotas),
		clock:       clock,
		logger:      logger,
	}
}

// Snapshot loads every collection concurrently and aggregates them relative
// to the current time. It never writes.
func (s *MetricsService) Snapshot(ctx context.Context) (model.Metrics, error) {
	var (
		resources   []model.Resource
		bookings    []model.Booking
		credentials []model.StoredCredential
		costs       []model.CostEntry
		quotas      []model.Quota
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { resources, err = s.resources.list(gctx); return })
	g.Go(func() (err error) { bookings, err = s.bookings.list(gctx); return })
	g.Go(func() (err error) { credentials, err = s.credentials.list(gctx); return })
	g.Go(func() (err error) { costs, err = s.costs.list(gctx); return })
	g.Go(func() (err error) { quotas, err = s.quotas.list(gctx); return })
	if err := g.Wait(); err != nil {
		return model.Metrics{}, fmt.Errorf("load metrics: %w", err)
	}

	now := s.clock.Now()
	m := model.Metrics{
		Resources:   resourceMetrics(resources),
		Bookings:    bookingMetrics(bookings, now),
		Credentials: credentialMetrics(credentials),
		Costs:       costMetrics(costs),
		Quotas:      quotaMetrics(quotas),
	}

	s.logger.Debug("metrics snapshot built",
		"resources", m.Resources.Total,
		"bookings", m.Bookings.Total,
		"quotas", m.Quotas.Total,
	)
	return m, nil
}

func resourceMetrics(resources []model.Resource) model.ResourceMetrics {
	m := model.ResourceMetrics{Total: len(resources), ByType: make(map[string]int)}
	for _, r := range resources {
		m.ByType[r.Type]++
		if r.Status == model.ResourceStatusAvailable {
			m.Available++
		}
	}
	return m
}

func bookingMetrics(bookings []model.Booking, now time.Time) model.BookingMetrics {
	m := model.BookingMetrics{Total: len(bookings), Upcoming: []model.Booking{}}
	y, mo, d := now.Date()

	for _, b := range bookings {
		if b.Status != model.BookingStatusConfirmed {
			continue
		}
		if b.ActiveAt(now) {
			m.Active++
		}
		by, bm, bd := b.StartTime.In(now.Location()).Date()
		if by == y && bm == mo && bd == d {
			m.Today++
		}
		if b.StartTime.After(now) {
			m.Upcoming = append(m.Upcoming, b)
		}
	}

	sort.Slice(m.Upcoming, func(i, j int) bool {
		if m.Upcoming[i].StartTime.Equal(m.Upcoming[j].StartTime) {
			return m.Upcoming[i].ID < m.Upcoming[j].ID
		}
		return m.Upcoming[i].StartTime.Before(m.Upcoming[j].StartTime)
	})
	if len(m.Upcoming) > upcomingLimit {
		m.Upcoming = m.Upcoming[:upcomingLimit]
	}
	return m
}

func credentialMetrics(creds []model.StoredCredential) model.CredentialMetrics {
	m := model.CredentialMetrics{Total: len(creds), ByType: make(map[model.CredentialType]int)}
	for _, c := range creds {
		m.ByType[c.Type]++
		if c.LastUsed != nil {
			m.RecentlyUsed++
		}
	}
	return m
}

func costMetrics(entries []model.CostEntry) model.CostMetrics {
	m := model.CostMetrics{ByType: make(map[string]float64), ByAgent: make(map[string]float64)}
	for _, e := range entries {
		m.Total += e.Amount
		m.ByType[e.Type] += e.Amount
		if agent := derefStr(e.AgentID); agent != "" {
			m.ByAgent[agent] += e.Amount
		}
	}
	return m
}

func quotaMetrics(quotas []model.Quota) model.QuotaMetrics {
	sortQuotas(quotas)
	m := model.QuotaMetrics{Total: len(quotas), Details: []model.QuotaStatus{}}
	for _, q := range quotas {
		state := q.State()
		switch state {
		case model.QuotaStateWarning:
			m.Warning++
		case model.QuotaStateExceeded:
			m.Exceeded++
		default:
			continue
		}
		m.Details = append(m.Details, model.QuotaStatus{
			ID:           q.ID,
			Type:         q.Type,
			AgentID:      q.AgentID,
			UsagePercent: q.UsagePercent(0),
			State:        state,
		})
	}
	return m
}
