package httphandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ericfisherdev/missioncontrol/internal/application"
	"github.com/ericfisherdev/missioncontrol/internal/domain/model"
)

const collectTimeout = 5 * time.Second

// Collector exposes a governance metrics snapshot as Prometheus gauges.
// Each scrape takes a fresh snapshot.
type Collector struct {
	metrics *application.MetricsService
	logger  *slog.Logger

	resources       *prometheus.Desc
	resourcesAvail  *prometheus.Desc
	bookings        *prometheus.Desc
	bookingsActive  *prometheus.Desc
	bookingsToday   *prometheus.Desc
	credentials     *prometheus.Desc
	credentialsUsed *prometheus.Desc
	costs           *prometheus.Desc
	costsByAgent    *prometheus.Desc
	quotaUsage      *prometheus.Desc
	quotasByState   *prometheus.Desc
	scrapeError     *prometheus.Desc
}

// NewCollector creates a Collector backed by the metrics service.
func NewCollector(metrics *application.MetricsService, logger *slog.Logger) *Collector {
	ns := "missioncontrol"
	return &Collector{
		metrics: metrics,
		logger:  logger,

		resources:       prometheus.NewDesc(prometheus.BuildFQName(ns, "resources", "total"), "Catalog resources by type.", []string{"type"}, nil),
		resourcesAvail:  prometheus.NewDesc(prometheus.BuildFQName(ns, "resources", "available"), "Resources with status available.", nil, nil),
		bookings:        prometheus.NewDesc(prometheus.BuildFQName(ns, "bookings", "total"), "Bookings of any status.", nil, nil),
		bookingsActive:  prometheus.NewDesc(prometheus.BuildFQName(ns, "bookings", "active"), "Confirmed bookings in progress.", nil, nil),
		bookingsToday:   prometheus.NewDesc(prometheus.BuildFQName(ns, "bookings", "today"), "Confirmed bookings starting today.", nil, nil),
		credentials:     prometheus.NewDesc(prometheus.BuildFQName(ns, "credentials", "total"), "Stored credentials by type.", []string{"type"}, nil),
		credentialsUsed: prometheus.NewDesc(prometheus.BuildFQName(ns, "credentials", "used"), "Credentials decrypted at least once.", nil, nil),
		costs:           prometheus.NewDesc(prometheus.BuildFQName(ns, "costs", "amount"), "Recorded cost by type.", []string{"type"}, nil),
		costsByAgent:    prometheus.NewDesc(prometheus.BuildFQName(ns, "costs", "agent_amount"), "Recorded cost by agent.", []string{"agent_id"}, nil),
		quotaUsage:      prometheus.NewDesc(prometheus.BuildFQName(ns, "quota", "usage_ratio"), "Usage ratio of quotas at or past their warning threshold.", []string{"id", "type", "state"}, nil),
		quotasByState:   prometheus.NewDesc(prometheus.BuildFQName(ns, "quotas", "total"), "Quotas by state.", []string{"state"}, nil),
		scrapeError:     prometheus.NewDesc(prometheus.BuildFQName(ns, "scrape", "error"), "1 if the last snapshot failed.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.resources, c.resourcesAvail,
		c.bookings, c.bookingsActive, c.bookingsToday,
		c.credentials, c.credentialsUsed,
		c.costs, c.costsByAgent,
		c.quotaUsage, c.quotasByState,
		c.scrapeError,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	m, err := c.metrics.Snapshot(ctx)
	if err != nil {
		c.logger.Error("metrics snapshot failed", "error", err)
		ch <- prometheus.MustNewConstMetric(c.scrapeError, prometheus.GaugeValue, 1)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.scrapeError, prometheus.GaugeValue, 0)

	for t, n := range m.Resources.ByType {
		ch <- prometheus.MustNewConstMetric(c.resources, prometheus.GaugeValue, float64(n), t)
	}
	ch <- prometheus.MustNewConstMetric(c.resourcesAvail, prometheus.GaugeValue, float64(m.Resources.Available))

	ch <- prometheus.MustNewConstMetric(c.bookings, prometheus.GaugeValue, float64(m.Bookings.Total))
	ch <- prometheus.MustNewConstMetric(c.bookingsActive, prometheus.GaugeValue, float64(m.Bookings.Active))
	ch <- prometheus.MustNewConstMetric(c.bookingsToday, prometheus.GaugeValue, float64(m.Bookings.Today))

	for t, n := range m.Credentials.ByType {
		ch <- prometheus.MustNewConstMetric(c.credentials, prometheus.GaugeValue, float64(n), string(t))
	}
	ch <- prometheus.MustNewConstMetric(c.credentialsUsed, prometheus.GaugeValue, float64(m.Credentials.RecentlyUsed))

	for t, amount := range m.Costs.ByType {
		ch <- prometheus.MustNewConstMetric(c.costs, prometheus.GaugeValue, amount, t)
	}
	for agent, amount := range m.Costs.ByAgent {
		ch <- prometheus.MustNewConstMetric(c.costsByAgent, prometheus.GaugeValue, amount, agent)
	}

	for _, d := range m.Quotas.Details {
		ch <- prometheus.MustNewConstMetric(c.quotaUsage, prometheus.GaugeValue, d.UsagePercent, d.ID, string(d.Type), string(d.State))
	}
	under := m.Quotas.Total - m.Quotas.Warning - m.Quotas.Exceeded
	ch <- prometheus.MustNewConstMetric(c.quotasByState, prometheus.GaugeValue, float64(under), string(model.QuotaStateUnderThreshold))
	ch <- prometheus.MustNewConstMetric(c.quotasByState, prometheus.GaugeValue, float64(m.Quotas.Warning), string(model.QuotaStateWarning))
	ch <- prometheus.MustNewConstMetric(c.quotasByState, prometheus.GaugeValue, float64(m.Quotas.Exceeded), string(model.QuotaStateExceeded))
}
