package activo

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector on top of a prometheus
// registry.
type PrometheusCollector struct {
	updates           prometheus.Counter
	inserts           prometheus.Counter
	deletes           prometheus.Counter
	versionRejections prometheus.Counter
	reclaimed         prometheus.Counter
	flushes           prometheus.Counter
	flushErrors       prometheus.Counter
	flushDuration     prometheus.Histogram
	liveDocuments     prometheus.Gauge
	freeSlots         prometheus.Gauge
}

// NewPrometheusCollector creates and registers the store's metrics on
// reg. Pass prometheus.DefaultRegisterer for the default registry.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	c := &PrometheusCollector{
		updates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activo_updates_total",
			Help: "Total number of accepted activity updates",
		}),
		inserts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activo_inserted_documents_total",
			Help: "Total number of newly allocated documents",
		}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activo_deleted_documents_total",
			Help: "Total number of deleted documents",
		}),
		versionRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activo_version_rejections_total",
			Help: "Total number of mutations rejected as stale",
		}),
		reclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activo_reclaimed_slots_total",
			Help: "Total number of slots returned to the free pool",
		}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activo_flushes_total",
			Help: "Total number of flush cycles",
		}),
		flushErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activo_flush_errors_total",
			Help: "Total number of failed flush cycles",
		}),
		flushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "activo_flush_duration_seconds",
			Help:    "Flush cycle duration",
			Buckets: prometheus.DefBuckets,
		}),
		liveDocuments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "activo_live_documents",
			Help: "Number of live documents after the last flush",
		}),
		freeSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "activo_free_slots",
			Help: "Size of the free slot pool after the last flush",
		}),
	}

	for _, m := range []prometheus.Collector{
		c.updates, c.inserts, c.deletes, c.versionRejections, c.reclaimed,
		c.flushes, c.flushErrors, c.flushDuration, c.liveDocuments, c.freeSlots,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *PrometheusCollector) RecordUpdate()           { c.updates.Inc() }
func (c *PrometheusCollector) RecordInsert()           { c.inserts.Inc() }
func (c *PrometheusCollector) RecordDelete()           { c.deletes.Inc() }
func (c *PrometheusCollector) RecordVersionRejection() { c.versionRejections.Inc() }

func (c *PrometheusCollector) RecordReclaim(count int) {
	c.reclaimed.Add(float64(count))
}

func (c *PrometheusCollector) RecordFlush(duration time.Duration, err error) {
	c.flushes.Inc()
	c.flushDuration.Observe(duration.Seconds())
	if err != nil {
		c.flushErrors.Inc()
	}
}

func (c *PrometheusCollector) SetLiveDocuments(count int)  { c.liveDocuments.Set(float64(count)) }
func (c *PrometheusCollector) SetReclaimedSlots(count int) { c.freeSlots.Set(float64(count)) }

var _ Collector = (*PrometheusCollector)(nil)
