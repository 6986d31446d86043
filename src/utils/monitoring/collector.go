package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	monitor *Monitor

	StartTimestamp      *prometheus.Desc
	UpForSeconds        *prometheus.Desc
	NumWatchdogRestarts *prometheus.Desc

	ClaimsCreated                 *prometheus.Desc
	ClaimsAccepted                *prometheus.Desc
	ClaimsRejected                *prometheus.Desc
	ClaimsDeleted                 *prometheus.Desc
	ClaimsCompleted               *prometheus.Desc
	Reconciliations               *prometheus.Desc
	ReconciliationErrors          *prometheus.Desc
	ReadRepairsRequested          *prometheus.Desc
	AverageClaimsCreatedPerMinute *prometheus.Desc

	MessagesSent           *prometheus.Desc
	MessagesConfirmed      *prometheus.Desc
	MessagesFailed         *prometheus.Desc
	EventsReceived         *prometheus.Desc
	EventsDiscarded        *prometheus.Desc
	ScopesOpened           *prometheus.Desc
	ScopesClosed           *prometheus.Desc
	AverageEventsPerMinute *prometheus.Desc

	CacheHits      *prometheus.Desc
	CacheMisses    *prometheus.Desc
	CacheEvictions *prometheus.Desc

	DbLatencyMillis *prometheus.Desc
	DbPingErrors    *prometheus.Desc
}

func NewCollector() *Collector {
	labels := prometheus.Labels{
		"app": "pantry",
	}

	return &Collector{
		StartTimestamp:      prometheus.NewDesc("start_timestamp", "", nil, labels),
		UpForSeconds:        prometheus.NewDesc("up_for_seconds", "", nil, labels),
		NumWatchdogRestarts: prometheus.NewDesc("num_watchdog_restarts", "", nil, labels),

		ClaimsCreated:                 prometheus.NewDesc("claims_created", "", nil, labels),
		ClaimsAccepted:                prometheus.NewDesc("claims_accepted", "", nil, labels),
		ClaimsRejected:                prometheus.NewDesc("claims_rejected", "", nil, labels),
		ClaimsDeleted:                 prometheus.NewDesc("claims_deleted", "", nil, labels),
		ClaimsCompleted:               prometheus.NewDesc("claims_completed", "", nil, labels),
		Reconciliations:               prometheus.NewDesc("status_reconciliations", "", nil, labels),
		ReconciliationErrors:          prometheus.NewDesc("error_status_reconciliation", "", nil, labels),
		ReadRepairsRequested:          prometheus.NewDesc("read_repairs_requested", "", nil, labels),
		AverageClaimsCreatedPerMinute: prometheus.NewDesc("average_claims_created_per_minute", "", nil, labels),

		MessagesSent:           prometheus.NewDesc("messages_sent", "", nil, labels),
		MessagesConfirmed:      prometheus.NewDesc("messages_confirmed", "", nil, labels),
		MessagesFailed:         prometheus.NewDesc("error_message_send", "", nil, labels),
		EventsReceived:         prometheus.NewDesc("feed_events_received", "", nil, labels),
		EventsDiscarded:        prometheus.NewDesc("feed_events_discarded", "", nil, labels),
		ScopesOpened:           prometheus.NewDesc("scopes_opened", "", nil, labels),
		ScopesClosed:           prometheus.NewDesc("scopes_closed", "", nil, labels),
		AverageEventsPerMinute: prometheus.NewDesc("average_feed_events_per_minute", "", nil, labels),

		CacheHits:      prometheus.NewDesc("cache_hits", "", nil, labels),
		CacheMisses:    prometheus.NewDesc("cache_misses", "", nil, labels),
		CacheEvictions: prometheus.NewDesc("cache_evictions", "", nil, labels),

		DbLatencyMillis: prometheus.NewDesc("db_latency_millis", "", nil, labels),
		DbPingErrors:    prometheus.NewDesc("error_db_ping", "", nil, labels),
	}
}

func (self *Collector) WithMonitor(m *Monitor) *Collector {
	self.monitor = m
	return self
}

func (self *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- self.StartTimestamp
	ch <- self.UpForSeconds
	ch <- self.NumWatchdogRestarts

	ch <- self.ClaimsCreated
	ch <- self.ClaimsAccepted
	ch <- self.ClaimsRejected
	ch <- self.ClaimsDeleted
	ch <- self.ClaimsCompleted
	ch <- self.Reconciliations
	ch <- self.ReconciliationErrors
	ch <- self.ReadRepairsRequested
	ch <- self.AverageClaimsCreatedPerMinute

	ch <- self.MessagesSent
	ch <- self.MessagesConfirmed
	ch <- self.MessagesFailed
	ch <- self.EventsReceived
	ch <- self.EventsDiscarded
	ch <- self.ScopesOpened
	ch <- self.ScopesClosed
	ch <- self.AverageEventsPerMinute

	ch <- self.CacheHits
	ch <- self.CacheMisses
	ch <- self.CacheEvictions

	ch <- self.DbLatencyMillis
	ch <- self.DbPingErrors
}

func (self *Collector) Collect(ch chan<- prometheus.Metric) {
	report := self.monitor.Report

	ch <- prometheus.MustNewConstMetric(self.StartTimestamp, prometheus.GaugeValue, float64(report.Run.StartTimestamp.Load()))
	ch <- prometheus.MustNewConstMetric(self.UpForSeconds, prometheus.GaugeValue, float64(report.Run.UpForSeconds.Load()))
	ch <- prometheus.MustNewConstMetric(self.NumWatchdogRestarts, prometheus.CounterValue, float64(report.Run.NumWatchdogRestarts.Load()))

	ch <- prometheus.MustNewConstMetric(self.ClaimsCreated, prometheus.CounterValue, float64(report.Lifecycle.ClaimsCreated.Load()))
	ch <- prometheus.MustNewConstMetric(self.ClaimsAccepted, prometheus.CounterValue, float64(report.Lifecycle.ClaimsAccepted.Load()))
	ch <- prometheus.MustNewConstMetric(self.ClaimsRejected, prometheus.CounterValue, float64(report.Lifecycle.ClaimsRejected.Load()))
	ch <- prometheus.MustNewConstMetric(self.ClaimsDeleted, prometheus.CounterValue, float64(report.Lifecycle.ClaimsDeleted.Load()))
	ch <- prometheus.MustNewConstMetric(self.ClaimsCompleted, prometheus.CounterValue, float64(report.Lifecycle.ClaimsCompleted.Load()))
	ch <- prometheus.MustNewConstMetric(self.Reconciliations, prometheus.CounterValue, float64(report.Lifecycle.Reconciliations.Load()))
	ch <- prometheus.MustNewConstMetric(self.ReconciliationErrors, prometheus.CounterValue, float64(report.Lifecycle.ReconciliationErrors.Load()))
	ch <- prometheus.MustNewConstMetric(self.ReadRepairsRequested, prometheus.CounterValue, float64(report.Lifecycle.ReadRepairsRequested.Load()))
	ch <- prometheus.MustNewConstMetric(self.AverageClaimsCreatedPerMinute, prometheus.GaugeValue, report.Lifecycle.AverageClaimsCreatedPerMinute.Load())

	ch <- prometheus.MustNewConstMetric(self.MessagesSent, prometheus.CounterValue, float64(report.Realtime.MessagesSent.Load()))
	ch <- prometheus.MustNewConstMetric(self.MessagesConfirmed, prometheus.CounterValue, float64(report.Realtime.MessagesConfirmed.Load()))
	ch <- prometheus.MustNewConstMetric(self.MessagesFailed, prometheus.CounterValue, float64(report.Realtime.MessagesFailed.Load()))
	ch <- prometheus.MustNewConstMetric(self.EventsReceived, prometheus.CounterValue, float64(report.Realtime.EventsReceived.Load()))
	ch <- prometheus.MustNewConstMetric(self.EventsDiscarded, prometheus.CounterValue, float64(report.Realtime.EventsDiscarded.Load()))
	ch <- prometheus.MustNewConstMetric(self.ScopesOpened, prometheus.CounterValue, float64(report.Realtime.ScopesOpened.Load()))
	ch <- prometheus.MustNewConstMetric(self.ScopesClosed, prometheus.CounterValue, float64(report.Realtime.ScopesClosed.Load()))
	ch <- prometheus.MustNewConstMetric(self.AverageEventsPerMinute, prometheus.GaugeValue, report.Realtime.AverageEventsPerMinute.Load())

	ch <- prometheus.MustNewConstMetric(self.CacheHits, prometheus.CounterValue, float64(report.Cache.Hits.Load()))
	ch <- prometheus.MustNewConstMetric(self.CacheMisses, prometheus.CounterValue, float64(report.Cache.Misses.Load()))
	ch <- prometheus.MustNewConstMetric(self.CacheEvictions, prometheus.CounterValue, float64(report.Cache.Evictions.Load()))

	ch <- prometheus.MustNewConstMetric(self.DbLatencyMillis, prometheus.GaugeValue, float64(report.Database.LatencyMillis.Load()))
	ch <- prometheus.MustNewConstMetric(self.DbPingErrors, prometheus.CounterValue, float64(report.Database.PingErrors.Load()))
}
