package monitoring

import (
	"math"
	"net/http"
	"time"

	"github.com/openpantry/pantry/src/utils/task"

	"github.com/gammazero/deque"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Stores and computes monitor counters
type Monitor struct {
	*task.Task

	Report *Report

	collector *Collector

	db *gorm.DB

	historySize int

	// Rolling windows for per-minute rates
	claimCounts *deque.Deque[uint64]
	eventCounts *deque.Deque[uint64]
}

func NewMonitor() (self *Monitor) {
	self = new(Monitor)

	self.Report = NewReport()
	self.Report.Run.StartTimestamp.Store(time.Now().Unix())

	// Healthy until the first probe says otherwise
	self.Report.Database.IsOK.Store(true)

	self.historySize = 30
	self.claimCounts = deque.New[uint64](self.historySize)
	self.eventCounts = deque.New[uint64](self.historySize)

	self.collector = NewCollector().WithMonitor(self)

	self.Task = task.NewTask(nil, "monitor").
		WithPeriodicSubtaskFunc(time.Minute, self.monitorClaims).
		WithPeriodicSubtaskFunc(time.Minute, self.monitorEvents).
		WithPeriodicSubtaskFunc(15*time.Second, self.probeDatabase).
		WithPeriodicSubtaskFunc(time.Second, self.monitorUptime)

	return
}

func (self *Monitor) WithMaxHistorySize(maxHistorySize int) *Monitor {
	self.historySize = maxHistorySize
	self.claimCounts = deque.New[uint64](self.historySize)
	self.eventCounts = deque.New[uint64](self.historySize)
	return self
}

func (self *Monitor) WithDB(db *gorm.DB) *Monitor {
	self.db = db
	return self
}

func (self *Monitor) GetPrometheusCollector() (collector prometheus.Collector) {
	return self.collector
}

func round(f float64) float64 {
	return math.Round(f*100) / 100
}

func rate(window *deque.Deque[uint64], loaded uint64, historySize int) float64 {
	window.PushBack(loaded)
	if window.Len() > historySize {
		window.PopFront()
	}
	return float64(window.Back()-window.Front()) / float64(window.Len())
}

// Measure claim creation speed
func (self *Monitor) monitorClaims() (err error) {
	loaded := self.Report.Lifecycle.ClaimsCreated.Load()
	if loaded == 0 {
		// Neglect the first 0
		return
	}

	self.Report.Lifecycle.AverageClaimsCreatedPerMinute.Store(round(rate(self.claimCounts, loaded, self.historySize)))
	return
}

// Measure push feed throughput
func (self *Monitor) monitorEvents() (err error) {
	loaded := self.Report.Realtime.EventsReceived.Load()
	if loaded == 0 {
		return
	}

	self.Report.Realtime.AverageEventsPerMinute.Store(round(rate(self.eventCounts, loaded, self.historySize)))
	return
}

func (self *Monitor) monitorUptime() (err error) {
	self.Report.Run.UpForSeconds.Store(time.Now().Unix() - self.Report.Run.StartTimestamp.Load())
	return
}

// probeDatabase measures the round trip to the store, feeding the
// health endpoint
func (self *Monitor) probeDatabase() (err error) {
	if self.db == nil {
		return
	}

	sqlDB, err := self.db.DB()
	if err != nil {
		self.Report.Database.IsOK.Store(false)
		self.Report.Database.PingErrors.Inc()
		return nil
	}

	start := time.Now()
	pingErr := sqlDB.PingContext(self.Ctx)
	latency := time.Since(start)

	self.Report.Database.LastPingUnix.Store(time.Now().Unix())
	self.Report.Database.LatencyMillis.Store(latency.Milliseconds())

	if pingErr != nil {
		self.Report.Database.IsOK.Store(false)
		self.Report.Database.PingErrors.Inc()
		self.Log.WithError(pingErr).Warn("Database probe failed")
		return nil
	}

	self.Report.Database.IsOK.Store(true)
	return nil
}

// IsOK reports overall health, used by the watchdog
func (self *Monitor) IsOK() bool {
	return self.Report.Database.IsOK.Load()
}

// OnGetHealth serves the health endpoint: 200 when the database
// probe succeeds, 503 otherwise.
func (self *Monitor) OnGetHealth(c *gin.Context) {
	dbStatus := "healthy"
	httpStatus := http.StatusOK
	if !self.Report.Database.IsOK.Load() {
		dbStatus = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status": dbStatus,
		"database": gin.H{
			"status":  dbStatus,
			"latency": self.Report.Database.LatencyMillis.Load(),
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
