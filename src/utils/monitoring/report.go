package monitoring

import (
	"go.uber.org/atomic"
)

type RunReport struct {
	StartTimestamp      atomic.Int64
	UpForSeconds        atomic.Int64
	NumWatchdogRestarts atomic.Uint64
}

type LifecycleReport struct {
	ClaimsCreated   atomic.Uint64
	ClaimsAccepted  atomic.Uint64
	ClaimsRejected  atomic.Uint64
	ClaimsDeleted   atomic.Uint64
	ClaimsCompleted atomic.Uint64

	// Secondary item-status reconciliations and their failures.
	// Failures are contained, the derived state self-corrects.
	Reconciliations      atomic.Uint64
	ReconciliationErrors atomic.Uint64
	ReadRepairsRequested atomic.Uint64

	AverageClaimsCreatedPerMinute atomic.Float64
}

type RealtimeReport struct {
	MessagesSent      atomic.Uint64
	MessagesConfirmed atomic.Uint64
	MessagesFailed    atomic.Uint64
	EventsReceived    atomic.Uint64
	EventsDiscarded   atomic.Uint64
	ScopesOpened      atomic.Uint64
	ScopesClosed      atomic.Uint64

	AverageEventsPerMinute atomic.Float64
}

type CacheReport struct {
	Hits      atomic.Uint64
	Misses    atomic.Uint64
	Evictions atomic.Uint64
}

type DatabaseReport struct {
	IsOK          atomic.Bool
	LatencyMillis atomic.Int64
	PingErrors    atomic.Uint64
	LastPingUnix  atomic.Int64
}

// Report gathers all counters exposed by the service. Everything is
// atomic, written by the components and read by the collector and
// the health endpoint.
type Report struct {
	Run       *RunReport
	Lifecycle *LifecycleReport
	Realtime  *RealtimeReport
	Cache     *CacheReport
	Database  *DatabaseReport
}

func NewReport() *Report {
	return &Report{
		Run:       &RunReport{},
		Lifecycle: &LifecycleReport{},
		Realtime:  &RealtimeReport{},
		Cache:     &CacheReport{},
		Database:  &DatabaseReport{},
	}
}
