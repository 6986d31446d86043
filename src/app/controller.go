package app

import (
	"errors"

	"github.com/openpantry/pantry/src/geocode"
	"github.com/openpantry/pantry/src/lifecycle"
	"github.com/openpantry/pantry/src/query"
	"github.com/openpantry/pantry/src/realtime"
	"github.com/openpantry/pantry/src/utils/cache"
	"github.com/openpantry/pantry/src/utils/config"
	"github.com/openpantry/pantry/src/utils/model"
	"github.com/openpantry/pantry/src/utils/monitoring"
	"github.com/openpantry/pantry/src/utils/task"

	"go.uber.org/atomic"
)

// feedSource is a stable handle over the watchdog-managed push feed.
// The server and its websocket handlers keep this one pointer while
// the watchdog may replace the feed underneath. Subscriptions made
// against a replaced feed get their channels closed on its stop, the
// clients reconnect and land on the new instance.
type feedSource struct {
	current atomic.Pointer[realtime.Feed]
}

func (self *feedSource) Subscribe(scopeId string) (events <-chan *realtime.Event, cancel func(), err error) {
	feed := self.current.Load()
	if feed == nil {
		return nil, nil, errors.New("feed not started yet")
	}
	return feed.Subscribe(scopeId)
}

type Controller struct {
	*task.Task
}

// Main class that orchestrates the service. Connects to the database,
// wires the lifecycle engine, the cache layer, the query facade, the
// push feed and the REST server.
func NewController(config *config.Config) (self *Controller, err error) {
	self = new(Controller)

	self.Task = task.NewTask(config, "controller")

	db, err := model.NewConnection(self.Ctx, config, "pantry")
	if err != nil {
		return
	}

	monitor := monitoring.NewMonitor().
		WithMaxHistorySize(30).
		WithDB(db)

	store := model.NewStore(db)

	cacheStore := cache.NewStore(config.Cache.MaxEntries)
	loader := cache.NewLoader(cacheStore)

	engine := lifecycle.NewEngine(config).
		WithStore(store).
		WithCache(cacheStore).
		WithMonitor(monitor)

	facade := query.NewFacade(config).
		WithSource(store).
		WithLoader(loader).
		WithRepairer(engine)

	source := new(feedSource)

	server := NewServer(config).
		WithMonitor(monitor).
		WithEngine(engine).
		WithFacade(facade).
		WithGeocoder(geocode.NewClient(config)).
		WithEventSource(source).
		WithMessageStore(store)

	// The feed dies for good only when its reconnect loop gives up,
	// the watchdog then brings up a fresh one once the database
	// probes recover.
	watched := func() *task.Task {
		feed := realtime.NewFeed(config).
			WithMonitor(monitor)
		source.current.Store(feed)
		return feed.Task
	}

	watchdog := task.NewWatchdog(config).
		WithTask(watched).
		WithIsOK(func() bool {
			isOK := monitor.IsOK()
			if !isOK {
				monitor.Report.Run.NumWatchdogRestarts.Inc()
			}
			return isOK
		})

	sweeper := task.NewTask(config, "sweeper").
		WithPeriodicSubtaskFunc(config.Cache.SweepInterval, func() error {
			cacheStore.Sweep()

			hits, misses, evictions := cacheStore.Stats()
			monitor.Report.Cache.Hits.Store(hits)
			monitor.Report.Cache.Misses.Store(misses)
			monitor.Report.Cache.Evictions.Store(evictions)
			return nil
		})

	self.Task = self.Task.
		WithSubtask(monitor.Task).
		WithSubtask(engine.Task).
		WithSubtask(sweeper).
		WithSubtask(server.Task).
		WithSubtask(watchdog.Task)

	return
}
