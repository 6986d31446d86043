package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/openpantry/pantry/src/utils/config"
	"github.com/openpantry/pantry/src/utils/model"
	"github.com/openpantry/pantry/src/utils/monitoring"
	"github.com/openpantry/pantry/src/utils/task"

	"github.com/jackc/pgx"
)

// EventSource hands out per-scope subscriptions to the push feed.
// The returned cancel func synchronously removes the subscription,
// after it returns no more events are delivered and the channel is
// closed.
type EventSource interface {
	Subscribe(scopeId string) (events <-chan *Event, cancel func(), err error)
}

// Feed streams row-insert notifications from the postgres
// notification channel and fans them out to scope subscriptions.
type Feed struct {
	*task.Task

	pool       *pgx.ConnPool
	connection *pgx.Conn

	channelName string
	monitor     *monitoring.Monitor

	mtx         sync.Mutex
	nextId      uint64
	subscribers map[uint64]*subscriber
}

type subscriber struct {
	scopeId string
	channel chan *Event
}

func NewFeed(config *config.Config) (self *Feed) {
	self = new(Feed)

	self.channelName = config.Database.NotificationChannel
	self.subscribers = make(map[uint64]*subscriber)

	self.Task = task.NewTask(config, "feed").
		WithSubtaskFunc(self.run).
		WithOnBeforeStart(self.connect).
		WithOnAfterStop(self.disconnect).
		WithOnAfterStop(self.closeSubscribers)

	return
}

func (self *Feed) WithMonitor(monitor *monitoring.Monitor) *Feed {
	self.monitor = monitor
	return self
}

// Subscribe registers for message events of one scope. Cancelling is
// synchronous: once cancel returns the channel is closed and no
// handler will see another event.
func (self *Feed) Subscribe(scopeId string) (events <-chan *Event, cancel func(), err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	if self.IsStopping.Load() {
		return nil, nil, errors.New("feed is stopping")
	}

	self.nextId++
	id := self.nextId
	sub := &subscriber{
		scopeId: scopeId,
		channel: make(chan *Event, self.Config.Realtime.ScopeQueueSize),
	}
	self.subscribers[id] = sub

	var once sync.Once
	cancel = func() {
		once.Do(func() {
			self.mtx.Lock()
			defer self.mtx.Unlock()
			delete(self.subscribers, id)
			close(sub.channel)
		})
	}

	return sub.channel, cancel, nil
}

// dispatch routes one raw feed payload to the matching scope
// subscriptions. Full subscriber queues drop the event, the scope
// re-seeds on its next open.
func (self *Feed) dispatch(payload string) {
	event, err := ParseEvent(payload)
	if err != nil {
		self.Log.WithError(err).Error("Failed to parse feed payload")
		return
	}

	if self.monitor != nil {
		self.monitor.Report.Realtime.EventsReceived.Inc()
	}

	// Only message inserts are scoped to conversations
	if event.Table != model.TableMessage {
		return
	}

	message, err := event.DecodeMessage()
	if err != nil {
		self.Log.WithError(err).Error("Failed to decode message event")
		return
	}

	self.mtx.Lock()
	defer self.mtx.Unlock()
	for _, sub := range self.subscribers {
		if sub.scopeId != message.ScopeId {
			continue
		}
		select {
		case sub.channel <- event:
		default:
			if self.monitor != nil {
				self.monitor.Report.Realtime.EventsDiscarded.Inc()
			}
			self.Log.WithField("scope_id", sub.scopeId).Warn("Subscriber queue full, event dropped")
		}
	}
}

func (self *Feed) closeSubscribers() {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	for id, sub := range self.subscribers {
		delete(self.subscribers, id)
		close(sub.channel)
	}
}

func (self *Feed) connect() (err error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		self.Config.Database.Host,
		self.Config.Database.Port,
		self.Config.Database.User,
		self.Config.Database.Password,
		self.Config.Database.Name,
		self.Config.Database.SslMode)

	connConfig, err := pgx.ParseDSN(dsn)
	if err != nil {
		return
	}

	self.pool, err = pgx.NewConnPool(pgx.ConnPoolConfig{ConnConfig: connConfig})
	if err != nil {
		return
	}

	self.connection, err = self.pool.Acquire()
	if err != nil {
		return
	}

	return
}

func (self *Feed) disconnect() {
	err := self.connection.Close()
	if err != nil {
		self.Log.WithError(err).Error("Failed to close connection")
	}

	self.pool.Close()
}

func (self *Feed) run() (err error) {
	err = self.listen()
	if err != nil {
		return
	}

	defer func() {
		err = self.connection.Unlisten(self.channelName)
		if err != nil {
			self.Log.WithError(err).Error("Failed to unlisten channel")
		}
	}()

	for {
		// Waits for notification unless task gets stopped
		msg, err := self.connection.WaitForNotification(self.Ctx)
		if errors.Is(err, context.Canceled) {
			// Stop() was called
			return nil
		}

		if err != nil {
			self.Log.WithError(err).Error("Failed to wait for notification")
			err = self.reconnect()
			if err != nil {
				return err
			}
		} else {
			self.dispatch(msg.Payload)
		}
	}
}

func (self *Feed) listen() (err error) {
	return self.connection.Listen(self.channelName)
}

// reconnect re-establishes the LISTEN after a broken connection,
// with backoff. Infrastructure retry only, no domain writes repeat.
func (self *Feed) reconnect() (err error) {
	return task.NewRetry().
		WithContext(self.Ctx).
		WithMaxElapsedTime(self.Config.Realtime.FeedReconnectMaxElapsedTime).
		WithMaxInterval(self.Config.Realtime.FeedReconnectMaxInterval).
		WithOnError(func(err error) {
			self.Log.WithError(err).Warn("Feed reconnect failed, retrying")
		}).
		Run(func() error {
			self.disconnect()
			err := self.connect()
			if err != nil {
				return err
			}
			return self.listen()
		})
}
