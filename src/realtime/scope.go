package realtime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/openpantry/pantry/src/utils/config"
	"github.com/openpantry/pantry/src/utils/logger"
	"github.com/openpantry/pantry/src/utils/model"
	"github.com/openpantry/pantry/src/utils/monitoring"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

var (
	// Double-subscription is a defect, not a recoverable condition
	ErrScopeAlreadyOpen = errors.New("scope already open")
	ErrScopeClosed      = errors.New("scope is closed")
)

type State int

const (
	StateClosed State = iota
	StateSubscribing
	StateLive
)

// MessageStore is the slice of the remote store a scope needs.
type MessageStore interface {
	ScopeMessages(ctx context.Context, scopeId string) ([]*model.ScopeMessage, error)
	InsertMessage(ctx context.Context, message *model.Message) error
}

// Entry is one visible message: either confirmed by the server or a
// local optimistic send still waiting for its insert to settle. The
// temp id is the only reconciliation key, two identical texts must
// never collide.
type Entry struct {
	Message model.ScopeMessage
	TempId  string
}

func (self *Entry) Pending() bool {
	return self.TempId != ""
}

// Scope presents a monotonically-growing, de-duplicated,
// time-ordered message list for one conversation (a claim or a
// collaboration), merging the subscriber's own optimistic sends with
// the server-confirmed stream.
//
// State machine: Closed -> Subscribing -> Live -> Closed. Events
// pushed while the initial fetch is still running buffer in the
// subscription channel and are merged in afterwards, never dropped.
type Scope struct {
	log     *logrus.Entry
	config  *config.Config
	monitor *monitoring.Monitor

	scopeId string
	store   MessageStore
	source  EventSource

	mtx         sync.Mutex
	state       State
	entries     []*Entry
	ids         map[int64]struct{}
	names       map[string]string
	events      <-chan *Event
	unsubscribe func()
	onUpdate    func()
}

func NewScope(config *config.Config, scopeId string) (self *Scope) {
	self = new(Scope)
	self.log = logger.NewSublogger("scope").WithField("scope_id", scopeId)
	self.config = config
	self.scopeId = scopeId
	self.ids = make(map[int64]struct{})
	self.names = make(map[string]string)
	return
}

func (self *Scope) WithStore(store MessageStore) *Scope {
	self.store = store
	return self
}

func (self *Scope) WithSource(source EventSource) *Scope {
	self.source = source
	return self
}

func (self *Scope) WithMonitor(monitor *monitoring.Monitor) *Scope {
	self.monitor = monitor
	return self
}

// WithOnUpdate registers a callback fired after every change to the
// visible list. Called without the scope lock held.
func (self *Scope) WithOnUpdate(f func()) *Scope {
	self.onUpdate = f
	return self
}

func (self *Scope) State() State {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return self.state
}

// Open subscribes to the push feed and seeds the list with the
// existing messages. Both must finish before the scope is Live.
func (self *Scope) Open(ctx context.Context) (err error) {
	self.mtx.Lock()
	if self.state != StateClosed {
		self.mtx.Unlock()
		return ErrScopeAlreadyOpen
	}
	self.state = StateSubscribing
	self.mtx.Unlock()

	// Subscription first: inserts committed during the fetch queue
	// up in the channel and are merged in after seeding
	events, cancel, err := self.source.Subscribe(self.scopeId)
	if err != nil {
		self.setClosed()
		return fmt.Errorf("subscribing scope: %w", err)
	}

	seed, err := self.store.ScopeMessages(ctx, self.scopeId)
	if err != nil {
		// Release the subscription on every exit path
		cancel()
		self.setClosed()
		return fmt.Errorf("%w: seeding scope: %v", model.ErrRemoteReadFailed, err)
	}

	self.mtx.Lock()
	if self.state == StateClosed {
		// Closed while we were fetching
		self.mtx.Unlock()
		cancel()
		return ErrScopeClosed
	}

	for _, message := range seed {
		self.ids[message.Id] = struct{}{}
		self.names[message.SenderId] = message.SenderName
		self.entries = append(self.entries, &Entry{Message: *message})
	}
	self.sortLocked()

	self.state = StateLive
	self.events = events
	self.unsubscribe = cancel
	self.mtx.Unlock()

	if self.monitor != nil {
		self.monitor.Report.Realtime.ScopesOpened.Inc()
	}

	go self.drain(events)
	self.notify()
	return
}

// Close synchronously cancels the push subscription. Idempotent.
// An in-flight send is not cancelled, its late result is discarded.
func (self *Scope) Close() {
	self.mtx.Lock()
	if self.state == StateClosed {
		self.mtx.Unlock()
		return
	}
	self.state = StateClosed
	unsubscribe := self.unsubscribe
	self.unsubscribe = nil
	self.mtx.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	if self.monitor != nil {
		self.monitor.Report.Realtime.ScopesClosed.Inc()
	}
}

// Send appends the message optimistically, inserts it remotely and
// reconciles by temp id identity. On failure the optimistic entry is
// removed and the caller keeps the draft text for retry. Retrying is
// an explicit caller action, a repeated send mints a new row.
func (self *Scope) Send(ctx context.Context, senderId, body string) (err error) {
	self.mtx.Lock()
	if self.state == StateClosed {
		self.mtx.Unlock()
		return ErrScopeClosed
	}

	tempId := xid.New().String()
	entry := &Entry{
		TempId: tempId,
		Message: model.ScopeMessage{
			Message: model.Message{
				ScopeId:   self.scopeId,
				SenderId:  senderId,
				Body:      body,
				CreatedAt: time.Now(),
			},
			SenderName: self.nameLocked(senderId),
		},
	}
	self.entries = append(self.entries, entry)
	self.mtx.Unlock()
	self.notify()

	if self.monitor != nil {
		self.monitor.Report.Realtime.MessagesSent.Inc()
	}

	message := &model.Message{
		ScopeId:  self.scopeId,
		SenderId: senderId,
		Body:     body,
	}
	insertErr := self.store.InsertMessage(ctx, message)

	self.mtx.Lock()
	if insertErr != nil {
		self.removeTempLocked(tempId)
		self.mtx.Unlock()
		self.notify()
		if self.monitor != nil {
			self.monitor.Report.Realtime.MessagesFailed.Inc()
		}
		return fmt.Errorf("%w: sending message: %v", model.ErrRemoteWriteFailed, insertErr)
	}

	if self.state == StateClosed {
		// Send settled after the scope was closed, result discarded
		self.mtx.Unlock()
		return nil
	}

	if _, seen := self.ids[message.Id]; seen {
		// Our own echo already arrived via the push feed, the
		// confirmed copy is in the list. Drop the optimistic one.
		self.removeTempLocked(tempId)
	} else {
		self.confirmTempLocked(tempId, message)
	}
	self.sortLocked()
	self.mtx.Unlock()
	self.notify()

	if self.monitor != nil {
		self.monitor.Report.Realtime.MessagesConfirmed.Inc()
	}
	return
}

// Messages returns a snapshot of the visible list in display order.
func (self *Scope) Messages() (entries []*Entry) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	entries = make([]*Entry, len(self.entries))
	copy(entries, self.entries)
	return
}

func (self *Scope) drain(events <-chan *Event) {
	for event := range events {
		self.applyEvent(event)
	}
}

// applyEvent merges one pushed insert. Appended only if its id is
// not already present, so the sender's optimistic-then-confirmed
// message resolves to exactly one visible copy.
func (self *Scope) applyEvent(event *Event) {
	message, err := event.DecodeMessage()
	if err != nil {
		self.log.WithError(err).Error("Failed to decode pushed message")
		return
	}
	if message.ScopeId != self.scopeId {
		return
	}

	self.mtx.Lock()
	if self.state == StateClosed {
		self.mtx.Unlock()
		return
	}
	if _, seen := self.ids[message.Id]; seen {
		self.mtx.Unlock()
		return
	}

	self.ids[message.Id] = struct{}{}
	self.entries = append(self.entries, &Entry{
		Message: model.ScopeMessage{
			Message:    *message,
			SenderName: self.nameLocked(message.SenderId),
		},
	})
	self.sortLocked()
	self.mtx.Unlock()
	self.notify()
}

func (self *Scope) setClosed() {
	self.mtx.Lock()
	self.state = StateClosed
	self.mtx.Unlock()
}

func (self *Scope) notify() {
	if self.onUpdate != nil {
		self.onUpdate()
	}
}

func (self *Scope) nameLocked(senderId string) string {
	if name, ok := self.names[senderId]; ok {
		return name
	}
	return senderId
}

func (self *Scope) removeTempLocked(tempId string) {
	for i, entry := range self.entries {
		if entry.TempId == tempId {
			self.entries = append(self.entries[:i], self.entries[i+1:]...)
			return
		}
	}
}

// confirmTempLocked substitutes the optimistic entry with the
// server-confirmed row, matched by temp id reference only.
func (self *Scope) confirmTempLocked(tempId string, message *model.Message) {
	for _, entry := range self.entries {
		if entry.TempId == tempId {
			entry.Message.Message = *message
			entry.TempId = ""
			self.ids[message.Id] = struct{}{}
			return
		}
	}
	// Temp entry gone (scope reopened meanwhile), keep the
	// confirmed copy if it's genuinely new
	if _, seen := self.ids[message.Id]; !seen {
		self.ids[message.Id] = struct{}{}
		self.entries = append(self.entries, &Entry{
			Message: model.ScopeMessage{
				Message:    *message,
				SenderName: self.nameLocked(message.SenderId),
			},
		})
	}
}

// sortLocked keeps display order: created_at ascending, the
// server-assigned id is the tiebreak, pending entries sort last on
// equal timestamps.
func (self *Scope) sortLocked() {
	sort.SliceStable(self.entries, func(i, j int) bool {
		a, b := self.entries[i], self.entries[j]
		if !a.Message.CreatedAt.Equal(b.Message.CreatedAt) {
			return a.Message.CreatedAt.Before(b.Message.CreatedAt)
		}
		if a.Pending() != b.Pending() {
			return !a.Pending()
		}
		return a.Message.Id < b.Message.Id
	})
}
