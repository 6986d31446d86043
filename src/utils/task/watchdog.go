package task

import (
	"time"

	"github.com/openpantry/pantry/src/utils/config"
)

// Watchdog periodically checks the watched task and restarts it
// when the check reports it unhealthy.
type Watchdog struct {
	*Task

	watchedFactory func() *Task
	watched        *Task
	isOK           func() bool
	checkPeriod    time.Duration
}

func NewWatchdog(config *config.Config) (self *Watchdog) {
	self = new(Watchdog)

	self.checkPeriod = time.Minute

	self.Task = NewTask(config, "watchdog").
		WithOnBeforeStart(func() error {
			self.watched = self.watchedFactory()
			return self.watched.Start()
		}).
		WithPeriodicSubtaskFunc(self.checkPeriod, self.check).
		WithOnStop(func() {
			if self.watched != nil {
				self.watched.StopWait()
			}
		})

	return
}

func (self *Watchdog) WithTask(f func() *Task) *Watchdog {
	self.watchedFactory = f
	return self
}

func (self *Watchdog) WithIsOK(f func() bool) *Watchdog {
	self.isOK = f
	return self
}

func (self *Watchdog) check() (err error) {
	if self.isOK == nil || self.isOK() {
		return
	}

	self.Log.Warn("Watched task unhealthy, restarting")

	if self.watched != nil {
		self.watched.StopWait()
	}

	self.watched = self.watchedFactory()
	err = self.watched.Start()
	if err != nil {
		// Contained, the next tick retries with a fresh instance
		self.Log.WithError(err).Error("Failed to restart watched task")
		self.watched.Stop()
		self.watched = nil
		err = nil
	}
	return
}
