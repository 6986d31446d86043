package realtime

import (
	"time"
)

// SenderRun is a run of consecutive messages from one sender within
// the collapse window. Collapsing is presentation only, every entry
// stays a distinct message.
type SenderRun struct {
	SenderId   string   `json:"sender_id"`
	SenderName string   `json:"sender_name"`
	Entries    []*Entry `json:"entries"`
}

// DayGroup is all messages of one calendar day, oldest first.
type DayGroup struct {
	Date string       `json:"date"`
	Runs []*SenderRun `json:"runs"`
}

// GroupByDay groups the visible list by calendar day, then collapses
// consecutive same-sender messages closer together than the window.
func GroupByDay(entries []*Entry, collapseWindow time.Duration) (days []*DayGroup) {
	var day *DayGroup
	var run *SenderRun
	var last time.Time

	for _, entry := range entries {
		date := entry.Message.CreatedAt.Local().Format("2006-01-02")

		if day == nil || day.Date != date {
			day = &DayGroup{Date: date}
			days = append(days, day)
			run = nil
		}

		sameRun := run != nil &&
			run.SenderId == entry.Message.SenderId &&
			entry.Message.CreatedAt.Sub(last) <= collapseWindow

		if !sameRun {
			run = &SenderRun{
				SenderId:   entry.Message.SenderId,
				SenderName: entry.Message.SenderName,
			}
			day.Runs = append(day.Runs, run)
		}

		run.Entries = append(run.Entries, entry)
		last = entry.Message.CreatedAt
	}
	return
}
