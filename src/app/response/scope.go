package response

import (
	"time"

	"github.com/openpantry/pantry/src/realtime"
)

// ScopeMessage is one message as sent over a scope websocket.
// Pending marks the subscriber's own sends that have not been
// confirmed by the server yet.
type ScopeMessage struct {
	Id        int64     `json:"id,omitempty"`
	SenderId  string    `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	Pending   bool      `json:"pending,omitempty"`
}

type ScopeRun struct {
	SenderId   string          `json:"sender_id"`
	SenderName string          `json:"sender_name"`
	Messages   []*ScopeMessage `json:"messages"`
}

type ScopeDay struct {
	Date string      `json:"date"`
	Runs []*ScopeRun `json:"runs"`
}

// ScopeView is one full snapshot frame. The server pushes a fresh
// snapshot after every change instead of diffing.
type ScopeView struct {
	ScopeId string      `json:"scope_id"`
	Days    []*ScopeDay `json:"days"`
}

func ScopeViewToResponse(scopeId string, days []*realtime.DayGroup) *ScopeView {
	out := &ScopeView{
		ScopeId: scopeId,
		Days:    make([]*ScopeDay, len(days)),
	}
	for i, day := range days {
		outDay := &ScopeDay{
			Date: day.Date,
			Runs: make([]*ScopeRun, len(day.Runs)),
		}
		for j, run := range day.Runs {
			outRun := &ScopeRun{
				SenderId:   run.SenderId,
				SenderName: run.SenderName,
				Messages:   make([]*ScopeMessage, len(run.Entries)),
			}
			for k, entry := range run.Entries {
				outRun.Messages[k] = &ScopeMessage{
					Id:        entry.Message.Id,
					SenderId:  entry.Message.SenderId,
					Body:      entry.Message.Body,
					CreatedAt: entry.Message.CreatedAt,
					Pending:   entry.Pending(),
				}
			}
			outDay.Runs[j] = outRun
		}
		out.Days[i] = outDay
	}
	return out
}
