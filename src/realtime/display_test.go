package realtime

import (
	"testing"
	"time"

	"github.com/openpantry/pantry/src/utils/model"

	"github.com/stretchr/testify/assert"
)

func entry(id int64, senderId string, at time.Time) *Entry {
	return &Entry{
		Message: model.ScopeMessage{
			Message: model.Message{
				Id:        id,
				SenderId:  senderId,
				Body:      "m",
				CreatedAt: at,
			},
			SenderName: senderId,
		},
	}
}

func TestGroupByDaySplitsCalendarDays(t *testing.T) {
	day1 := time.Date(2026, 3, 1, 22, 0, 0, 0, time.Local)
	day2 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.Local)

	days := GroupByDay([]*Entry{
		entry(1, "alice", day1),
		entry(2, "alice", day2),
	}, 3*time.Minute)

	assert.Len(t, days, 2)
	assert.Equal(t, "2026-03-01", days[0].Date)
	assert.Equal(t, "2026-03-02", days[1].Date)
}

func TestGroupByDayCollapsesCloseSameSenderMessages(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)

	days := GroupByDay([]*Entry{
		entry(1, "alice", base),
		entry(2, "alice", base.Add(time.Minute)),
		entry(3, "alice", base.Add(10*time.Minute)),
		entry(4, "bob", base.Add(11*time.Minute)),
	}, 3*time.Minute)

	assert.Len(t, days, 1)
	runs := days[0].Runs
	assert.Len(t, runs, 3)

	// Collapsed visually, still distinct messages as data
	assert.Len(t, runs[0].Entries, 2)
	assert.Len(t, runs[1].Entries, 1)
	assert.Equal(t, "bob", runs[2].SenderId)
}
