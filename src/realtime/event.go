package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/openpantry/pantry/src/utils/model"
)

// Event is one row-level notification from the push feed, as emitted
// by the pantry_notify_insert trigger.
type Event struct {
	Table     string          `json:"table"`
	Operation string          `json:"operation"`
	NewRow    json.RawMessage `json:"new_row"`
}

func ParseEvent(payload string) (event *Event, err error) {
	event = new(Event)
	err = json.Unmarshal([]byte(payload), event)
	if err != nil {
		return nil, fmt.Errorf("malformed feed payload: %w", err)
	}
	return
}

// DecodeMessage decodes the inserted row of a messages event.
func (self *Event) DecodeMessage() (message *model.Message, err error) {
	if self.Table != model.TableMessage {
		return nil, fmt.Errorf("event is for table %s, not messages", self.Table)
	}
	message = new(model.Message)
	err = json.Unmarshal(self.NewRow, message)
	return
}
