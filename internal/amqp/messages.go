package amqp

import (
	"encoding/json"
	"time"
)

// Actions carried by ledger events.
const (
	ActionRecorded = "recorded"
	ActionDeleted  = "deleted"
)

// LedgerEvent is the lightweight envelope published for every ledger write.
// It carries only the contribution id and the action; the mirror worker
// fetches the current entry from storage, so a stale message can never write
// stale data.
type LedgerEvent struct {
	ContributionID string    `json:"contribution_id"`
	Action         string    `json:"action"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewLedgerEvent(id, action string) *LedgerEvent {
	return &LedgerEvent{
		ContributionID: id,
		Action:         action,
		Timestamp:      time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON parses an event from JSON bytes.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
