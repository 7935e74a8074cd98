package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ObjectEvent is the sink-topic payload for one synced water object.
type ObjectEvent struct {
	WaterObject
	SyncedAt time.Time `json:"synced_at"`
}

// SerializeWaterObject wraps a normalized object into an output event keyed
// by object id, stamped with the package clock.
func SerializeWaterObject(obj WaterObject) (OutputEvent, error) {
	event := ObjectEvent{WaterObject: obj, SyncedAt: clock.Now().UTC()}
	data, err := json.Marshal(event)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize water object %d: %w", obj.ID, err)
	}
	return OutputEvent{
		Key:   []byte(strconv.FormatInt(obj.ID, 10)),
		Value: data,
		Headers: map[string]string{
			"priority_label": string(obj.PriorityLabel),
			"synced_at":      event.SyncedAt.Format(time.RFC3339),
		},
	}, nil
}
