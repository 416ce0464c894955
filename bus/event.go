package bus

import (
	"context"
	"encoding/json"

	"github.com/vinayprograms/reverie/memory"
	"github.com/vinayprograms/reverie/telemetry"
)

// SubjectMemorySaved carries one MemorySaved event per stored record.
const SubjectMemorySaved = "memory.saved"

// MemorySaved announces a stored record under its storage key.
type MemorySaved struct {
	Key    string        `json:"key"`
	Record memory.Record `json:"record"`
}

// EncodeMemorySaved renders the event payload.
func EncodeMemorySaved(ev MemorySaved) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeMemorySaved parses an event payload.
func DecodeMemorySaved(data []byte) (MemorySaved, error) {
	var ev MemorySaved
	err := json.Unmarshal(data, &ev)
	return ev, err
}

// PublishMemorySaved encodes ev and publishes it on SubjectMemorySaved
// inside a publish span.
func PublishMemorySaved(ctx context.Context, b MessageBus, tracer *telemetry.Tracer, ev MemorySaved) (err error) {
	_, span := tracer.StartPublishSpan(ctx, SubjectMemorySaved)
	defer func() { telemetry.EndSpan(span, err) }()

	data, err := EncodeMemorySaved(ev)
	if err != nil {
		return err
	}
	return b.Publish(SubjectMemorySaved, data)
}
