package datalayer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/ecommerce"
)

const (
	EnvelopeVersion = 1
	EnvelopeSchema  = "analytics.datalayer.v1"
	Producer        = "analytics-service"

	// envelope name of the {"ecommerce":null} marker
	resetEventName = "datalayer_reset"
)

// Envelope wraps one data layer entry for broker consumers. Sequence is
// per session and starts at 1, so consumers can restore push order.
type Envelope struct {
	EventName    string          `json:"eventName"`
	EventVersion int             `json:"eventVersion"`
	EventID      string          `json:"eventId"`
	Producer     string          `json:"producer"`
	PartitionKey string          `json:"partitionKey"`
	Sequence     int64           `json:"sequence"`
	OccurredAt   time.Time       `json:"occurredAt"`
	Schema       string          `json:"schema"`
	Payload      json.RawMessage `json:"payload"`
}

func newEnvelope(sessionID string, seq int64, ev ecommerce.Event) (Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal entry: %w", err)
	}
	name := ev.Name
	if ev.IsReset() {
		name = resetEventName
	}
	return Envelope{
		EventName:    name,
		EventVersion: EnvelopeVersion,
		EventID:      uuid.NewString(),
		Producer:     Producer,
		PartitionKey: sessionID,
		Sequence:     seq,
		OccurredAt:   time.Now().UTC(),
		Schema:       EnvelopeSchema,
		Payload:      payload,
	}, nil
}

// Validate checks the fields consumers key on before the envelope is sent.
func (e Envelope) Validate() error {
	if e.EventVersion != EnvelopeVersion {
		return fmt.Errorf("unexpected eventVersion %d", e.EventVersion)
	}
	if e.PartitionKey == "" {
		return fmt.Errorf("missing partitionKey")
	}
	if e.EventID == "" {
		return fmt.Errorf("missing eventId")
	}
	if e.Sequence < 1 {
		return fmt.Errorf("invalid sequence %d", e.Sequence)
	}
	return nil
}
