package ws

import (
	"encoding/json"
	"time"

	"housesim/internal/model"
	"housesim/internal/simulate"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message type constants, server -> client.
const (
	TypeRunStarted  = "run:started"
	TypeRunFrame    = "run:frame"
	TypeRunFinished = "run:finished"
	TypeRunFailed   = "run:failed"
)

// RunStartedPayload announces a forward simulation run.
type RunStartedPayload struct {
	RunID    string                   `json:"run_id"`
	Dataset  string                   `json:"dataset"`
	Strategy string                   `json:"strategy"`
	Start    string                   `json:"start"`
	End      string                   `json:"end"`
	Params   model.ThermalModelResult `json:"params"`
}

// FramePayload is one simulation step.
type FramePayload struct {
	RunID         string  `json:"run_id"`
	Timestamp     string  `json:"timestamp"`
	InternalTempC float64 `json:"internal_temp_c"`
	HeatingKWh    float64 `json:"heating_kwh"`
}

// RunFinishedPayload summarizes a completed run.
type RunFinishedPayload struct {
	RunID           string  `json:"run_id"`
	Frames          int     `json:"frames"`
	TotalHeatingKWh float64 `json:"total_heating_kwh"`
}

// RunFailedPayload reports a run that died mid-simulation.
type RunFailedPayload struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
}

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

// FrameFromSimulate converts an engine frame for broadcast.
func FrameFromSimulate(runID string, f simulate.Frame) FramePayload {
	return FramePayload{
		RunID:         runID,
		Timestamp:     f.Time.Format(time.RFC3339),
		InternalTempC: f.InternalTempC(),
		HeatingKWh:    f.HeatingJ / 3.6e6,
	}
}
