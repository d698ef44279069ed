package ws

import (
	"log"
	"time"

	"housesim/internal/simulate"
)

// Bridge adapts a simulation run to the hub: it is handed to simulate.Config
// as the frame callback and broadcasts a thinned frame stream tagged with the
// run id.
type Bridge struct {
	hub   *Hub
	runID string

	// Every nth frame is broadcast; 3-minute steps over a season would
	// otherwise flood slow clients.
	every int
	count int
}

func NewBridge(hub *Hub, runID string, every int) *Bridge {
	if every < 1 {
		every = 1
	}
	return &Bridge{hub: hub, runID: runID, every: every}
}

// OnFrame broadcasts one simulation frame.
func (b *Bridge) OnFrame(f simulate.Frame) {
	b.count++
	if (b.count-1)%b.every != 0 {
		return
	}
	msg, err := NewEnvelope(TypeRunFrame, FrameFromSimulate(b.runID, f))
	if err != nil {
		log.Printf("Error marshaling frame: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}

// Started announces the run.
func (b *Bridge) Started(p RunStartedPayload) {
	msg, err := NewEnvelope(TypeRunStarted, p)
	if err != nil {
		log.Printf("Error marshaling run start: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}

// Finished summarizes the run.
func (b *Bridge) Finished(frames []simulate.Frame) {
	var total float64
	if len(frames) > 0 {
		last := frames[len(frames)-1].Time.Add(time.Second)
		total = simulate.HeatingKWh(frames, frames[0].Time, last)
	}
	msg, err := NewEnvelope(TypeRunFinished, RunFinishedPayload{
		RunID:           b.runID,
		Frames:          len(frames),
		TotalHeatingKWh: total,
	})
	if err != nil {
		log.Printf("Error marshaling run finish: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}

// Failed reports a run aborted by the engine.
func (b *Bridge) Failed(err error) {
	msg, merr := NewEnvelope(TypeRunFailed, RunFailedPayload{RunID: b.runID, Error: err.Error()})
	if merr != nil {
		log.Printf("Error marshaling run failure: %v", merr)
		return
	}
	b.hub.Broadcast(msg)
}
