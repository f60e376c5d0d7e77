package server

import (
	"bytes"
	"encoding/json"

	"github.com/nighttide/nighttide/internal/core/scene/firefly"
	"github.com/nighttide/nighttide/pkg/generic"
)

// Snapshot is the scene state broadcast to preview viewers.
type Snapshot struct {
	Type         string         `json:"type"`
	Frame        uint64         `json:"frame"`
	Elapsed      float64        `json:"elapsed"`
	Fireflies    []FireflyState `json:"fireflies"`
	ActiveLights int            `json:"activeLights"`
	WaterLevel   float64        `json:"waterLevel"`
	Underwater   bool           `json:"underwater"`
	Depth        float64        `json:"depth"`
}

// FireflyState is one particle's broadcast state.
type FireflyState struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
	Lit  bool    `json:"lit"`
	Fade float64 `json:"fade"`
}

// snapshotEncoder reuses buffers across broadcasts; at 30 ticks per second
// a fresh allocation per frame is measurable churn.
type snapshotEncoder struct {
	buffers *generic.Pool[*bytes.Buffer]
}

func newSnapshotEncoder() *snapshotEncoder {
	return &snapshotEncoder{
		buffers: generic.NewHotPool(func() *bytes.Buffer {
			return bytes.NewBuffer(make([]byte, 0, 4096))
		}, 2),
	}
}

// encode marshals the snapshot into a pooled buffer. The returned release
// function must be called after the bytes have been written out.
func (e *snapshotEncoder) encode(s Snapshot) ([]byte, func(), error) {
	buf := e.buffers.Get()
	buf.Reset()
	if err := json.NewEncoder(buf).Encode(s); err != nil {
		e.buffers.Put(buf)
		return nil, nil, err
	}
	return buf.Bytes(), func() { e.buffers.Put(buf) }, nil
}

func fireflyStates(flies []firefly.Firefly) []FireflyState {
	out := make([]FireflyState, len(flies))
	for i, fly := range flies {
		out[i] = FireflyState{
			X:    fly.Position[0],
			Y:    fly.Position[1],
			Z:    fly.Position[2],
			Lit:  fly.LightActive,
			Fade: fly.FadeProgress,
		}
	}
	return out
}
