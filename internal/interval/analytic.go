package interval

import (
	"errors"
	"fmt"

	"github.com/eigerco/uopsim/internal/perfmodel"
)

var ErrInvalidAnalyticConfig = errors.New("invalid analytic timer configuration")

// AnalyticConfig parameterises the first-order model.
type AnalyticConfig struct {
	DispatchWidth     uint64 `json:"dispatch_width"`
	HitLatency        uint64 `json:"hit_latency"`
	MispredictPenalty uint64 `json:"mispredict_penalty"`
	SerializeCost     uint64 `json:"serialize_cost"`
}

func DefaultAnalyticConfig() AnalyticConfig {
	return AnalyticConfig{
		DispatchWidth:     4,
		HitLatency:        4,
		MispredictPenalty: 15,
		SerializeCost:     10,
	}
}

func (c AnalyticConfig) Validate() error {
	if c.DispatchWidth == 0 {
		return fmt.Errorf("%w: dispatch width must be positive", ErrInvalidAnalyticConfig)
	}
	return nil
}

// Analytic is a first-order interval model: micro-ops dispatch at a fixed
// width, memory latency beyond a cache hit is summed per group and divided by
// the number of distinct lines in flight, and mispredictions and
// barriers add fixed penalties. Only dispatch cycles count as non-idle.
type Analytic struct {
	cfg AnalyticConfig
	// pending micro-ops that did not fill a whole dispatch cycle yet
	pending uint64
}

func NewAnalytic(cfg AnalyticConfig) (*Analytic, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analytic{cfg: cfg}, nil
}

func (a *Analytic) Simulate(g *perfmodel.Group) (uint64, uint64) {
	var exposed, penalty uint64
	for i := 0; i < g.Len(); i++ {
		op := g.At(i)
		if op.Template.IsMemory() && op.Latency > a.cfg.HitLatency {
			exposed += op.Latency - a.cfg.HitLatency
		}
		if op.Template.IsBarrier() {
			penalty += a.cfg.SerializeCost
		}
		if op.Mispredicted {
			penalty += a.cfg.MispredictPenalty
		}
	}
	if lines := uint64(g.LinesRead() + g.LinesWritten()); lines > 1 {
		exposed /= lines
	}

	total := a.pending + uint64(g.Len())
	dispatch := total / a.cfg.DispatchWidth
	a.pending = total % a.cfg.DispatchWidth

	return dispatch + exposed + penalty, dispatch
}

// NotifyElapsedTimeUpdate drops the partial dispatch cycle.
func (a *Analytic) NotifyElapsedTimeUpdate() {
	a.pending = 0
}
