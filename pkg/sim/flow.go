package sim

import (
	"context"
	"sync"

	"github.com/dd0wney/cluso-controlroom/pkg/logging"
	"github.com/dd0wney/cluso-controlroom/pkg/model"
	"github.com/dd0wney/cluso-controlroom/pkg/txn"
)

// FlowPolicy selects how edges sharing a node see each other within a tick.
type FlowPolicy string

const (
	// FlowSerialized evaluates each edge against the writes already staged
	// by earlier edges in the same tick.
	FlowSerialized FlowPolicy = "serialized"
	// FlowSnapshot evaluates every edge against the state at the start of
	// the tick. Several edges may then drain one source below its minimum,
	// which rejects the whole tick.
	FlowSnapshot FlowPolicy = "snapshot"
)

// FlowConfig tunes the flow job.
type FlowConfig struct {
	SkipProbability float64
	Policy          FlowPolicy
}

// DefaultFlowConfig skips each edge one time in five.
func DefaultFlowConfig() FlowConfig {
	return FlowConfig{SkipProbability: 0.2, Policy: FlowSerialized}
}

// FlowScheduler moves one unit from source to target along each edge whose
// source is above its minimum and whose target is below its maximum.
type FlowScheduler struct {
	manager *txn.Manager
	rng     Rand
	logger  logging.Logger

	mu  sync.Mutex
	cfg FlowConfig
}

// NewFlowScheduler creates the flow job.
func NewFlowScheduler(m *txn.Manager, rng Rand, cfg FlowConfig, opts ...Option) *FlowScheduler {
	o := buildOptions("flow", opts)
	return &FlowScheduler{
		manager: m,
		rng:     rng,
		logger:  o.logger,
		cfg:     cfg,
	}
}

// Config returns the current configuration.
func (s *FlowScheduler) Config() FlowConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetConfig replaces the configuration from the next tick on.
func (s *FlowScheduler) SetConfig(cfg FlowConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// Tick runs one flow step as a single ephemeral transaction. Edges are
// visited in declaration order and each draws once from the random source
// whether or not it could fire. It returns nil when nothing moved.
func (s *FlowScheduler) Tick(ctx context.Context) (*txn.ChangeSet, error) {
	cfg := s.Config()
	g := s.manager.Graph()
	edges := g.Edges()

	var before map[string]model.Node
	if cfg.Policy == FlowSnapshot {
		before = make(map[string]model.Node, g.Len())
		for _, n := range g.Nodes() {
			before[n.ID] = n
		}
	}

	fired := 0
	cs, err := s.manager.Commit(ctx, txn.Ephemeral, func(tx *txn.Tx) error {
		fired = 0
		for _, e := range edges {
			if s.rng.Float64() < cfg.SkipProbability {
				continue
			}

			src, err := tx.Get(e.From)
			if err != nil {
				return err
			}
			dst, err := tx.Get(e.To)
			if err != nil {
				return err
			}
			prev, ok := src.Value.AsNumber()
			if !ok {
				continue
			}
			now, ok := dst.Value.AsNumber()
			if !ok {
				continue
			}

			check, checkNow := prev, now
			if before != nil {
				check = before[e.From].Value.Float()
				checkNow = before[e.To].Value.Float()
			}
			if check <= src.Min || checkNow >= dst.Max {
				continue
			}

			if err := tx.SetValue(e.From, prev-1); err != nil {
				return err
			}
			if err := tx.SetValue(e.To, now+1); err != nil {
				return err
			}
			s.logger.Debug("edge fired", logging.EdgeID(e.ID))
			fired++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("flow tick", logging.Count(fired))
	return cs, nil
}
