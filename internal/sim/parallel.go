package sim

import (
	"context"
	"fmt"
	"sync"
)

// Ensemble runs independent simulators concurrently, one goroutine each.
// Every simulator must own its domain and sites.
type Ensemble struct {
	sims []*Simulator
}

func NewEnsemble(sims ...*Simulator) *Ensemble {
	return &Ensemble{sims: sims}
}

// Run executes simulator i with cfgs[i], or with cfgs[0] when a single
// config is given.
func (e *Ensemble) Run(ctx context.Context, cfgs ...Config) ([]*Result, error) {
	if len(cfgs) != 1 && len(cfgs) != len(e.sims) {
		return nil, fmt.Errorf("ensemble of %d simulators given %d configs", len(e.sims), len(cfgs))
	}
	results := make([]*Result, len(e.sims))
	errs := make([]error, len(e.sims))

	var wg sync.WaitGroup
	for i, s := range e.sims {
		cfg := cfgs[0]
		if len(cfgs) == len(e.sims) {
			cfg = cfgs[i]
		}
		wg.Add(1)
		go func(idx int, s *Simulator, cfg Config) {
			defer wg.Done()
			results[idx], errs[idx] = s.Run(ctx, cfg)
		}(i, s, cfg)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}

	return results, nil
}
