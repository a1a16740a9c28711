// Package automation runs scripted campaigns: a sequence of experiments,
// each a preset or experiment file with optional overrides.
package automation

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/hybridsim/internal/config"
	"github.com/san-kum/hybridsim/internal/experiment"
	"github.com/san-kum/hybridsim/internal/sim"
)

type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
	// ContinueOnError keeps going after a failed step.
	ContinueOnError bool `yaml:"continue_on_error"`
}

type ScenarioStep struct {
	Preset     string  `yaml:"preset"`
	Config     string  `yaml:"config"`
	Integrator string  `yaml:"integrator"`
	Dt         float64 `yaml:"dt"`
	Duration   float64 `yaml:"duration"`
	Scale      float64 `yaml:"scale"`
	SaveAs     string  `yaml:"save_as"`
}

// Saver stores a finished run; storage.Store satisfies it.
type Saver interface {
	SaveRun(cfg *config.Config, res *sim.Result) (uint, error)
}

type StepResult struct {
	Name   string
	Result *sim.Result
	RunID  uint
	Err    error
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}

func (s *Scenario) Validate() error {
	if len(s.Steps) == 0 {
		return errors.New("scenario has no steps")
	}
	for i, st := range s.Steps {
		if (st.Preset == "") == (st.Config == "") {
			return fmt.Errorf("step %d: exactly one of preset and config is required", i+1)
		}
		if st.Scale < 0 {
			return fmt.Errorf("step %d: scale must be non-negative", i+1)
		}
	}
	return nil
}

// Resolve builds the experiment configuration of one step.
func (st ScenarioStep) Resolve() (*config.Config, error) {
	var cfg *config.Config
	if st.Preset != "" {
		cfg = config.GetPreset(st.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", st.Preset)
		}
	} else {
		c, err := config.Load(st.Config)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	if st.Integrator != "" {
		cfg.Integrator = st.Integrator
	}
	if st.Dt > 0 {
		cfg.Dt = st.Dt
	}
	if st.Duration > 0 {
		cfg.Duration = st.Duration
	}
	if st.SaveAs != "" {
		cfg.Name = st.SaveAs
	}
	return cfg, nil
}

// RunScenario executes the steps in order. Every step gets its own
// experiment, so steps may share a remote site one after another. When saver
// is non-nil each result, partial ones included, is stored.
func RunScenario(ctx context.Context, scenario *Scenario, saver Saver, log zerolog.Logger) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		sr := runStep(ctx, step, saver, log)
		log.Info().Int("step", i+1).Int("of", len(scenario.Steps)).Str("name", sr.Name).
			AnErr("error", sr.Err).Msg("scenario step done")
		results = append(results, sr)
		if sr.Err != nil && !scenario.ContinueOnError {
			return results, fmt.Errorf("step %d: %w", i+1, sr.Err)
		}
	}
	return results, nil
}

func runStep(ctx context.Context, step ScenarioStep, saver Saver, log zerolog.Logger) StepResult {
	cfg, err := step.Resolve()
	if err != nil {
		return StepResult{Name: step.Preset + step.Config, Err: err}
	}
	sr := StepResult{Name: cfg.Name}

	scale := step.Scale
	if scale == 0 {
		scale = 1
	}
	exp := experiment.New(cfg, experiment.WithLogger(log), experiment.WithGroundScale(scale))
	if err := exp.Setup(); err != nil {
		sr.Err = fmt.Errorf("setup: %w", err)
		return sr
	}
	defer exp.Close()

	sr.Result, sr.Err = exp.Run(ctx)
	if saver != nil && sr.Result != nil {
		id, err := saver.SaveRun(cfg, sr.Result)
		if err != nil {
			sr.Err = errors.Join(sr.Err, err)
		}
		sr.RunID = id
	}
	return sr
}
