package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/san-kum/hybridsim/internal/config"
	"github.com/san-kum/hybridsim/internal/sim"
)

var ErrRunNotFound = errors.New("run not found")

const batchSize = 500

// Run is one stored experiment.
type Run struct {
	ID         uint      `gorm:"primaryKey"`
	CreatedAt  time.Time `gorm:"index"`
	Name       string    `gorm:"size:127;index"`
	Integrator string    `gorm:"size:63"`
	Dt         float64
	Duration   float64
	StepsTaken int
	Failed     bool
	Config     datatypes.JSON
	Metrics    datatypes.JSON
}

// StepRecord is the committed state after one step of a run.
type StepRecord struct {
	ID       uint `gorm:"primaryKey"`
	RunID    uint `gorm:"index:idx_step_run"`
	Run      Run  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID"`
	Step     int  `gorm:"index:idx_step_run"`
	Time     float64
	Ground   float64
	Disp     datatypes.JSON
	Elements datatypes.JSON
}

type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

// Open connects to Postgres for a postgres DSN and to a SQLite file (or
// ":memory:") otherwise, and migrates the schema.
func Open(dsn string, log zerolog.Logger) (*Store, error) {
	if dsn == "" {
		dsn = config.DefaultDSN
	}
	pg := isPostgres(dsn)

	var dial gorm.Dialector
	if pg {
		dial = postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true})
	} else {
		dial = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dial, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	if !pg {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql interface: %w", err)
		}
		// every connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&Run{}, &StepRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Debug().Bool("postgres", pg).Msg("storage ready")
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveRun stores the configuration, metrics and every sample of a result.
// A partial result from a failed run is stored with Failed set.
func (s *Store) SaveRun(cfg *config.Config, res *sim.Result) (uint, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return 0, fmt.Errorf("encode config: %w", err)
	}
	metricsJSON, err := json.Marshal(res.Metrics)
	if err != nil {
		return 0, fmt.Errorf("encode metrics: %w", err)
	}

	run := Run{
		Name:       cfg.Name,
		Integrator: cfg.Integrator,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		StepsTaken: res.StepsTaken,
		Failed:     len(res.Errors) > 0,
		Config:     datatypes.JSON(cfgJSON),
		Metrics:    datatypes.JSON(metricsJSON),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(res.Samples) == 0 {
			return nil
		}
		steps := make([]StepRecord, 0, len(res.Samples))
		for _, smp := range res.Samples {
			rec, err := toRecord(run.ID, smp)
			if err != nil {
				return err
			}
			steps = append(steps, rec)
		}
		return tx.Omit("Run").CreateInBatches(steps, batchSize).Error
	})
	if err != nil {
		return 0, fmt.Errorf("save run %q: %w", cfg.Name, err)
	}
	s.log.Info().Uint("run", run.ID).Str("name", run.Name).Int("samples", len(res.Samples)).Msg("run saved")
	return run.ID, nil
}

func toRecord(runID uint, smp sim.Sample) (StepRecord, error) {
	disp, err := json.Marshal(smp.Disp)
	if err != nil {
		return StepRecord{}, err
	}
	elems, err := json.Marshal(smp.Elements)
	if err != nil {
		return StepRecord{}, err
	}
	return StepRecord{
		RunID:    runID,
		Step:     smp.Step,
		Time:     smp.Time,
		Ground:   smp.Ground,
		Disp:     datatypes.JSON(disp),
		Elements: datatypes.JSON(elems),
	}, nil
}

// ListRuns returns the stored runs, newest first.
func (s *Store) ListRuns() ([]Run, error) {
	var runs []Run
	if err := s.db.Order("id desc").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *Store) LoadRun(id uint) (*Run, error) {
	var run Run
	err := s.db.First(&run, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// LoadResult rebuilds the result of a stored run.
func (s *Store) LoadResult(id uint) (*Run, *sim.Result, error) {
	run, err := s.LoadRun(id)
	if err != nil {
		return nil, nil, err
	}
	var recs []StepRecord
	if err := s.db.Where("run_id = ?", id).Order("step asc").Find(&recs).Error; err != nil {
		return nil, nil, err
	}

	res := &sim.Result{
		Samples:    make([]sim.Sample, 0, len(recs)),
		Times:      make([]float64, 0, len(recs)),
		StepsTaken: run.StepsTaken,
		Metrics:    map[string]float64{},
	}
	if len(run.Metrics) > 0 {
		if err := json.Unmarshal(run.Metrics, &res.Metrics); err != nil {
			return nil, nil, fmt.Errorf("decode metrics: %w", err)
		}
	}
	for _, rec := range recs {
		smp := sim.Sample{Step: rec.Step, Time: rec.Time, Ground: rec.Ground}
		if err := json.Unmarshal(rec.Disp, &smp.Disp); err != nil {
			return nil, nil, fmt.Errorf("decode step %d: %w", rec.Step, err)
		}
		if err := json.Unmarshal(rec.Elements, &smp.Elements); err != nil {
			return nil, nil, fmt.Errorf("decode step %d: %w", rec.Step, err)
		}
		res.Samples = append(res.Samples, smp)
		res.Times = append(res.Times, smp.Time)
	}
	return run, res, nil
}

// Settings decodes the configuration the run was made with.
func (r *Run) Settings() (*config.Config, error) {
	cfg := &config.Config{}
	if err := json.Unmarshal(r.Config, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *Store) DeleteRun(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&StepRecord{}).Error; err != nil {
			return err
		}
		r := tx.Delete(&Run{}, id)
		if r.Error != nil {
			return r.Error
		}
		if r.RowsAffected == 0 {
			return fmt.Errorf("%w: %d", ErrRunNotFound, id)
		}
		return nil
	})
}
