package storage

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"github.com/san-kum/hybridsim/internal/config"
	"github.com/san-kum/hybridsim/internal/sim"
)

// InfluxSink streams committed samples to an InfluxDB bucket. It is a
// sim.Observer; writes are batched by the client in the background.
type InfluxSink struct {
	client influxdb2.Client
	writer influxdb2_api.WriteAPI
	run    string
	start  time.Time
	done   chan struct{}
	log    zerolog.Logger
}

func NewInfluxSink(cfg config.InfluxConfig, run string, log zerolog.Logger) (*InfluxSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("influx: url is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("influx: bucket is required")
	}
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000))

	s := &InfluxSink{
		client: client,
		writer: client.WriteAPI(cfg.Org, cfg.Bucket),
		run:    run,
		start:  time.Now(),
		done:   make(chan struct{}),
		log:    log,
	}
	go s.drainErrors()
	log.Info().Str("url", cfg.URL).Str("bucket", cfg.Bucket).Msg("influx sink enabled")
	return s, nil
}

func (s *InfluxSink) drainErrors() {
	errs := s.writer.Errors()
	for {
		select {
		case err, ok := <-errs:
			if !ok {
				return
			}
			s.log.Warn().Err(err).Msg("influx write failed")
		case <-s.done:
			return
		}
	}
}

func (s *InfluxSink) OnStep(smp sim.Sample) {
	for _, p := range s.points(smp) {
		s.writer.WritePoint(p)
	}
}

// points maps a sample to one "response" point plus one "element" point per
// element, stamped at the wall-clock start of the run offset by the
// simulated time.
func (s *InfluxSink) points(smp sim.Sample) []*influxdb2_write.Point {
	ts := s.start.Add(time.Duration(smp.Time * float64(time.Second)))
	tags := map[string]string{"run": s.run}

	fields := map[string]interface{}{
		"step":   smp.Step,
		"ground": smp.Ground,
	}
	for i, v := range smp.Disp {
		fields[fmt.Sprintf("u%d", i)] = v
	}
	out := []*influxdb2_write.Point{influxdb2.NewPoint("response", tags, fields, ts)}

	for _, es := range smp.Elements {
		f := map[string]interface{}{}
		for i := range es.Trial {
			f[fmt.Sprintf("trial%d", i)] = es.Trial[i]
		}
		for i := range es.Measured {
			f[fmt.Sprintf("measured%d", i)] = es.Measured[i]
		}
		for i := range es.Force {
			f[fmt.Sprintf("force%d", i)] = es.Force[i]
		}
		if len(f) == 0 {
			continue
		}
		t := map[string]string{"run": s.run, "element": strconv.Itoa(es.ID)}
		out = append(out, influxdb2.NewPoint("element", t, f, ts))
	}
	return out
}

// Close flushes pending points and releases the client.
func (s *InfluxSink) Close() {
	s.writer.Flush()
	close(s.done)
	s.client.Close()
}
