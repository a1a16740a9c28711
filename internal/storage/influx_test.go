package storage

import (
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/san-kum/hybridsim/internal/config"
	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/sim"
)

func TestInfluxSinkRequiresTarget(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.InfluxConfig
	}{
		{"no url", config.InfluxConfig{Bucket: "runs"}},
		{"no bucket", config.InfluxConfig{URL: "http://localhost:8086"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewInfluxSink(tt.cfg, "r1", zerolog.Nop()); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestInfluxPoints(t *testing.T) {
	g := NewWithT(t)
	s := &InfluxSink{run: "r1", start: time.Unix(1000, 0)}

	pts := s.points(sim.Sample{
		Step:   3,
		Time:   0.5,
		Ground: 0.2,
		Disp:   dynamo.Vector{0.01},
		Elements: []sim.ElementSample{
			{ID: 7, Trial: dynamo.Vector{0.01}, Measured: dynamo.Vector{0.009}, Force: dynamo.Vector{0.9}},
			{ID: 8},
		},
	})
	g.Expect(pts).To(HaveLen(2))

	resp := pts[0]
	g.Expect(resp.Name()).To(Equal("response"))
	g.Expect(resp.Time()).To(Equal(time.Unix(1000, 500_000_000)))
	fields := map[string]interface{}{}
	for _, f := range resp.FieldList() {
		fields[f.Key] = f.Value
	}
	g.Expect(fields).To(HaveKeyWithValue("ground", 0.2))
	g.Expect(fields).To(HaveKeyWithValue("u0", 0.01))
	g.Expect(fields).To(HaveKey("step"))

	elem := pts[1]
	g.Expect(elem.Name()).To(Equal("element"))
	tags := map[string]string{}
	for _, tg := range elem.TagList() {
		tags[tg.Key] = tg.Value
	}
	g.Expect(tags).To(Equal(map[string]string{"run": "r1", "element": "7"}))
	g.Expect(elem.FieldList()).To(HaveLen(3))
}

func TestInfluxSinkClose(t *testing.T) {
	s, err := NewInfluxSink(config.InfluxConfig{URL: "http://127.0.0.1:1", Bucket: "runs", Org: "lab"}, "r1", zerolog.Nop())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	s.Close()
}
