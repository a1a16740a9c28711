package experiment_test

import (
	"context"
	"errors"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/san-kum/hybridsim/internal/channel"
	"github.com/san-kum/hybridsim/internal/config"
	"github.com/san-kum/hybridsim/internal/experiment"
	"github.com/san-kum/hybridsim/internal/rig"
	"github.com/san-kum/hybridsim/internal/sim"
)

func short(name string, duration float64) *config.Config {
	cfg := config.GetPreset(name)
	Expect(cfg).NotTo(BeNil())
	cfg.Duration = duration
	return cfg
}

func run(cfg *config.Config, opts ...experiment.Option) (*experiment.Experiment, *sim.Result) {
	exp := experiment.New(cfg, opts...)
	Expect(exp.Setup()).To(Succeed())
	DeferCleanup(exp.Close)
	result, err := exp.Run(context.Background())
	Expect(err).NotTo(HaveOccurred())
	Expect(result.Errors).To(BeEmpty())
	return exp, result
}

var _ = Describe("Experiment", func() {
	Describe("truss on an elastic specimen", func() {
		It("reports forces consistent with the specimen stiffness", func() {
			cfg := short("truss-sdof", 0.5)
			_, result := run(cfg)

			Expect(result.StepsTaken).To(Equal(100))
			trial, measured, force := result.Element(1)
			Expect(trial).To(HaveLen(101))
			for i := range force {
				Expect(measured[i][0]).To(BeNumerically("~", trial[i][0], 1e-15))
				Expect(force[i][0]).To(BeNumerically("~", 100*measured[i][0], 1e-12))
			}
		})

		It("stores the elastic work as hysteretic energy", func() {
			_, result := run(short("truss-sdof", 0.5))
			last := result.Samples[len(result.Samples)-1].Elements[0].Measured[0]
			Expect(result.Metrics["hysteretic_energy"]).To(BeNumerically("~", 0.5*100*last*last, 1e-6))
			Expect(result.Metrics["control_error"]).To(BeNumerically("<", 1e-15))
		})

		It("scales linearly in a ground-motion sweep", func() {
			results, err := experiment.Sweep(context.Background(), short("truss-sdof", 0.5), []float64{0.5, 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			half := results[0].Samples[100].Disp[0]
			full := results[1].Samples[100].Disp[0]
			Expect(math.Abs(full)).To(BeNumerically(">", 1e-6))
			Expect(half).To(BeNumerically("~", 0.5*full, 1e-12))
		})
	})

	Describe("remote site", func() {
		var (
			srv  *rig.Server
			done chan error
		)

		dialer := func(config.SiteConfig) (channel.Channel, error) {
			client, rigEnd := channel.Pipe()
			go func() { done <- srv.ServeConn(rigEnd) }()
			return client, nil
		}

		BeforeEach(func() {
			srv = rig.NewServer(rig.NewElastic(100), zerolog.Nop())
			done = make(chan error, 1)
		})

		It("matches the in-process run and terminates the session", func() {
			_, local := run(short("truss-sdof", 0.2))

			exp := experiment.New(short("truss-remote", 0.2), experiment.WithDialer(dialer))
			Expect(exp.Setup()).To(Succeed())
			remote, err := exp.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(remote.Samples).To(HaveLen(len(local.Samples)))
			for i := range local.Samples {
				Expect(remote.Samples[i].Disp[0]).To(BeNumerically("~", local.Samples[i].Disp[0], 1e-12))
			}

			st := srv.Status()
			Expect(st.Payload).To(Equal(5))
			// the first predictor repeats the at-rest state and is not resent
			Expect(st.Commands).To(HaveKeyWithValue("SET_TRIAL_RESPONSE", 40))

			Expect(exp.Close()).To(Succeed())
			Eventually(done, time.Second).Should(Receive(BeNil()))
		})

		It("fails setup when the channel cannot be opened", func() {
			failing := func(config.SiteConfig) (channel.Channel, error) {
				return nil, errors.New("connection refused")
			}
			exp := experiment.New(short("truss-remote", 0.2), experiment.WithDialer(failing))
			Expect(exp.Setup()).To(MatchError(ContainSubstring("connection refused")))
		})

		It("refuses to sweep remote sites", func() {
			_, err := experiment.Sweep(context.Background(), short("truss-remote", 0.2), []float64{1})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("configuration errors", func() {
		It("leaves a degenerate element inert and keeps running", func() {
			cfg := short("truss-sdof", 0.1)
			cfg.Nodes[1].Coords = []float64{0, 0}
			exp, result := run(cfg)

			Expect(exp.Domain().Elements()[0].Inert()).To(BeTrue())
			Expect(result.StepsTaken).To(Equal(20))
			Expect(result.Samples[0].Elements).To(BeEmpty())
		})

		It("rejects an unknown geometry", func() {
			cfg := short("truss-sdof", 0.1)
			cfg.Elements[0].Geometry = "beam"
			Expect(experiment.New(cfg).Setup()).To(MatchError(ContainSubstring("unknown geometry")))
		})

		It("rejects a stiffness of the wrong size", func() {
			cfg := short("truss-sdof", 0.1)
			cfg.Elements[0].KInit = []float64{1, 2}
			Expect(experiment.New(cfg).Setup()).To(HaveOccurred())
		})

		It("rejects an unknown integrator", func() {
			cfg := short("truss-sdof", 0.1)
			cfg.Integrator = "rk4"
			Expect(experiment.New(cfg).Setup()).To(MatchError(ContainSubstring("unknown integrator")))
		})
	})

	DescribeTable("presets run without numerical trouble",
		func(name string) {
			cfg := short(name, 0.2)
			_, result := run(cfg)
			Expect(result.StepsTaken).To(Equal(int(math.Round(cfg.Duration / cfg.Dt))))
			for _, s := range result.Samples {
				Expect(s.Disp.IsValid()).To(BeTrue())
			}
		},
		Entry("truss", "truss-sdof"),
		Entry("corotational truss", "corot-truss"),
		Entry("link with P-Delta", "link-portal"),
		Entry("bearing with estimator", "bearing"),
		Entry("inverted-V brace", "vbrace"),
	)
})

var _ = Describe("Registry", func() {
	It("lists what it can build", func() {
		r := experiment.NewRegistry()
		Expect(r.ListGeometries()).To(ConsistOf("truss", "corotTruss", "twoNodeLink", "bearing", "invertedVBrace"))
		Expect(r.ListSpecimens()).To(ConsistOf("elastic", "bilinear"))
		Expect(r.ListIntegrators()).To(ConsistOf("central-difference", "newmark", "alpha-os"))
	})

	It("wraps specimens with an actuator when lag is set", func() {
		r := experiment.NewRegistry()
		test, err := r.GetSpecimen(config.SpecimenConfig{Model: "elastic", K: []float64{1}, ActuatorLag: 0.1})
		Expect(err).NotTo(HaveOccurred())
		Expect(test).To(BeAssignableToTypeOf(&rig.Actuator{}))
	})
})
