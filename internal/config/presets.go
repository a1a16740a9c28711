package config

import (
	"sort"
	"time"
)

func elasticSite(k ...float64) SiteConfig {
	return SiteConfig{Kind: "local", Timeout: DefaultTimeout, Specimen: SpecimenConfig{Model: "elastic", K: k}}
}

func base(name string) *Config {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.Metrics = []string{"hysteretic_energy", "control_error", "peak_force"}
	return cfg
}

// trussSDOF is a single-DOF truss on an elastic specimen under a sine base
// motion.
func trussSDOF() *Config {
	cfg := base("truss-sdof")
	cfg.Nodes = []NodeConfig{
		{Tag: 1, Coords: []float64{0, 0}, NDF: 2, Fix: []int{0, 1}},
		{Tag: 2, Coords: []float64{1, 0}, NDF: 2, Fix: []int{1}, Mass: []float64{1, 0}},
	}
	cfg.Elements = []ElementConfig{
		{ID: 1, Geometry: "truss", Nodes: []int{1, 2}, NDM: 2, NDF: 2, KInit: []float64{100}},
	}
	cfg.Site = elasticSite(100)
	cfg.GroundMotion = GroundMotionConfig{Kind: "sine", Amplitude: 1, Period: 0.5, Direction: 0}
	return cfg
}

var Presets = map[string]func() *Config{
	"truss-sdof": trussSDOF,
	// same model tested over TCP against "hybridsim rig"
	"truss-remote": func() *Config {
		cfg := trussSDOF()
		cfg.Name = "truss-remote"
		cfg.Site = SiteConfig{Kind: "tcp", Addr: "127.0.0.1:8090", Timeout: 2 * time.Second}
		return cfg
	},
	// two-bar corotational truss with a bilinear specimen per bar
	"corot-truss": func() *Config {
		cfg := base("corot-truss")
		cfg.Integrator = "alpha-os"
		cfg.Dt = 0.01
		cfg.Duration = 4
		cfg.Nodes = []NodeConfig{
			{Tag: 1, Coords: []float64{0, 0}, NDF: 2, Fix: []int{0, 1}},
			{Tag: 2, Coords: []float64{1, 1}, NDF: 2, Mass: []float64{1, 1}},
			{Tag: 3, Coords: []float64{2, 0}, NDF: 2, Fix: []int{0, 1}},
		}
		site := SiteConfig{Kind: "local", Timeout: DefaultTimeout, Specimen: SpecimenConfig{Model: "bilinear", K: []float64{200}, Fy: []float64{2}, Hardening: 0.05}}
		cfg.Elements = []ElementConfig{
			{ID: 1, Geometry: "corotTruss", Nodes: []int{1, 2}, NDM: 2, NDF: 2, KInit: []float64{200}, Site: &site},
			{ID: 2, Geometry: "corotTruss", Nodes: []int{3, 2}, NDM: 2, NDF: 2, KInit: []float64{200}, Site: &site},
		}
		cfg.GroundMotion = GroundMotionConfig{Kind: "sine", Amplitude: 4, Period: 1, Cycles: 2, Direction: 0}
		cfg.Rayleigh.BetaK0 = 0.002
		return cfg
	},
	// cantilever column as a two-node link with P-Delta and shear at mid-height
	"link-portal": func() *Config {
		cfg := base("link-portal")
		half := 0.5
		cfg.Nodes = []NodeConfig{
			{Tag: 1, Coords: []float64{0, 0}, NDF: 3, Fix: []int{0, 1, 2}},
			{Tag: 2, Coords: []float64{0, 3}, NDF: 3, Mass: []float64{2, 2, 0.5}},
		}
		cfg.Elements = []ElementConfig{{
			ID: 1, Geometry: "twoNodeLink", Nodes: []int{1, 2}, NDM: 2, NDF: 3,
			Directions: []string{"ux", "uy", "rz"}, ShearDist: &half,
			KInit: []float64{5000, 150, 900}, IMod: true,
			PDelta: []float64{0.5, 0.5, 0, 0},
		}}
		cfg.Site = SiteConfig{Kind: "local", Timeout: DefaultTimeout, Specimen: SpecimenConfig{
			Model: "bilinear", K: []float64{5000, 150, 900}, Fy: []float64{1e6, 3, 1e6}, Hardening: 0.02, ActuatorLag: 0.05,
		}}
		cfg.GroundMotion = GroundMotionConfig{Kind: "sine", Amplitude: 3, Period: 0.8, Cycles: 3, Direction: 0}
		cfg.Dt = 0.002
		cfg.Duration = 4
		return cfg
	},
	// elastomeric bearing: bilinear in shear, stiff axially
	"bearing": func() *Config {
		cfg := base("bearing")
		cfg.Nodes = []NodeConfig{
			{Tag: 1, Coords: []float64{0, 0}, NDF: 3, Fix: []int{0, 1, 2}},
			{Tag: 2, Coords: []float64{0, 0.2}, NDF: 3, Fix: []int{1, 2}, Mass: []float64{5, 0, 0}},
		}
		cfg.Elements = []ElementConfig{{
			ID: 1, Geometry: "bearing", Nodes: []int{1, 2}, NDM: 2, NDF: 3,
			KInit: []float64{1e5, 400, 1e4}, IMod: true, Estimator: "broyden",
		}}
		cfg.Site = SiteConfig{Kind: "local", Timeout: DefaultTimeout, Specimen: SpecimenConfig{
			Model: "bilinear", K: []float64{1e5, 400, 1e4}, Fy: []float64{1e9, 8, 1e9}, Hardening: 0.1, ActuatorLag: 0.1,
		}}
		cfg.GroundMotion = GroundMotionConfig{Kind: "sine", Amplitude: 6, Period: 1.5, Cycles: 2, Direction: 0}
		cfg.Duration = 5
		return cfg
	},
	// inverted-V brace with load cells shared between the legs
	"vbrace": func() *Config {
		cfg := base("vbrace")
		cfg.Nodes = []NodeConfig{
			{Tag: 1, Coords: []float64{0, 0}, NDF: 3, Fix: []int{0, 1, 2}},
			{Tag: 2, Coords: []float64{4, 0}, NDF: 3, Fix: []int{0, 1, 2}},
			{Tag: 3, Coords: []float64{2, 3}, NDF: 3, Mass: []float64{2, 2, 0.2}},
		}
		cfg.Elements = []ElementConfig{{
			ID: 1, Geometry: "invertedVBrace", Nodes: []int{1, 2, 3}, NDM: 2, NDF: 3,
			KInit: []float64{300, 300, 50, 300, 300, 50}, IMod: true, SharedSensors: true,
		}}
		cfg.Site = elasticSite(300, 300, 50, 300, 300, 50)
		cfg.GroundMotion = GroundMotionConfig{Kind: "sine", Amplitude: 2, Period: 0.6, Cycles: 3, Direction: 0}
		cfg.Dt = 0.002
		return cfg
	},
}

func GetPreset(name string) *Config {
	f, ok := Presets[name]
	if !ok {
		return nil
	}
	return f()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
