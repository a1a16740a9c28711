package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/hybridsim/internal/correction"
)

const (
	DefaultDt         = 0.005
	DefaultDuration   = 2.0
	DefaultIntegrator = "central-difference"
	DefaultGamma      = 0.5
	DefaultAlpha      = -0.05
	DefaultTimeout    = 5 * time.Second
	DefaultBaud       = 115200
	DefaultLogLevel   = "info"
	DefaultDSN        = "hybridsim.db"
	EnvPrefix         = "HYBRIDSIM"
)

type Config struct {
	Name         string              `mapstructure:"name" yaml:"name"`
	Dt           float64             `mapstructure:"dt" yaml:"dt"`
	Duration     float64             `mapstructure:"duration" yaml:"duration"`
	Integrator   string              `mapstructure:"integrator" yaml:"integrator"`
	Gamma        float64             `mapstructure:"gamma" yaml:"gamma"`
	Alpha        float64             `mapstructure:"alpha" yaml:"alpha"`
	GroundMotion GroundMotionConfig  `mapstructure:"ground_motion" yaml:"ground_motion"`
	Rayleigh     correction.Rayleigh `mapstructure:"rayleigh" yaml:"rayleigh"`
	Nodes        []NodeConfig        `mapstructure:"nodes" yaml:"nodes"`
	Elements     []ElementConfig     `mapstructure:"elements" yaml:"elements"`
	Site         SiteConfig          `mapstructure:"site" yaml:"site"`
	Metrics      []string            `mapstructure:"metrics" yaml:"metrics,omitempty"`
	DriftLimit   float64             `mapstructure:"drift_limit" yaml:"drift_limit,omitempty"`
	Storage      StorageConfig       `mapstructure:"storage" yaml:"storage"`
	Influx       InfluxConfig        `mapstructure:"influx" yaml:"influx"`
	Log          LogConfig           `mapstructure:"log" yaml:"log"`
}

type GroundMotionConfig struct {
	Kind      string  `mapstructure:"kind" yaml:"kind"` // none, sine, record
	Amplitude float64 `mapstructure:"amplitude" yaml:"amplitude,omitempty"`
	Period    float64 `mapstructure:"period" yaml:"period,omitempty"`
	Cycles    float64 `mapstructure:"cycles" yaml:"cycles,omitempty"`
	File      string  `mapstructure:"file" yaml:"file,omitempty"`
	Dt        float64 `mapstructure:"dt" yaml:"dt,omitempty"`
	Direction int     `mapstructure:"direction" yaml:"direction"`
	Scale     float64 `mapstructure:"scale" yaml:"scale,omitempty"`
}

type NodeConfig struct {
	Tag      int       `mapstructure:"tag" yaml:"tag"`
	Coords   []float64 `mapstructure:"coords" yaml:"coords,flow"`
	NDF      int       `mapstructure:"ndf" yaml:"ndf"`
	Fix      []int     `mapstructure:"fix" yaml:"fix,flow,omitempty"`
	Mass     []float64 `mapstructure:"mass" yaml:"mass,flow,omitempty"`
	InitDisp []float64 `mapstructure:"init_disp" yaml:"init_disp,flow,omitempty"`
	InitVel  []float64 `mapstructure:"init_vel" yaml:"init_vel,flow,omitempty"`
}

type ElementConfig struct {
	ID                int         `mapstructure:"id" yaml:"id"`
	Geometry          string      `mapstructure:"geometry" yaml:"geometry"`
	Nodes             []int       `mapstructure:"nodes" yaml:"nodes,flow"`
	NDM               int         `mapstructure:"ndm" yaml:"ndm"`
	NDF               int         `mapstructure:"ndf" yaml:"ndf"`
	Directions        []string    `mapstructure:"directions" yaml:"directions,flow,omitempty"`
	XAxis             []float64   `mapstructure:"x_axis" yaml:"x_axis,flow,omitempty"`
	YAxis             []float64   `mapstructure:"y_axis" yaml:"y_axis,flow,omitempty"`
	ShearDist         *float64    `mapstructure:"shear_dist" yaml:"shear_dist,omitempty"`
	KInit             []float64   `mapstructure:"kinit" yaml:"kinit,flow,omitempty"` // diagonal or row-major nb x nb
	IMod              bool        `mapstructure:"imod" yaml:"imod,omitempty"`
	SharedSensors     bool        `mapstructure:"shared_sensors" yaml:"shared_sensors,omitempty"`
	ZeroForceFallback *bool       `mapstructure:"zero_force_fallback" yaml:"zero_force_fallback,omitempty"`
	PDelta            []float64   `mapstructure:"pdelta" yaml:"pdelta,flow,omitempty"`
	Mass              float64     `mapstructure:"mass" yaml:"mass,omitempty"`
	Rho               float64     `mapstructure:"rho" yaml:"rho,omitempty"`
	ConsistentMass    bool        `mapstructure:"consistent_mass" yaml:"consistent_mass,omitempty"`
	MaterialDamping   []float64   `mapstructure:"material_damping" yaml:"material_damping,flow,omitempty"`
	Estimator         string      `mapstructure:"estimator" yaml:"estimator,omitempty"`
	Tolerance         float64     `mapstructure:"tolerance" yaml:"tolerance,omitempty"`
	Site              *SiteConfig `mapstructure:"site" yaml:"site,omitempty"`
}

type SiteConfig struct {
	Kind     string         `mapstructure:"kind" yaml:"kind"` // local, tcp, serial
	Addr     string         `mapstructure:"addr" yaml:"addr,omitempty"`
	Baud     int            `mapstructure:"baud" yaml:"baud,omitempty"`
	Timeout  time.Duration  `mapstructure:"timeout" yaml:"timeout,omitempty"`
	MaxRate  float64        `mapstructure:"max_rate" yaml:"max_rate,omitempty"`
	Specimen SpecimenConfig `mapstructure:"specimen" yaml:"specimen"`
}

type SpecimenConfig struct {
	Model       string    `mapstructure:"model" yaml:"model"` // elastic, bilinear
	K           []float64 `mapstructure:"k" yaml:"k,flow"`
	Fy          []float64 `mapstructure:"fy" yaml:"fy,flow,omitempty"`
	Hardening   float64   `mapstructure:"hardening" yaml:"hardening,omitempty"`
	ActuatorLag float64   `mapstructure:"actuator_lag" yaml:"actuator_lag,omitempty"`
}

type StorageConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

type InfluxConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	URL     string `mapstructure:"url" yaml:"url,omitempty"`
	Token   string `mapstructure:"token" yaml:"token,omitempty"`
	Org     string `mapstructure:"org" yaml:"org,omitempty"`
	Bucket  string `mapstructure:"bucket" yaml:"bucket,omitempty"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	GELF  string `mapstructure:"gelf" yaml:"gelf,omitempty"` // host:port of a Graylog UDP input
}

func DefaultConfig() *Config {
	return &Config{
		Dt:           DefaultDt,
		Duration:     DefaultDuration,
		Integrator:   DefaultIntegrator,
		Gamma:        DefaultGamma,
		Alpha:        DefaultAlpha,
		GroundMotion: GroundMotionConfig{Kind: "none"},
		Site:         SiteConfig{Kind: "local", Timeout: DefaultTimeout, Baud: DefaultBaud},
		Storage:      StorageConfig{DSN: DefaultDSN},
		Log:          LogConfig{Level: DefaultLogLevel},
	}
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("dt", def.Dt)
	v.SetDefault("duration", def.Duration)
	v.SetDefault("integrator", def.Integrator)
	v.SetDefault("gamma", def.Gamma)
	v.SetDefault("alpha", def.Alpha)
	v.SetDefault("ground_motion.kind", def.GroundMotion.Kind)
	v.SetDefault("site.kind", def.Site.Kind)
	v.SetDefault("site.timeout", def.Site.Timeout)
	v.SetDefault("site.baud", def.Site.Baud)
	v.SetDefault("site.addr", "")
	v.SetDefault("site.max_rate", 0.0)
	v.SetDefault("storage.dsn", def.Storage.DSN)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.gelf", "")
	v.SetDefault("influx.enabled", false)
	v.SetDefault("influx.url", "")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.org", "")
	v.SetDefault("influx.bucket", "")
}

// Load reads a YAML file with environment overrides such as
// HYBRIDSIM_SITE_ADDR. An empty path yields the defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the structure of the model; geometry and specimen names are
// resolved by the builder.
func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", c.Duration)
	}
	if len(c.Nodes) == 0 {
		return fmt.Errorf("no nodes")
	}
	tags := make(map[int]NodeConfig, len(c.Nodes))
	for _, n := range c.Nodes {
		if _, ok := tags[n.Tag]; ok {
			return fmt.Errorf("duplicate node %d", n.Tag)
		}
		if n.NDF <= 0 {
			return fmt.Errorf("node %d: ndf must be positive", n.Tag)
		}
		if len(n.Mass) != 0 && len(n.Mass) != n.NDF {
			return fmt.Errorf("node %d: %d masses for %d dofs", n.Tag, len(n.Mass), n.NDF)
		}
		tags[n.Tag] = n
	}
	ids := make(map[int]bool, len(c.Elements))
	for _, e := range c.Elements {
		if ids[e.ID] {
			return fmt.Errorf("duplicate element %d", e.ID)
		}
		ids[e.ID] = true
		for _, tag := range e.Nodes {
			if _, ok := tags[tag]; !ok {
				return fmt.Errorf("element %d: unknown node %d", e.ID, tag)
			}
		}
		if len(e.PDelta) != 0 && len(e.PDelta) != 4 {
			return fmt.Errorf("element %d: pdelta needs 4 ratios, got %d", e.ID, len(e.PDelta))
		}
	}
	switch c.GroundMotion.Kind {
	case "", "none":
	case "sine":
		if c.GroundMotion.Period <= 0 {
			return fmt.Errorf("sine ground motion needs a positive period")
		}
	case "record":
		if c.GroundMotion.File == "" {
			return fmt.Errorf("record ground motion needs a file")
		}
	default:
		return fmt.Errorf("unknown ground motion: %s", c.GroundMotion.Kind)
	}
	return nil
}

// SiteFor returns the site of an element, falling back to the run default.
func (c *Config) SiteFor(e ElementConfig) SiteConfig {
	if e.Site != nil {
		return *e.Site
	}
	return c.Site
}
