package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/halo-sim/halo-sim/sim"
)

// FileConfig is a run configuration loaded from a YAML or TOML file.
// Nil pointer fields mean "not set in the file"; they leave the default in place.
type FileConfig struct {
	Domain   DomainSection   `yaml:"domain" toml:"domain"`
	Physics  PhysicsSection  `yaml:"physics" toml:"physics"`
	Exchange ExchangeSection `yaml:"exchange" toml:"exchange"`
	Seed     SeedSection     `yaml:"seed" toml:"seed"`
}

// DomainSection holds the bar size, worker count and step count.
type DomainSection struct {
	N       *int `yaml:"n" toml:"n"`
	Workers *int `yaml:"workers" toml:"workers"`
	Steps   *int `yaml:"steps" toml:"steps"`
}

// PhysicsSection holds alpha or the constants it derives from.
type PhysicsSection struct {
	Alpha *float64 `yaml:"alpha" toml:"alpha"`
	Nu    *float64 `yaml:"nu" toml:"nu"`
	Dt    *float64 `yaml:"dt" toml:"dt"`
	Dx    *float64 `yaml:"dx" toml:"dx"`
}

// ExchangeSection holds the halo exchange settings. Timeout is a Go duration
// string such as "250ms".
type ExchangeSection struct {
	Strategy      *string `yaml:"strategy" toml:"strategy"`
	ChannelBuffer *int    `yaml:"channel_buffer" toml:"channel_buffer"`
	Timeout       *string `yaml:"timeout" toml:"timeout"`
	PollLimit     *int    `yaml:"poll_limit" toml:"poll_limit"`
}

// SeedSection places the initial perturbation.
type SeedSection struct {
	Cell  *int     `yaml:"cell" toml:"cell"`
	Value *float64 `yaml:"value" toml:"value"`
}

// LoadFileConfig reads path and decodes it by extension: .yaml/.yml or .toml.
// Unknown keys are rejected in both formats so typos cause errors.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var fc FileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case ".toml":
		decoder := toml.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&fc); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config %s: unsupported extension %q (want .yaml, .yml or .toml)", path, ext)
	}
	return &fc, nil
}

// Apply overlays every field set in the file onto cfg. Setting any of nu, dt
// or dx without alpha clears alpha so the derived value is used.
func (fc *FileConfig) Apply(cfg *sim.Config) error {
	d := fc.Domain
	setInt(&cfg.Domain.N, d.N)
	setInt(&cfg.Domain.Workers, d.Workers)
	setInt(&cfg.Domain.Steps, d.Steps)

	p := fc.Physics
	if p.Alpha == nil && (p.Nu != nil || p.Dt != nil || p.Dx != nil) {
		cfg.Physics.Alpha = 0
	}
	setFloat(&cfg.Physics.Alpha, p.Alpha)
	setFloat(&cfg.Physics.Nu, p.Nu)
	setFloat(&cfg.Physics.Dt, p.Dt)
	setFloat(&cfg.Physics.Dx, p.Dx)

	e := fc.Exchange
	if e.Strategy != nil {
		s, err := sim.ParseStrategy(*e.Strategy)
		if err != nil {
			return err
		}
		cfg.Exchange.Strategy = s
	}
	setInt(&cfg.Exchange.ChannelBuffer, e.ChannelBuffer)
	setInt(&cfg.Exchange.PollLimit, e.PollLimit)
	if e.Timeout != nil {
		timeout, err := time.ParseDuration(*e.Timeout)
		if err != nil {
			return &sim.ConfigurationError{Field: "exchange_timeout", Value: *e.Timeout, Reason: err.Error()}
		}
		cfg.Exchange.Timeout = timeout
	}

	setInt(&cfg.Seed.Cell, fc.Seed.Cell)
	setFloat(&cfg.Seed.Value, fc.Seed.Value)
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
