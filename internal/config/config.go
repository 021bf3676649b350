// Package config loads the scheduler's tunable constants (spec §6).
// Adapted from the teacher's compile-time constants (kernel/riscv.go's
// PGSIZE, kernel/memlayout.go's physical-memory layout) which were literal
// Go consts because a freestanding kernel has nowhere to read a config
// file from before its own VM is up. Once the scheduler runs as an
// ordinary process, those tunables become runtime configuration loaded
// through github.com/spf13/viper, the way the rest of the retrieval
// pack's service-shaped repos configure themselves
// (deploymenttheory-go-apfs).
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/viper"
)

// Config holds every tunable named in spec §6.
type Config struct {
	NPROC       int     `mapstructure:"nproc"`
	NTHREAD     int     `mapstructure:"nthread"`
	NCPU        int     `mapstructure:"ncpu"`
	KStackSize  uint64  `mapstructure:"kstacksize"`
	PGSize      uint64  `mapstructure:"pgsize"`
	MaxTicket   int64   `mapstructure:"maxticket"`
	MaxStride   int64   `mapstructure:"maxstride"`
	ScalePass   int64   `mapstructure:"scalepass"`
	MaxPass     int64   `mapstructure:"maxpass"`
	Quantum     [3]uint64 `mapstructure:"quantum"`
	Expire      [3]uint64 `mapstructure:"expire"`
}

// Default returns the spec's defaults: K=3 levels with q={5,10,20},
// expire={20,40,200} (spec §4.D), and the conventional ELE3021
// MAXTICKET=100 / MAXSTRIDE=80 split (spec §3's invariant
// MAXSTRIDE < MAXTICKET).
func Default() Config {
	return Config{
		NPROC:      8,
		NTHREAD:    4,
		NCPU:       2,
		KStackSize: 4096,
		PGSize:     4096,
		MaxTicket:  100,
		MaxStride:  80,
		ScalePass:  20,
		MaxPass:    1 << 20,
		Quantum:    [3]uint64{5, 10, 20},
		Expire:     [3]uint64{20, 40, 200},
	}
}

// Load reads an optional YAML config file at path (ignored if empty or
// missing) layered over environment variables prefixed SCHEDCTL_ and the
// spec defaults, via viper.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("SCHEDCTL")
	v.AutomaticEnv()
	bindDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
				return cfg, fmt.Errorf("config: reading %s: %w", path, err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func bindDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("nproc", cfg.NPROC)
	v.SetDefault("nthread", cfg.NTHREAD)
	v.SetDefault("ncpu", cfg.NCPU)
	v.SetDefault("kstacksize", cfg.KStackSize)
	v.SetDefault("pgsize", cfg.PGSize)
	v.SetDefault("maxticket", cfg.MaxTicket)
	v.SetDefault("maxstride", cfg.MaxStride)
	v.SetDefault("scalepass", cfg.ScalePass)
	v.SetDefault("maxpass", cfg.MaxPass)
	v.SetDefault("quantum", cfg.Quantum[:])
	v.SetDefault("expire", cfg.Expire[:])
}

// Validate enforces the invariant spec §3 states explicitly:
// MAXSTRIDE < MAXTICKET.
func (c Config) Validate() error {
	if c.MaxStride >= c.MaxTicket {
		return fmt.Errorf("config: maxstride (%d) must be less than maxticket (%d)", c.MaxStride, c.MaxTicket)
	}
	if c.NPROC <= 0 || c.NTHREAD <= 0 || c.NCPU <= 0 {
		return fmt.Errorf("config: nproc, nthread and ncpu must be positive")
	}
	return nil
}
