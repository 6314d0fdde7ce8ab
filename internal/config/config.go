package config

import (
	"github.com/kelseyhightower/envconfig"
)

// Config holds the runtime settings shared by the growform binaries.
// Every field is read from a GROWFORM_ prefixed environment variable.
type Config struct {
	Seed            int64  `envconfig:"SEED" default:"1"`
	RegionHops      int    `envconfig:"REGION_HOPS" default:"4"`
	Steps           int    `envconfig:"STEPS" default:"2000"`
	RelaxPerStep    int    `envconfig:"RELAX_PER_STEP" default:"50"`
	Smooth          int    `envconfig:"SMOOTH" default:"0"`
	CheckInvariants bool   `envconfig:"CHECK_INVARIANTS" default:"false"`
	OutputDir       string `envconfig:"OUTPUT_DIR" default:"."`
	PreviewSize     int    `envconfig:"PREVIEW_SIZE" default:"512"`
	Port            int    `envconfig:"PORT" default:"8080"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("growform", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
