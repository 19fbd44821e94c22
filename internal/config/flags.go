package config

import "flag"

var (
	flagConfig      string
	flagDebug       bool
	flagKind        string
	flagSize        int
	flagAttenuate   bool
	flagNoAttenuate bool
	flagSeed        uint64
	flagLogFile     string
)

// RegisterFlags adds the configuration flags to fs. Call it before fs.Parse.
func RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&flagConfig, "config", "", "Path to config file")
	fs.BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	fs.StringVar(&flagKind, "kind", "", "Grid kind: bilinear, barycentric or trilinear")
	fs.IntVar(&flagSize, "size", 0, "Grid vertices per axis")
	fs.BoolVar(&flagAttenuate, "attenuate", false, "Spread vertex moves to the rest of the grid")
	fs.BoolVar(&flagNoAttenuate, "no-attenuate", false, "Move only the picked vertex")
	fs.Uint64Var(&flagSeed, "seed", 0, "Seed for barycentric grid points (0 = random)")
	fs.StringVar(&flagLogFile, "log", "", "Write logs to this file")
}

// ConfigPath returns the explicit config path if provided via -config flag.
func ConfigPath() string {
	return flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if flagDebug {
		cfg.Logging.Level = "debug"
	}
	if flagKind != "" {
		cfg.Grid.Kind = flagKind
	}
	if flagSize > 0 {
		cfg.Grid.Size = flagSize
	}
	if flagAttenuate {
		cfg.Grid.Attenuate = true
	}
	if flagNoAttenuate {
		cfg.Grid.Attenuate = false
	}
	if flagSeed != 0 {
		cfg.Grid.Seed = flagSeed
	}
	if flagLogFile != "" {
		cfg.Logging.LogFile = flagLogFile
	}
}
