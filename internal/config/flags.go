package config

import "flag"

// Flags holds the command-line overrides shared by every rosetool command.
type Flags struct {
	Config  string
	Debug   bool
	Root    string
	Workers int
	Out     string
}

// RegisterFlags adds the shared flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.Root, "root", "", "Extracted ROSE data directory")
	fs.IntVar(&f.Workers, "workers", 0, "Parallel tile loaders")
	fs.StringVar(&f.Out, "out", "", "Export output directory")
	return f
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Root != "" {
		cfg.Data.Root = f.Root
	}
	if f.Workers > 0 {
		cfg.Workers = f.Workers
	}
	if f.Out != "" {
		cfg.Export.OutDir = f.Out
	}
}
