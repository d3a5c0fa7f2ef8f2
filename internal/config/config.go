// Package config loads gmatool settings.
package config

import (
	"github.com/pkg/errors"
)

// Config holds all gmatool settings.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Export  ExportConfig  `yaml:"export"`
	Dump    DumpConfig    `yaml:"dump"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// ExportConfig controls the export command.
type ExportConfig struct {
	Format     string `yaml:"format"`      // obj or gltf
	OutputDir  string `yaml:"output_dir"`  // created if missing
	BinaryGLTF bool   `yaml:"binary_gltf"` // write .glb instead of .gltf
}

// DumpConfig controls the dump command.
type DumpConfig struct {
	// MaxVertices caps the strip vertices printed per strip; 0 prints all.
	MaxVertices int `yaml:"max_vertices"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Export: ExportConfig{
			Format:    "obj",
			OutputDir: ".",
		},
		Dump: DumpConfig{
			MaxVertices: 16,
		},
	}
}

// Override replaces the export settings given on the command line. Empty
// values keep the configured ones.
func (e *ExportConfig) Override(format, outputDir string) {
	if format != "" {
		e.Format = format
	}
	if outputDir != "" {
		e.OutputDir = outputDir
	}
}

// Validate checks values the commands rely on.
func (c *Config) Validate() error {
	switch c.Export.Format {
	case "obj", "gltf":
	default:
		return errors.Errorf("export.format %q: want obj or gltf", c.Export.Format)
	}
	if c.Export.OutputDir == "" {
		return errors.New("export.output_dir is empty")
	}
	if c.Dump.MaxVertices < 0 {
		return errors.Errorf("dump.max_vertices %d is negative", c.Dump.MaxVertices)
	}
	return nil
}
