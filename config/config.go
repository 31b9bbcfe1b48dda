// Package config handles ledseq.toml sequencer configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/chazu/ledseq/pkg/image"
	"github.com/chazu/ledseq/pkg/sequencer"
)

// FileName is the name of the configuration file.
const FileName = "ledseq.toml"

// Config represents a ledseq.toml file.
type Config struct {
	Strip   Strip   `toml:"strip" json:"strip"`
	Program Program `toml:"program" json:"program"`
	Clock   Clock   `toml:"clock" json:"clock"`
	Server  Server  `toml:"server" json:"server"`
	Journal Journal `toml:"journal" json:"journal"`

	// Dir is the directory containing the ledseq.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// Strip describes the attached LED strip.
type Strip struct {
	NumLEDs     int    `toml:"num-leds" json:"num-leds"`
	PixelPolicy string `toml:"pixel-policy" json:"pixel-policy"`
}

// Program configures the program buffer and the preloaded program. Source
// and Image are mutually exclusive; with neither, the built-in demo program
// is preloaded.
type Program struct {
	Capacity        int    `toml:"capacity" json:"capacity"`
	MaxStepsPerTick int    `toml:"max-steps-per-tick" json:"max-steps-per-tick"`
	Source          string `toml:"source" json:"source"`
	Image           string `toml:"image" json:"image"`
}

// Clock configures the playback tick.
type Clock struct {
	Tick Duration `toml:"tick" json:"tick"`
}

// Server configures the command transport.
type Server struct {
	Listen string `toml:"listen" json:"listen"`
}

// Journal configures the command journal. An empty path disables it.
type Journal struct {
	Path string `toml:"path" json:"path"`
}

// Duration is a time.Duration written as a Go duration string.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string such as "50ms".
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText renders the duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no ledseq.toml exists.
func Default() *Config {
	return &Config{
		Strip: Strip{
			NumLEDs:     16,
			PixelPolicy: sequencer.PixelSkip.String(),
		},
		Program: Program{
			Capacity:        sequencer.DefaultCapacity,
			MaxStepsPerTick: sequencer.DefaultMaxStepsPerTick,
		},
		Clock:  Clock{Tick: Duration{100 * time.Millisecond}},
		Server: Server{Listen: "localhost:4568"},
	}
}

// Load parses a ledseq.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a ledseq.toml file, then loads
// and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Write stores c as ledseq.toml in dir.
func Write(dir string, c *Config) error {
	f, err := os.Create(filepath.Join(dir, FileName))
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}

// ImagePath returns the configured image path resolved against Dir.
func (c *Config) ImagePath() string {
	if c.Program.Image == "" || filepath.IsAbs(c.Program.Image) {
		return c.Program.Image
	}
	return filepath.Join(c.Dir, c.Program.Image)
}

// JournalPath returns the configured journal path resolved against Dir.
func (c *Config) JournalPath() string {
	if c.Journal.Path == "" || filepath.IsAbs(c.Journal.Path) {
		return c.Journal.Path
	}
	return filepath.Join(c.Dir, c.Journal.Path)
}

// PixelPolicy returns the parsed pixel policy.
func (c *Config) PixelPolicy() sequencer.PixelPolicy {
	p, _ := sequencer.ParsePixelPolicy(c.Strip.PixelPolicy)
	return p
}

// PreloadProgram returns the program to preload: the assembled source, the
// image file contents, or the built-in demo program.
func (c *Config) PreloadProgram() ([]byte, error) {
	switch {
	case c.Program.Source != "":
		code, err := sequencer.Assemble(c.Program.Source)
		if err != nil {
			return nil, fmt.Errorf("program source: %w", err)
		}
		return code, nil
	case c.Program.Image != "":
		img, err := image.ReadFile(c.ImagePath())
		if err != nil {
			return nil, err
		}
		return img.Code, nil
	default:
		return sequencer.DefaultProgram, nil
	}
}

// SequencerOptions translates the configuration into sequencer options.
func (c *Config) SequencerOptions() ([]sequencer.Option, error) {
	code, err := c.PreloadProgram()
	if err != nil {
		return nil, err
	}
	return []sequencer.Option{
		sequencer.WithCapacity(c.Program.Capacity),
		sequencer.WithMaxStepsPerTick(c.Program.MaxStepsPerTick),
		sequencer.WithPixelPolicy(c.PixelPolicy()),
		sequencer.WithProgram(code),
	}, nil
}
