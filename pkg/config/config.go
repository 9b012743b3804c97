package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
)

// DefaultTemplate .
const DefaultTemplate = `
image_dir = "."
image_suffix = ".img"
block_size = "4M"

pishrink_path = "pishrink.sh"
compress_format = "gzip"
compress_parallel = false

eject = true
state_file = "imager.state"

log_level = "info"
`

// Compression formats understood by pishrink.
const (
	FormatGzip = "gzip"
	FormatXZ   = "xz"
)

// Conf .
var Conf = newDefault()

// Config .
type Config struct {
	ImageDir    string `toml:"image_dir"`
	ImageSuffix string `toml:"image_suffix"`
	BlockSize   string `toml:"block_size"`

	PishrinkPath     string `toml:"pishrink_path"`
	CompressFormat   string `toml:"compress_format"`
	CompressParallel bool   `toml:"compress_parallel"`

	Eject     bool   `toml:"eject"`
	StateFile string `toml:"state_file"`

	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`
}

func newDefault() Config {
	var conf Config
	if err := Decode(DefaultTemplate, &conf); err != nil {
		panic(err)
	}
	return conf
}

// Default returns a fresh copy of the built-in configuration.
func Default() Config {
	return newDefault()
}

// Dump .
func (c *Config) Dump() (string, error) {
	return Encode(c)
}

// Load layers the given files over the current values, in order.
func (c *Config) Load(files []string) error {
	for _, path := range files {
		if err := DecodeFile(path, c); err != nil {
			return errors.Wrapf(err, "load config %s", path)
		}
	}
	return c.Check()
}

// Check .
func (c *Config) Check() error {
	if len(c.ImageSuffix) < 2 || !strings.HasPrefix(c.ImageSuffix, ".") {
		return errors.Newf("image_suffix must look like \".img\", got %q", c.ImageSuffix)
	}

	if _, err := humanize.ParseBytes(c.BlockSize); err != nil {
		return errors.Wrapf(err, "invalid block_size %q", c.BlockSize)
	}

	switch c.CompressFormat {
	case FormatGzip, FormatXZ:
	default:
		return errors.Newf("compress_format must be %q or %q, got %q", FormatGzip, FormatXZ, c.CompressFormat)
	}

	if len(c.PishrinkPath) < 1 {
		return errors.New("pishrink_path is empty")
	}

	return nil
}
