// Package config holds the settings for the triangle presenter. Settings come from
// built-in defaults, an optional TOML file and command-line flags, in that order.
package config

import (
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
)

// DefaultFile is read when no --config flag is given. It is allowed to be absent.
const DefaultFile = "config.toml"

type Window struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

type Shaders struct {
	Dir      string `toml:"dir"`
	Vertex   string `toml:"vertex"`
	Fragment string `toml:"fragment"`
}

type Config struct {
	Window  Window  `toml:"window"`
	Shaders Shaders `toml:"shaders"`

	Validation    bool       `toml:"validation"`
	PipelineCache string     `toml:"pipeline_cache"`
	ClearColor    [4]float32 `toml:"clear_color"`
	StatsInterval Duration   `toml:"stats_interval"`
	LogLevel      string     `toml:"log_level"`
}

// Duration is a time.Duration written as a string such as "5s" in TOML.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "parse duration %q", text)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func Default() Config {
	return Config{
		Window: Window{
			Title:  "Vulkan",
			Width:  800,
			Height: 600,
		},
		Shaders: Shaders{
			Dir:      "shaders",
			Vertex:   "vert.spv",
			Fragment: "frag.spv",
		},
		Validation:    true,
		PipelineCache: "pipeline_cache_data.bin",
		ClearColor:    [4]float32{0, 0, 0, 1},
		StatsInterval: Duration(5 * time.Second),
		LogLevel:      "info",
	}
}

// Load builds a Config from defaults, the config file and the given command-line
// arguments (without the program name).
func Load(args []string) (Config, error) {
	cfg := Default()

	flags := pflag.NewFlagSet("hellotriangle", pflag.ContinueOnError)
	configFile := flags.String("config", DefaultFile, "path to a TOML configuration file")
	overrides := bindFlags(flags)

	err := flags.Parse(args)
	if err != nil {
		return cfg, errors.Wrap(err, "parse flags")
	}

	err = cfg.readFile(*configFile, flags.Changed("config"))
	if err != nil {
		return cfg, err
	}

	overrides.apply(flags, &cfg)

	return cfg, cfg.Validate()
}

func (c *Config) readFile(name string, explicit bool) error {
	data, err := os.ReadFile(name)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return nil
	} else if err != nil {
		return errors.Wrapf(err, "read config %s", name)
	}

	err = toml.Unmarshal(data, c)
	if err != nil {
		return errors.Wrapf(err, "decode config %s", name)
	}

	return nil
}

type flagValues struct {
	width, height  int
	title          string
	validation     bool
	shaderDir      string
	vertexShader   string
	fragmentShader string
	pipelineCache  string
	logLevel       string
	statsInterval  time.Duration
}

func bindFlags(flags *pflag.FlagSet) *flagValues {
	def := Default()
	v := &flagValues{}
	flags.IntVar(&v.width, "width", def.Window.Width, "initial window width")
	flags.IntVar(&v.height, "height", def.Window.Height, "initial window height")
	flags.StringVar(&v.title, "title", def.Window.Title, "window title")
	flags.BoolVar(&v.validation, "validation", def.Validation, "enable the Khronos validation layer")
	flags.StringVar(&v.shaderDir, "shader-dir", def.Shaders.Dir, "directory holding compiled SPIR-V")
	flags.StringVar(&v.vertexShader, "vertex-shader", def.Shaders.Vertex, "vertex shader file name")
	flags.StringVar(&v.fragmentShader, "fragment-shader", def.Shaders.Fragment, "fragment shader file name")
	flags.StringVar(&v.pipelineCache, "pipeline-cache", def.PipelineCache, "pipeline cache file, empty to disable")
	flags.StringVar(&v.logLevel, "log-level", def.LogLevel, "debug, info, warn or error")
	flags.DurationVar(&v.statsInterval, "stats-interval", time.Duration(def.StatsInterval), "frame statistics interval, 0 to disable")
	return v
}

// apply copies only the flags the user actually set, so file values survive.
func (v *flagValues) apply(flags *pflag.FlagSet, cfg *Config) {
	if flags.Changed("width") {
		cfg.Window.Width = v.width
	}
	if flags.Changed("height") {
		cfg.Window.Height = v.height
	}
	if flags.Changed("title") {
		cfg.Window.Title = v.title
	}
	if flags.Changed("validation") {
		cfg.Validation = v.validation
	}
	if flags.Changed("shader-dir") {
		cfg.Shaders.Dir = v.shaderDir
	}
	if flags.Changed("vertex-shader") {
		cfg.Shaders.Vertex = v.vertexShader
	}
	if flags.Changed("fragment-shader") {
		cfg.Shaders.Fragment = v.fragmentShader
	}
	if flags.Changed("pipeline-cache") {
		cfg.PipelineCache = v.pipelineCache
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = v.logLevel
	}
	if flags.Changed("stats-interval") {
		cfg.StatsInterval = Duration(v.statsInterval)
	}
}

func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Newf("config: window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Shaders.Vertex == "" || c.Shaders.Fragment == "" {
		return errors.New("config: vertex and fragment shader names are required")
	}
	if c.StatsInterval < 0 {
		return errors.Newf("config: stats interval must not be negative, got %s", time.Duration(c.StatsInterval))
	}
	_, err := c.Level()
	return err
}

func (c Config) Level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}

	return slog.LevelInfo, errors.Newf("config: unknown log level %q", c.LogLevel)
}

// Clear returns the clear colour with every channel clamped to [0,1].
func (c Config) Clear() mgl32.Vec4 {
	var color mgl32.Vec4
	for i, channel := range c.ClearColor {
		color[i] = mgl32.Clamp(channel, 0, 1)
	}
	return color
}

// ShaderSource returns the shader directory as a file system along with the names of the
// two blobs inside it.
func (c Config) ShaderSource() (fsys fs.FS, vertex, fragment string) {
	return os.DirFS(c.Shaders.Dir), c.Shaders.Vertex, c.Shaders.Fragment
}
