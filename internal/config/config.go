package config

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration, assembled from defaults, an
// optional config file, ACOUWALK_* environment variables and flags.
type Config struct {
	Corpus CorpusConfig `mapstructure:"corpus"`
	Grain  GrainConfig  `mapstructure:"grain"`
	Output OutputConfig `mapstructure:"output"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
}

type CorpusConfig struct {
	Dirs        []string `mapstructure:"dirs"`
	ExcludeFile string   `mapstructure:"exclude_file"`
	LenCapMs    float64  `mapstructure:"len_cap_ms"` // 0 disables the cap
	Workers     int      `mapstructure:"workers"`
}

type GrainConfig struct {
	Engines      int     `mapstructure:"engines"`
	DurationMs   int     `mapstructure:"duration_ms"`
	MinFraction  float64 `mapstructure:"min_fraction"`
	MaxTTL       int     `mapstructure:"max_ttl"`
	TukeyAlpha   float64 `mapstructure:"tukey_alpha"`
	ChunkSamples int     `mapstructure:"chunk_samples"`
	Converter    string  `mapstructure:"converter"`
	Seed         uint64  `mapstructure:"seed"` // 0 seeds from the clock
}

type OutputConfig struct {
	Device          string `mapstructure:"device"`
	SampleRate      int    `mapstructure:"sample_rate"`
	FramesPerBuffer int    `mapstructure:"frames_per_buffer"`
	NonBlocking     bool   `mapstructure:"nonblocking"`
}

type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"` // empty disables the monitor
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

var ErrInvalid = errors.New("invalid configuration")

func DefaultConfig() Config {
	return Config{
		Corpus: CorpusConfig{
			Workers: 10,
		},
		Grain: GrainConfig{
			Engines:      5,
			DurationMs:   1000,
			MinFraction:  0.6,
			MaxTTL:       10,
			TukeyAlpha:   0.5,
			ChunkSamples: 1024 * 1024,
			Converter:    "samplerate",
		},
		Output: OutputConfig{
			Device:          "portaudio",
			SampleRate:      44100,
			FramesPerBuffer: 1024,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.StringP("corpus-exclude-file", "e", defaults.Corpus.ExcludeFile, "File listing WAV paths to skip, one per line")
	fs.Float64P("corpus-len-cap-ms", "c", defaults.Corpus.LenCapMs, "Cap on a file's selection weight in milliseconds (0 = no cap)")
	fs.Int("corpus-workers", defaults.Corpus.Workers, "Number of concurrent WAV surveyors")
	fs.Int("grain-engines", defaults.Grain.Engines, "Number of simultaneous grain streams")
	fs.Int("grain-duration-ms", defaults.Grain.DurationMs, "Maximum grain duration in milliseconds")
	fs.Float64("grain-min-fraction", defaults.Grain.MinFraction, "Shortest grain as a fraction of the maximum")
	fs.Int("grain-max-ttl", defaults.Grain.MaxTTL, "Exclusive upper bound on grains cut per picked file")
	fs.Float64("grain-tukey-alpha", defaults.Grain.TukeyAlpha, "Taper fraction of the Tukey envelope")
	fs.Int("grain-chunk-samples", defaults.Grain.ChunkSamples, "Interleaved samples per chunk sent to the mixer")
	fs.String("grain-converter", defaults.Grain.Converter, "Sample-rate converter: samplerate or soxr")
	fs.Uint64("grain-seed", defaults.Grain.Seed, "Random seed (0 = time based)")
	fs.String("output-device", defaults.Output.Device, "Output device: portaudio, beep or none")
	fs.Int("output-sample-rate", defaults.Output.SampleRate, "Output sample rate in Hz")
	fs.Int("output-frames-per-buffer", defaults.Output.FramesPerBuffer, "Frames requested per device callback")
	fs.Bool("output-nonblocking", defaults.Output.NonBlocking, "Play silence instead of waiting when the mixer falls behind")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address for the network monitor (empty = off)")
	fs.String("log-level", defaults.Log.Level, "Log level: debug, info, warn, error")
	fs.String("log-format", defaults.Log.Format, "Log format: text or json")

	fs.SetNormalizeFunc(normalizeFlagName)
}

// normalizeFlagName maps the short long-form flags (--exclude, --len-cap,
// --listen) onto their full configuration keys.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	switch name {
	case "exclude":
		name = "corpus-exclude-file"
	case "len-cap":
		name = "corpus-len-cap-ms"
	case "listen":
		name = "server-listen-addr"
	}
	return pflag.NormalizedName(name)
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("ACOUWALK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("acouwalk")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("corpus.dirs", c.Corpus.Dirs)
	v.SetDefault("corpus.exclude_file", c.Corpus.ExcludeFile)
	v.SetDefault("corpus.len_cap_ms", c.Corpus.LenCapMs)
	v.SetDefault("corpus.workers", c.Corpus.Workers)
	v.SetDefault("grain.engines", c.Grain.Engines)
	v.SetDefault("grain.duration_ms", c.Grain.DurationMs)
	v.SetDefault("grain.min_fraction", c.Grain.MinFraction)
	v.SetDefault("grain.max_ttl", c.Grain.MaxTTL)
	v.SetDefault("grain.tukey_alpha", c.Grain.TukeyAlpha)
	v.SetDefault("grain.chunk_samples", c.Grain.ChunkSamples)
	v.SetDefault("grain.converter", c.Grain.Converter)
	v.SetDefault("grain.seed", c.Grain.Seed)
	v.SetDefault("output.device", c.Output.Device)
	v.SetDefault("output.sample_rate", c.Output.SampleRate)
	v.SetDefault("output.frames_per_buffer", c.Output.FramesPerBuffer)
	v.SetDefault("output.nonblocking", c.Output.NonBlocking)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.format", c.Log.Format)
}

// flagKeys maps each flag onto the configuration key it overrides.
var flagKeys = map[string]string{
	"corpus-exclude-file":      "corpus.exclude_file",
	"corpus-len-cap-ms":        "corpus.len_cap_ms",
	"corpus-workers":           "corpus.workers",
	"grain-engines":            "grain.engines",
	"grain-duration-ms":        "grain.duration_ms",
	"grain-min-fraction":       "grain.min_fraction",
	"grain-max-ttl":            "grain.max_ttl",
	"grain-tukey-alpha":        "grain.tukey_alpha",
	"grain-chunk-samples":      "grain.chunk_samples",
	"grain-converter":          "grain.converter",
	"grain-seed":               "grain.seed",
	"output-device":            "output.device",
	"output-sample-rate":       "output.sample_rate",
	"output-frames-per-buffer": "output.frames_per_buffer",
	"output-nonblocking":       "output.nonblocking",
	"server-listen-addr":       "server.listen_addr",
	"log-level":                "log.level",
	"log-format":               "log.format",
}

// bindFlags binds every registered flag present in fs to its nested key, so
// a flag only wins over the config file when it was set explicitly.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func (c *Config) expandPaths() error {
	for i, dir := range c.Corpus.Dirs {
		expanded, err := homedir.Expand(dir)
		if err != nil {
			return fmt.Errorf("expand %q: %w", dir, err)
		}
		c.Corpus.Dirs[i] = expanded
	}
	if c.Corpus.ExcludeFile != "" {
		expanded, err := homedir.Expand(c.Corpus.ExcludeFile)
		if err != nil {
			return fmt.Errorf("expand %q: %w", c.Corpus.ExcludeFile, err)
		}
		c.Corpus.ExcludeFile = expanded
	}
	return nil
}

// Validate reports the first setting the pipeline cannot run with.
func (c Config) Validate() error {
	switch {
	case len(c.Corpus.Dirs) == 0:
		return fmt.Errorf("%w: no WAV directories given", ErrInvalid)
	case c.Corpus.Workers < 1:
		return fmt.Errorf("%w: corpus.workers must be at least 1", ErrInvalid)
	case c.Corpus.LenCapMs < 0:
		return fmt.Errorf("%w: corpus.len_cap_ms must not be negative", ErrInvalid)
	case c.Grain.Engines < 1:
		return fmt.Errorf("%w: grain.engines must be at least 1", ErrInvalid)
	case c.Grain.DurationMs < 1:
		return fmt.Errorf("%w: grain.duration_ms must be positive", ErrInvalid)
	case c.Grain.MinFraction <= 0 || c.Grain.MinFraction > 1:
		return fmt.Errorf("%w: grain.min_fraction must be in (0, 1]", ErrInvalid)
	case c.Grain.MaxTTL < 2:
		return fmt.Errorf("%w: grain.max_ttl must be at least 2", ErrInvalid)
	case c.Grain.TukeyAlpha < 0 || c.Grain.TukeyAlpha > 1:
		return fmt.Errorf("%w: grain.tukey_alpha must be in [0, 1]", ErrInvalid)
	case c.Grain.ChunkSamples < 2 || c.Grain.ChunkSamples%2 != 0:
		return fmt.Errorf("%w: grain.chunk_samples must be a positive even number", ErrInvalid)
	case c.Output.SampleRate < 1:
		return fmt.Errorf("%w: output.sample_rate must be positive", ErrInvalid)
	case c.Output.FramesPerBuffer < 1:
		return fmt.Errorf("%w: output.frames_per_buffer must be positive", ErrInvalid)
	}
	return nil
}

// LoadExclusions reads one path per line. Blank lines are ignored and
// surrounding whitespace is trimmed. An empty path yields an empty list.
func LoadExclusions(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open exclusion file: %w", err)
	}
	defer f.Close()

	var paths []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		paths = append(paths, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read exclusion file: %w", err)
	}
	return paths, nil
}

// ParseLogLevel maps a level name to a slog level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
