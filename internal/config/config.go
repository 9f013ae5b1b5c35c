// Package config loads punchalert settings from a YAML file, .env and PUNCHALERT_* variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file name without extension.
const FileName = "punchalert"

// EnvPrefix prefixes environment overrides, e.g. PUNCHALERT_CAMERA_DEVICE.
const EnvPrefix = "PUNCHALERT"

type Camera struct {
	Device int    `mapstructure:"device" yaml:"device"`
	File   string `mapstructure:"file" yaml:"file"`
	Width  int    `mapstructure:"width" yaml:"width"`
	Height int    `mapstructure:"height" yaml:"height"`
	FPS    int    `mapstructure:"fps" yaml:"fps"`
}

type Pose struct {
	Script          string  `mapstructure:"script" yaml:"script"`
	Python          string  `mapstructure:"python" yaml:"python"`
	ModelComplexity int     `mapstructure:"model_complexity" yaml:"model_complexity"`
	MinConfidence   float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
	MinTracking     float64 `mapstructure:"min_tracking_confidence" yaml:"min_tracking_confidence"`
}

type Window struct {
	Size   int `mapstructure:"size" yaml:"size"`
	Warmup int `mapstructure:"warmup" yaml:"warmup"`
}

type Classifier struct {
	Backend         string        `mapstructure:"backend" yaml:"backend"`
	Model           string        `mapstructure:"model" yaml:"model"`
	Script          string        `mapstructure:"script" yaml:"script"`
	Threshold       float64       `mapstructure:"threshold" yaml:"threshold"`
	OrderedVerdicts bool          `mapstructure:"ordered_verdicts" yaml:"ordered_verdicts"`
	DrainTimeout    time.Duration `mapstructure:"drain_timeout" yaml:"drain_timeout"`
}

type Alert struct {
	Sound       string        `mapstructure:"sound" yaml:"sound"`
	SampleRate  int           `mapstructure:"sample_rate" yaml:"sample_rate"`
	HooksDir    string        `mapstructure:"hooks_dir" yaml:"hooks_dir"`
	HookTimeout time.Duration `mapstructure:"hook_timeout" yaml:"hook_timeout"`
}

type Display struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Title   string `mapstructure:"title" yaml:"title"`
	QuitKey string `mapstructure:"quit_key" yaml:"quit_key"`
}

type Server struct {
	Addr      string `mapstructure:"addr" yaml:"addr"`
	StaticDir string `mapstructure:"static_dir" yaml:"static_dir"`
}

type Store struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type Log struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type Idle struct {
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MotionThreshold float64       `mapstructure:"motion_threshold" yaml:"motion_threshold"`
}

// Config is the full application configuration.
type Config struct {
	Camera     Camera     `mapstructure:"camera" yaml:"camera"`
	Pose       Pose       `mapstructure:"pose" yaml:"pose"`
	Window     Window     `mapstructure:"window" yaml:"window"`
	Classifier Classifier `mapstructure:"classifier" yaml:"classifier"`
	Alert      Alert      `mapstructure:"alert" yaml:"alert"`
	Display    Display    `mapstructure:"display" yaml:"display"`
	Server     Server     `mapstructure:"server" yaml:"server"`
	Store      Store      `mapstructure:"store" yaml:"store"`
	Log        Log        `mapstructure:"log" yaml:"log"`
	Idle       Idle       `mapstructure:"idle" yaml:"idle"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		Camera: Camera{Device: 0, Width: 640, Height: 480, FPS: 30},
		Pose: Pose{
			ModelComplexity: 1,
			MinConfidence:   0.5,
			MinTracking:     0.5,
		},
		Window: Window{Size: 20, Warmup: 60},
		Classifier: Classifier{
			Model:        "models/punch.onnx",
			Threshold:    0.5,
			DrainTimeout: 3 * time.Second,
		},
		Alert: Alert{
			Sound:       "sounds/alarm.wav",
			HookTimeout: 5 * time.Second,
		},
		Display: Display{Enabled: true, Title: "Pose Detection", QuitKey: "q"},
		Server:  Server{Addr: ":8080"},
		Store:   Store{Path: defaultDataPath("punchalert.db")},
		Log:     Log{Level: "info", Format: "text"},
		Idle:    Idle{Timeout: 10 * time.Second, MotionThreshold: 1.0},
	}
}

// DataDir returns ~/.punchalert, or the working directory if the home directory is unknown.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".punchalert")
}

func defaultDataPath(name string) string {
	return filepath.Join(DataDir(), name)
}

// Load reads the configuration. A .env file in the working directory is loaded into the
// environment first. When path is empty the config file is searched for in the working
// directory and DataDir; a missing file is not an error.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(DataDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key of def with viper so env overrides apply to keys
// absent from the file.
func setDefaults(v *viper.Viper, def Config) {
	raw, _ := yaml.Marshal(def)
	var tree map[string]any
	_ = yaml.Unmarshal(raw, &tree)

	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, val := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if sub, ok := val.(map[string]any); ok {
				walk(key, sub)
				continue
			}
			v.SetDefault(key, val)
		}
	}
	walk("", tree)
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Window.Size < 1 {
		errs = append(errs, fmt.Errorf("window.size must be positive, got %d", c.Window.Size))
	}
	if c.Window.Warmup < 0 {
		errs = append(errs, fmt.Errorf("window.warmup must not be negative, got %d", c.Window.Warmup))
	}
	if c.Classifier.Threshold <= 0 || c.Classifier.Threshold > 1 {
		errs = append(errs, fmt.Errorf("classifier.threshold must be in (0, 1], got %g", c.Classifier.Threshold))
	}
	switch strings.ToLower(c.Classifier.Backend) {
	case "", "onnx", "service", "template":
	default:
		errs = append(errs, fmt.Errorf("classifier.backend must be onnx, service or template, got %q", c.Classifier.Backend))
	}
	if len([]rune(c.Display.QuitKey)) != 1 {
		errs = append(errs, fmt.Errorf("display.quit_key must be a single character, got %q", c.Display.QuitKey))
	}
	return errors.Join(errs...)
}

// QuitRune returns the quit key.
func (c Config) QuitRune() rune {
	return []rune(c.Display.QuitKey)[0]
}

// WriteDefault writes the default configuration to path. An existing file is only
// replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
