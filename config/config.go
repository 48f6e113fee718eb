package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Tutortoise/wildsnap-service/detections"
	"gopkg.in/yaml.v3"
)

const (
	BackendONNX = "onnx"
	BackendHTTP = "http"
)

// Config contains the settings for the HTTP server, inference defaults and
// the two model slots.
type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Inference   InferenceConfig `yaml:"inference"`
	ONNXRuntime RuntimeConfig   `yaml:"onnxruntime"`
	Models      ModelsConfig    `yaml:"models"`
	Log         LogConfig       `yaml:"log"`
	Debug       bool            `yaml:"debug"` // log per-request processing timings
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxUploadMB     int64         `yaml:"maxUploadMB"` // limit for multipart and raw bodies
	CORSOrigin      string        `yaml:"corsOrigin"`
}

type InferenceConfig struct {
	Confidence    float64       `yaml:"confidence"` // default when a request omits it
	IoU           float64       `yaml:"iou"`
	Timeout       time.Duration `yaml:"timeout"` // per model invocation
	Workers       int           `yaml:"workers"` // batch fan-out limit
	AnimalClasses []string      `yaml:"animalClasses"`
}

type RuntimeConfig struct {
	Library string `yaml:"library"` // onnxruntime shared library file or directory
	Threads int    `yaml:"threads"`
}

type ModelsConfig struct {
	Primary ModelConfig `yaml:"primary"`
	Custom  ModelConfig `yaml:"custom"`
}

// ModelConfig describes one model slot. Backend onnx loads Path locally,
// backend http forwards to URL.
type ModelConfig struct {
	Name          string        `yaml:"name"`
	Description   string        `yaml:"description"`
	Backend       string        `yaml:"backend"`
	Path          string        `yaml:"path"`
	NamesFile     string        `yaml:"namesFile"`
	URL           string        `yaml:"url"`
	Timeout       time.Duration `yaml:"timeout"`
	PoolSize      int           `yaml:"poolSize"`
	InputSize     int           `yaml:"inputSize"`
	MaxDetections int           `yaml:"maxDetections"`
	Disabled      bool          `yaml:"disabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     60 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadMB:     10,
			CORSOrigin:      "*",
		},
		Inference: InferenceConfig{
			Confidence:    detections.DefaultConfidence,
			IoU:           detections.DefaultIoU,
			Timeout:       detections.DefaultTimeout,
			Workers:       detections.DefaultWorkers,
			AnimalClasses: append([]string(nil), detections.DefaultAnimalClasses...),
		},
		ONNXRuntime: RuntimeConfig{
			Library: "lib",
		},
		Models: ModelsConfig{
			Primary: ModelConfig{
				Name:        "yolov8n",
				Description: "YOLOv8 Nano - General object detection",
				Backend:     BackendONNX,
				Path:        "models/yolov8n.onnx",
			},
			Custom: ModelConfig{
				Name:        "best",
				Description: "Custom trained model",
				Backend:     BackendONNX,
				Path:        "models/best.onnx",
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate fills unset values with defaults and rejects settings the
// service cannot run with.
func (c *Config) Validate() error {
	def := DefaultConfig()
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = def.Server.MaxUploadMB
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if c.Inference.Timeout <= 0 {
		c.Inference.Timeout = def.Inference.Timeout
	}
	if c.Inference.Workers <= 0 {
		c.Inference.Workers = def.Inference.Workers
	}

	var errs []error
	defaults := detections.Params{Confidence: c.Inference.Confidence, IoU: c.Inference.IoU}
	if err := defaults.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("inference: %w", err))
	}
	if err := c.Models.Primary.validate("primary"); err != nil {
		errs = append(errs, err)
	}
	if err := c.Models.Custom.validate("custom"); err != nil {
		errs = append(errs, err)
	}
	if c.Models.Primary.Name != "" && strings.EqualFold(c.Models.Primary.Name, c.Models.Custom.Name) {
		errs = append(errs, fmt.Errorf("models: primary and custom share the name %q", c.Models.Primary.Name))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log: unknown format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func (m *ModelConfig) validate(slot string) error {
	if m.Name == "" {
		m.Name = slot
	}
	if m.Backend == "" {
		m.Backend = BackendONNX
	}
	if m.Disabled {
		return nil
	}
	switch m.Backend {
	case BackendONNX:
		if m.Path == "" {
			return fmt.Errorf("models.%s: path is required for the onnx backend", slot)
		}
	case BackendHTTP:
		if m.URL == "" {
			return fmt.Errorf("models.%s: url is required for the http backend", slot)
		}
	default:
		return fmt.Errorf("models.%s: unknown backend %q", slot, m.Backend)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// ApplyEnv overrides file settings with environment variables.
func (c *Config) ApplyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	c.Server.Addr = getEnv("ADDR", c.Server.Addr)
	if debug := os.Getenv("DEBUG"); debug != "" {
		c.Debug = debug == "true"
	}
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.ONNXRuntime.Library = getEnv("ONNXRUNTIME_LIB", c.ONNXRuntime.Library)
	c.Models.Primary.Path = getEnv("PRIMARY_MODEL_PATH", c.Models.Primary.Path)
	c.Models.Custom.Path = getEnv("CUSTOM_MODEL_PATH", c.Models.Custom.Path)
	if url := os.Getenv("CUSTOM_MODEL_URL"); url != "" {
		c.Models.Custom.URL = url
		c.Models.Custom.Backend = BackendHTTP
	}
	if classes := os.Getenv("ANIMAL_CLASSES"); classes != "" {
		c.Inference.AnimalClasses = splitList(classes)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load reads the YAML configuration at path, applies environment
// overrides and validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("config read error: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config parse error: %w", err)
			}
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
