package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"kasa-client/device"
	"kasa-client/kasa"
)

type Plug struct {
	Host    string        `yaml:"host" envconfig:"KASA_HOST"`
	Port    int           `yaml:"port" envconfig:"KASA_PORT"`
	Timeout time.Duration `yaml:"timeout" envconfig:"KASA_TIMEOUT"`

	Scan struct {
		Attempts   int           `yaml:"attempts" envconfig:"KASA_SCAN_ATTEMPTS"`
		MinBackoff time.Duration `yaml:"min_backoff" envconfig:"KASA_SCAN_MIN_BACKOFF"`
		MaxBackoff time.Duration `yaml:"max_backoff" envconfig:"KASA_SCAN_MAX_BACKOFF"`
		Timeout    uint          `yaml:"timeout" envconfig:"KASA_SCAN_TIMEOUT"`
	} `yaml:"scan"`
}

// Address is host:port of the plug addressed by the CLI.
func (p Plug) Address() string {
	if p.Host == "" {
		return ""
	}
	return kasa.Address{Host: p.Host, Port: p.Port}.String()
}

func (p Plug) Options() []kasa.Option {
	return []kasa.Option{
		kasa.WithTimeout(p.Timeout),
		kasa.WithScanPolicy(kasa.ScanPolicy{
			Attempts:   p.Scan.Attempts,
			MinBackoff: p.Scan.MinBackoff,
			MaxBackoff: p.Scan.MaxBackoff,
			Timeout:    p.Scan.Timeout,
		}),
	}
}

type MQTT struct {
	Host     string `yaml:"host" envconfig:"MQTT_HOST"`
	Port     string `yaml:"port" envconfig:"MQTT_PORT"`
	Username string `yaml:"username" envconfig:"MQTT_USERNAME"`
	Password string `yaml:"password" envconfig:"MQTT_PASSWORD"`
	ClientID string `yaml:"client_id" envconfig:"MQTT_CLIENT_ID"`
	Prefix   string `yaml:"prefix" envconfig:"MQTT_PREFIX"`
}

func (m MQTT) Enabled() bool {
	return m.Host != ""
}

type Config struct {
	Kasa Plug `yaml:"kasa"`

	// Outlets maps an internal name (room/name) to a plug address
	Outlets map[device.InternalName]string `yaml:"outlets"`

	MQTT MQTT `yaml:"mqtt"`

	Ntfy struct {
		Topic string `yaml:"topic" envconfig:"NTFY_TOPIC"`
	} `yaml:"ntfy"`

	HTTP struct {
		Listen string `yaml:"listen" envconfig:"HTTP_LISTEN"`
	} `yaml:"http"`

	Poll struct {
		Interval time.Duration `yaml:"interval" envconfig:"POLL_INTERVAL"`
	} `yaml:"poll"`
}

func defaults() Config {
	var cfg Config
	cfg.Kasa.Port = 9999
	cfg.Kasa.Timeout = 5 * time.Second
	cfg.Kasa.Scan.Attempts = 8
	cfg.Kasa.Scan.MinBackoff = 500 * time.Millisecond
	cfg.Kasa.Scan.MaxBackoff = 4 * time.Second
	cfg.Kasa.Scan.Timeout = 3
	cfg.MQTT.Port = "1883"
	cfg.MQTT.ClientID = "kasa-client"
	cfg.MQTT.Prefix = "kasa"
	cfg.HTTP.Listen = ":8090"
	cfg.Poll.Interval = 30 * time.Second

	return cfg
}

// Load reads the optional yaml file at path and then applies the
// environment on top. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := defaults()

	// First load the config from the yaml file
	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to open config file: %w", err)
		default:
			defer f.Close()

			decoder := yaml.NewDecoder(f)
			if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
				return cfg, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Then load values from environment
	// This can be used to either override the config or pass in secrets
	_ = godotenv.Load()
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse environment config: %w", err)
	}

	if cfg.Poll.Interval <= 0 {
		return cfg, fmt.Errorf("poll interval must be positive, got %s", cfg.Poll.Interval)
	}

	return cfg, nil
}
