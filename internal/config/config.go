// Package config loads the walk-tracker daemon configuration from the
// environment and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sweeney/walk-tracker/internal/position"
)

// EnvPrefix is prepended to every environment variable, e.g. WALK_HTTP_ADDR.
const EnvPrefix = "WALK"

// Config is the daemon configuration.
type Config struct {
	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	MQTTBroker      string        `mapstructure:"MQTT_BROKER"`
	MQTTClientID    string        `mapstructure:"MQTT_CLIENT_ID"`
	MQTTUsername    string        `mapstructure:"MQTT_USERNAME"`
	MQTTPassword    string        `mapstructure:"MQTT_PASSWORD"`
	PositionTopic   string        `mapstructure:"POSITION_TOPIC"`
	EventTopic      string        `mapstructure:"EVENT_TOPIC"`
	PublishInterval time.Duration `mapstructure:"PUBLISH_INTERVAL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisPrefix   string `mapstructure:"REDIS_PREFIX"`

	ExportDir string `mapstructure:"EXPORT_DIR"`

	ButtonPin      int           `mapstructure:"BUTTON_PIN"`
	ButtonDebounce time.Duration `mapstructure:"BUTTON_DEBOUNCE"`
	ButtonPoll     time.Duration `mapstructure:"BUTTON_POLL"`

	MinDistanceM float64 `mapstructure:"MIN_DISTANCE_M"`
	Accuracy     string  `mapstructure:"ACCURACY"`

	ReplayFile     string        `mapstructure:"REPLAY_FILE"`
	ReplayInterval time.Duration `mapstructure:"REPLAY_INTERVAL"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("MQTT_BROKER", "tcp://localhost:1883")
	v.SetDefault("MQTT_CLIENT_ID", "walk-tracker")
	v.SetDefault("MQTT_USERNAME", "")
	v.SetDefault("MQTT_PASSWORD", "")
	v.SetDefault("POSITION_TOPIC", "owntracks/+/+")
	v.SetDefault("EVENT_TOPIC", "walk/tracker/events")
	v.SetDefault("PUBLISH_INTERVAL", "30s")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_PREFIX", "walk:")
	v.SetDefault("EXPORT_DIR", "")
	v.SetDefault("BUTTON_PIN", 0)
	v.SetDefault("BUTTON_DEBOUNCE", "50ms")
	v.SetDefault("BUTTON_POLL", "20ms")
	v.SetDefault("MIN_DISTANCE_M", 5.0)
	v.SetDefault("ACCURACY", "best")
	v.SetDefault("REPLAY_FILE", "")
	v.SetDefault("REPLAY_INTERVAL", "1s")
}

// Load reads the configuration. Environment variables override values from
// file, which override the defaults. An empty file skips the file.
func Load(file string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every setting and joins all problems into one error.
func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP_ADDR must not be empty"))
	}
	if c.PublishInterval < 0 {
		errs = append(errs, errors.New("PUBLISH_INTERVAL must not be negative"))
	}
	if c.ButtonPin < 0 {
		errs = append(errs, errors.New("BUTTON_PIN must not be negative"))
	}
	if c.ButtonPin > 0 && (c.ButtonDebounce < 0 || c.ButtonPoll <= 0) {
		errs = append(errs, errors.New("BUTTON_POLL must be positive and BUTTON_DEBOUNCE not negative"))
	}
	if c.MinDistanceM < 0 {
		errs = append(errs, errors.New("MIN_DISTANCE_M must not be negative"))
	}
	if _, err := position.ParseAccuracy(c.Accuracy); err != nil {
		errs = append(errs, err)
	}
	if c.ReplayFile != "" && c.ReplayInterval <= 0 {
		errs = append(errs, errors.New("REPLAY_INTERVAL must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// PositionAccuracy returns the parsed accuracy hint.
func (c Config) PositionAccuracy() position.Accuracy {
	a, _ := position.ParseAccuracy(c.Accuracy)
	return a
}

// UseRedis reports whether a Redis address is configured.
func (c Config) UseRedis() bool {
	return c.RedisAddr != ""
}
