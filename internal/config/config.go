// Package config holds the daemon configuration: defaults, an optional YAML
// file with environment expansion, and validation.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/dcf77-clock/internal/gpio"
)

// Validator is implemented by configs that can check themselves.
type Validator interface {
	Validate() error
}

// Load reads filename, expands ${VAR} references from the environment and
// decodes it over target. Fields missing from the file keep their value.
// The result is validated when target implements Validator.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", filename, err)
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), target); err != nil {
		return fmt.Errorf("parse config file %s: %w", filename, err)
	}

	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}

// Config is the complete daemon configuration.
type Config struct {
	GPIO GPIOConfig `yaml:"gpio"`
	MQTT MQTTConfig `yaml:"mqtt"`
	HTTP HTTPConfig `yaml:"http"`
	MDNS MDNSConfig `yaml:"mdns"`
}

// Validate validates every section.
func (c *Config) Validate() error {
	if err := c.GPIO.Validate(); err != nil {
		return fmt.Errorf("gpio: %w", err)
	}
	if err := c.MQTT.Validate(); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	return nil
}

// GPIOConfig selects the receiver input and the optional pulse LED.
type GPIOConfig struct {
	Chip   string `yaml:"chip"`
	Pin    int    `yaml:"pin"`
	LEDPin int    `yaml:"led_pin"` // -1 disables the LED
	Invert bool   `yaml:"invert"`
	// Poll is the pause between line reads; 0 spins.
	Poll time.Duration `yaml:"poll"`
}

// Validate validates the GPIO configuration.
func (c *GPIOConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Chip, validation.Required),
		validation.Field(&c.Pin, validation.Min(0), validation.Max(63)),
		validation.Field(&c.LEDPin, validation.Min(-1), validation.Max(63)),
		validation.Field(&c.Poll, validation.Min(time.Duration(0)), validation.Max(10*time.Millisecond)),
	); err != nil {
		return err
	}
	if c.LEDPin == c.Pin {
		return errors.New("led_pin must differ from pin")
	}
	return nil
}

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Broker string `yaml:"broker"`
	// Heartbeat is the interval between HEARTBEAT events; 0 disables them.
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// Validate validates the MQTT configuration.
func (c *MQTTConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Broker, validation.Required, validation.By(brokerURL)),
		validation.Field(&c.Heartbeat, validation.Min(time.Duration(0))),
	)
}

// HTTPConfig configures the status server. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.By(listenAddr)),
	)
}

// Port returns the numeric port of Addr, or 0 if it has none.
func (c *HTTPConfig) Port() int {
	_, p, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return 0
	}
	return port
}

// MDNSConfig configures service advertisement. An empty Instance disables it.
type MDNSConfig struct {
	Instance string `yaml:"instance"`
}

// NewDefault returns the configuration used when no file or flags override it.
func NewDefault() *Config {
	return &Config{
		GPIO: GPIOConfig{
			Chip:   gpio.DefaultChip,
			Pin:    gpio.DefaultPinSignal,
			LEDPin: -1,
		},
		MQTT: MQTTConfig{
			Broker:    "tcp://192.168.1.200:1883",
			Heartbeat: 15 * time.Minute,
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
		MDNS: MDNSConfig{
			Instance: "dcf77-clock",
		},
	}
}

func brokerURL(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return errors.New("must be a URL")
	}
	switch u.Scheme {
	case "tcp", "ssl", "tls", "mqtt", "mqtts", "ws", "wss":
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("must include a host")
	}
	return nil
}

func listenAddr(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(s); err != nil {
		return errors.New("must be host:port or :port")
	}
	return nil
}
