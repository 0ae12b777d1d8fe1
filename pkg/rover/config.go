package rover

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
)

const DefaultConfigFile = "rover.json"

// ErrMalformedConfiguration is returned when operator supplied settings
// cannot be used to start streaming.
var ErrMalformedConfiguration = errors.New("malformed configuration")

// Defaults used when the config leaves a field empty.
const (
	DefaultInterval    = 50 * time.Millisecond
	DefaultSendTimeout = 200 * time.Millisecond
	DefaultBaud        = 115200
	DefaultSinkName    = "rovercam"
)

// Link kinds.
const (
	LinkUDP    = "udp"
	LinkSerial = "serial"
)

// Config holds the rover client configuration
type Config struct {
	Host          string         `json:"host"`
	Port          int            `json:"port"`
	BindPort      int            `json:"bind_port,omitempty"`
	Speed         int            `json:"speed"`
	IntervalMs    int            `json:"interval_ms,omitempty"`
	SendTimeoutMs int            `json:"send_timeout_ms,omitempty"`
	Link          string         `json:"link,omitempty"`
	Serial        SerialConfig   `json:"serial,omitzero"`
	Video         VideoConfig    `json:"video,omitzero"`
	Joystick      JoystickConfig `json:"joystick,omitzero"`
	Record        string         `json:"record,omitempty"`
}

// SerialConfig holds settings for a tethered serial link
type SerialConfig struct {
	Device string `json:"device"`
	Baud   int    `json:"baud,omitempty"`
}

// VideoConfig holds the camera pipeline settings
type VideoConfig struct {
	Launch   string `json:"launch,omitempty"`
	SinkName string `json:"sink_name,omitempty"`
}

// JoystickConfig selects a gamepad as stick source
type JoystickConfig struct {
	Enabled   bool `json:"enabled"`
	Index     int  `json:"index"`
	LeftAxis  int  `json:"left_axis"`
	RightAxis int  `json:"right_axis"`
}

// DefaultConfig returns a config pointing at the rover's factory address.
func DefaultConfig() *Config {
	return &Config{
		Host:  "192.168.1.239",
		Port:  5005,
		Speed: 1,
		Link:  LinkUDP,
		Video: VideoConfig{
			Launch:   DefaultLaunch("rtsp://192.168.1.239:8556/right"),
			SinkName: DefaultSinkName,
		},
		Joystick: JoystickConfig{LeftAxis: 1, RightAxis: 3},
	}
}

// DefaultLaunch returns the camera pipeline description for an RTSP URL.
func DefaultLaunch(url string) string {
	return "rtspsrc location=" + url + " latency=150 drop-on-latency=true" +
		" ! application/x-rtp,encoding-name=H264 ! decodebin ! videoconvert" +
		" ! video/x-raw,format=RGBA ! appsink name=" + DefaultSinkName + " emit-signals=true sync=false"
}

// Validate checks the fields needed to open a session.
func (c *Config) Validate() error {
	if _, err := ParseDestination(c.Host, strconv.Itoa(c.Port)); err != nil {
		return err
	}
	if c.BindPort < 0 || c.BindPort > 65535 {
		return fmt.Errorf("%w: bind port %d out of range", ErrMalformedConfiguration, c.BindPort)
	}
	if err := ValidateSpeed(c.Speed); err != nil {
		return err
	}
	switch c.Link {
	case "", LinkUDP:
	case LinkSerial:
		if c.Serial.Device == "" {
			return fmt.Errorf("%w: serial link without device", ErrMalformedConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown link %q", ErrMalformedConfiguration, c.Link)
	}
	return nil
}

// Interval returns the control loop period.
func (c *Config) Interval() time.Duration {
	if c.IntervalMs <= 0 {
		return DefaultInterval
	}
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// SendTimeout returns the per-frame write deadline.
func (c *Config) SendTimeout() time.Duration {
	if c.SendTimeoutMs <= 0 {
		return DefaultSendTimeout
	}
	return time.Duration(c.SendTimeoutMs) * time.Millisecond
}

// LocalPort returns the port the session binds. The rover replies to the
// port it is commanded on, so by default it is the destination port.
func (c *Config) LocalPort() int {
	if c.BindPort != 0 {
		return c.BindPort
	}
	return c.Port
}

// Destination is a parsed rover address.
type Destination struct {
	Host string
	Port int
}

// String returns host:port.
func (d Destination) String() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// ParseDestination validates operator entered host and port text.
func ParseDestination(host, port string) (Destination, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return Destination{}, fmt.Errorf("%w: empty host", ErrMalformedConfiguration)
	}
	p, err := strconv.Atoi(strings.TrimSpace(port))
	if err != nil {
		return Destination{}, fmt.Errorf("%w: port %q is not a number", ErrMalformedConfiguration, port)
	}
	if p < 1 || p > 65535 {
		return Destination{}, fmt.Errorf("%w: port %d out of range", ErrMalformedConfiguration, p)
	}
	return Destination{Host: host, Port: p}, nil
}

// ValidateSpeed checks a speed multiplier.
func ValidateSpeed(speed int) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("%w: speed %d not in %d-%d", ErrMalformedConfiguration, speed, MinSpeed, MaxSpeed)
	}
	return nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file. Comments and
// trailing commas are accepted.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
