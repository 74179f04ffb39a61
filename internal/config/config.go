package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// ServerConfig configures a someip-server/sd-probe style binary.
type ServerConfig struct {
	ListenAddr   string `toml:"listen_addr"`
	DebugAddr    string `toml:"debug_addr"`
	LogLevel     string `toml:"log_level"`
	LogPretty    bool   `toml:"log_pretty"`

	ReadTimeoutSeconds int `toml:"read_timeout_seconds"`
	MaxMessagePayload  int `toml:"max_message_payload"`
	MaxDatagramSize    int `toml:"max_datagram_size"`

	TPMaxSegmentPayload        int `toml:"tp_max_segment_payload"`
	TPReassemblyTimeoutSeconds int `toml:"tp_reassembly_timeout_seconds"`
	TPMaxConcurrentReassembly  int `toml:"tp_max_concurrent_reassembly"`

	SDMulticastAddr string `toml:"sd_multicast_addr"`
	SDTTLSeconds    int    `toml:"sd_ttl_seconds"`
}

// ClientConfig configures a someip-client style binary.
type ClientConfig struct {
	TargetAddr  string `toml:"target_addr"`
	Transport   string `toml:"transport"` // "tcp" or "udp"
	ClientID    int    `toml:"client_id"`
	LogLevel    string `toml:"log_level"`
	LogPretty   bool   `toml:"log_pretty"`

	CallTimeoutSeconds int `toml:"call_timeout_seconds"`
}

// DefaultServerConfig returns the defaults named throughout §6 of the
// wire specification: no read timeout, a 16 MiB message
// ceiling, a 65507-byte datagram ceiling, a 1392-byte TP segment, a 5
// second reassembly timeout, room for 256 concurrent reassemblies, and
// the well-known SD multicast group.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:                 ":30490",
		DebugAddr:                  ":8080",
		LogLevel:                   "info",
		ReadTimeoutSeconds:         0,
		MaxMessagePayload:          16 * 1024 * 1024,
		MaxDatagramSize:            65507,
		TPMaxSegmentPayload:        1392,
		TPReassemblyTimeoutSeconds: 5,
		TPMaxConcurrentReassembly:  256,
		SDMulticastAddr:            "224.224.224.245:30490",
		SDTTLSeconds:               3,
	}
}

// DefaultClientConfig returns a 5 second call timeout over TCP.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Transport:          "tcp",
		LogLevel:           "info",
		CallTimeoutSeconds: 5,
	}
}

// LoadServerConfig reads and decodes a TOML server config at path,
// filling unset fields from DefaultServerConfig.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if err := loadToml(path, &cfg); err != nil {
		return ServerConfig{}, err
	}
	if err := ValidateServerConfig(cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// LoadClientConfig reads and decodes a TOML client config at path,
// filling unset fields from DefaultClientConfig.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if err := loadToml(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if _, err := toml.Decode(string(data), v); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

// ValidateServerConfig rejects a config with a nonsensical TP segment
// size or an empty listen address.
func ValidateServerConfig(cfg ServerConfig) error {
	if cfg.ListenAddr == "" {
		return fmt.Errorf("config: listen_addr must not be empty")
	}
	if cfg.TPMaxSegmentPayload <= 0 || cfg.TPMaxSegmentPayload%16 != 0 {
		return fmt.Errorf("config: tp_max_segment_payload %d must be a positive multiple of 16", cfg.TPMaxSegmentPayload)
	}
	if cfg.TPMaxConcurrentReassembly <= 0 {
		return fmt.Errorf("config: tp_max_concurrent_reassembly must be positive")
	}
	return nil
}

// ValidateClientConfig rejects a config with an empty target or an
// unrecognized transport.
func ValidateClientConfig(cfg ClientConfig) error {
	if cfg.TargetAddr == "" {
		return fmt.Errorf("config: target_addr must not be empty")
	}
	if cfg.Transport != "tcp" && cfg.Transport != "udp" {
		return fmt.Errorf("config: transport must be \"tcp\" or \"udp\", got %q", cfg.Transport)
	}
	return nil
}

// ReadTimeout returns the configured read timeout as a time.Duration.
func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// TPReassemblyTimeout returns the configured reassembly timeout as a
// time.Duration.
func (c ServerConfig) TPReassemblyTimeout() time.Duration {
	return time.Duration(c.TPReassemblyTimeoutSeconds) * time.Second
}

// CallTimeout returns the configured call timeout as a time.Duration.
func (c ClientConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}
