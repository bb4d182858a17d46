// Package config loads the YAML configuration shared by the rendezvousd
// and mirrorpeer entrypoints, in the nested-struct-plus-validate() style
// nishisan-dev-n-backup/internal/config/server.go uses.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigInvalid is returned by validate when a required field is
// missing or a value is out of range.
var ErrConfigInvalid = errors.New("config: invalid configuration")

// Config is the top-level configuration document.
type Config struct {
	Rendezvous RendezvousConfig `yaml:"rendezvous"`
	Transport  TransportConfig  `yaml:"transport"`
	Signal     SignalConfig     `yaml:"signal"`
	Status     StatusConfig     `yaml:"status"`
}

// RendezvousConfig configures the central service.
type RendezvousConfig struct {
	// ListenSignal is the plain-TCP Signal Client listen address.
	ListenSignal string `yaml:"listen_signal"`
	// ListenReliable is the reliable-unicast (QUIC) listen address peers
	// dial to register as publisher/subscriber.
	ListenReliable string `yaml:"listen_reliable"`
}

// TransportConfig mirrors TransportOptions: the rendezvous endpoint peers
// dial, the multicast group, and the fragmentation MTU.
type TransportConfig struct {
	Server    string        `yaml:"server"`
	Multicast string        `yaml:"multicast"`
	MTU       int           `yaml:"mtu"`
	Latency   time.Duration `yaml:"latency"`
	TTL       int           `yaml:"ttl"`

	// MulticastIP is parsed from Multicast by validate(); not set from YAML.
	MulticastIP net.IP `yaml:"-"`
}

// SignalConfig configures the plain-TCP Signal Client connection. Addr is
// where to dial. InitialBackoff and MaxBackoff are defaulted and validated
// here but are not passed to the signal client, which uses its own fixed
// 200ms initial and 10s maximum reconnect backoff.
type SignalConfig struct {
	// Addr is the rendezvous's plain-TCP signal listen address. Defaults
	// to transport.server's host on the rendezvous's default signal port
	// when left unset, since the two usually live on the same machine.
	Addr           string        `yaml:"addr"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// StatusConfig controls the optional read-only HTTP introspection endpoint.
// Listen empty disables it.
type StatusConfig struct {
	Listen string `yaml:"listen"`
}

// Load reads and validates a YAML configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validating %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Rendezvous.ListenSignal == "" {
		c.Rendezvous.ListenSignal = "0.0.0.0:9000"
	}
	if c.Rendezvous.ListenReliable == "" {
		c.Rendezvous.ListenReliable = "0.0.0.0:9001"
	}
	if c.Transport.Server == "" {
		return fmt.Errorf("%w: transport.server is required", ErrConfigInvalid)
	}
	if c.Transport.Multicast == "" {
		c.Transport.Multicast = "239.5.5.5"
	}
	ip := net.ParseIP(c.Transport.Multicast)
	if ip == nil || ip.To4() == nil {
		return fmt.Errorf("%w: transport.multicast %q is not a valid IPv4 address", ErrConfigInvalid, c.Transport.Multicast)
	}
	c.Transport.MulticastIP = ip

	if c.Transport.MTU <= 0 {
		c.Transport.MTU = 1400
	}
	if c.Transport.Latency <= 0 {
		c.Transport.Latency = 20 * time.Millisecond
	}
	if c.Transport.TTL <= 0 {
		c.Transport.TTL = 1
	}

	if c.Signal.Addr == "" {
		if host, _, err := net.SplitHostPort(c.Transport.Server); err == nil {
			c.Signal.Addr = net.JoinHostPort(host, "9000")
		}
	}
	if c.Signal.InitialBackoff <= 0 {
		c.Signal.InitialBackoff = 200 * time.Millisecond
	}
	if c.Signal.MaxBackoff <= 0 {
		c.Signal.MaxBackoff = 10 * time.Second
	}
	if c.Signal.MaxBackoff < c.Signal.InitialBackoff {
		return fmt.Errorf("%w: signal.max_backoff must be >= signal.initial_backoff", ErrConfigInvalid)
	}

	return nil
}
