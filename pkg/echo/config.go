package echo

import (
	"net"
	"strconv"
	"time"
)

// Defaults for Config.
const (
	DefaultBindAddress      = "0.0.0.0"
	DefaultPort             = 8080
	DefaultReadBufferSize   = 8
	DefaultErrorLogInterval = 10 * time.Second
)

// BackoffConfig controls the delay between retries after a failed Accept.
type BackoffConfig struct {
	// InitialDelay is the wait after the first consecutive failure.
	InitialDelay time.Duration

	// MaxDelay caps the wait. Zero means uncapped.
	MaxDelay time.Duration

	// Multiplier grows the delay for each further failure. Values below 1
	// are treated as 1.
	Multiplier float64
}

// DefaultBackoff returns the default accept retry policy.
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}
}

// Config describes one echo listener.
type Config struct {
	// BindAddress is the interface to listen on. Default: all IPv4 interfaces.
	BindAddress string

	// Port is the TCP port. 0 asks the host for an ephemeral port.
	Port int

	// ReadBufferSize is the capacity of the single read per connection.
	ReadBufferSize int

	// MaxConnections bounds concurrently served connections. 0 means
	// unbounded.
	MaxConnections int

	// AcceptBackoff is the retry policy for failed Accept calls.
	AcceptBackoff BackoffConfig

	// ErrorLogInterval is the minimum spacing of accept error log lines.
	// Failures in between are counted and reported with the next line.
	ErrorLogInterval time.Duration
}

// DefaultConfig returns a Config listening on 0.0.0.0:8080 with an 8 byte
// read buffer.
func DefaultConfig() Config {
	return Config{
		BindAddress:      DefaultBindAddress,
		Port:             DefaultPort,
		ReadBufferSize:   DefaultReadBufferSize,
		AcceptBackoff:    DefaultBackoff(),
		ErrorLogInterval: DefaultErrorLogInterval,
	}
}

// Address returns the host:port the listener binds to.
func (c Config) Address() string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(c.Port))
}

// withDefaults fills zero values. Port is left alone since 0 is meaningful.
func (c Config) withDefaults() Config {
	if c.BindAddress == "" {
		c.BindAddress = DefaultBindAddress
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = DefaultReadBufferSize
	}
	if c.MaxConnections < 0 {
		c.MaxConnections = 0
	}
	if c.AcceptBackoff == (BackoffConfig{}) {
		c.AcceptBackoff = DefaultBackoff()
	}
	if c.ErrorLogInterval <= 0 {
		c.ErrorLogInterval = DefaultErrorLogInterval
	}
	return c
}
