package serialsession

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// FlowControl represents the flow control mode
type FlowControl int

const (
	FlowControlNone FlowControl = iota
	FlowControlHardware
)

func (f FlowControl) String() string {
	switch f {
	case FlowControlNone:
		return "none"
	case FlowControlHardware:
		return "hardware"
	default:
		return fmt.Sprintf("FlowControl(%d)", int(f))
	}
}

// ParseFlowControl parses "none" or "hardware" (also "rtscts").
func ParseFlowControl(s string) (FlowControl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return FlowControlNone, nil
	case "hardware", "rtscts":
		return FlowControlHardware, nil
	default:
		return 0, fmt.Errorf("%w: unknown flow control %q", ErrInvalidConfig, s)
	}
}

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityEven:
		return "even"
	case ParityOdd:
		return "odd"
	default:
		return fmt.Sprintf("Parity(%d)", int(p))
	}
}

// Letter returns the single letter used in "8N1" style notation.
func (p Parity) Letter() string {
	switch p {
	case ParityEven:
		return "E"
	case ParityOdd:
		return "O"
	default:
		return "N"
	}
}

// ParseParity parses "none", "even" or "odd".
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "n":
		return ParityNone, nil
	case "even", "e":
		return ParityEven, nil
	case "odd", "o":
		return ParityOdd, nil
	default:
		return 0, fmt.Errorf("%w: unknown parity %q", ErrInvalidConfig, s)
	}
}

// StandardBaudRates lists the rates offered to users. Backends may accept
// others (see ValidBaudRate).
var StandardBaudRates = []int{
	1200, 2400, 4800, 9600, 14400, 31250, 38400, 56000, 57600, 76800, 115200,
}

// extendedBaudRates are higher rates every supported backend can program.
var extendedBaudRates = []int{
	230400, 460800, 500000, 576000, 921600, 1000000, 1500000, 2000000,
}

const (
	// DefaultBufferSize is the chunk size used by the read loop.
	DefaultBufferSize = 255
	// DefaultReadTimeout bounds a single idle read so a stopped read loop
	// notices cancellation.
	DefaultReadTimeout = 100 * time.Millisecond
	// MaxReadTimeout is the largest timeout a termios VTIME can express.
	MaxReadTimeout = 25500 * time.Millisecond
)

// Config holds the connection parameters applied when a session opens
type Config struct {
	BaudRate    int
	BufferSize  int
	DataBits    int
	StopBits    int
	FlowControl FlowControl
	Parity      Parity
	ReadTimeout time.Duration
}

// Option is a functional option for configuring a serial port
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaudRate:    115200,
		BufferSize:  DefaultBufferSize,
		DataBits:    8,
		StopBits:    1,
		FlowControl: FlowControlNone,
		Parity:      ParityNone,
		ReadTimeout: DefaultReadTimeout,
	}
}

// String renders the config as "115200 8N1".
func (c Config) String() string {
	s := fmt.Sprintf("%d %d%s%d", c.BaudRate, c.DataBits, c.Parity.Letter(), c.StopBits)
	if c.FlowControl == FlowControlHardware {
		s += " rtscts"
	}
	return s
}

// Validate checks every field against the supported ranges.
func (c Config) Validate() error {
	if !ValidBaudRate(c.BaudRate) {
		return ErrInvalidBaudRate
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("%w: buffer size must be positive", ErrInvalidConfig)
	}
	if c.DataBits != 7 && c.DataBits != 8 {
		return fmt.Errorf("%w: data bits must be 7 or 8", ErrInvalidConfig)
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		return fmt.Errorf("%w: stop bits must be 1 or 2", ErrInvalidConfig)
	}
	switch c.Parity {
	case ParityNone, ParityEven, ParityOdd:
	default:
		return fmt.Errorf("%w: %v", ErrInvalidConfig, c.Parity)
	}
	switch c.FlowControl {
	case FlowControlNone, FlowControlHardware:
	default:
		return fmt.Errorf("%w: %v", ErrInvalidConfig, c.FlowControl)
	}
	return validReadTimeout(c.ReadTimeout)
}

// validReadTimeout accepts 100ms steps up to MaxReadTimeout. Zero is
// rejected: a read loop blocked forever could never be stopped.
func validReadTimeout(d time.Duration) error {
	if d <= 0 || d > MaxReadTimeout {
		return fmt.Errorf("%w: read timeout must be between 100ms and %v", ErrInvalidConfig, MaxReadTimeout)
	}
	if d%(100*time.Millisecond) != 0 {
		return fmt.Errorf("%w: read timeout must be a multiple of 100ms", ErrInvalidConfig)
	}
	return nil
}

// ValidBaudRate reports whether rate is one of the standard or extended rates.
func ValidBaudRate(rate int) bool {
	for _, r := range StandardBaudRates {
		if r == rate {
			return true
		}
	}
	for _, r := range extendedBaudRates {
		if r == rate {
			return true
		}
	}
	return false
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if !ValidBaudRate(rate) {
			return ErrInvalidBaudRate
		}
		c.BaudRate = rate
		return nil
	}
}

// WithBufferSize sets the maximum chunk size delivered by the read loop
func WithBufferSize(size int) Option {
	return func(c *Config) error {
		if size <= 0 {
			return ErrInvalidConfig
		}
		c.BufferSize = size
		return nil
	}
}

// WithDataBits sets the number of data bits (7 or 8)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits != 7 && bits != 8 {
			return ErrInvalidConfig
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits int) Option {
	return func(c *Config) error {
		if bits != 1 && bits != 2 {
			return ErrInvalidConfig
		}
		c.StopBits = bits
		return nil
	}
}

// WithReadTimeout sets how long one read waits for data before returning
// empty (100ms resolution, max 25.5s)
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if err := validReadTimeout(timeout); err != nil {
			return err
		}
		c.ReadTimeout = timeout
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		c.Parity = parity
		return nil
	}
}

// WithFlowControl sets the flow control mode
func WithFlowControl(fc FlowControl) Option {
	return func(c *Config) error {
		c.FlowControl = fc
		return nil
	}
}

// ConfigStore holds the parameters the next Open will apply.
type ConfigStore struct {
	mu  sync.RWMutex
	cfg Config
}

// NewConfigStore returns a store seeded with DefaultConfig.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{cfg: DefaultConfig()}
}

// Get returns a copy of the stored config.
func (s *ConfigStore) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Preview applies opts to a copy of the stored config without committing it.
func (s *ConfigStore) Preview(opts ...Option) (Config, error) {
	cfg := s.Get()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Update applies opts and commits the result only if every option succeeds.
func (s *ConfigStore) Update(opts ...Option) error {
	cfg, err := s.Preview(opts...)
	if err != nil {
		return err
	}
	s.set(cfg)
	return nil
}

func (s *ConfigStore) set(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}
