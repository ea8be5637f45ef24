package pcmdev

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxRetries is the number of discovery attempts before giving up.
	DefaultMaxRetries = 100
	// DefaultRetryInterval is the delay between two discovery attempts.
	DefaultRetryInterval = time.Second
)

// Config configures a Manager. Only Backend is required.
type Config struct {
	Backend  Backend
	Source   DescriptorSource   // defaults to FileSource(DefaultDescriptorPath)
	Info     EndpointInfoSource // defaults to ProcInfo{}
	Notifier Notifier           // defaults to a SysfsNotifier on DefaultNotifyPath
	Metadata MetadataCodec      // defaults to KVCodec{}
	Logger   *slog.Logger       // defaults to slog.Default()
	Metrics  *Metrics           // optional

	// MaxRetries is the total number of discovery attempts, DefaultMaxRetries when zero.
	// RetryInterval separates consecutive attempts and no delay follows the final one,
	// so an exhausted Init waits (MaxRetries-1)*RetryInterval.
	MaxRetries int
	// RetryInterval is the delay between discovery attempts, DefaultRetryInterval when zero.
	RetryInterval time.Duration
	// RetryTimer drives the retry delay; nil uses a real timer.
	RetryTimer backoff.Timer
}

// Manager owns the endpoint registry and the process-wide control handles.
//
// The registry is fixed by Init and read-only until Deinit, so lookups need no locking.
// Init and Deinit must not run concurrently with endpoint operations.
type Manager struct {
	cfg     Config
	log     *slog.Logger
	metrics *Metrics

	initMu      sync.Mutex
	initialized bool
	endpoints   []*Endpoint

	sessionMu sync.Mutex
	session   MixerSession
}

// New validates the configuration and returns an uninitialized Manager.
func New(cfg Config) (*Manager, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("%w: backend is required", ErrInvalidArgument)
	}

	if cfg.MaxRetries < 0 || cfg.RetryInterval < 0 {
		return nil, fmt.Errorf("%w: negative retry settings (%d, %s)", ErrInvalidArgument, cfg.MaxRetries, cfg.RetryInterval)
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}

	if cfg.Source == nil {
		cfg.Source = FileSource(DefaultDescriptorPath)
	}

	if cfg.Info == nil {
		cfg.Info = ProcInfo{}
	}

	if cfg.Notifier == nil {
		cfg.Notifier = NewSysfsNotifier(DefaultNotifyPath)
	}

	if cfg.Metadata == nil {
		cfg.Metadata = KVCodec{}
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Manager{
		cfg:     cfg,
		log:     cfg.Logger.With("module", "pcmdev", "backend", cfg.Backend.Name()),
		metrics: cfg.Metrics,
	}, nil
}

// Init discovers the available endpoints and fixes the registry.
//
// If the descriptor source yields no usable endpoint the sound card may not be registered
// yet, so discovery is retried up to MaxRetries times, RetryInterval apart. The final
// error then wraps both ErrRetryable and ErrDiscoveryExhausted. A source that cannot be
// opened fails immediately with ErrNotFound.
func (m *Manager) Init(ctx context.Context) error {
	if m == nil {
		return fmt.Errorf("%w: nil manager", ErrInvalidArgument)
	}

	m.initMu.Lock()
	defer m.initMu.Unlock()

	if m.initialized {
		return fmt.Errorf("%w: already initialized", ErrInvalidArgument)
	}

	var (
		attempts  int
		endpoints []*Endpoint
	)

	discover := func() error {
		attempts++

		found, err := m.scan()
		switch {
		case err == nil:
			m.metrics.discoveryAttempt("ok")
			endpoints = found

			return nil
		case errors.Is(err, ErrRetryable):
			m.metrics.discoveryAttempt("retry")

			return err
		default:
			m.metrics.discoveryAttempt("failed")

			return backoff.Permanent(err)
		}
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(m.cfg.RetryInterval), uint64(m.cfg.MaxRetries-1)),
		ctx,
	)

	notify := func(err error, delay time.Duration) {
		m.log.Warn("no valid sound endpoint found, retrying",
			"attempt", attempts,
			"remaining", m.cfg.MaxRetries-attempts,
			"delay", delay,
			"error", err)
	}

	if err := backoff.RetryNotifyWithTimer(discover, policy, notify, m.cfg.RetryTimer); err != nil {
		if errors.Is(err, ErrRetryable) {
			err = fmt.Errorf("%w after %d attempts: %w", ErrDiscoveryExhausted, attempts, err)
		}

		m.log.Error("endpoint discovery failed", "attempts", attempts, "error", err)

		return err
	}

	m.endpoints = endpoints
	m.initialized = true
	m.metrics.setDiscovered(len(endpoints))
	m.log.Info("endpoint discovery complete", "endpoints", len(endpoints), "attempts", attempts)

	return nil
}

// Deinit releases every endpoint's attachments and any stream still open, closes the
// process-wide handles and empties the registry. It is a no-op on a Manager that was
// never initialized.
func (m *Manager) Deinit() error {
	if m == nil {
		return nil
	}

	m.initMu.Lock()
	defer m.initMu.Unlock()

	m.log.Info("endpoint manager deinit", "endpoints", len(m.endpoints))

	for _, e := range m.endpoints {
		e.release()
	}

	m.endpoints = nil
	m.initialized = false
	m.metrics.setDiscovered(0)

	m.sessionMu.Lock()
	if m.session != nil {
		if err := m.session.Close(); err != nil {
			m.log.Warn("failed to close mixer session", "error", err)
		}
		m.session = nil
	}
	m.sessionMu.Unlock()

	if err := m.cfg.Notifier.Close(); err != nil {
		m.log.Warn("failed to close notifier", "error", err)
	}

	return nil
}

// Len returns the number of discovered endpoints.
func (m *Manager) Len() int {
	if m == nil {
		return 0
	}

	return len(m.endpoints)
}

// Endpoints returns the registry in discovery order.
func (m *Manager) Endpoints() []*Endpoint {
	if m == nil {
		return nil
	}

	return append([]*Endpoint(nil), m.endpoints...)
}

// Endpoint returns the endpoint at index i.
func (m *Manager) Endpoint(i int) (*Endpoint, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil manager", ErrInvalidArgument)
	}

	if i < 0 || i >= len(m.endpoints) {
		return nil, fmt.Errorf("%w: endpoint index %d, %d endpoints available", ErrNotFound, i, len(m.endpoints))
	}

	return m.endpoints[i], nil
}

// Lookup returns the endpoint with the given card and PCM device number.
func (m *Manager) Lookup(card, device uint32) (*Endpoint, error) {
	for _, e := range m.Endpoints() {
		if e.card == card && e.id == device {
			return e, nil
		}
	}

	return nil, fmt.Errorf("%w: endpoint hw:%d,%d", ErrNotFound, card, device)
}

// EndpointByName returns the first endpoint with the given name.
func (m *Manager) EndpointByName(name string) (*Endpoint, error) {
	for _, e := range m.Endpoints() {
		if e.name == name {
			return e, nil
		}
	}

	return nil, fmt.Errorf("%w: endpoint %q", ErrNotFound, name)
}

// List returns the name and direction of at most max endpoints.
// A max of zero lists all of them.
func (m *Manager) List(max int) []Interface {
	endpoints := m.Endpoints()
	if max > 0 && max < len(endpoints) {
		endpoints = endpoints[:max]
	}

	list := make([]Interface, 0, len(endpoints))
	for _, e := range endpoints {
		list = append(list, Interface{Name: e.name, Direction: e.hw.Direction})
	}

	return list
}

// PrimaryCardID returns the card of the first discovered endpoint.
func (m *Manager) PrimaryCardID() (uint32, error) {
	e, err := m.Endpoint(0)
	if err != nil {
		return 0, err
	}

	return e.card, nil
}

// readControl reads a mixer control through the shared session, opening it on first use.
// The session is bound to the primary card and stays open after failed reads.
func (m *Manager) readControl(control string, size int) ([]byte, error) {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	if m.session == nil {
		card, err := m.PrimaryCardID()
		if err != nil {
			return nil, fmt.Errorf("no sound card for mixer session: %w", err)
		}

		session, err := m.cfg.Backend.OpenSession(card)
		if err != nil {
			m.log.Error("failed to open mixer session", "card", card, "error", err)

			return nil, fmt.Errorf("%w: open mixer session on card %d: %w", ErrHardwareFailure, card, err)
		}

		m.session = session
	}

	data, err := m.session.ReadArray(control, size)
	if err != nil {
		if errors.Is(err, ErrControlNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: read %s: %w", ErrHardwareFailure, control, err)
	}

	if len(data) < size {
		return nil, fmt.Errorf("%w: read %s: short read of %d bytes, want %d", ErrHardwareFailure, control, len(data), size)
	}

	return data, nil
}

// notify forwards a hardware enable or disable event; failures are only logged.
func (m *Manager) notify(e *Endpoint, enabled bool) {
	if err := m.cfg.Notifier.Notify(e.id, enabled); err != nil {
		m.metrics.notifyFailure()
		e.log.Warn("failed to publish endpoint state", "enabled", enabled, "error", err)
	}
}
