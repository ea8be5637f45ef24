package pcmdev_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gen2brain/pcmdev"
)

// procPCM mirrors /proc/asound/pcm on a small DSP platform.
const procPCM = `00-00: MultiMedia1 (*) :  : playback 1
00-01: MultiMedia2 (*) :  : capture 1
00-02: MultiMedia3 (*) :  : playback 1
`

var errInjected = errors.New("injected failure")

// fakeBackend records every call the state machine makes.
type fakeBackend struct {
	mu sync.Mutex

	opens   []pcmdev.HWConfig
	handles []*fakeHandle

	openErr    error
	prepareErr error
	stopErr    error
	closeErr   error

	sessionCards []uint32
	sessionErr   error
	session      *fakeSession
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{session: &fakeSession{controls: map[string][]byte{}}}
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Open(card, device uint32, dir pcmdev.Direction, cfg pcmdev.HWConfig) (pcmdev.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Widen the window in which concurrent callers could race into a second open.
	time.Sleep(time.Millisecond)

	b.opens = append(b.opens, cfg)
	if b.openErr != nil {
		return nil, b.openErr
	}

	h := &fakeHandle{backend: b, card: card, device: device, dir: dir}
	b.handles = append(b.handles, h)

	return h, nil
}

func (b *fakeBackend) OpenSession(card uint32) (pcmdev.MixerSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sessionCards = append(b.sessionCards, card)
	if b.sessionErr != nil {
		return nil, b.sessionErr
	}

	return b.session, nil
}

func (b *fakeBackend) openCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.opens)
}

func (b *fakeBackend) lastConfig() pcmdev.HWConfig {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.opens[len(b.opens)-1]
}

func (b *fakeBackend) handle(i int) *fakeHandle {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.handles[i]
}

type fakeHandle struct {
	backend *fakeBackend
	card    uint32
	device  uint32
	dir     pcmdev.Direction

	prepares int
	stops    int
	closes   int
}

func (h *fakeHandle) Prepare() error {
	h.prepares++

	return h.backend.prepareErr
}

func (h *fakeHandle) Stop() error {
	h.stops++

	return h.backend.stopErr
}

func (h *fakeHandle) Close() error {
	h.closes++

	return h.backend.closeErr
}

type fakeSession struct {
	controls map[string][]byte
	readErr  error
	reads    []string
	closed   bool
}

func (s *fakeSession) ReadArray(control string, size int) ([]byte, error) {
	s.reads = append(s.reads, control)
	if s.readErr != nil {
		return nil, s.readErr
	}

	data, ok := s.controls[control]
	if !ok {
		return nil, fmt.Errorf("%w: %s", pcmdev.ErrControlNotFound, control)
	}

	if len(data) > size {
		data = data[:size]
	}

	return data, nil
}

func (s *fakeSession) Close() error {
	s.closed = true

	return nil
}

// stringSource serves a fixed descriptor listing and counts how often it was read.
type stringSource struct {
	mu    sync.Mutex
	text  string
	opens int
}

func (s *stringSource) Open() (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.opens++

	return io.NopCloser(strings.NewReader(s.text)), nil
}

type missingSource struct{}

func (missingSource) Open() (io.ReadCloser, error) {
	return nil, fmt.Errorf("open /proc/asound/pcm: %w", errors.New("no such file or directory"))
}

type notification struct {
	id      uint32
	enabled bool
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
	err    error
	closed int
}

func (n *recordingNotifier) Notify(id uint32, enabled bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = append(n.events, notification{id: id, enabled: enabled})

	return n.err
}

func (n *recordingNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.closed++

	return nil
}

func (n *recordingNotifier) recorded() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]notification(nil), n.events...)
}

// instantTimer fires immediately and records the requested delays.
type instantTimer struct {
	mu     sync.Mutex
	delays []time.Duration
	c      chan time.Time

	// onStart runs before the timer fires.
	onStart func()
}

func newInstantTimer() *instantTimer {
	return &instantTimer{c: make(chan time.Time, 1)}
}

func (t *instantTimer) Start(d time.Duration) {
	t.mu.Lock()
	t.delays = append(t.delays, d)
	t.mu.Unlock()

	if t.onStart != nil {
		t.onStart()
	}

	t.c <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }

func (t *instantTimer) recorded() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]time.Duration(nil), t.delays...)
}

type fixture struct {
	backend  *fakeBackend
	source   *stringSource
	notifier *recordingNotifier
	timer    *instantTimer
	manager  *pcmdev.Manager
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFixture builds a manager over fakes. Init is left to the caller.
func newFixture(t *testing.T, listing string, tweak ...func(*pcmdev.Config)) *fixture {
	t.Helper()

	f := &fixture{
		backend:  newFakeBackend(),
		source:   &stringSource{text: listing},
		notifier: &recordingNotifier{},
		timer:    newInstantTimer(),
	}

	cfg := pcmdev.Config{
		Backend:       f.backend,
		Source:        f.source,
		Notifier:      f.notifier,
		Logger:        quietLogger(),
		MaxRetries:    5,
		RetryInterval: 250 * time.Millisecond,
		RetryTimer:    f.timer,
	}
	for _, fn := range tweak {
		fn(&cfg)
	}

	m, err := pcmdev.New(cfg)
	require.NoError(t, err)
	f.manager = m

	t.Cleanup(func() { _ = m.Deinit() })

	return f
}

// newReadyFixture builds a manager over procPCM and runs discovery.
func newReadyFixture(t *testing.T, tweak ...func(*pcmdev.Config)) *fixture {
	t.Helper()

	f := newFixture(t, procPCM, tweak...)
	require.NoError(t, f.manager.Init(t.Context()))

	return f
}

var stereo48k = pcmdev.MediaConfig{Channels: 2, Rate: 48000, Format: pcmdev.FormatPCMS16LE}

// configured returns endpoint i set up for 48 kHz stereo.
func (f *fixture) configured(t *testing.T, i int) *pcmdev.Endpoint {
	t.Helper()

	e, err := f.manager.Endpoint(i)
	require.NoError(t, err)
	require.NoError(t, e.SetMediaConfig(stereo48k))

	return e
}
