package pcmdev

import (
	"fmt"
	"log/slog"
	"sync"
)

// Counts holds the nested reference counts of an endpoint.
type Counts struct {
	Open    int
	Prepare int
	Start   int
}

// Endpoint is one discovered hardware PCM node shared by independent callers.
// Identity and topology are fixed at discovery; everything else is guarded by mu.
type Endpoint struct {
	card uint32
	id   uint32
	name string
	hw   HWEndpointInfo

	mgr *Manager
	log *slog.Logger

	mu       sync.Mutex
	media    MediaConfig
	metadata *Metadata
	params   []byte
	state    State
	refs     Counts
	handle   Handle
}

func newEndpoint(m *Manager, d Descriptor) *Endpoint {
	return &Endpoint{
		card: d.CardID,
		id:   d.ID,
		name: d.Name,
		hw:   d.HW,
		mgr:  m,
		log:  m.log.With("card", d.CardID, "device", d.ID, "name", d.Name),
	}
}

// CardID returns the sound card number.
func (e *Endpoint) CardID() uint32 {
	if e == nil {
		return 0
	}

	return e.card
}

// ID returns the PCM device number within the card.
func (e *Endpoint) ID() uint32 {
	if e == nil {
		return 0
	}

	return e.id
}

// Name returns the endpoint name.
func (e *Endpoint) Name() string {
	if e == nil {
		return ""
	}

	return e.name
}

// Direction returns the stream direction.
func (e *Endpoint) Direction() Direction {
	if e == nil {
		return Output
	}

	return e.hw.Direction
}

// HWInfo returns a copy of the topology information.
func (e *Endpoint) HWInfo() HWEndpointInfo {
	if e == nil {
		return HWEndpointInfo{}
	}

	info := e.hw
	if e.hw.Attributes != nil {
		info.Attributes = make(map[string]string, len(e.hw.Attributes))
		for k, v := range e.hw.Attributes {
			info.Attributes[k] = v
		}
	}

	return info
}

// String returns a human-readable representation of the Endpoint.
func (e *Endpoint) String() string {
	if e == nil {
		return "<nil>"
	}

	return fmt.Sprintf("hw:%d,%d (%s, %s)", e.card, e.id, e.name, e.hw.Direction)
}

// State returns the current lifecycle state.
func (e *Endpoint) State() State {
	if e == nil {
		return StateClosed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// Counts returns the current reference counts.
func (e *Endpoint) Counts() Counts {
	if e == nil {
		return Counts{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.refs
}

// release drops attachments and any hardware stream still open.
func (e *Endpoint) release() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.mgr.cfg.Metadata.Free(e.metadata)
	e.metadata = nil
	e.params = nil

	if e.handle != nil {
		e.log.Warn("closing endpoint still open at deinit", "refs", e.refs.Open)

		e.mgr.notify(e, false)
		if err := e.handle.Close(); err != nil {
			e.log.Error("failed to close PCM device", "error", err)
		}
		e.handle = nil
	}

	e.state = StateClosed
	e.refs = Counts{}
	e.mgr.metrics.setOpenRefs(e, 0)
}

func errNilEndpoint() error {
	return fmt.Errorf("%w: nil endpoint", ErrInvalidArgument)
}
