package pcmdev

import "io"

// Backend is the PCM and mixer control library the state machine drives.
// Implementations translate MediaFormat into their native sample format.
type Backend interface {
	// Name identifies the implementation in logs.
	Name() string
	// Open opens and configures the hardware stream of a PCM device.
	Open(card, device uint32, dir Direction, cfg HWConfig) (Handle, error)
	// OpenSession opens the mixer control session of a card.
	OpenSession(card uint32) (MixerSession, error)
}

// Handle is an open hardware stream.
type Handle interface {
	Prepare() error
	// Stop drops pending frames and halts the stream.
	Stop() error
	Close() error
}

// MixerSession reads mixer controls of one card.
type MixerSession interface {
	// ReadArray returns the first size bytes of the named control's value.
	// A missing control is reported with an error wrapping ErrControlNotFound.
	ReadArray(control string, size int) ([]byte, error)
	Close() error
}

// DescriptorSource yields the line-oriented list of active PCM nodes.
// Every call to Open starts again from the beginning.
type DescriptorSource interface {
	Open() (io.ReadCloser, error)
}

// EndpointInfoSource fills the topology information of a discovered endpoint.
// An error causes the endpoint to be skipped.
type EndpointInfoSource interface {
	Populate(d *Descriptor) error
}

// Notifier receives best-effort hardware enable and disable events.
type Notifier interface {
	Notify(endpointID uint32, enabled bool) error
	Close() error
}

// MetadataCodec copies metadata blobs into their decoded, owned form.
type MetadataCodec interface {
	Copy(blob []byte) (*Metadata, error)
	Free(m *Metadata)
}

// Descriptor is a discovered PCM node before it becomes an Endpoint.
type Descriptor struct {
	CardID uint32
	ID     uint32
	Name   string
	// Line is the raw descriptor line the node was parsed from.
	Line string
	HW   HWEndpointInfo
}
