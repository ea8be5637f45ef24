// Package pcmdev manages the lifecycle of hardware PCM endpoints exposed by the Linux
// sound subsystem.
//
// A Manager discovers the available endpoints once, then mediates open, prepare, start,
// stop and close requests from independent callers that share the single hardware stream
// behind each endpoint. Every endpoint carries nested reference counts so that only the
// first open and the last close reach the hardware.
//
// The I/O primitives are provided by a Backend; see the tinyalsa and alsalib packages.
package pcmdev

import "fmt"

const (
	// MaxNameLen is the longest endpoint name accepted at discovery.
	MaxNameLen = 80

	// ChannelMapLen is the number of 32-bit words in a channel map.
	ChannelMapLen = 16

	// MaxParamsSize bounds the opaque params attachment of an endpoint.
	MaxParamsSize = 64 * 1024

	// maxPeriodBytes is the period budget of the backend DAI. The period size in frames
	// is derived from it and the frame size, so multi-channel streams stay in budget.
	maxPeriodBytes = 8192

	defaultPeriodCount = 2
)

// State is the lifecycle state of an endpoint.
// The order is significant: an endpoint can be started once it reached Prepared.
type State int

const (
	StateClosed State = iota
	StateOpened
	StatePrepared
	StateStarted
	StateStopped
)

var stateNames = [...]string{"closed", "opened", "prepared", "started", "stopped"}

// String returns the name of the state.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}

	return stateNames[s]
}

// Direction is the stream direction of an endpoint.
type Direction int

const (
	Output Direction = iota // playback
	Input                   // capture
)

// String returns "output" or "input".
func (d Direction) String() string {
	if d == Input {
		return "input"
	}

	return "output"
}

// ParseDirection accepts output/playback/rx and input/capture/tx.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "output", "playback", "rx", "RX":
		return Output, nil
	case "input", "capture", "tx", "TX":
		return Input, nil
	default:
		return Output, fmt.Errorf("%w: unknown direction %q", ErrInvalidArgument, s)
	}
}

// MediaFormat is the sample format of an endpoint's media configuration.
type MediaFormat uint32

const (
	FormatPCMS16LE  MediaFormat = iota // 16-bit signed
	FormatPCMS8                        // 8-bit signed
	FormatPCMS24LE                     // 24 bits in a 4-byte container
	FormatPCMS24_3LE                   // 24 bits in 3 bytes
	FormatPCMS32LE                     // 32-bit signed
)

var formatNames = map[MediaFormat]string{
	FormatPCMS16LE:   "S16_LE",
	FormatPCMS8:      "S8",
	FormatPCMS24LE:   "S24_LE",
	FormatPCMS24_3LE: "S24_3LE",
	FormatPCMS32LE:   "S32_LE",
}

// String returns the ALSA-style name of the format.
func (f MediaFormat) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}

	return fmt.Sprintf("format(%d)", uint32(f))
}

// ParseMediaFormat parses an ALSA-style format name such as "S16_LE".
func ParseMediaFormat(s string) (MediaFormat, error) {
	for f, name := range formatNames {
		if name == s {
			return f, nil
		}
	}

	return FormatPCMS16LE, fmt.Errorf("%w: unknown format %q", ErrInvalidArgument, s)
}

// BitsPerSample returns the container size of a sample. Unknown formats count as 16 bits.
func (f MediaFormat) BitsPerSample() uint32 {
	switch f {
	case FormatPCMS8:
		return 8
	case FormatPCMS24LE, FormatPCMS32LE:
		return 32
	case FormatPCMS24_3LE:
		return 24
	default:
		return 16
	}
}

// DataFormat describes how samples are encoded.
type DataFormat uint32

const (
	DataFormatFixedPoint DataFormat = iota
	DataFormatFloatingPoint
	DataFormatRaw
)

// MediaConfig is the media configuration applied to the hardware on first open.
type MediaConfig struct {
	Channels   uint32
	Rate       uint32
	Format     MediaFormat
	DataFormat DataFormat
}

// HWEndpointInfo is the topology information filled in by an EndpointInfoSource.
type HWEndpointInfo struct {
	Direction  Direction
	Interface  string            // backend interface type, e.g. "CODEC_DMA"
	Index      int               // interface index within its type
	Attributes map[string]string // additional routing metadata
}

// HWConfig is the stream configuration handed to Backend.Open.
type HWConfig struct {
	Format         MediaFormat
	Channels       uint32
	Rate           uint32
	PeriodSize     uint32 // frames
	PeriodCount    uint32
	StartThreshold uint32 // frames
	StopThreshold  uint32 // frames
}

// Interface is one entry returned by Manager.List.
type Interface struct {
	Name      string
	Direction Direction
}
