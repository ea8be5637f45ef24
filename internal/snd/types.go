package snd

// mask is a bitmask for hardware parameters.
type mask struct {
	Bits [8]uint32
}

// interval represents a range of values for a hardware parameter.
type interval struct {
	MinVal uint32
	MaxVal uint32
	Flags  uint32
}

// pcmInfo contains general information about a PCM device.
type pcmInfo struct {
	Device          uint32
	Subdevice       uint32
	Stream          int32
	Card            int32
	ID              [64]byte
	Name            [80]byte
	Subname         [32]byte
	DevClass        int32
	DevSubclass     int32
	SubdevicesCount uint32
	SubdevicesAvail uint32
	Sync            [16]byte
	Reserved        [64]byte
}

// ctlCardInfo contains general information about a sound card.
type ctlCardInfo struct {
	Card       int32
	Pad        int32
	ID         [16]byte
	Driver     [16]byte
	Name       [32]byte
	Longname   [80]byte
	Reserved   [16]byte
	Mixername  [80]byte
	Components [128]byte
}

// ctlElemID identifies a single control element.
type ctlElemID struct {
	Numid     uint32
	Iface     int32
	Device    uint32
	Subdevice uint32
	Name      [44]byte
	Index     uint32
}

// ctlElemInfo contains metadata about a control element.
type ctlElemInfo struct {
	ID     ctlElemID
	Typ    int32
	Access uint32
	Count  uint32
	Owner  int32
	// C union sized to its largest member.
	Value    [128]byte
	Reserved [64]byte
}

// ctlTlv is the header of a TLV transfer; the payload follows it in memory.
type ctlTlv struct {
	Numid  uint32
	Length uint32
}

// Hardware parameter identifiers (SNDRV_PCM_HW_PARAM_*).
const (
	paramAccess     = 0
	paramFormat     = 1
	paramSubformat  = 2
	paramSampleBits = 8
	paramChannels   = 10
	paramRate       = 11
	paramPeriodSize = 13
	paramPeriods    = 15
	paramTickTime   = 19
)

const intervalInteger = 1 << 2

// Control interface constants.
const (
	ctlElemIfaceMixer = 2

	ctlAccessTLVRead = 1 << 4
)
