//go:build linux && (amd64 || arm64)

package snd

// uframes is an unsigned long in the ALSA headers.
type uframes = uint64

// clong is the C long type.
type clong = int64

// hwParams contains hardware parameters for a PCM device.
type hwParams struct {
	Flags     uint32
	Masks     [3]mask
	Mres      [5]mask
	Intervals [12]interval
	Ires      [9]interval
	Rmask     uint32
	Cmask     uint32
	Info      uint32
	Msbits    uint32
	RateNum   uint32
	RateDen   uint32
	FifoSize  uframes
	Reserved  [64]byte
}

// swParams contains software parameters for a PCM device.
// There are 4 bytes of padding after SleepMin to align the following fields.
type swParams struct {
	TstampMode       uint32
	PeriodStep       uint32
	SleepMin         uint32
	_                [4]byte
	AvailMin         uframes
	XferAlign        uframes
	StartThreshold   uframes
	StopThreshold    uframes
	SilenceThreshold uframes
	SilenceSize      uframes
	Boundary         uframes
	Reserved         [64]byte
}

// ctlElemValue holds the value of a control element.
type ctlElemValue struct {
	ID ctlElemID
	_  [8]byte // indirect:1 plus alignment of the union
	// long value[128] on 64-bit.
	Value    [1024]byte
	Reserved [128]byte
}

// ctlElemList is used to enumerate control elements.
type ctlElemList struct {
	Offset   uint32
	Space    uint32
	Used     uint32
	Count    uint32
	Pids     uintptr
	Reserved [50]byte
}
