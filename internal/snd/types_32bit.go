//go:build linux && (386 || arm)

package snd

// uframes is an unsigned long in the ALSA headers.
type uframes = uint32

// clong is the C long type.
type clong = int32

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
type swParams struct {
	TstampMode       uint32
	PeriodStep       uint32
	SleepMin         uint32
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
	// indirect:1 plus the alignment of the union, which differs between i386 and EABI.
	_ [elemValuePad]byte
	// long long value[64] is the largest member on 32-bit.
	Value    [512]byte
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
