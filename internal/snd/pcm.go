package snd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// HWParams is the hardware configuration requested from, and refined by, the driver.
type HWParams struct {
	Access      Access
	Format      Format
	Channels    uint32
	Rate        uint32
	PeriodSize  uint32
	PeriodCount uint32
	// ExactPeriod pins the period size instead of using it as a lower bound.
	ExactPeriod bool
}

// SWParams is the software configuration of an open stream, in frames.
type SWParams struct {
	AvailMin         uint32
	StartThreshold   uint32
	StopThreshold    uint32
	SilenceThreshold uint32
	SilenceSize      uint32
}

// PCM is an open kernel PCM stream.
type PCM struct {
	file      *os.File
	path      string
	capture   bool
	subdevice uint32
	hw        HWParams
	boundary  uframes
}

// PCMPath returns the character device of a PCM stream.
func PCMPath(card, device uint32, capture bool) string {
	stream := 'p'
	if capture {
		stream = 'c'
	}

	return fmt.Sprintf("/dev/snd/pcmC%dD%d%c", card, device, stream)
}

// ParseHWName parses an ALSA hardware name of the form "hw:C" or "hw:C,D".
// The device is -1 when the name carries only a card.
func ParseHWName(name string) (card uint32, device int, err error) {
	if !strings.HasPrefix(name, "hw:") {
		return 0, 0, fmt.Errorf("invalid device name %q: missing 'hw:' prefix", name)
	}

	parts := strings.Split(strings.TrimPrefix(name, "hw:"), ",")
	if len(parts) > 2 {
		return 0, 0, fmt.Errorf("invalid device name %q: expected 'hw:card[,device]'", name)
	}

	c, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid card number '%s': %w", parts[0], err)
	}

	device = -1
	if len(parts) == 2 {
		d, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid device number '%s': %w", parts[1], err)
		}
		device = int(d)
	}

	return uint32(c), device, nil
}

// OpenPCM opens the PCM device node in blocking mode and queries its info.
func OpenPCM(card, device uint32, capture bool) (*PCM, error) {
	path := PCMPath(card, device, capture)

	// Open non-blocking so a busy device cannot hang us, then switch to blocking I/O.
	file, err := os.OpenFile(path, os.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open PCM device %s: %w", path, err)
	}

	flags, err := unix.FcntlInt(file.Fd(), unix.F_GETFL, 0)
	if err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("fcntl F_GETFL for %s failed: %w", path, err)
	}

	if _, err = unix.FcntlInt(file.Fd(), unix.F_SETFL, flags&^unix.O_NONBLOCK); err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("failed to set blocking mode on %s: %w", path, err)
	}

	var info pcmInfo
	if err := ioctl(file.Fd(), pcmIoctlInfo, uintptr(unsafe.Pointer(&info))); err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("ioctl INFO on %s failed: %w", path, err)
	}

	return &PCM{
		file:      file,
		path:      path,
		capture:   capture,
		subdevice: info.Subdevice,
	}, nil
}

// OpenPCMByName opens a PCM by its hardware name, "hw:C,D".
func OpenPCMByName(name string, capture bool) (*PCM, error) {
	card, device, err := ParseHWName(name)
	if err != nil {
		return nil, err
	}

	if device < 0 {
		return nil, fmt.Errorf("invalid PCM name %q: missing device number", name)
	}

	return OpenPCM(card, uint32(device), capture)
}

// Path returns the device node backing the stream.
func (p *PCM) Path() string {
	if p == nil {
		return ""
	}

	return p.path
}

// Subdevice returns the subdevice the kernel assigned to the stream.
func (p *PCM) Subdevice() uint32 {
	if p == nil {
		return 0
	}

	return p.subdevice
}

// HWParams returns the hardware configuration refined by the driver.
func (p *PCM) HWParams() HWParams {
	if p == nil {
		return HWParams{}
	}

	return p.hw
}

// SetHWParams installs the hardware configuration and returns it as refined by the driver.
func (p *PCM) SetHWParams(hw HWParams) (HWParams, error) {
	if p == nil || p.file == nil {
		return HWParams{}, fmt.Errorf("PCM handle is not valid")
	}

	params := &hwParams{}
	paramInit(params)

	paramSetMask(params, paramAccess, uint32(hw.Access))
	paramSetMask(params, paramFormat, uint32(hw.Format))
	paramSetInt(params, paramChannels, hw.Channels)
	paramSetInt(params, paramRate, hw.Rate)
	paramSetInt(params, paramPeriods, hw.PeriodCount)

	if hw.ExactPeriod {
		paramSetInt(params, paramPeriodSize, hw.PeriodSize)
	} else {
		paramSetMin(params, paramPeriodSize, hw.PeriodSize)
	}

	if err := ioctl(p.file.Fd(), pcmIoctlHwParams, uintptr(unsafe.Pointer(params))); err != nil {
		return HWParams{}, fmt.Errorf("ioctl HW_PARAMS failed (rate %d, channels %d, format %s): %w",
			hw.Rate, hw.Channels, hw.Format, err)
	}

	refined := hw
	refined.PeriodSize = paramGetInt(params, paramPeriodSize)
	refined.PeriodCount = paramGetInt(params, paramPeriods)
	refined.Channels = paramGetInt(params, paramChannels)
	refined.Rate = paramGetInt(params, paramRate)

	if refined.Channels == 0 || refined.Rate == 0 || refined.PeriodSize == 0 || refined.PeriodCount == 0 {
		return HWParams{}, fmt.Errorf("driver finalized invalid PCM configuration (Channels=%d, Rate=%d, PeriodSize=%d, PeriodCount=%d)",
			refined.Channels, refined.Rate, refined.PeriodSize, refined.PeriodCount)
	}

	p.hw = refined

	return refined, nil
}

// SetSWParams installs the software configuration. Zero thresholds take the
// direction-dependent defaults derived from the refined hardware configuration.
func (p *PCM) SetSWParams(sw SWParams) error {
	if p == nil || p.file == nil {
		return fmt.Errorf("PCM handle is not valid")
	}

	buffer := p.hw.PeriodSize * p.hw.PeriodCount

	params := &swParams{}
	params.TstampMode = 1
	params.PeriodStep = 1
	params.AvailMin = uframes(p.hw.PeriodSize)
	if sw.AvailMin != 0 {
		params.AvailMin = uframes(sw.AvailMin)
	}

	switch {
	case sw.StartThreshold != 0:
		params.StartThreshold = uframes(sw.StartThreshold)
	case p.capture:
		params.StartThreshold = 1
	default:
		params.StartThreshold = uframes(buffer / 2)
	}

	switch {
	case sw.StopThreshold != 0:
		params.StopThreshold = uframes(sw.StopThreshold)
	case p.capture:
		params.StopThreshold = uframes(buffer * 10)
	default:
		params.StopThreshold = uframes(buffer)
	}

	params.XferAlign = uframes(p.hw.PeriodSize / 2) // old kernels
	params.SilenceThreshold = uframes(sw.SilenceThreshold)
	params.SilenceSize = uframes(sw.SilenceSize)

	if err := ioctl(p.file.Fd(), pcmIoctlSwParams, uintptr(unsafe.Pointer(params))); err != nil {
		return fmt.Errorf("ioctl SW_PARAMS failed: %w", err)
	}

	p.boundary = params.Boundary

	return nil
}

// Prepare readies the stream for I/O.
func (p *PCM) Prepare() error {
	if p == nil || p.file == nil {
		return fmt.Errorf("PCM handle is not valid")
	}

	if err := ioctl(p.file.Fd(), pcmIoctlPrepare, 0); err != nil {
		return fmt.Errorf("ioctl PREPARE failed: %w", err)
	}

	return nil
}

// Drop stops the stream immediately, discarding pending frames.
func (p *PCM) Drop() error {
	if p == nil || p.file == nil {
		return fmt.Errorf("PCM handle is not valid")
	}

	if err := ioctl(p.file.Fd(), pcmIoctlDrop, 0); err != nil {
		return fmt.Errorf("ioctl DROP failed: %w", err)
	}

	return nil
}

// Close releases the hardware configuration and the device node.
func (p *PCM) Close() error {
	if p == nil || p.file == nil {
		return nil
	}

	_ = ioctl(p.file.Fd(), pcmIoctlHwFree, 0)

	err := p.file.Close()
	p.file = nil

	return err
}

// paramInit initializes hardware parameters to allow all possible values.
func paramInit(p *hwParams) {
	for n := range p.Masks {
		for i := range p.Masks[n].Bits {
			p.Masks[n].Bits[i] = ^uint32(0)
		}
	}

	for n := range p.Mres {
		for i := range p.Mres[n].Bits {
			p.Mres[n].Bits[i] = ^uint32(0)
		}
	}

	for n := range p.Intervals {
		p.Intervals[n] = interval{MaxVal: ^uint32(0)}
	}

	for n := range p.Ires {
		p.Ires[n] = interval{MaxVal: ^uint32(0)}
	}

	p.Rmask = ^uint32(0)
	p.Info = ^uint32(0)
}

func paramSetMask(p *hwParams, param int, bit uint32) {
	if param < paramAccess || param > paramSubformat {
		return
	}

	m := &p.Masks[param-paramAccess]
	for i := range m.Bits {
		m.Bits[i] = 0
	}

	if bit >= 256 {
		return
	}

	m.Bits[bit>>5] |= 1 << (bit & 31)
}

func paramSetInt(p *hwParams, param int, val uint32) {
	if param < paramSampleBits || param > paramTickTime {
		return
	}

	iv := &p.Intervals[param-paramSampleBits]
	iv.MinVal = val
	iv.MaxVal = val
	iv.Flags = intervalInteger
}

func paramSetMin(p *hwParams, param int, val uint32) {
	if param < paramSampleBits || param > paramTickTime {
		return
	}

	p.Intervals[param-paramSampleBits].MinVal = val
}

// paramGetInt reads the lower bound of an interval; the driver narrows it on HW_PARAMS.
func paramGetInt(p *hwParams, param int) uint32 {
	if param < paramSampleBits || param > paramTickTime {
		return 0
	}

	return p.Intervals[param-paramSampleBits].MinVal
}
