// Package alsalib implements pcmdev.Backend with alsa-lib semantics: PCM devices are
// opened by their "hw:C,D" name with hardware parameters only, and mixer controls are
// resolved by name through the kernel on every read.
package alsalib

import (
	"errors"
	"fmt"

	"github.com/gen2brain/pcmdev"
	"github.com/gen2brain/pcmdev/internal/snd"
)

// Backend opens PCM streams by hardware name.
type Backend struct{}

// New returns an alsa-lib style backend.
func New() *Backend {
	return &Backend{}
}

// Name returns "alsa".
func (*Backend) Name() string {
	return "alsa"
}

// Format translates a media format into the kernel sample format. Unknown formats map to S16_LE.
func Format(f pcmdev.MediaFormat) snd.Format {
	switch f {
	case pcmdev.FormatPCMS8:
		return snd.FormatS8
	case pcmdev.FormatPCMS24LE:
		return snd.FormatS24LE
	case pcmdev.FormatPCMS24_3LE:
		return snd.FormatS24_3LE
	case pcmdev.FormatPCMS32LE:
		return snd.FormatS32LE
	default:
		return snd.FormatS16LE
	}
}

// DeviceName returns the hardware name of a PCM device.
func DeviceName(card, device uint32) string {
	return fmt.Sprintf("hw:%d,%d", card, device)
}

// Open opens hw:<card>,<device> and installs the hardware parameters of cfg.
// The period size is pinned; thresholds are left to the driver defaults.
func (*Backend) Open(card, device uint32, dir pcmdev.Direction, cfg pcmdev.HWConfig) (pcmdev.Handle, error) {
	name := DeviceName(card, device)

	pcm, err := snd.OpenPCMByName(name, dir == pcmdev.Input)
	if err != nil {
		return nil, err
	}

	_, err = pcm.SetHWParams(snd.HWParams{
		Access:      snd.AccessRWInterleaved,
		Format:      Format(cfg.Format),
		Channels:    cfg.Channels,
		Rate:        cfg.Rate,
		PeriodSize:  cfg.PeriodSize,
		PeriodCount: cfg.PeriodCount,
		ExactPeriod: true,
	})
	if err != nil {
		_ = pcm.Close()

		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return &stream{pcm: pcm}, nil
}

// OpenSession opens the control device hw:<card>.
func (*Backend) OpenSession(card uint32) (pcmdev.MixerSession, error) {
	ctl, err := snd.OpenCtlByName(fmt.Sprintf("hw:%d", card))
	if err != nil {
		return nil, err
	}

	return &session{ctl: ctl}, nil
}

type stream struct {
	pcm *snd.PCM
}

func (s *stream) Prepare() error { return s.pcm.Prepare() }

// Stop drops pending frames.
func (s *stream) Stop() error { return s.pcm.Drop() }

func (s *stream) Close() error {
	_ = s.pcm.Drop()

	return s.pcm.Close()
}

type session struct {
	ctl *snd.Ctl
}

func (s *session) ReadArray(control string, size int) ([]byte, error) {
	e, err := s.ctl.ElemByName(control)
	if err != nil {
		if errors.Is(err, snd.ErrElemNotFound) {
			return nil, fmt.Errorf("%w: %w", pcmdev.ErrControlNotFound, err)
		}

		return nil, err
	}

	return s.ctl.ReadArray(e, size)
}

func (s *session) Close() error {
	return s.ctl.Close()
}
