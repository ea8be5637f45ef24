// Package tinyalsa implements pcmdev.Backend with tinyalsa semantics: PCM devices are
// opened by card and device number, configured with hardware and software parameters,
// and mixer controls are resolved from a table enumerated once per session.
package tinyalsa

import (
	"fmt"

	"github.com/gen2brain/pcmdev"
	"github.com/gen2brain/pcmdev/internal/snd"
)

// Backend opens kernel PCM streams directly.
type Backend struct{}

// New returns a tinyalsa backend.
func New() *Backend {
	return &Backend{}
}

// Name returns "tinyalsa".
func (*Backend) Name() string {
	return "tinyalsa"
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

// Open opens /dev/snd/pcmC<card>D<device><p|c> and installs cfg.
func (*Backend) Open(card, device uint32, dir pcmdev.Direction, cfg pcmdev.HWConfig) (pcmdev.Handle, error) {
	pcm, err := snd.OpenPCM(card, device, dir == pcmdev.Input)
	if err != nil {
		return nil, err
	}

	hw := snd.HWParams{
		Access:      snd.AccessRWInterleaved,
		Format:      Format(cfg.Format),
		Channels:    cfg.Channels,
		Rate:        cfg.Rate,
		PeriodSize:  cfg.PeriodSize,
		PeriodCount: cfg.PeriodCount,
	}

	if _, err := pcm.SetHWParams(hw); err != nil {
		_ = pcm.Close()

		return nil, fmt.Errorf("%s: %w", pcm.Path(), err)
	}

	sw := snd.SWParams{
		StartThreshold: cfg.StartThreshold,
		StopThreshold:  cfg.StopThreshold,
	}

	if err := pcm.SetSWParams(sw); err != nil {
		_ = pcm.Close()

		return nil, fmt.Errorf("%s: %w", pcm.Path(), err)
	}

	return &stream{pcm: pcm}, nil
}

// OpenSession opens the control device of card and enumerates its elements.
func (*Backend) OpenSession(card uint32) (pcmdev.MixerSession, error) {
	ctl, err := snd.OpenCtl(card)
	if err != nil {
		return nil, err
	}

	elems, err := ctl.Elements()
	if err != nil {
		_ = ctl.Close()

		return nil, fmt.Errorf("enumerating controls of card %d: %w", card, err)
	}

	byName := make(map[string]*snd.Elem, len(elems))
	for _, e := range elems {
		if _, ok := byName[e.Name()]; !ok {
			byName[e.Name()] = e
		}
	}

	return &mixer{ctl: ctl, elems: byName}, nil
}

type stream struct {
	pcm *snd.PCM
}

func (s *stream) Prepare() error { return s.pcm.Prepare() }

func (s *stream) Stop() error { return s.pcm.Drop() }

func (s *stream) Close() error { return s.pcm.Close() }

type mixer struct {
	ctl   *snd.Ctl
	elems map[string]*snd.Elem
}

func (m *mixer) ReadArray(control string, size int) ([]byte, error) {
	e, ok := m.elems[control]
	if !ok {
		return nil, fmt.Errorf("%w: %s on card %d", pcmdev.ErrControlNotFound, control, m.ctl.Card())
	}

	return m.ctl.ReadArray(e, size)
}

func (m *mixer) Close() error {
	return m.ctl.Close()
}
