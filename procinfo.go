package pcmdev

import (
	"fmt"
	"strings"
)

// ProcInfo derives the direction of an endpoint from its /proc/asound/pcm line, e.g.
//
//	00-00: MultiMedia1 :  : playback 1 : capture 1
//
// Full-duplex nodes are ambiguous and rejected.
type ProcInfo struct{}

// Populate sets d.HW.Direction from the stream fields of d.Line.
func (ProcInfo) Populate(d *Descriptor) error {
	var playback, capture bool

	fields := strings.Split(d.Line, ":")
	if len(fields) > 3 {
		for _, f := range fields[3:] {
			f = strings.TrimSpace(f)
			playback = playback || strings.HasPrefix(f, "playback")
			capture = capture || strings.HasPrefix(f, "capture")
		}
	}

	switch {
	case playback && !capture:
		d.HW.Direction = Output
	case capture && !playback:
		d.HW.Direction = Input
	case playback && capture:
		return fmt.Errorf("endpoint %s is full duplex", d.Name)
	default:
		return fmt.Errorf("endpoint %s has no stream direction", d.Name)
	}

	return nil
}
