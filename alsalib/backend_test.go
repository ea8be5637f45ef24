package alsalib_test

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/pcmdev"
	"github.com/gen2brain/pcmdev/internal/snd"
	"github.com/gen2brain/pcmdev/alsalib"
)

// To run the hardware tests, the 'snd-aloop' kernel module must be loaded:
//
// sudo modprobe snd-aloop

// findCard searches /proc/asound/cards for the passed device name and returns its card number. Returns -1 if not found.
func findCard(name string) int {
	content, err := os.ReadFile("/proc/asound/cards")
	if err != nil {
		return -1
	}

	for _, line := range strings.Split(string(content), "\n") {
		if strings.Contains(line, name) {
			var card int
			// The format is " 0 [Loopback       ]: Loopback - Loopback"
			if _, err := fmt.Sscanf(line, " %d", &card); err == nil {
				return card
			}
		}
	}

	return -1
}

func loopbackCard(t *testing.T) uint32 {
	t.Helper()

	card := findCard("Loopback")
	if card < 0 {
		t.Skip("ALSA loopback device not found, run: sudo modprobe snd-aloop")
	}

	return uint32(card)
}

func TestFormat(t *testing.T) {
	testCases := map[pcmdev.MediaFormat]snd.Format{
		pcmdev.FormatPCMS8:      snd.FormatS8,
		pcmdev.FormatPCMS16LE:   snd.FormatS16LE,
		pcmdev.FormatPCMS24LE:   snd.FormatS24LE,
		pcmdev.FormatPCMS24_3LE: snd.FormatS24_3LE,
		pcmdev.FormatPCMS32LE:   snd.FormatS32LE,
		pcmdev.MediaFormat(99):  snd.FormatS16LE,
	}

	for in, want := range testCases {
		assert.Equal(t, want, alsalib.Format(in), in.String())
		// The container size the state machine budgets for matches the kernel's.
		if in != pcmdev.MediaFormat(99) {
			assert.Equal(t, want.Bits(), in.BitsPerSample(), in.String())
		}
	}
}

func TestOpenMissingDevice(t *testing.T) {
	b := alsalib.New()
	assert.Equal(t, "alsa", b.Name())

	_, err := b.Open(1000, 1000, pcmdev.Output, pcmdev.HWConfig{Channels: 2, Rate: 48000, PeriodSize: 1024, PeriodCount: 2})
	assert.Error(t, err)

	_, err = b.OpenSession(1000)
	assert.Error(t, err)
}

func TestLoopbackHardware(t *testing.T) {
	card := loopbackCard(t)
	b := alsalib.New()

	cfg := pcmdev.HWConfig{
		Format:         pcmdev.FormatPCMS16LE,
		Channels:       2,
		Rate:           48000,
		PeriodSize:     2048,
		PeriodCount:    2,
		StartThreshold: 512,
		StopThreshold:  1<<31 - 1,
	}

	h, err := b.Open(card, 0, pcmdev.Output, cfg)
	require.NoError(t, err)
	require.NoError(t, h.Prepare())
	require.NoError(t, h.Stop())
	require.NoError(t, h.Close())

	s, err := b.OpenSession(card)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ReadArray("No Such Control Channel Map", 64)
	require.ErrorIs(t, err, pcmdev.ErrControlNotFound)

	raw, err := s.ReadArray("PCM Rate Shift 100000", 4)
	require.NoError(t, err)
	assert.Len(t, raw, 4)
}

func TestDeviceName(t *testing.T) {
	assert.Equal(t, "hw:0,0", alsalib.DeviceName(0, 0))
	assert.Equal(t, "hw:2,17", alsalib.DeviceName(2, 17))

	card, device, err := snd.ParseHWName(alsalib.DeviceName(3, 4))
	require.NoError(t, err)
	assert.Equal(t, uint32(3), card)
	assert.Equal(t, 4, device)
}
