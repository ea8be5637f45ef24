package pcmdev_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/gen2brain/pcmdev"
)

func TestLifecycleScenario(t *testing.T) {
	f := newReadyFixture(t)
	e := f.configured(t, 0)

	require.NoError(t, e.Open())
	assert.Equal(t, pcmdev.StateOpened, e.State())

	require.NoError(t, e.Prepare())
	assert.Equal(t, pcmdev.StatePrepared, e.State())

	require.NoError(t, e.Start())
	assert.Equal(t, pcmdev.StateStarted, e.State())

	require.NoError(t, e.Stop())
	assert.Equal(t, pcmdev.StateStopped, e.State())
	assert.Equal(t, 0, e.Counts().Start)

	require.NoError(t, e.Close())
	assert.Equal(t, pcmdev.StateClosed, e.State())
	assert.Equal(t, pcmdev.Counts{}, e.Counts())

	h := f.backend.handle(0)
	assert.Equal(t, 1, h.prepares)
	assert.Equal(t, 1, h.stops)
	assert.Equal(t, 1, h.closes)
	assert.Equal(t, pcmdev.Output, h.dir)
	assert.Equal(t, []notification{{0, true}, {0, false}}, f.notifier.recorded())
}

func TestOpenDerivesHardwareConfig(t *testing.T) {
	testCases := []struct {
		name   string
		media  pcmdev.MediaConfig
		period uint32
	}{
		{"stereo s16", pcmdev.MediaConfig{Channels: 2, Rate: 48000, Format: pcmdev.FormatPCMS16LE}, 2048},
		{"mono s16", pcmdev.MediaConfig{Channels: 1, Rate: 16000, Format: pcmdev.FormatPCMS16LE}, 4096},
		{"stereo s24 in s32", pcmdev.MediaConfig{Channels: 2, Rate: 48000, Format: pcmdev.FormatPCMS24LE}, 1024},
		{"six channel packed s24", pcmdev.MediaConfig{Channels: 6, Rate: 48000, Format: pcmdev.FormatPCMS24_3LE}, 455},
		{"octo s8", pcmdev.MediaConfig{Channels: 8, Rate: 8000, Format: pcmdev.FormatPCMS8}, 1024},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newReadyFixture(t)
			e, err := f.manager.Endpoint(0)
			require.NoError(t, err)
			require.NoError(t, e.SetMediaConfig(tc.media))

			require.NoError(t, e.Open())

			cfg := f.backend.lastConfig()
			assert.Equal(t, tc.media.Format, cfg.Format)
			assert.Equal(t, tc.media.Channels, cfg.Channels)
			assert.Equal(t, tc.media.Rate, cfg.Rate)
			assert.Equal(t, tc.period, cfg.PeriodSize)
			assert.Equal(t, uint32(2), cfg.PeriodCount)
			assert.Equal(t, tc.period/4, cfg.StartThreshold)
			assert.Equal(t, uint32(math.MaxInt32), cfg.StopThreshold)

			require.NoError(t, e.Close())
		})
	}
}

func TestOpenRejectsEmptyMediaConfig(t *testing.T) {
	f := newReadyFixture(t)
	e, err := f.manager.Endpoint(0)
	require.NoError(t, err)

	err = e.Open()
	require.ErrorIs(t, err, pcmdev.ErrInvalidArgument)
	assert.Equal(t, 0, f.backend.openCount())
	assert.Equal(t, pcmdev.StateClosed, e.State())
}

func TestOpenRejectsOversizedFrames(t *testing.T) {
	tests := []struct {
		name string
		mc   pcmdev.MediaConfig
	}{
		{"wrapping channel count", pcmdev.MediaConfig{Channels: 1 << 31, Rate: 48000, Format: pcmdev.FormatPCMS16LE}},
		{"frame larger than period", pcmdev.MediaConfig{Channels: 4097, Rate: 48000, Format: pcmdev.FormatPCMS16LE}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReadyFixture(t)
			e, err := f.manager.Endpoint(0)
			require.NoError(t, err)
			require.NoError(t, e.SetMediaConfig(tt.mc))

			require.NotPanics(t, func() { err = e.Open() })
			require.ErrorIs(t, err, pcmdev.ErrInvalidArgument)
			assert.Equal(t, 0, f.backend.openCount())
			assert.Equal(t, pcmdev.StateClosed, e.State())
		})
	}
}

func TestOpenFailureChangesNothing(t *testing.T) {
	f := newReadyFixture(t)
	f.backend.openErr = errInjected
	e := f.configured(t, 0)

	err := e.Open()
	require.ErrorIs(t, err, pcmdev.ErrHardwareFailure)
	require.ErrorIs(t, err, errInjected)

	assert.Equal(t, pcmdev.StateClosed, e.State())
	assert.Equal(t, pcmdev.Counts{}, e.Counts())
	assert.Empty(t, f.notifier.recorded())

	// The next open tries the hardware again.
	f.backend.openErr = nil
	require.NoError(t, e.Open())
	assert.Equal(t, 2, f.backend.openCount())
	require.NoError(t, e.Close())
}

func TestOpenCloseSymmetry(t *testing.T) {
	f := newReadyFixture(t)

	for i := range f.manager.Len() {
		e := f.configured(t, i)
		before := e.Counts().Open

		const n = 5
		for range n {
			require.NoError(t, e.Open())
		}
		assert.Equal(t, before+n, e.Counts().Open)

		for range n {
			require.NoError(t, e.Close())
		}
		assert.Equal(t, before, e.Counts().Open, e.String())
		assert.Equal(t, pcmdev.StateClosed, e.State())
	}

	assert.Equal(t, f.manager.Len(), f.backend.openCount())
}

func TestConcurrentOpenInvokesHardwareOnce(t *testing.T) {
	f := newReadyFixture(t)
	e := f.configured(t, 0)

	const callers = 16

	var g errgroup.Group
	for range callers {
		g.Go(e.Open)
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, f.backend.openCount())
	assert.Equal(t, callers, e.Counts().Open)
	assert.Equal(t, []notification{{0, true}}, f.notifier.recorded())

	for range callers {
		g.Go(e.Close)
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 0, e.Counts().Open)
	assert.Equal(t, 1, f.backend.handle(0).closes)
}

func TestStartRequiresPrepared(t *testing.T) {
	f := newReadyFixture(t)

	for _, e := range f.manager.Endpoints() {
		require.NoError(t, e.SetMediaConfig(stereo48k))

		require.ErrorIs(t, e.Start(), pcmdev.ErrOrderingViolation, "closed %s", e)

		require.NoError(t, e.Open())
		require.ErrorIs(t, e.Start(), pcmdev.ErrOrderingViolation, "opened %s", e)

		// A full start/stop history does not make a later unprepared start legal.
		require.NoError(t, e.Prepare())
		require.NoError(t, e.Start())
		require.NoError(t, e.Stop())
		require.NoError(t, e.Close())

		require.NoError(t, e.Open())
		require.ErrorIs(t, e.Start(), pcmdev.ErrOrderingViolation, "reopened %s", e)
		require.NoError(t, e.Close())
	}
}

func TestStopIsNested(t *testing.T) {
	f := newReadyFixture(t)
	e := f.configured(t, 0)

	require.NoError(t, e.Open())
	require.NoError(t, e.Prepare())
	require.NoError(t, e.Start())
	require.NoError(t, e.Start())
	assert.Equal(t, 2, e.Counts().Start)

	require.NoError(t, e.Stop())
	assert.Equal(t, pcmdev.StateStarted, e.State())
	assert.Equal(t, 0, f.backend.handle(0).stops)

	require.NoError(t, e.Stop())
	assert.Equal(t, pcmdev.StateStopped, e.State())
	assert.Equal(t, 1, f.backend.handle(0).stops)

	// Stop with no start reference is a no-op.
	require.NoError(t, e.Stop())
	assert.Equal(t, 1, f.backend.handle(0).stops)

	// A stopped stream can be restarted without another prepare.
	require.NoError(t, e.Start())
	assert.Equal(t, pcmdev.StateStarted, e.State())
	assert.Equal(t, 1, f.backend.handle(0).prepares)

	require.NoError(t, e.Close())
}

func TestStopFailureDoesNotRollBack(t *testing.T) {
	f := newReadyFixture(t)
	f.backend.stopErr = errInjected
	e := f.configured(t, 0)

	require.NoError(t, e.Open())
	require.NoError(t, e.Prepare())
	require.NoError(t, e.Start())

	require.NoError(t, e.Stop())
	assert.Equal(t, pcmdev.StateStopped, e.State())
	assert.Equal(t, 0, e.Counts().Start)

	require.NoError(t, e.Close())
}

func TestCloseResetsNestedCounts(t *testing.T) {
	f := newReadyFixture(t)
	e := f.configured(t, 0)

	require.NoError(t, e.Open())
	require.NoError(t, e.Open())
	require.NoError(t, e.Prepare())
	require.NoError(t, e.Prepare())
	require.NoError(t, e.Start())
	require.NoError(t, e.Start())

	require.NoError(t, e.Close())
	assert.Equal(t, pcmdev.Counts{Open: 1, Prepare: 2, Start: 2}, e.Counts())
	assert.Equal(t, pcmdev.StateStarted, e.State())

	// The last close resets prepare and start even though stop was never called.
	require.NoError(t, e.Close())
	assert.Equal(t, pcmdev.Counts{}, e.Counts())
	assert.Equal(t, pcmdev.StateClosed, e.State())
	assert.Equal(t, 0, f.backend.handle(0).stops)
	assert.Equal(t, 1, f.backend.handle(0).prepares)

	// Reopening starts from scratch and prepares the hardware again.
	require.NoError(t, e.Open())
	require.NoError(t, e.Prepare())
	assert.Equal(t, 1, f.backend.handle(1).prepares)
	require.NoError(t, e.Close())
}

func TestOrderingGuards(t *testing.T) {
	f := newReadyFixture(t)
	e := f.configured(t, 0)

	require.ErrorIs(t, e.Prepare(), pcmdev.ErrOrderingViolation)
	require.ErrorIs(t, e.Close(), pcmdev.ErrOrderingViolation)
	assert.Equal(t, pcmdev.Counts{}, e.Counts())
}

func TestPrepareFailure(t *testing.T) {
	f := newReadyFixture(t)
	f.backend.prepareErr = errInjected
	e := f.configured(t, 0)

	require.NoError(t, e.Open())

	err := e.Prepare()
	require.ErrorIs(t, err, pcmdev.ErrHardwareFailure)
	assert.Equal(t, pcmdev.StateOpened, e.State())
	assert.Equal(t, 0, e.Counts().Prepare)

	f.backend.prepareErr = nil
	require.NoError(t, e.Prepare())
	assert.Equal(t, 2, f.backend.handle(0).prepares)

	require.NoError(t, e.Close())
}

func TestCloseFailureIsSwallowed(t *testing.T) {
	f := newReadyFixture(t)
	f.backend.closeErr = errInjected
	e := f.configured(t, 0)

	require.NoError(t, e.Open())
	require.NoError(t, e.Close())
	assert.Equal(t, pcmdev.StateClosed, e.State())
}

func TestNotifierFailureDoesNotFailOpen(t *testing.T) {
	f := newReadyFixture(t)
	f.notifier.err = errInjected
	e := f.configured(t, 1)

	require.NoError(t, e.Open())
	assert.Equal(t, pcmdev.StateOpened, e.State())
	require.NoError(t, e.Close())

	assert.Equal(t, []notification{{1, true}, {1, false}}, f.notifier.recorded())
}

func TestMediaConfigChangeAppliesOnNextOpen(t *testing.T) {
	f := newReadyFixture(t)
	e := f.configured(t, 0)

	require.NoError(t, e.Open())
	require.NoError(t, e.SetMediaConfig(pcmdev.MediaConfig{Channels: 1, Rate: 16000, Format: pcmdev.FormatPCMS32LE}))
	require.NoError(t, e.Open())
	assert.Equal(t, 1, f.backend.openCount())

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	require.NoError(t, e.Open())
	assert.Equal(t, uint32(1), f.backend.lastConfig().Channels)
	assert.Equal(t, pcmdev.FormatPCMS32LE, f.backend.lastConfig().Format)
	require.NoError(t, e.Close())
}

func TestNilEndpoint(t *testing.T) {
	var e *pcmdev.Endpoint

	for name, op := range map[string]func() error{
		"open":    e.Open,
		"prepare": e.Prepare,
		"start":   e.Start,
		"stop":    e.Stop,
		"close":   e.Close,
		"media":   func() error { return e.SetMediaConfig(stereo48k) },
		"meta":    func() error { return e.SetMetadata(nil) },
		"params":  func() error { return e.SetParams([]byte{1}) },
		"chmap": func() error {
			_, err := e.ChannelMap()
			return err
		},
	} {
		assert.ErrorIs(t, op(), pcmdev.ErrInvalidArgument, name)
	}

	assert.Equal(t, pcmdev.StateClosed, e.State())
	assert.Nil(t, e.Params())
	assert.Nil(t, e.Metadata())
}
