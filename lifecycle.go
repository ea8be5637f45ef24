package pcmdev

import (
	"fmt"
	"math"
)

const stopThreshold = math.MaxInt32

// hwConfig derives the stream configuration for the current media configuration.
// The period is sized to maxPeriodBytes whatever the frame size.
func hwConfig(mc MediaConfig) (HWConfig, error) {
	if mc.Channels == 0 || mc.Rate == 0 {
		return HWConfig{}, fmt.Errorf("%w: media config has %d channels at %d Hz", ErrInvalidArgument, mc.Channels, mc.Rate)
	}

	frameBytes := uint64(mc.Channels) * uint64(mc.Format.BitsPerSample()/8)
	if frameBytes == 0 || frameBytes > maxPeriodBytes {
		return HWConfig{}, fmt.Errorf("%w: %d byte frames do not fit the %d byte period", ErrInvalidArgument, frameBytes, maxPeriodBytes)
	}

	period := uint32(maxPeriodBytes / frameBytes)

	return HWConfig{
		Format:         mc.Format,
		Channels:       mc.Channels,
		Rate:           mc.Rate,
		PeriodSize:     period,
		PeriodCount:    defaultPeriodCount,
		StartThreshold: period / 4,
		StopThreshold:  stopThreshold,
	}, nil
}

// Open acquires a reference on the hardware stream, opening and configuring it with the
// current media configuration on the first reference.
func (e *Endpoint) Open() error {
	if e == nil {
		return errNilEndpoint()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.refs.Open > 0 {
		e.refs.Open++
		e.log.Debug("PCM device already open", "refs", e.refs.Open)
		e.mgr.metrics.setOpenRefs(e, e.refs.Open)

		return nil
	}

	cfg, err := hwConfig(e.media)
	if err != nil {
		return err
	}

	h, err := e.mgr.cfg.Backend.Open(e.card, e.id, e.hw.Direction, cfg)
	e.mgr.metrics.hardwareOp("open", err)
	if err != nil {
		e.log.Error("unable to open PCM device",
			"rate", cfg.Rate,
			"channels", cfg.Channels,
			"format", cfg.Format,
			"period_size", cfg.PeriodSize,
			"period_count", cfg.PeriodCount,
			"error", err)

		return fmt.Errorf("%w: open %s: %w", ErrHardwareFailure, e, err)
	}

	e.mgr.notify(e, true)

	e.handle = h
	e.state = StateOpened
	e.refs.Open++
	e.mgr.metrics.setOpenRefs(e, e.refs.Open)
	e.log.Info("PCM device opened", "rate", cfg.Rate, "channels", cfg.Channels, "format", cfg.Format)

	return nil
}

// Prepare acquires a prepare reference, preparing the hardware on the first one.
func (e *Endpoint) Prepare() error {
	if e == nil {
		return errNilEndpoint()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.refs.Open == 0 {
		return fmt.Errorf("%w: prepare %s before open", ErrOrderingViolation, e)
	}

	if e.refs.Prepare > 0 {
		e.refs.Prepare++

		return nil
	}

	err := e.handle.Prepare()
	e.mgr.metrics.hardwareOp("prepare", err)
	if err != nil {
		e.log.Error("failed to prepare PCM device", "error", err)

		return fmt.Errorf("%w: prepare %s: %w", ErrHardwareFailure, e, err)
	}

	e.state = StatePrepared
	e.refs.Prepare++

	return nil
}

// Start acquires a start reference. The stream must be prepared.
// The hardware is started by the first write, not here.
func (e *Endpoint) Start() error {
	if e == nil {
		return errNilEndpoint()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state < StatePrepared {
		e.log.Error("start requested before prepare", "state", e.state)

		return fmt.Errorf("%w: start %s in state %s", ErrOrderingViolation, e, e.state)
	}

	if e.refs.Start > 0 {
		e.refs.Start++

		return nil
	}

	e.state = StateStarted
	e.refs.Start++

	return nil
}

// Stop releases a start reference and halts the hardware when the last one goes.
// A hardware failure is logged; the reference is released regardless.
func (e *Endpoint) Stop() error {
	if e == nil {
		return errNilEndpoint()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.refs.Start == 0 {
		return nil
	}

	e.refs.Start--
	if e.refs.Start > 0 {
		return nil
	}

	err := e.handle.Stop()
	e.mgr.metrics.hardwareOp("stop", err)
	if err != nil {
		e.log.Error("failed to stop PCM device", "error", err)
	}

	e.state = StateStopped

	return nil
}

// Close releases an open reference. The last one publishes the disable event, closes the
// hardware stream and resets the prepare and start counts.
func (e *Endpoint) Close() error {
	if e == nil {
		return errNilEndpoint()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.refs.Open == 0 {
		return fmt.Errorf("%w: close %s which is not open", ErrOrderingViolation, e)
	}

	e.refs.Open--
	e.mgr.metrics.setOpenRefs(e, e.refs.Open)
	if e.refs.Open > 0 {
		return nil
	}

	e.mgr.notify(e, false)

	err := e.handle.Close()
	e.mgr.metrics.hardwareOp("close", err)
	if err != nil {
		e.log.Error("failed to close PCM device", "error", err)
	}

	e.handle = nil
	e.state = StateClosed
	e.refs.Prepare = 0
	e.refs.Start = 0
	e.log.Info("PCM device closed")

	return nil
}
