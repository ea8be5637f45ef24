package pcmdev

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// SetMediaConfig replaces the media configuration used by the next hardware open.
// It has no effect on a stream that is already open.
func (e *Endpoint) SetMediaConfig(mc MediaConfig) error {
	if e == nil {
		return errNilEndpoint()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.media = mc

	return nil
}

// MediaConfig returns the current media configuration.
func (e *Endpoint) MediaConfig() MediaConfig {
	if e == nil {
		return MediaConfig{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.media
}

// SetMetadata replaces the metadata attachment with a decoded copy of blob.
// The previous attachment is released first and stays released if the copy fails.
func (e *Endpoint) SetMetadata(blob []byte) error {
	if e == nil {
		return errNilEndpoint()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	codec := e.mgr.cfg.Metadata
	codec.Free(e.metadata)
	e.metadata = nil

	md, err := codec.Copy(blob)
	if err != nil {
		e.log.Error("failed to copy metadata", "size", len(blob), "error", err)

		return fmt.Errorf("%w: metadata for %s: %w", ErrOutOfMemory, e, err)
	}

	e.metadata = md

	return nil
}

// Metadata returns a copy of the metadata attachment, or nil when there is none.
func (e *Endpoint) Metadata() *Metadata {
	if e == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.metadata.Clone()
}

// SetParams replaces the opaque device parameters with a copy of payload.
// The previous payload is released first and stays released if the payload is rejected.
func (e *Endpoint) SetParams(payload []byte) error {
	if e == nil {
		return errNilEndpoint()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.params = nil

	if len(payload) == 0 || len(payload) > MaxParamsSize {
		return fmt.Errorf("%w: params of %d bytes, limit %d", ErrOutOfMemory, len(payload), MaxParamsSize)
	}

	e.params = append([]byte(nil), payload...)

	return nil
}

// Params returns a copy of the device parameters, or nil when there are none.
func (e *Endpoint) Params() []byte {
	if e == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.params == nil {
		return nil
	}

	return append([]byte(nil), e.params...)
}

// ChannelMapControl returns the mixer control holding the channel map of an endpoint.
func ChannelMapControl(name string) string {
	return name + " Channel Map"
}

// ChannelMap reads the channel map of the endpoint from the mixer of the primary card.
func (e *Endpoint) ChannelMap() ([]uint32, error) {
	if e == nil {
		return nil, errNilEndpoint()
	}

	control := ChannelMapControl(e.name)

	raw, err := e.mgr.readControl(control, ChannelMapLen*4)
	if err != nil {
		switch {
		case errors.Is(err, ErrControlNotFound):
			e.mgr.metrics.channelMapRead("not_found")
			e.log.Error("channel map control not found", "control", control)
		default:
			e.mgr.metrics.channelMapRead("error")
			e.log.Error("failed to read channel map", "control", control, "error", err)
		}

		return nil, err
	}

	e.mgr.metrics.channelMapRead("ok")

	chmap := make([]uint32, ChannelMapLen)
	for i := range chmap {
		chmap[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}

	return chmap, nil
}
