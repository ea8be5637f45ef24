package pcmdev

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// KV is a key/value pair of a graph or calibration key vector.
type KV struct {
	Key   uint32
	Value uint32
}

// Metadata is the decoded routing metadata attached to an endpoint.
type Metadata struct {
	GraphKV    []KV
	CalKV      []KV
	PropID     uint32
	PropValues []uint32
}

// Clone returns a deep copy of m.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}

	return &Metadata{
		GraphKV:    append([]KV(nil), m.GraphKV...),
		CalKV:      append([]KV(nil), m.CalKV...),
		PropID:     m.PropID,
		PropValues: append([]uint32(nil), m.PropValues...),
	}
}

// MarshalBinary encodes m in the layout KVCodec decodes.
func (m *Metadata) MarshalBinary() ([]byte, error) {
	if m == nil {
		return nil, errors.New("metadata is nil")
	}

	var buf bytes.Buffer

	write := func(v any) {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}

	write(uint32(len(m.GraphKV)))
	write(m.GraphKV)
	write(uint32(len(m.CalKV)))
	write(m.CalKV)
	write(m.PropID)
	write(uint32(len(m.PropValues)))
	write(m.PropValues)

	return buf.Bytes(), nil
}

// KVCodec decodes little-endian metadata blobs:
//
//	u32 nGKV, nGKV x {u32 key, u32 value}
//	u32 nCKV, nCKV x {u32 key, u32 value}
//	u32 propID, u32 nValues, nValues x u32
//
// An empty blob decodes to no metadata.
type KVCodec struct{}

// Copy decodes blob into a Metadata that shares no memory with it.
func (KVCodec) Copy(blob []byte) (*Metadata, error) {
	if len(blob) == 0 {
		return nil, nil
	}

	r := bytes.NewReader(blob)
	md := &Metadata{}

	var err error
	if md.GraphKV, err = readKVs(r, "graph"); err != nil {
		return nil, err
	}

	if md.CalKV, err = readKVs(r, "calibration"); err != nil {
		return nil, err
	}

	if err := binary.Read(r, binary.LittleEndian, &md.PropID); err != nil {
		return nil, fmt.Errorf("reading property id: %w", err)
	}

	n, err := readCount(r, 4, "property value")
	if err != nil {
		return nil, err
	}

	md.PropValues = make([]uint32, n)
	if err := binary.Read(r, binary.LittleEndian, md.PropValues); err != nil {
		return nil, fmt.Errorf("reading property values: %w", err)
	}

	if r.Len() > 0 {
		return nil, fmt.Errorf("%d trailing bytes after metadata", r.Len())
	}

	return md, nil
}

// Free releases m. Decoded metadata is garbage collected, so there is nothing to do.
func (KVCodec) Free(*Metadata) {}

func readKVs(r *bytes.Reader, what string) ([]KV, error) {
	n, err := readCount(r, 8, what+" key")
	if err != nil {
		return nil, err
	}

	kvs := make([]KV, n)
	if err := binary.Read(r, binary.LittleEndian, kvs); err != nil {
		return nil, fmt.Errorf("reading %s keys: %w", what, err)
	}

	return kvs, nil
}

// readCount reads an element count and checks the remaining blob can hold it.
func readCount(r *bytes.Reader, elemSize int, what string) (int, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return 0, fmt.Errorf("reading %s count: %w", what, err)
	}

	if uint64(n)*uint64(elemSize) > uint64(r.Len()) {
		return 0, fmt.Errorf("%d %s entries overrun the blob: %w", n, what, io.ErrUnexpectedEOF)
	}

	return int(n), nil
}
