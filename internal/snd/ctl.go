package snd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ErrElemNotFound is returned when a control element does not exist on the card.
var ErrElemNotFound = errors.New("control element not found")

// ElemType is the value type of a control element (SNDRV_CTL_ELEM_TYPE_*).
type ElemType int32

const (
	ElemTypeNone       ElemType = 0
	ElemTypeBoolean    ElemType = 1
	ElemTypeInteger    ElemType = 2
	ElemTypeEnumerated ElemType = 3
	ElemTypeBytes      ElemType = 4
	ElemTypeIEC958     ElemType = 5
	ElemTypeInteger64  ElemType = 6
)

// Elem describes a single control element.
type Elem struct {
	info ctlElemInfo
}

// Name returns the element name.
func (e *Elem) Name() string {
	if e == nil {
		return ""
	}

	return cString(e.info.ID.Name[:])
}

// NumID returns the numeric identifier of the element.
func (e *Elem) NumID() uint32 {
	if e == nil {
		return 0
	}

	return e.info.ID.Numid
}

// Type returns the value type of the element.
func (e *Elem) Type() ElemType {
	if e == nil {
		return ElemTypeNone
	}

	return ElemType(e.info.Typ)
}

// Count returns the number of values the element holds.
func (e *Elem) Count() uint32 {
	if e == nil {
		return 0
	}

	return e.info.Count
}

// Ctl is an open control device of a sound card.
type Ctl struct {
	file     *os.File
	card     uint32
	cardInfo ctlCardInfo
}

// CtlPath returns the control device node of a card.
func CtlPath(card uint32) string {
	return fmt.Sprintf("/dev/snd/controlC%d", card)
}

// OpenCtl opens the control device of a card.
func OpenCtl(card uint32) (*Ctl, error) {
	path := CtlPath(card)

	file, err := os.OpenFile(path, os.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open control device %s: %w", path, err)
	}

	c := &Ctl{file: file, card: card}

	if err := ioctl(file.Fd(), ctlIoctlCardInfo, uintptr(unsafe.Pointer(&c.cardInfo))); err != nil {
		_ = c.Close()

		return nil, fmt.Errorf("ioctl CARD_INFO failed: %w", err)
	}

	return c, nil
}

// OpenCtlByName opens a control device by its hardware name, "hw:C".
func OpenCtlByName(name string) (*Ctl, error) {
	card, _, err := ParseHWName(name)
	if err != nil {
		return nil, err
	}

	return OpenCtl(card)
}

// Close closes the control device.
func (c *Ctl) Close() error {
	if c == nil || c.file == nil {
		return nil
	}

	err := c.file.Close()
	c.file = nil

	return err
}

// Card returns the card number.
func (c *Ctl) Card() uint32 {
	if c == nil {
		return 0
	}

	return c.card
}

// CardName returns the short name of the card.
func (c *Ctl) CardName() string {
	if c == nil {
		return ""
	}

	return cString(c.cardInfo.Name[:])
}

// Elements enumerates every control element on the card.
// Elements whose info cannot be read are skipped.
func (c *Ctl) Elements() ([]*Elem, error) {
	if c == nil || c.file == nil {
		return nil, fmt.Errorf("control device is not open")
	}

	list := &ctlElemList{}
	if err := ioctl(c.file.Fd(), ctlIoctlElemList, uintptr(unsafe.Pointer(list))); err != nil {
		return nil, fmt.Errorf("ioctl ELEM_LIST (get count) failed: %w", err)
	}

	if list.Count == 0 {
		return nil, nil
	}

	ids := make([]ctlElemID, list.Count)
	list.Space = list.Count
	list.Pids = uintptr(unsafe.Pointer(&ids[0]))

	if err := ioctl(c.file.Fd(), ctlIoctlElemList, uintptr(unsafe.Pointer(list))); err != nil {
		return nil, fmt.Errorf("ioctl ELEM_LIST (get ids) failed: %w", err)
	}

	elems := make([]*Elem, 0, list.Used)
	for i := uint32(0); i < list.Used; i++ {
		e := &Elem{}
		e.info.ID = ids[i]

		if err := ioctl(c.file.Fd(), ctlIoctlElemInfo, uintptr(unsafe.Pointer(&e.info))); err != nil {
			continue
		}

		elems = append(elems, e)
	}

	return elems, nil
}

// ElemByName asks the kernel for the mixer element with the given name.
func (c *Ctl) ElemByName(name string) (*Elem, error) {
	if c == nil || c.file == nil {
		return nil, fmt.Errorf("control device is not open")
	}

	e := &Elem{}
	if len(name) >= len(e.info.ID.Name) {
		return nil, fmt.Errorf("%w: name %q exceeds %d bytes", ErrElemNotFound, name, len(e.info.ID.Name)-1)
	}

	e.info.ID.Iface = ctlElemIfaceMixer
	copy(e.info.ID.Name[:], name)

	if err := ioctl(c.file.Fd(), ctlIoctlElemInfo, uintptr(unsafe.Pointer(&e.info))); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return nil, fmt.Errorf("%w: %s", ErrElemNotFound, name)
		}

		return nil, fmt.Errorf("ioctl ELEM_INFO for %s failed: %w", name, err)
	}

	return e, nil
}

// ReadArray reads the first size bytes of an element's value.
// Integer and boolean values are narrowed to 32-bit little-endian words.
func (c *Ctl) ReadArray(e *Elem, size int) ([]byte, error) {
	if c == nil || c.file == nil {
		return nil, fmt.Errorf("control device is not open")
	}

	if e == nil || size <= 0 {
		return nil, fmt.Errorf("invalid read of %d bytes", size)
	}

	switch e.Type() {
	case ElemTypeBytes:
		if e.info.Access&ctlAccessTLVRead != 0 {
			return c.readTLV(e, size)
		}

		if size > int(e.Count()) {
			return nil, fmt.Errorf("control %s holds %d bytes, %d requested", e.Name(), e.Count(), size)
		}

		value, err := c.read(e)
		if err != nil {
			return nil, err
		}

		out := make([]byte, size)
		copy(out, value.Value[:size])

		return out, nil
	case ElemTypeInteger, ElemTypeBoolean:
		words := size / 4
		if size%4 != 0 || words > int(e.Count()) {
			return nil, fmt.Errorf("control %s holds %d values, %d bytes requested", e.Name(), e.Count(), size)
		}

		value, err := c.read(e)
		if err != nil {
			return nil, err
		}

		out := make([]byte, size)
		stride := int(unsafe.Sizeof(clong(0)))
		for i := 0; i < words; i++ {
			v := *(*clong)(unsafe.Pointer(&value.Value[i*stride]))
			binary.LittleEndian.PutUint32(out[i*4:], uint32(int32(v)))
		}

		return out, nil
	default:
		return nil, fmt.Errorf("control %s has unsupported type %d", e.Name(), e.Type())
	}
}

func (c *Ctl) read(e *Elem) (*ctlElemValue, error) {
	value := &ctlElemValue{ID: e.info.ID}
	if err := ioctl(c.file.Fd(), ctlIoctlElemRead, uintptr(unsafe.Pointer(value))); err != nil {
		return nil, fmt.Errorf("ioctl ELEM_READ for %s failed: %w", e.Name(), err)
	}

	return value, nil
}

func (c *Ctl) readTLV(e *Elem, size int) ([]byte, error) {
	hdr := int(unsafe.Sizeof(ctlTlv{}))
	buf := make([]byte, hdr+size)

	tlv := (*ctlTlv)(unsafe.Pointer(&buf[0]))
	tlv.Numid = e.NumID()
	tlv.Length = uint32(size)

	if err := ioctl(c.file.Fd(), ctlIoctlTlvRead, uintptr(unsafe.Pointer(&buf[0]))); err != nil {
		return nil, fmt.Errorf("ioctl TLV_READ for %s failed: %w", e.Name(), err)
	}

	out := make([]byte, size)
	copy(out, buf[hdr:])

	return out, nil
}

// cString converts a C-style null-terminated byte array to a Go string.
func cString(b []byte) string {
	i := bytes.IndexByte(b, 0)
	if i == -1 {
		return string(b)
	}

	return string(b[:i])
}
