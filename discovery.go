package pcmdev

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// DefaultDescriptorPath lists the active PCM nodes of all sound cards.
const DefaultDescriptorPath = "/proc/asound/pcm"

// FileSource is a DescriptorSource backed by a file such as /proc/asound/pcm.
type FileSource string

// Open opens the file from the start.
func (s FileSource) Open() (io.ReadCloser, error) {
	return os.Open(string(s))
}

// maxDescriptorLine bounds a line worth parsing. Longer lines are skipped unread.
const maxDescriptorLine = 4096

// descriptorRegex matches "CC-DD: name ..." and captures the first token after the colon.
var descriptorRegex = regexp.MustCompile(`^\s*(\d+)-(\d+):\s*(\S+)`)

// ParseDescriptorLine parses the card number, device number and name from one descriptor line.
// HW is left empty for the EndpointInfoSource to fill.
func ParseDescriptorLine(line string) (Descriptor, error) {
	matches := descriptorRegex.FindStringSubmatch(line)
	if len(matches) != 4 {
		return Descriptor{}, fmt.Errorf("malformed descriptor line %q", line)
	}

	card, err := strconv.ParseUint(matches[1], 10, 32)
	if err != nil {
		return Descriptor{}, fmt.Errorf("invalid card number in %q: %w", line, err)
	}

	device, err := strconv.ParseUint(matches[2], 10, 32)
	if err != nil {
		return Descriptor{}, fmt.Errorf("invalid device number in %q: %w", line, err)
	}

	name := matches[3]
	if len(name) > MaxNameLen {
		return Descriptor{}, fmt.Errorf("endpoint name %.16q... exceeds %d bytes", name, MaxNameLen)
	}

	return Descriptor{
		CardID: uint32(card),
		ID:     uint32(device),
		Name:   name,
		Line:   line,
	}, nil
}

// scan runs one discovery pass over the descriptor source.
// Lines that fail to parse or populate are skipped; an empty result is retryable.
func (m *Manager) scan() ([]*Endpoint, error) {
	rc, err := m.cfg.Source.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: descriptor source: %w", ErrNotFound, err)
	}
	defer rc.Close()

	var endpoints []*Endpoint

	r := bufio.NewReader(rc)
	for {
		line, tooLong, err := readLine(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading descriptor source: %w", ErrNotFound, err)
		}

		if tooLong {
			m.log.Warn("skipping oversized descriptor line", "limit", maxDescriptorLine)

			continue
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		d, err := ParseDescriptorLine(line)
		if err != nil {
			m.log.Warn("skipping descriptor line", "error", err)

			continue
		}

		if err := m.cfg.Info.Populate(&d); err != nil {
			m.log.Warn("skipping endpoint without hardware info",
				"card", d.CardID, "device", d.ID, "name", d.Name, "error", err)

			continue
		}

		e := newEndpoint(m, d)
		m.log.Debug("discovered endpoint",
			"card", d.CardID, "device", d.ID, "name", d.Name, "direction", d.HW.Direction)
		endpoints = append(endpoints, e)
	}

	if len(endpoints) == 0 {
		return nil, ErrRetryable
	}

	return endpoints, nil
}

// readLine returns the next line without its terminator. A line longer than
// maxDescriptorLine is drained and reported as tooLong. io.EOF is returned only
// once no bytes remain.
func readLine(r *bufio.Reader) (line string, tooLong bool, err error) {
	var buf []byte

	for {
		chunk, isPrefix, readErr := r.ReadLine()
		if readErr != nil {
			if readErr == io.EOF && (buf != nil || tooLong) {
				return string(buf), tooLong, nil
			}

			return "", false, readErr
		}

		if !tooLong {
			buf = append(buf, chunk...)
			if len(buf) > maxDescriptorLine {
				buf, tooLong = nil, true
			}
		}

		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}
