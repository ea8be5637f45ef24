package pcmdev

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// PlatformEndpoint is one endpoint entry of a platform descriptor.
type PlatformEndpoint struct {
	Name       string            `yaml:"name"`
	Direction  string            `yaml:"direction"`
	Interface  string            `yaml:"interface"`
	Index      int               `yaml:"index"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
}

type platformDocument struct {
	Endpoints []PlatformEndpoint `yaml:"endpoints"`
}

// PlatformInfo populates endpoints from a YAML platform descriptor:
//
//	endpoints:
//	  - name: CODEC_DMA-LPAIF_RXTX-RX-0
//	    direction: output
//	    interface: CODEC_DMA
//	    index: 0
//	    attributes:
//	      lpaif: RXTX
//
// Endpoints missing from the descriptor are rejected.
type PlatformInfo struct {
	byName map[string]HWEndpointInfo
}

// LoadPlatformInfo reads a platform descriptor file.
func LoadPlatformInfo(path string) (*PlatformInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open platform descriptor: %w", err)
	}
	defer f.Close()

	p, err := ParsePlatformInfo(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return p, nil
}

// ParsePlatformInfo decodes a platform descriptor.
func ParsePlatformInfo(r io.Reader) (*PlatformInfo, error) {
	var doc platformDocument

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding platform descriptor: %w", err)
	}

	p := &PlatformInfo{byName: make(map[string]HWEndpointInfo, len(doc.Endpoints))}
	for i, ep := range doc.Endpoints {
		if ep.Name == "" {
			return nil, fmt.Errorf("platform endpoint %d has no name", i)
		}

		if len(ep.Name) > MaxNameLen {
			return nil, fmt.Errorf("platform endpoint %q exceeds %d bytes", ep.Name, MaxNameLen)
		}

		if _, ok := p.byName[ep.Name]; ok {
			return nil, fmt.Errorf("duplicate platform endpoint %q", ep.Name)
		}

		dir, err := ParseDirection(ep.Direction)
		if err != nil {
			return nil, fmt.Errorf("platform endpoint %q: %w", ep.Name, err)
		}

		p.byName[ep.Name] = HWEndpointInfo{
			Direction:  dir,
			Interface:  ep.Interface,
			Index:      ep.Index,
			Attributes: ep.Attributes,
		}
	}

	return p, nil
}

// Len returns the number of described endpoints.
func (p *PlatformInfo) Len() int {
	if p == nil {
		return 0
	}

	return len(p.byName)
}

// Populate copies the described topology of d.Name into d.HW.
func (p *PlatformInfo) Populate(d *Descriptor) error {
	if p == nil {
		return errors.New("platform info is nil")
	}

	info, ok := p.byName[d.Name]
	if !ok {
		return fmt.Errorf("endpoint %q is not in the platform descriptor", d.Name)
	}

	d.HW = info
	if info.Attributes != nil {
		d.HW.Attributes = make(map[string]string, len(info.Attributes))
		for k, v := range info.Attributes {
			d.HW.Attributes[k] = v
		}
	}

	return nil
}
