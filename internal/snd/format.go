// Package snd mirrors the parts of the Linux ALSA kernel ABI needed to open, configure
// and tear down PCM streams and to read mixer control elements. It talks to the
// /dev/snd character devices directly and does not support the ALSA plugin layer.
package snd

// Format is a kernel sample format (SNDRV_PCM_FORMAT_*).
type Format int32

const (
	FormatInvalid Format = -1
	FormatS8      Format = 0
	FormatU8      Format = 1
	FormatS16LE   Format = 2
	FormatS16BE   Format = 3
	FormatS24LE   Format = 6
	FormatS24BE   Format = 7
	FormatS32LE   Format = 10
	FormatS32BE   Format = 11
	FormatFloatLE Format = 14
	FormatS24_3LE Format = 32
	FormatS24_3BE Format = 33
)

var formatNames = map[Format]string{
	FormatS8:      "S8",
	FormatU8:      "U8",
	FormatS16LE:   "S16_LE",
	FormatS16BE:   "S16_BE",
	FormatS24LE:   "S24_LE",
	FormatS24BE:   "S24_BE",
	FormatS32LE:   "S32_LE",
	FormatS32BE:   "S32_BE",
	FormatFloatLE: "FLOAT_LE",
	FormatS24_3LE: "S24_3LE",
	FormatS24_3BE: "S24_3BE",
}

// String returns the ALSA name of the format.
func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}

	return "INVALID"
}

// Bits returns the number of bits a sample occupies in memory.
// 24-bit formats in 32-bit containers return 32.
func (f Format) Bits() uint32 {
	switch f {
	case FormatS32LE, FormatS32BE, FormatFloatLE, FormatS24LE, FormatS24BE:
		return 32
	case FormatS24_3LE, FormatS24_3BE:
		return 24
	case FormatS16LE, FormatS16BE:
		return 16
	case FormatS8, FormatU8:
		return 8
	default:
		return 0
	}
}

// Access is a PCM access type (SNDRV_PCM_ACCESS_*).
type Access uint32

const (
	AccessMmapInterleaved Access = 0
	AccessRWInterleaved   Access = 3
)
