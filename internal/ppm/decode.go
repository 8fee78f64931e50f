package ppm

import (
	"github.com/ironsheep/ppm-edge/internal/raster"
)

// Header is the parsed text header of a P6 file.
type Header struct {
	Width    int `json:"width"`
	Height   int `json:"height"`
	MaxValue int `json:"max_value"`

	// DataOffset is the index of the first pixel byte, one past the single
	// separator that follows the max value.
	DataOffset int `json:"data_offset"`
}

// ChannelBytes returns the on-disk width of one channel sample.
func (h Header) ChannelBytes() int {
	return raster.ChannelBytes(h.MaxValue)
}

// PayloadLen returns the number of pixel bytes the header promises.
func (h Header) PayloadLen() int {
	return h.Width * h.Height * 3 * h.ChannelBytes()
}

// Decoder decodes binary PPM buffers. The zero value is ready to use and
// tolerates truncated pixel data.
type Decoder struct {
	// Strict makes a payload shorter than the header promises an error
	// (ErrTruncated). When false, the missing pixels stay zero.
	Strict bool

	// MaxPixels rejects headers declaring more pixels than this with
	// ErrInvalidDimension before anything is allocated. Zero or negative
	// means DefaultMaxPixels.
	MaxPixels int
}

// DefaultMaxPixels bounds the declared image size when Decoder.MaxPixels is
// unset. A 16-bit image this large needs 1.5 GiB of payload.
const DefaultMaxPixels = 1 << 28

func (d Decoder) maxPixels() int {
	if d.MaxPixels > 0 {
		return d.MaxPixels
	}
	return DefaultMaxPixels
}

// Decode parses buf with a lenient zero-value Decoder.
func Decode(buf []byte) (*raster.Image, error) {
	return Decoder{}.Decode(buf)
}

// DecodeHeader parses only the header of buf.
func DecodeHeader(buf []byte) (Header, error) {
	return Decoder{}.DecodeHeader(buf)
}

// DecodeHeader validates the magic and parses width, height and max value.
//
// Width is read before height, as in the Netpbm header layout.
func (d Decoder) DecodeHeader(buf []byte) (Header, error) {
	var h Header

	if len(buf) < 4 {
		return h, decodeErr(len(buf), ErrTooShort, "%d bytes", len(buf))
	}
	if buf[0] != 'P' || buf[1] != '6' || !isSpace(buf[2]) {
		return h, decodeErr(0, ErrBadMagic, "got %q", buf[:3])
	}

	pos := 3
	var err error

	if h.Width, pos, err = d.readDimension(buf, pos, "width"); err != nil {
		return h, err
	}
	if h.Height, pos, err = d.readDimension(buf, pos, "height"); err != nil {
		return h, err
	}

	start := pos
	if h.MaxValue, pos, err = readUint(buf, pos); err != nil {
		return h, err
	}
	if h.MaxValue == 0 || h.MaxValue > raster.MaxChannelValue {
		return h, decodeErr(start, ErrInvalidMaxValue, "%d", h.MaxValue)
	}
	if pos >= len(buf) || !isSpace(buf[pos]) {
		return h, decodeErr(pos, ErrMalformedHeader, "max value not followed by whitespace")
	}
	h.DataOffset = pos + 1

	if limit := d.maxPixels(); h.Width > limit/h.Height {
		return h, decodeErr(start, ErrInvalidDimension, "%dx%d exceeds %d pixels", h.Width, h.Height, limit)
	}
	return h, nil
}

func (d Decoder) readDimension(buf []byte, pos int, name string) (int, int, error) {
	start := pos
	v, pos, err := readUint(buf, pos)
	if err != nil {
		return 0, pos, err
	}
	if v == 0 {
		return 0, pos, decodeErr(start, ErrInvalidDimension, "%s is 0", name)
	}
	if v >= tokenLimit {
		return 0, pos, decodeErr(start, ErrInvalidDimension, "%s too large", name)
	}
	if pos >= len(buf) || !isFieldSeparator(buf[pos]) {
		return 0, pos, decodeErr(pos, ErrMalformedHeader, "%s not followed by a separator", name)
	}
	return v, pos, nil
}

// Decode parses a whole P6 file held in buf.
//
// Samples are read row-major in red, green, blue order. With a max value
// below 256 each sample is one byte; otherwise two bytes, most significant
// first. A sample above the max value is an ErrChannelOverflow. Bytes past
// the declared payload are ignored.
func (d Decoder) Decode(buf []byte) (*raster.Image, error) {
	h, err := d.DecodeHeader(buf)
	if err != nil {
		return nil, err
	}

	cb := h.ChannelBytes()
	payload := buf[h.DataOffset:]
	samples := h.Width * h.Height * 3
	if avail := len(payload) / cb; avail < samples {
		if d.Strict {
			return nil, decodeErr(len(buf), ErrTruncated, "have %d of %d bytes", len(payload), h.PayloadLen())
		}
		samples = avail
	}

	img := raster.NewImage(h.Width, h.Height, h.MaxValue)
	limit := h.MaxValue

	for k := 0; k < samples; k++ {
		off := k * cb
		v := int(payload[off])
		if cb == 2 {
			v = v*256 + int(payload[off+1])
		}
		if v > limit {
			return nil, decodeErr(h.DataOffset+off, ErrChannelOverflow, "%d > %d", v, limit)
		}

		pix := k / 3
		p := &img.Pixels[pix/h.Width][pix%h.Width]
		switch k % 3 {
		case 0:
			p.R = uint16(v)
		case 1:
			p.G = uint16(v)
		default:
			p.B = uint16(v)
		}
	}

	return img, nil
}
