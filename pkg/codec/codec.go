// Package codec is the default media codec the payload adapters hand
// plaintext bytes to. Any implementation of the interfaces below can take
// its place.
package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	_ "golang.org/x/image/webp"
)

const (
	DefaultFormat  = "png"
	DefaultQuality = 95

	// MinFrameDelay is the shortest GIF frame delay, in centiseconds,
	// browsers honor. Shorter delays are played at 10cs.
	MinFrameDelay = 2
)

// Decoded is an uploaded image normalized for the pipeline.
type Decoded struct {
	// Image is fully opaque.
	Image *image.NRGBA
	// Mask is 255-alpha of the source, or all 255 if the source has no alpha.
	Mask *image.Gray
}

type ImageDecoder interface {
	DecodeImage(data []byte) (*Decoded, error)
}

type ImageEncoder interface {
	// EncodeImage returns the encoded bytes and the format name, e.g. "png".
	EncodeImage(img image.Image) ([]byte, string, error)
}

type AnimationEncoder interface {
	EncodeAnimation(frames []image.Image, fps float64) ([]byte, string, error)
}

// Codec decodes common still formats and encodes previews as PNG or JPEG
// stills and looping GIF animations.
type Codec struct {
	format  imaging.Format
	quality int
}

var (
	_ ImageDecoder     = (*Codec)(nil)
	_ ImageEncoder     = (*Codec)(nil)
	_ AnimationEncoder = (*Codec)(nil)
)

// New returns a Codec encoding stills as format ("png" or "jpeg", empty for
// the default). quality applies to jpeg, zero selects DefaultQuality.
func New(format string, quality int) (*Codec, error) {
	if format == "" {
		format = DefaultFormat
	}
	f, err := imaging.FormatFromExtension(format)
	if err != nil || (f != imaging.PNG && f != imaging.JPEG) {
		return nil, errors.Errorf("unsupported preview format %q", format)
	}
	if quality == 0 {
		quality = DefaultQuality
	}
	if quality < 1 || quality > 100 {
		return nil, errors.Errorf("invalid jpeg quality %d", quality)
	}
	return &Codec{format: f, quality: quality}, nil
}

func (c *Codec) DecodeImage(data []byte) (*Decoded, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode image config")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	// The color model comes from the source, since reorientation always
	// yields NRGBA.
	alpha := hasAlpha(cfg.ColorModel)

	rgb := imaging.Clone(img)
	b := rgb.Bounds()
	mask := image.NewGray(b)
	for y := 0; y < b.Dy(); y++ {
		row := rgb.Pix[y*rgb.Stride : y*rgb.Stride+b.Dx()*4]
		mrow := mask.Pix[y*mask.Stride : y*mask.Stride+b.Dx()]
		for x := range mrow {
			if alpha {
				mrow[x] = 255 - row[x*4+3]
			} else {
				mrow[x] = 255
			}
			row[x*4+3] = 0xff
		}
	}
	return &Decoded{Image: rgb, Mask: mask}, nil
}

func (c *Codec) EncodeImage(img image.Image) ([]byte, string, error) {
	var buf bytes.Buffer
	var err error
	if c.format == imaging.JPEG {
		err = imaging.Encode(&buf, img, c.format, imaging.JPEGQuality(c.quality))
	} else {
		err = imaging.Encode(&buf, img, c.format)
	}
	if err != nil {
		return nil, "", errors.Wrap(err, "encode image")
	}
	return buf.Bytes(), strings.ToLower(c.format.String()), nil
}

func (c *Codec) EncodeAnimation(frames []image.Image, fps float64) ([]byte, string, error) {
	if fps <= 0 {
		return nil, "", errors.Errorf("invalid frame rate %v", fps)
	}
	if len(frames) == 0 {
		return nil, "", errors.New("no frames")
	}
	delay := int(100 / fps)
	if delay < MinFrameDelay {
		delay = MinFrameDelay
	}
	anim := &gif.GIF{LoopCount: 0}
	for _, f := range frames {
		b := f.Bounds()
		p := image.NewPaletted(b, palette.Plan9)
		draw.FloydSteinberg.Draw(p, b, opaque(f), image.Point{})
		anim.Image = append(anim.Image, p)
		anim.Delay = append(anim.Delay, delay)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, "", errors.Wrap(err, "encode animation")
	}
	return buf.Bytes(), "gif", nil
}

func opaque(img image.Image) *image.NRGBA {
	n := imaging.Clone(img)
	for i := 3; i < len(n.Pix); i += 4 {
		n.Pix[i] = 0xff
	}
	return n
}

func hasAlpha(m color.Model) bool {
	switch m {
	case color.RGBAModel, color.RGBA64Model, color.NRGBAModel, color.NRGBA64Model,
		color.AlphaModel, color.Alpha16Model, color.NYCbCrAModel:
		return true
	}
	if p, ok := m.(color.Palette); ok {
		for _, c := range p {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}
