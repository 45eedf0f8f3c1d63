// Package preprocess turns uploaded image bytes into the input tensor a
// classifier expects.
package preprocess

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Brownie44l1/medscan-api/internal/tensor"
)

// ErrInvalidImage marks input that could not be decoded as an image.
var ErrInvalidImage = errors.New("invalid image")

// Target describes the resolution and colour mode a model was trained on.
type Target struct {
	Width    int
	Height   int
	Channels int
}

var targets = map[string]Target{
	"mri":  {Width: 168, Height: 168, Channels: 1},
	"xray": {Width: 224, Height: 224, Channels: 3},
}

// TargetFor returns the input geometry for a service.
func TargetFor(service string) (Target, error) {
	t, ok := targets[service]
	if !ok {
		return Target{}, fmt.Errorf("preprocess: unknown service %q", service)
	}
	return t, nil
}

// Shape is the NHWC shape of a batch of one.
func (t Target) Shape() []int64 {
	return []int64{1, int64(t.Height), int64(t.Width), int64(t.Channels)}
}

// LoadFile reads an image from disk and preprocesses it for service.
func LoadFile(path, service string) (tensor.Tensor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("preprocess: read %s: %w", path, err)
	}
	return Decode(data, service)
}

// Decode decodes raw image bytes and preprocesses them for service.
func Decode(data []byte, service string) (tensor.Tensor, error) {
	target, err := TargetFor(service)
	if err != nil {
		return tensor.Tensor{}, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return tensor.Tensor{}, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}

	return FromImage(img, target), nil
}

// FromImage resizes img to the target resolution with nearest-neighbour
// sampling, the same resampling the training images went through, and scales
// every channel into [0,1].
func FromImage(img image.Image, target Target) tensor.Tensor {
	resized := resize.Resize(uint(target.Width), uint(target.Height), img, resize.NearestNeighbor)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	data := make([]float32, width*height*target.Channels)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px := resized.At(bounds.Min.X+x, bounds.Min.Y+y)
			offset := (y*width + x) * target.Channels

			if target.Channels == 1 {
				g := color.GrayModel.Convert(px).(color.Gray)
				data[offset] = float32(g.Y) / 255.0
				continue
			}

			r, g, b, _ := px.RGBA()
			data[offset] = float32(r>>8) / 255.0
			data[offset+1] = float32(g>>8) / 255.0
			data[offset+2] = float32(b>>8) / 255.0
		}
	}

	return tensor.Tensor{Shape: target.Shape(), Data: data}
}
