package ocr

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/disintegration/imaging"
)

// DecodeHeader reads just enough of the image at path to learn its format and size.
// It lets an unpreprocessed run reject files tesseract could not read either.
func DecodeHeader(path string) (image.Config, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, "", fmt.Errorf("decode image header: %w", err)
	}
	return cfg, format, nil
}

// Preprocess writes a denoised, binarized copy of the image at path to a temp PNG in dir
// and returns its path with a cleanup func. Decode failures are returned as errors.
func Preprocess(path, dir string) (string, func(), error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", nil, fmt.Errorf("open image: %w", err)
	}

	gray := imaging.Grayscale(img)
	gray = imaging.Blur(gray, 0.6)
	bin := Binarize(gray, OtsuThreshold(gray))

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", nil, fmt.Errorf("create work dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(dir, "receipt-*.png")
	if err != nil {
		return "", nil, fmt.Errorf("create temp image: %w", err)
	}
	name := tmp.Name()
	_ = tmp.Close()
	cleanup := func() { _ = os.Remove(name) }

	if err := imaging.Save(bin, name); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("save preprocessed image: %w", err)
	}
	return name, cleanup, nil
}

// OtsuThreshold picks the global threshold that maximizes between-class variance of a
// grayscale image. Only the red channel is read; the image is expected to be gray already.
func OtsuThreshold(img *image.NRGBA) uint8 {
	var hist [256]int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[img.Pix[img.PixOffset(x, y)]]++
		}
	}

	total := b.Dx() * b.Dy()
	if total == 0 {
		return 128
	}
	var sumAll float64
	for i, n := range hist {
		sumAll += float64(i * n)
	}

	var (
		sumBg, best float64
		wBg         int
		threshold   uint8
	)
	for t := 0; t < 256; t++ {
		wBg += hist[t]
		if wBg == 0 {
			continue
		}
		wFg := total - wBg
		if wFg == 0 {
			break
		}
		sumBg += float64(t * hist[t])
		mBg := sumBg / float64(wBg)
		mFg := (sumAll - sumBg) / float64(wFg)
		between := float64(wBg) * float64(wFg) * (mBg - mFg) * (mBg - mFg)
		if between > best {
			best = between
			threshold = uint8(t)
		}
	}
	return threshold
}

// Binarize maps pixels above threshold to white and the rest to black.
func Binarize(img *image.NRGBA, threshold uint8) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := uint8(0)
			if img.Pix[img.PixOffset(x, y)] > threshold {
				v = 255
			}
			out.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return out
}
