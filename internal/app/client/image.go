package client

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
)

const (
	PhotoMaxDimension = 1920
	PhotoJPEGQuality  = 85
)

var ErrInvalidImage = errors.New("некорректное изображение")

// Compress приводит фото к JPEG с качеством 85, вписывая в 1920x1920.
// Изображения меньше предела не увеличиваются.
func Compress(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, ErrInvalidImage
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	img = imaging.Fit(img, PhotoMaxDimension, PhotoMaxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(PhotoJPEGQuality)); err != nil {
		return nil, fmt.Errorf("ошибка кодирования JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
