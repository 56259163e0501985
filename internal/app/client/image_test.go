package client

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := imaging.New(w, h, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCompress(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{name: "широкое уменьшается", width: 3840, height: 2160, wantW: 1920, wantH: 1080},
		{name: "высокое уменьшается", width: 1000, height: 4000, wantW: 480, wantH: 1920},
		{name: "маленькое не увеличивается", width: 640, height: 480, wantW: 640, wantH: 480},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Compress(encodePNG(t, tt.width, tt.height))
			require.NoError(t, err)

			cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, "jpeg", format)
			assert.Equal(t, tt.wantW, cfg.Width)
			assert.Equal(t, tt.wantH, cfg.Height)
		})
	}
}

func TestCompress_InvalidInput(t *testing.T) {
	_, err := Compress(nil)
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = Compress([]byte("не картинка"))
	assert.ErrorIs(t, err, ErrInvalidImage)
}
