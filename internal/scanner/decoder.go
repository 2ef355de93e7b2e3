// Package scanner turns camera frames or uploaded images into barcode values.
package scanner

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

var ErrNoBarcode = errors.New("no barcode found")

// Decoder extracts the raw value of the first barcode found in img.
type Decoder interface {
	Decode(img image.Image) (string, error)
}

// ZXingDecoder tries product codes first, then Code 128, Code 39 and QR.
type ZXingDecoder struct {
	readers []gozxing.Reader
	hints   map[gozxing.DecodeHintType]interface{}
}

func NewZXingDecoder() *ZXingDecoder {
	return &ZXingDecoder{
		readers: []gozxing.Reader{
			oned.NewMultiFormatUPCEANReader(nil),
			oned.NewCode128Reader(),
			oned.NewCode39Reader(),
			qrcode.NewQRCodeReader(),
		},
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

func (d *ZXingDecoder) Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("binarize image: %w", err)
	}
	for _, r := range d.readers {
		result, err := r.Decode(bmp, d.hints)
		if err != nil {
			continue
		}
		if text := result.GetText(); text != "" {
			return text, nil
		}
	}
	return "", ErrNoBarcode
}
