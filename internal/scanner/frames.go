package scanner

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"io"
	"log/slog"
)

// ReadFrames decodes r into frames: every frame of an animated GIF, or the
// single image of any other supported format. GIF frames are composited onto
// the logical screen in order.
func ReadFrames(r io.Reader) ([]Frame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	if anim, err := gif.DecodeAll(bytes.NewReader(data)); err == nil && len(anim.Image) > 1 {
		return gifFrames(anim), nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return []Frame{NewImageFrame(img)}, nil
}

func gifFrames(anim *gif.GIF) []Frame {
	bounds := image.Rect(0, 0, anim.Config.Width, anim.Config.Height)
	if bounds.Empty() {
		bounds = anim.Image[0].Bounds()
	}
	canvas := image.NewRGBA(bounds)
	frames := make([]Frame, 0, len(anim.Image))
	for _, p := range anim.Image {
		draw.Draw(canvas, p.Bounds(), p, p.Bounds().Min, draw.Over)
		snap := image.NewRGBA(bounds)
		copy(snap.Pix, canvas.Pix)
		frames = append(frames, NewImageFrame(snap))
	}
	return frames
}

// DecodeFrames feeds frames through a Scanner in order, offering each one
// only after the previous analysis finished, and returns the first decoded
// value. Every frame is closed, including those never analyzed.
func DecodeFrames(ctx context.Context, d Decoder, logger *slog.Logger, frames []Frame) (string, error) {
	scanCtx, stop := context.WithCancel(ctx)
	defer stop()

	s := New(d, logger)
	go s.Run(scanCtx)

	for i, f := range frames {
		if !s.Submit(f) {
			CloseFrames(frames[i+1:])
			break
		}
		select {
		case <-s.Idle():
		case value, ok := <-s.Detected():
			CloseFrames(frames[i+1:])
			if ok {
				return value, nil
			}
			return "", ctx.Err()
		}
	}

	stop()
	if value, ok := <-s.Detected(); ok {
		return value, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", ErrNoBarcode
}

// CloseFrames closes every frame.
func CloseFrames(frames []Frame) {
	for _, f := range frames {
		f.Close()
	}
}
