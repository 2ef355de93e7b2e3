package scanner

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Frame is one captured image. Whoever ends up holding a frame must Close it.
type Frame interface {
	Image() (image.Image, error)
	Close() error
}

// ImageFrame adapts an already decoded image to Frame.
type ImageFrame struct {
	Img    image.Image
	closed atomic.Bool
}

func NewImageFrame(img image.Image) *ImageFrame {
	return &ImageFrame{Img: img}
}

func (f *ImageFrame) Image() (image.Image, error) {
	if f.closed.Load() {
		return nil, errors.New("frame closed")
	}
	return f.Img, nil
}

func (f *ImageFrame) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *ImageFrame) Closed() bool {
	return f.closed.Load()
}

// Scanner analyzes at most one frame at a time on a single worker and reports
// the first decoded value exactly once.
type Scanner struct {
	decoder Decoder
	logger  *slog.Logger

	frames   chan Frame
	detected chan string
	idle     chan struct{}
	inFlight atomic.Bool

	mu   sync.Mutex
	done bool
}

func New(decoder Decoder, logger *slog.Logger) *Scanner {
	return &Scanner{
		decoder:  decoder,
		logger:   logger,
		frames:   make(chan Frame, 1),
		detected: make(chan string, 1),
		idle:     make(chan struct{}, 1),
	}
}

// Detected receives the first decoded value. It is closed when the worker
// stops without a detection.
func (s *Scanner) Detected() <-chan string {
	return s.detected
}

// Idle receives after each frame that yielded no value, once the worker is
// ready for the next one.
func (s *Scanner) Idle() <-chan struct{} {
	return s.idle
}

// Submit hands a frame to the worker. It returns false, closing the frame
// immediately, when another frame is still being analyzed, a value has
// already been detected, or the scanner has stopped.
func (s *Scanner) Submit(f Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done || !s.inFlight.CompareAndSwap(false, true) {
		f.Close()
		return false
	}
	// The gate guarantees the buffer slot is free.
	s.frames <- f
	return true
}

// Run processes frames until ctx is done or a value is detected.
func (s *Scanner) Run(ctx context.Context) {
	defer s.stop()
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-s.frames:
			value, ok := s.analyze(f)
			if ok {
				s.finish(value)
				return
			}
			s.inFlight.Store(false)
			select {
			case s.idle <- struct{}{}:
			default:
			}
		}
	}
}

func (s *Scanner) analyze(f Frame) (string, bool) {
	defer f.Close()
	img, err := f.Image()
	if err != nil {
		s.logger.Warn("read frame", "error", err)
		return "", false
	}
	value, err := s.decoder.Decode(img)
	if err != nil {
		if !errors.Is(err, ErrNoBarcode) {
			s.logger.Warn("decode frame", "error", err)
		}
		return "", false
	}
	return value, true
}

func (s *Scanner) finish(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	s.detected <- value
	close(s.detected)
}

func (s *Scanner) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		s.done = true
		close(s.detected)
	}
	select {
	case f := <-s.frames:
		f.Close()
	default:
	}
}
