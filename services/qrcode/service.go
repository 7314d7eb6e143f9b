package qrcode

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/tech-arch1tect/onetime/config"
	"github.com/tech-arch1tect/onetime/services/logging"
	"go.uber.org/zap"
)

const (
	MinSize = 64
	MaxSize = 1024
)

var (
	ErrEmptyContent = errors.New("qr code content cannot be empty")
	ErrInvalidSize  = errors.New("qr code size must be between 64 and 1024")

	ErrContentTooLong = errors.New("qr code content too long")
	ErrSizeTooSmall   = errors.New("qr code size too small for content")
)

type Service struct {
	defaultSize int
	logger      *logging.Service
}

func NewService(cfg *config.Config, logger *logging.Service) *Service {
	return &Service{
		defaultSize: cfg.Token.QRSize,
		logger:      logger.Named("qrcode"),
	}
}

func (s *Service) DefaultSize() int {
	return s.defaultSize
}

// Render encodes content as a square PNG of size pixels. A size of zero uses
// the configured default.
func (s *Service) Render(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	if size == 0 {
		size = s.defaultSize
	}
	if size < MinSize || size > MaxSize {
		return nil, ErrInvalidSize
	}

	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentTooLong, err)
	}

	code, err = barcode.Scale(code, size, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSizeTooSmall, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("rendered qr code", zap.Int("size", size), zap.Int("bytes", buf.Len()))
	}

	return buf.Bytes(), nil
}
