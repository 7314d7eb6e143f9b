package token

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/tech-arch1tect/onetime/config"
	"github.com/tech-arch1tect/onetime/services/logging"
	"go.uber.org/zap"
)

// MaxAttempts is the number of validation attempts that exhausts a token. The
// attempt that reaches it already fails, so at most MaxAttempts-1 attempts can
// succeed.
const MaxAttempts = 5

// TokenService issues and checks one-time codes. Validation failures of any
// kind are reported as false; errors are reserved for storage and input faults.
type TokenService interface {
	Generate(ctx context.Context, logID string, key Key, validity time.Duration, digits int) (string, error)
	Validate(ctx context.Context, key Key, code string) (bool, error)
	Consume(ctx context.Context, key Key) error
	ConsumeAndValidate(ctx context.Context, key Key, code string) (bool, error)
	GenerateCode(ctx context.Context, logID string, key Key, validity time.Duration, urlPrefix string, digits int) (*GeneratedCode, error)
}

type Service struct {
	config    *config.Config
	store     Store
	hasher    *Hasher
	generator *Generator
	metrics   *Metrics
	logger    *logging.Service
	now       func() time.Time
}

var _ TokenService = (*Service)(nil)

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithGenerator(g *Generator) Option {
	return func(s *Service) {
		s.generator = g
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(cfg *config.Config, store Store, logger *logging.Service, opts ...Option) (*Service, error) {
	hasher, err := NewHasher(cfg.Token.HashAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, cfg.Token.HashAlgorithm)
	}

	s := &Service{
		config:    cfg,
		store:     store,
		hasher:    hasher,
		generator: NewGenerator(nil),
		logger:    logger.Named("token"),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger != nil {
		s.logger.Info("initializing token service",
			zap.String("hash_algorithm", hasher.Algorithm()),
			zap.Int("max_attempts", MaxAttempts))
	}

	return s, nil
}

// Generate replaces any record for key with a fresh one and returns the
// plaintext code. This is the only time the code is available.
func (s *Service) Generate(ctx context.Context, logID string, key Key, validity time.Duration, digits int) (string, error) {
	if key.IsZero() {
		return "", ErrEmptyKey
	}
	if validity <= 0 {
		return "", ErrInvalidValidity
	}

	code, err := s.generator.Generate(digits)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to generate code", zap.Error(err), zap.Int("digits", digits))
		}
		return "", err
	}

	now := s.now().UTC()
	if logID == "" {
		logID, err = newLogID(now)
		if err != nil {
			return "", err
		}
	}

	rec := &Record{
		LogID:     logID,
		CodeHash:  s.hasher.Hash(key, code),
		ExpiresAt: now.Add(validity),
		CreatedAt: now,
	}

	if err := s.store.UpsertByKey(ctx, key, rec); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to store token", zap.Error(err), zap.String("log_id", logID), logging.Fingerprint("identity", key.String()))
		}
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	s.metrics.observeGenerated(digits)

	if s.logger != nil {
		s.logger.Info("token generated",
			zap.String("log_id", logID),
			logging.Fingerprint("identity", key.String()),
			zap.Time("expires_at", rec.ExpiresAt))
	}

	return code, nil
}

// Validate records the attempt before checking the code. The attempt counter
// is incremented by the store in one atomic step, which also reports an absent
// record, and the result is only returned once the increment is durable.
func (s *Service) Validate(ctx context.Context, key Key, code string) (bool, error) {
	if key.IsZero() || strings.TrimSpace(code) == "" {
		s.metrics.observeValidation(outcomeInvalid)
		return false, nil
	}

	identity := logging.Fingerprint("identity", key.String())

	now := s.now().UTC()
	rec, err := s.store.IncrementAttempts(ctx, key, now)
	if err != nil {
		return s.validationFailure(err, identity)
	}

	if rec.AttemptCount >= MaxAttempts {
		s.metrics.observeValidation(outcomeExhausted)
		if s.logger != nil {
			s.logger.Warn("token validation rejected - attempts exhausted",
				zap.String("log_id", rec.LogID),
				identity,
				zap.Int("attempts", rec.AttemptCount))
		}
		return false, nil
	}

	if !s.hasher.Verify(key, code, rec.CodeHash) || rec.Expired(now) {
		s.metrics.observeValidation(outcomeInvalid)
		if s.logger != nil {
			s.logger.Debug("token validation failed",
				zap.String("log_id", rec.LogID),
				identity,
				zap.Int("attempts", rec.AttemptCount))
		}
		return false, nil
	}

	s.metrics.observeValidation(outcomeValid)
	if s.logger != nil {
		s.logger.Debug("token validated", zap.String("log_id", rec.LogID), identity)
	}
	return true, nil
}

func (s *Service) validationFailure(err error, identity zap.Field) (bool, error) {
	if errors.Is(err, ErrRecordNotFound) {
		s.metrics.observeValidation(outcomeInvalid)
		if s.logger != nil {
			s.logger.Debug("token validation failed - no record", identity)
		}
		return false, nil
	}

	s.metrics.observeValidation(outcomeError)
	if s.logger != nil {
		s.logger.Error("token validation failed - storage error", zap.Error(err), identity)
	}
	return false, fmt.Errorf("failed to validate token: %w", err)
}

// Consume deletes the record for key. Consuming an absent key succeeds.
func (s *Service) Consume(ctx context.Context, key Key) error {
	if err := s.store.DeleteByKey(ctx, key); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to consume token", zap.Error(err), logging.Fingerprint("identity", key.String()))
		}
		return fmt.Errorf("failed to consume token: %w", err)
	}

	s.metrics.observeConsumed()
	if s.logger != nil {
		s.logger.Debug("token consumed", logging.Fingerprint("identity", key.String()))
	}
	return nil
}

// ConsumeAndValidate destroys the token whatever the validation outcome and
// reports whether code was acceptable at that moment.
func (s *Service) ConsumeAndValidate(ctx context.Context, key Key, code string) (bool, error) {
	valid, validateErr := s.Validate(ctx, key, code)
	consumeErr := s.Consume(ctx, key)

	if err := errors.Join(validateErr, consumeErr); err != nil {
		return false, err
	}
	return valid, nil
}

// GenerateCode issues a code and builds urlPrefix + code + "/" + key for QR rendering.
func (s *Service) GenerateCode(ctx context.Context, logID string, key Key, validity time.Duration, urlPrefix string, digits int) (*GeneratedCode, error) {
	code, err := s.Generate(ctx, logID, key, validity, digits)
	if err != nil {
		return nil, err
	}

	return &GeneratedCode{
		Code:      code,
		QRCodeURL: urlPrefix + code + "/" + key.String(),
	}, nil
}

// PurgeExpired removes records whose storage grace window has passed.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	removed, err := s.store.PurgeExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	s.metrics.observePurged(removed)
	return removed, nil
}

func newLogID(now time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate log id: %w", err)
	}
	return strings.ToLower(id.String()), nil
}
