// Package otp issues and verifies one-time phone codes. Codes are stored as
// keyed hashes in redis with a TTL and an attempt budget.
package otp

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/angelmondragon/elitejewels-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
	"github.com/angelmondragon/elitejewels-backend/pkg/metrics"
	"github.com/angelmondragon/elitejewels-backend/pkg/redis"
	"github.com/angelmondragon/elitejewels-backend/pkg/security"
)

type Purpose string

const (
	PurposeLogin  Purpose = "login"
	PurposeSignup Purpose = "signup"
)

const (
	msgCooldown        = "please wait before requesting another code"
	msgCodeInvalid     = "invalid or expired code"
	msgTooManyAttempts = "too many attempts, request a new code"
)

type codeStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	OTPKey(purpose, phone string) string
	OTPCooldownKey(phone string) string
}

type record struct {
	Hash      string    `json:"hash"`
	Attempts  int       `json:"attempts"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ServiceParams bundles the dependencies of the OTP service.
type ServiceParams struct {
	Store   codeStore
	Sender  Sender
	Config  config.OTPConfig
	Secret  string
	Logger  *logger.Logger
	Metrics *metrics.Storefront
	Now     func() time.Time
}

type Service struct {
	store   codeStore
	sender  Sender
	cfg     config.OTPConfig
	secret  string
	logg    *logger.Logger
	metrics *metrics.Storefront
	now     func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "otp store is required")
	}
	if params.Sender == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "otp sender is required")
	}
	if strings.TrimSpace(params.Secret) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "otp secret is required")
	}
	cfg := params.Config
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 6
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:   params.Store,
		sender:  params.Sender,
		cfg:     cfg,
		secret:  params.Secret,
		logg:    logg,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

// Issue sends a fresh code to phone, replacing any outstanding one. Requests
// inside the resend cooldown are rejected with RATE_LIMIT_EXCEEDED.
func (s *Service) Issue(ctx context.Context, purpose Purpose, phone string) error {
	if s.cfg.ResendCooldown > 0 {
		ok, err := s.store.SetNX(ctx, s.store.OTPCooldownKey(phone), "1", s.cfg.ResendCooldown)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "otp cooldown")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeRateLimit, msgCooldown)
		}
	}

	code, err := security.GenerateNumericCode(s.cfg.CodeLength)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate otp")
	}
	rec := record{
		Hash:      security.HashCode(s.secret, string(purpose)+":"+phone, code),
		ExpiresAt: s.now().Add(s.cfg.TTL),
	}
	if err := s.put(ctx, purpose, phone, rec); err != nil {
		return err
	}

	if err := s.sender.Send(ctx, phone, code, purpose); err != nil {
		// Nothing was delivered, so the shopper may retry at once.
		_ = s.store.Del(ctx, s.store.OTPKey(string(purpose), phone), s.store.OTPCooldownKey(phone))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send otp")
	}
	s.metrics.OTPSent(string(purpose))
	return nil
}

// Verify consumes the outstanding code for phone. Wrong codes burn an
// attempt; the code is dropped once the budget is spent.
func (s *Service) Verify(ctx context.Context, purpose Purpose, phone, code string) error {
	key := s.store.OTPKey(string(purpose), phone)
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if redis.IsMiss(err) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, msgCodeInvalid)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load otp")
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.Hash == "" {
		_ = s.store.Del(ctx, key)
		return pkgerrors.New(pkgerrors.CodeUnauthorized, msgCodeInvalid)
	}
	now := s.now()
	if !rec.ExpiresAt.IsZero() && !now.Before(rec.ExpiresAt) {
		_ = s.store.Del(ctx, key)
		return pkgerrors.New(pkgerrors.CodeUnauthorized, msgCodeInvalid)
	}

	candidate := security.HashCode(s.secret, string(purpose)+":"+phone, strings.TrimSpace(code))
	if security.EqualCodeHash(candidate, rec.Hash) {
		if err := s.store.Del(ctx, key); err != nil {
			s.logg.Error(ctx, "otp.consume_failed", err)
		}
		return nil
	}

	rec.Attempts++
	if rec.Attempts >= s.cfg.MaxAttempts {
		_ = s.store.Del(ctx, key)
		return pkgerrors.New(pkgerrors.CodeUnauthorized, msgTooManyAttempts)
	}
	if err := s.put(ctx, purpose, phone, rec); err != nil {
		return err
	}
	return pkgerrors.New(pkgerrors.CodeUnauthorized, msgCodeInvalid)
}

func (s *Service) put(ctx context.Context, purpose Purpose, phone string, rec record) error {
	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		ttl = time.Second
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode otp")
	}
	if err := s.store.Set(ctx, s.store.OTPKey(string(purpose), phone), string(raw), ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store otp")
	}
	return nil
}
