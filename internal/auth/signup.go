package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/angelmondragon/elitejewels-backend/internal/otp"
	"github.com/angelmondragon/elitejewels-backend/internal/users"
	"github.com/angelmondragon/elitejewels-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
	"github.com/angelmondragon/elitejewels-backend/pkg/realtime"
	"github.com/angelmondragon/elitejewels-backend/pkg/redis"
	"github.com/angelmondragon/elitejewels-backend/pkg/security"
	"gorm.io/gorm"
)

const minPasswordLength = 6

// pendingSignup is parked in redis between SignUp and VerifySignup. Only the
// password hash is kept.
type pendingSignup struct {
	Name         string  `json:"name"`
	Email        *string `json:"email,omitempty"`
	Phone        string  `json:"phone"`
	PasswordHash string  `json:"password_hash"`
}

// SignUp validates the form, parks the signup and sends a verification code.
// All field checks run before any remote call.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*OTPDispatch, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(req.Phone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}
	if req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 6 characters")
	}
	if req.Password != req.ConfirmPassword {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "passwords do not match")
	}
	var email *string
	if req.Email != nil {
		if trimmed := strings.ToLower(strings.TrimSpace(*req.Email)); trimmed != "" {
			email = &trimmed
		}
	}
	e164, err := s.resolvePhone(req.Phone)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.FindByPhone(ctx, e164); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an account with this phone already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	raw, err := json.Marshal(pendingSignup{Name: name, Email: email, Phone: e164, PasswordHash: hash})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode signup")
	}
	if err := s.pending.Set(ctx, s.pending.PendingSignupKey(e164), string(raw), s.otpCfg.PendingTTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store signup")
	}
	if err := s.otp.Issue(ctx, otp.PurposeSignup, e164); err != nil {
		return nil, err
	}
	return s.dispatch(e164), nil
}

// VerifySignup checks the signup code, creates the user and its profile row,
// and signs the user in.
func (s *Service) VerifySignup(ctx context.Context, rawPhone, code string) (*TokenResponse, error) {
	e164, err := s.resolvePhone(rawPhone)
	if err != nil {
		return nil, err
	}
	pending, err := s.loadPending(ctx, e164)
	if err != nil {
		return nil, err
	}
	if err := s.otp.Verify(ctx, otp.PurposeSignup, e164, code); err != nil {
		s.metrics.AuthAttempt("signup", false)
		return nil, err
	}

	now := s.now()
	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Phone:            pending.Phone,
		Email:            pending.Email,
		Name:             pending.Name,
		PasswordHash:     &pending.PasswordHash,
		PhoneConfirmedAt: &now,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "an account with this phone already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	if err := s.pending.Del(ctx, s.pending.PendingSignupKey(e164)); err != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, user.ID.String()), "auth.pending_signup_cleanup_failed")
	}
	s.ensureProfile(ctx, user)
	s.metrics.AuthAttempt("signup", true)
	return s.issueTokens(ctx, user, realtime.SignedIn)
}

func (s *Service) loadPending(ctx context.Context, e164 string) (*pendingSignup, error) {
	raw, err := s.pending.Get(ctx, s.pending.PendingSignupKey(e164))
	if err != nil {
		if redis.IsMiss(err) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "signup expired, please start again")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load signup")
	}
	var p pendingSignup
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.Phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "signup expired, please start again")
	}
	return &p, nil
}
