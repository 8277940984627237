package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/elitejewels-backend/internal/otp"
	"github.com/angelmondragon/elitejewels-backend/internal/users"
	pkgAuth "github.com/angelmondragon/elitejewels-backend/pkg/auth"
	"github.com/angelmondragon/elitejewels-backend/pkg/auth/session"
	"github.com/angelmondragon/elitejewels-backend/pkg/config"
	"github.com/angelmondragon/elitejewels-backend/pkg/db/models"
	"github.com/angelmondragon/elitejewels-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
	"github.com/angelmondragon/elitejewels-backend/pkg/metrics"
	"github.com/angelmondragon/elitejewels-backend/pkg/phone"
	"github.com/angelmondragon/elitejewels-backend/pkg/realtime"
	"github.com/angelmondragon/elitejewels-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	invalidPhoneMessage       = "enter a valid phone number"
)

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	ConfirmPhone(ctx context.Context, id uuid.UUID, at time.Time) error
}

type profileRepository interface {
	Upsert(ctx context.Context, p *models.Profile) error
}

type codeService interface {
	Issue(ctx context.Context, purpose otp.Purpose, phone string) error
	Verify(ctx context.Context, purpose otp.Purpose, phone, code string) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, uuid.UUID, error)
	Revoke(ctx context.Context, accessID string) error
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type pendingStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	PendingSignupKey(phone string) string
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users          userRepository
	Profiles       profileRepository
	OTP            codeService
	Sessions       sessionManager
	Pending        pendingStore
	Feed           realtime.Feed
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	OTPConfig      config.OTPConfig
	Logger         *logger.Logger
	Metrics        *metrics.Storefront
}

// Service implements OTP, password and signup sign-in plus token rotation.
type Service struct {
	users       userRepository
	profiles    profileRepository
	otp         codeService
	sessions    sessionManager
	pending     pendingStore
	feed        realtime.Feed
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	otpCfg      config.OTPConfig
	logg        *logger.Logger
	metrics     *metrics.Storefront
	now         func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Users == nil:
		return nil, fmt.Errorf("user repository is required")
	case params.Profiles == nil:
		return nil, fmt.Errorf("profile repository is required")
	case params.OTP == nil:
		return nil, fmt.Errorf("otp service is required")
	case params.Sessions == nil:
		return nil, fmt.Errorf("session manager is required")
	case params.Pending == nil:
		return nil, fmt.Errorf("pending signup store is required")
	}
	feed := params.Feed
	if feed == nil {
		feed = realtime.NewMemoryFeed()
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		users:       params.Users,
		profiles:    params.Profiles,
		otp:         params.OTP,
		sessions:    params.Sessions,
		pending:     params.Pending,
		feed:        feed,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		otpCfg:      params.OTPConfig,
		logg:        logg,
		metrics:     params.Metrics,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// RequestOTP sends a sign-in code to the phone.
func (s *Service) RequestOTP(ctx context.Context, rawPhone string) (*OTPDispatch, error) {
	e164, err := s.resolvePhone(rawPhone)
	if err != nil {
		return nil, err
	}
	if err := s.otp.Issue(ctx, otp.PurposeLogin, e164); err != nil {
		return nil, err
	}
	return s.dispatch(e164), nil
}

// ResendOTP reissues the most recent kind of code for the phone: a pending
// signup gets a signup code, everyone else a sign-in code.
func (s *Service) ResendOTP(ctx context.Context, rawPhone string) (*OTPDispatch, error) {
	e164, err := s.resolvePhone(rawPhone)
	if err != nil {
		return nil, err
	}
	purpose := otp.PurposeLogin
	if _, err := s.loadPending(ctx, e164); err == nil {
		purpose = otp.PurposeSignup
	}
	if err := s.otp.Issue(ctx, purpose, e164); err != nil {
		return nil, err
	}
	return s.dispatch(e164), nil
}

// VerifyOTP completes an OTP sign-in. Unknown phones get an account on
// first successful verification.
func (s *Service) VerifyOTP(ctx context.Context, rawPhone, code string) (*TokenResponse, error) {
	e164, err := s.resolvePhone(rawPhone)
	if err != nil {
		return nil, err
	}
	if err := s.otp.Verify(ctx, otp.PurposeLogin, e164, code); err != nil {
		s.metrics.AuthAttempt("otp", false)
		return nil, err
	}

	user, err := s.users.FindByPhone(ctx, e164)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		now := s.now()
		user, err = s.users.Create(ctx, users.CreateUserDTO{Phone: e164, PhoneConfirmedAt: &now})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		s.ensureProfile(ctx, user)
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	default:
		if err := s.users.ConfirmPhone(ctx, user.ID, s.now()); err != nil {
			s.logg.Warn(s.logg.WithUserID(ctx, user.ID.String()), "auth.confirm_phone_failed")
		}
	}

	s.metrics.AuthAttempt("otp", true)
	return s.issueTokens(ctx, user, realtime.SignedIn)
}

// PasswordLogin signs in with the password chosen at signup.
func (s *Service) PasswordLogin(ctx context.Context, req PasswordLoginRequest) (*TokenResponse, error) {
	e164, err := s.resolvePhone(req.Phone)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByPhone(ctx, e164)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.AuthAttempt("password", false)
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if user.PasswordHash == nil || *user.PasswordHash == "" {
		s.metrics.AuthAttempt("password", false)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	valid, err := security.VerifyPassword(req.Password, *user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		s.metrics.AuthAttempt("password", false)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	s.metrics.AuthAttempt("password", true)
	return s.issueTokens(ctx, user, realtime.SignedIn)
}

// Refresh rotates the refresh token bound to the access token's jti.
func (s *Service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenResponse, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, strings.TrimSpace(accessToken))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}
	newAccessID, newRefresh, userID, err := s.sessions.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}
	if userID != claims.UserID {
		_ = s.sessions.Revoke(ctx, newAccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		_ = s.sessions.Revoke(ctx, newAccessID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	now := s.now()
	access, err := s.mint(now, user, newAccessID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, user, realtime.TokenRefreshed)
	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: newRefresh,
		ExpiresAt:    s.expiry(now),
		User:         users.FromModel(user),
	}, nil
}

// Logout revokes the refresh session for accessID and announces sign-out.
func (s *Service) Logout(ctx context.Context, accessID string, userID uuid.UUID) error {
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	evt := realtime.Event{
		Topic:   realtime.AuthTopic(userID.String()),
		Type:    realtime.SignedOut,
		Subject: userID.String(),
		At:      s.now(),
	}
	if err := s.feed.Publish(ctx, evt); err != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, userID.String()), "auth.publish_signed_out_failed")
	}
	return nil
}

func (s *Service) issueTokens(ctx context.Context, user *models.User, kind realtime.ChangeType) (*TokenResponse, error) {
	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	accessID := session.NewAccessID()
	access, err := s.mint(now, user, accessID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sessions.Generate(ctx, accessID, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}
	s.publish(ctx, user, kind)
	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    s.expiry(now),
		User:         users.FromModel(user),
	}, nil
}

func (s *Service) mint(now time.Time, user *models.User, accessID string) (string, error) {
	role := user.Role
	if !role.IsValid() {
		role = enums.RoleCustomer
	}
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Phone:  user.Phone,
		Role:   role,
		JTI:    accessID,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, nil
}

func (s *Service) expiry(now time.Time) time.Time {
	return now.Add(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute)
}

// publish announces an auth state change on the user's topic. Failures are
// logged only.
func (s *Service) publish(ctx context.Context, user *models.User, kind realtime.ChangeType) {
	payload, err := json.Marshal(users.FromModel(user))
	if err != nil {
		s.logg.Error(ctx, "auth.encode_event_failed", err)
		return
	}
	evt := realtime.Event{
		Topic:   realtime.AuthTopic(user.ID.String()),
		Type:    kind,
		New:     payload,
		Subject: user.ID.String(),
		At:      s.now(),
	}
	if err := s.feed.Publish(ctx, evt); err != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, user.ID.String()), "auth.publish_event_failed")
	}
}

// ensureProfile creates the profile row for a new user. Failures are logged;
// the session falls back to the user fields.
func (s *Service) ensureProfile(ctx context.Context, user *models.User) {
	p := &models.Profile{ID: user.ID, Email: user.Email, Phone: &user.Phone}
	if user.Name != "" {
		name := user.Name
		p.Name = &name
	}
	if err := s.profiles.Upsert(ctx, p); err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, user.ID.String()), "auth.profile_upsert_failed", err)
	}
}

// resolvePhone prefixes the configured country code onto the typed digits
// and validates the result.
func (s *Service) resolvePhone(raw string) (string, error) {
	withCC := phone.WithCountryCode(s.otpCfg.CountryCode, raw)
	if withCC == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, invalidPhoneMessage)
	}
	e164, err := phone.Parse(withCC)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, invalidPhoneMessage)
	}
	return e164, nil
}

func (s *Service) dispatch(e164 string) *OTPDispatch {
	return &OTPDispatch{Phone: e164, ResendAfterSec: int(s.otpCfg.ResendCooldown / time.Second)}
}
