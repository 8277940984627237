package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/elitejewels-backend/api/middleware"
	"github.com/angelmondragon/elitejewels-backend/api/responses"
	"github.com/angelmondragon/elitejewels-backend/api/validators"
	"github.com/angelmondragon/elitejewels-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
)

// AuthService is the sign-in surface the auth endpoints drive.
type AuthService interface {
	RequestOTP(ctx context.Context, phone string) (*auth.OTPDispatch, error)
	ResendOTP(ctx context.Context, phone string) (*auth.OTPDispatch, error)
	VerifyOTP(ctx context.Context, phone, code string) (*auth.TokenResponse, error)
	SignUp(ctx context.Context, req auth.SignUpRequest) (*auth.OTPDispatch, error)
	VerifySignup(ctx context.Context, phone, code string) (*auth.TokenResponse, error)
	PasswordLogin(ctx context.Context, req auth.PasswordLoginRequest) (*auth.TokenResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*auth.TokenResponse, error)
}

// AuthRequestOTP sends a sign-in code.
func AuthRequestOTP(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return phoneHandler(logg, svc, func(ctx context.Context, phone string) (*auth.OTPDispatch, error) {
		return svc.RequestOTP(ctx, phone)
	})
}

// AuthResendOTP re-sends whichever code is pending for the phone.
func AuthResendOTP(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return phoneHandler(logg, svc, func(ctx context.Context, phone string) (*auth.OTPDispatch, error) {
		return svc.ResendOTP(ctx, phone)
	})
}

func phoneHandler(logg *logger.Logger, svc AuthService, send func(context.Context, string) (*auth.OTPDispatch, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth service"))
			return
		}
		var body auth.PhoneRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dispatch, err := send(r.Context(), body.Phone)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, dispatch)
	}
}

// AuthVerifyOTP completes an OTP sign-in.
func AuthVerifyOTP(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return verifyHandler(logg, svc, func(ctx context.Context, body auth.VerifyOTPRequest) (*auth.TokenResponse, error) {
		return svc.VerifyOTP(ctx, body.Phone, body.Code)
	})
}

// AuthVerifySignup completes a signup and signs the new user in.
func AuthVerifySignup(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return verifyHandler(logg, svc, func(ctx context.Context, body auth.VerifyOTPRequest) (*auth.TokenResponse, error) {
		return svc.VerifySignup(ctx, body.Phone, body.Code)
	})
}

func verifyHandler(logg *logger.Logger, svc AuthService, verify func(context.Context, auth.VerifyOTPRequest) (*auth.TokenResponse, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth service"))
			return
		}
		var body auth.VerifyOTPRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tokens, err := verify(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tokens)
	}
}

// AuthSignUp starts a signup; the service validates the form before any I/O.
func AuthSignUp(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth service"))
			return
		}
		var body auth.SignUpRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dispatch, err := svc.SignUp(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, dispatch)
	}
}

func AuthPasswordLogin(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth service"))
			return
		}
		var body auth.PasswordLoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tokens, err := svc.PasswordLogin(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tokens)
	}
}

// AuthRefresh rotates the refresh token bound to the presented access token,
// which may already be expired.
func AuthRefresh(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth service"))
			return
		}
		token := middleware.BearerToken(r)
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		var body auth.RefreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tokens, err := svc.Refresh(r.Context(), token, body.RefreshToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tokens)
	}
}
