package auth

import (
	"time"

	"github.com/angelmondragon/elitejewels-backend/internal/users"
)

// PhoneRequest starts or resends an OTP sign-in.
type PhoneRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
}

// VerifyOTPRequest completes an OTP sign-in or signup.
type VerifyOTPRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
	Code  string `json:"code" validate:"required,numeric,min=4,max=12"`
}

// SignUpRequest captures the signup form. Email is optional.
type SignUpRequest struct {
	Name            string  `json:"name"`
	Email           *string `json:"email,omitempty"`
	Phone           string  `json:"phone"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"confirm_password"`
}

// PasswordLoginRequest signs in with phone and password.
type PasswordLoginRequest struct {
	Phone    string `json:"phone" validate:"required,phone"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest rotates the refresh token bound to the (possibly expired)
// access token sent in the Authorization header.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse is returned by every successful sign-in.
type TokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresAt    time.Time      `json:"expires_at"`
	User         *users.UserDTO `json:"user"`
}

// OTPDispatch tells the client where the code went and when it may ask again.
type OTPDispatch struct {
	Phone          string `json:"phone"`
	ResendAfterSec int    `json:"resend_after_seconds"`
}
