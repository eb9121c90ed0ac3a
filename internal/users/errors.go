package users

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("Invalid email or password.")
	ErrAccountDisabled    = errors.New("This account has been disabled.")
	ErrSignInFailed       = errors.New("Sign-in failed. Please try again.")
	ErrSignInCancelled    = errors.New("sign-in cancelled")
	ErrInvalidIDToken     = errors.New("The identity provider's sign-in could not be verified.")
	ErrUnavailable        = errors.New("user store unavailable")
)
