package users

import "time"

// Sign-in providers other than federated ones.
const ProviderPassword = "password"

// User is a passenger or driver account profile.
type User struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	ProfilePictureURL string    `json:"profile_picture_url"`
	Role              string    `json:"role"`
	Provider          string    `json:"provider"`
	ProviderSubject   string    `json:"-"`
	PasswordHash      string    `json:"-"`
	Disabled          bool      `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
}

// SignUpRequest is the body for POST /users/register.
type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInRequest is the body for POST /users/login.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// FederatedRequest is the body for POST /users/federated. Cancelled is set
// by the client when the user closed the provider's consent screen.
type FederatedRequest struct {
	IDToken   string `json:"id_token"`
	Cancelled bool   `json:"cancelled"`
}

// UpdateProfileRequest is the body for PATCH /users/me. Nil fields are left
// unchanged. Email cannot be changed.
type UpdateProfileRequest struct {
	Name              *string `json:"name"`
	Phone             *string `json:"phone"`
	ProfilePictureURL *string `json:"profile_picture_url"`
}

// AuthResponse is returned on every successful sign-in.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// Session states reported by GET /users/session.
const (
	StateSignedIn  = "signed_in"
	StateSignedOut = "signed_out"
)

// SessionState tells gated views whether someone is signed in.
type SessionState struct {
	State string `json:"state"`
	User  *User  `json:"user,omitempty"`
}
