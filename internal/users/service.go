package users

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"dispatch-service/pkg/jwt"
	"dispatch-service/pkg/validation"
)

// IdentityVerifier checks ID tokens from a federated identity provider.
type IdentityVerifier interface {
	Provider() string
	Verify(raw string) (*jwt.Identity, error)
}

// TokenRevoker marks session tokens as signed out.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
}

// Service contains account and session logic.
type Service struct {
	store     Store
	federated IdentityVerifier
	revoker   TokenRevoker
}

// NewService creates a user service. federated may be nil when no provider
// is configured.
func NewService(store Store, federated IdentityVerifier, revoker TokenRevoker) *Service {
	return &Service{store: store, federated: federated, revoker: revoker}
}

// NormalizeEmail is the stored form of an email address. Addresses are
// unique regardless of case.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates a password account with role passenger and signs it in.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*AuthResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = NormalizeEmail(req.Email)
	switch {
	case !validation.ValidateName(req.Name):
		return nil, fmt.Errorf("%w: name must be 2-200 characters", ErrInvalidInput)
	case !validation.ValidateEmail(req.Email):
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	case !validation.ValidatePassword(req.Password):
		return nil, fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:         req.Name,
		Email:        req.Email,
		Role:         jwt.RolePassenger,
		Provider:     ProviderPassword,
		PasswordHash: string(hash),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	log.Printf("[users] signed up %s", u.ID)
	return s.issue(u)
}

// SignIn authenticates with email and password. Failures are one of
// ErrInvalidCredentials, ErrAccountDisabled or ErrSignInFailed.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (*AuthResponse, error) {
	u, err := s.store.GetByEmail(ctx, NormalizeEmail(req.Email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		log.Printf("[users] sign-in lookup failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrSignInFailed, err)
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if u.Disabled {
		return nil, ErrAccountDisabled
	}
	return s.issue(u)
}

// SignInWithProvider signs in with a federated ID token, creating the
// profile on first use. A cancelled consent flow returns ErrSignInCancelled.
func (s *Service) SignInWithProvider(ctx context.Context, req FederatedRequest) (*AuthResponse, error) {
	if req.Cancelled {
		return nil, ErrSignInCancelled
	}
	if s.federated == nil {
		return nil, jwt.ErrFederatedNotConfigured
	}

	id, err := s.federated.Verify(req.IDToken)
	if errors.Is(err, jwt.ErrFederatedNotConfigured) {
		return nil, err
	}
	if err != nil {
		log.Printf("[users] federated token rejected: %v", err)
		return nil, ErrInvalidIDToken
	}

	u, err := s.store.GetByProvider(ctx, id.Provider, id.Subject)
	switch {
	case errors.Is(err, ErrNotFound):
		u, err = s.createFederated(ctx, id)
		if err != nil {
			return nil, err
		}
	case err != nil:
		log.Printf("[users] federated lookup failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrSignInFailed, err)
	}
	if u.Disabled {
		return nil, ErrAccountDisabled
	}
	return s.issue(u)
}

func (s *Service) createFederated(ctx context.Context, id *jwt.Identity) (*User, error) {
	name := strings.TrimSpace(id.Name)
	if name == "" {
		name, _, _ = strings.Cut(id.Email, "@")
	}
	u := &User{
		Name:              name,
		Email:             NormalizeEmail(id.Email),
		ProfilePictureURL: id.Picture,
		Role:              jwt.RolePassenger,
		Provider:          id.Provider,
		ProviderSubject:   id.Subject,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	log.Printf("[users] created profile %s on first %s sign-in", u.ID, id.Provider)
	return u, nil
}

// SignOut revokes the session token until it would have expired anyway.
func (s *Service) SignOut(ctx context.Context, sess jwt.Session) error {
	if s.revoker == nil || sess.TokenID == "" {
		return nil
	}
	return s.revoker.RevokeToken(ctx, sess.TokenID, time.Until(sess.ExpiresAt))
}

// State reports the caller's session. A deleted or disabled account counts
// as signed out.
func (s *Service) State(ctx context.Context, sess jwt.Session) (*SessionState, error) {
	u, err := s.store.GetByID(ctx, sess.UserID)
	if errors.Is(err, ErrNotFound) {
		return &SessionState{State: StateSignedOut}, nil
	}
	if err != nil {
		return nil, err
	}
	if u.Disabled {
		return &SessionState{State: StateSignedOut}, nil
	}
	return &SessionState{State: StateSignedIn, User: u}, nil
}

func (s *Service) GetProfile(ctx context.Context, sess jwt.Session) (*User, error) {
	return s.store.GetByID(ctx, sess.UserID)
}

// UpdateProfile changes display name, phone and picture.
func (s *Service) UpdateProfile(ctx context.Context, sess jwt.Session, req UpdateProfileRequest) (*User, error) {
	u, err := s.store.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	name, phone, picture := u.Name, u.Phone, u.ProfilePictureURL
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if !validation.ValidateName(name) {
			return nil, fmt.Errorf("%w: name must be 2-200 characters", ErrInvalidInput)
		}
	}
	if req.Phone != nil {
		phone = strings.TrimSpace(*req.Phone)
		if phone != "" && !validation.ValidatePhone(phone) {
			return nil, fmt.Errorf("%w: invalid phone number", ErrInvalidInput)
		}
	}
	if req.ProfilePictureURL != nil {
		picture = strings.TrimSpace(*req.ProfilePictureURL)
		if picture != "" && !validation.ValidateURL(picture) {
			return nil, fmt.Errorf("%w: invalid picture URL", ErrInvalidInput)
		}
	}
	return s.store.UpdateProfile(ctx, u.ID, name, phone, picture)
}

func (s *Service) issue(u *User) (*AuthResponse, error) {
	token, err := jwt.Generate(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: u}, nil
}
