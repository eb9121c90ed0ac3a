package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"dispatch-service/pkg/jwt"
)

func TestMain(m *testing.M) {
	if err := jwt.Init("test-secret"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func signUp(t *testing.T, svc *Service, email string) *AuthResponse {
	t.Helper()
	resp, err := svc.SignUp(context.Background(), SignUpRequest{Name: "Ada Lovelace", Email: email, Password: "secret1"})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	return resp
}

func TestSignUp_DefaultsToPassenger(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil, nil)

	resp := signUp(t, svc, "ada@example.com")
	if resp.Token == "" || resp.User.Role != jwt.RolePassenger {
		t.Fatalf("unexpected response %+v", resp.User)
	}
	sess, err := jwt.Authenticate(context.Background(), resp.Token)
	if err != nil || sess.UserID != resp.User.ID {
		t.Fatalf("token does not authenticate: %v", err)
	}

	_, err = svc.SignUp(context.Background(), SignUpRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignUp_Validation(t *testing.T) {
	svc := NewService(newMemoryStore(), nil, nil)
	cases := []SignUpRequest{
		{Name: "A", Email: "a@example.com", Password: "secret1"},
		{Name: "Ada", Email: "not-an-email", Password: "secret1"},
		{Name: "Ada", Email: "a@example.com", Password: "123"},
	}
	for _, req := range cases {
		if _, err := svc.SignUp(context.Background(), req); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%+v: expected ErrInvalidInput, got %v", req, err)
		}
	}
}

func TestSignIn_DistinctFailures(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil, nil)
	ctx := context.Background()
	signUp(t, svc, "ada@example.com")
	signUp(t, svc, "off@example.com")
	store.disable("off@example.com")

	if _, err := svc.SignIn(ctx, SignInRequest{Email: "ada@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("valid sign-in: %v", err)
	}
	if _, err := svc.SignIn(ctx, SignInRequest{Email: "ada@example.com", Password: "wrong!"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: %v", err)
	}
	if _, err := svc.SignIn(ctx, SignInRequest{Email: "nobody@example.com", Password: "secret1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: %v", err)
	}
	if _, err := svc.SignIn(ctx, SignInRequest{Email: "off@example.com", Password: "secret1"}); !errors.Is(err, ErrAccountDisabled) {
		t.Errorf("disabled: %v", err)
	}

	store.GetError = ErrUnavailable
	if _, err := svc.SignIn(ctx, SignInRequest{Email: "ada@example.com", Password: "secret1"}); !errors.Is(err, ErrSignInFailed) {
		t.Errorf("provider error: %v", err)
	}
}

func TestSignUp_EmailCaseInsensitive(t *testing.T) {
	svc := NewService(newMemoryStore(), nil, nil)
	ctx := context.Background()

	resp := signUp(t, svc, "  Ada@Example.COM ")
	if resp.User.Email != "ada@example.com" {
		t.Fatalf("stored email %q", resp.User.Email)
	}
	_, err := svc.SignUp(ctx, SignUpRequest{Name: "Other Ada", Email: "ada@example.com", Password: "secret2"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("case variant sign-up: expected ErrEmailTaken, got %v", err)
	}
	if _, err := svc.SignIn(ctx, SignInRequest{Email: "ADA@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("sign-in with other casing: %v", err)
	}
}

func TestSignInWithProvider(t *testing.T) {
	store := newMemoryStore()
	verifier := &fakeVerifier{identity: &jwt.Identity{
		Provider: "google", Subject: "sub-1", Email: "grace@example.com", Picture: "https://example.com/g.png",
	}}
	svc := NewService(store, verifier, nil)
	ctx := context.Background()

	first, err := svc.SignInWithProvider(ctx, FederatedRequest{IDToken: "tok"})
	if err != nil {
		t.Fatal(err)
	}
	if first.User.Name != "grace" || first.User.Role != jwt.RolePassenger {
		t.Fatalf("lazy profile: %+v", first.User)
	}
	second, err := svc.SignInWithProvider(ctx, FederatedRequest{IDToken: "tok"})
	if err != nil {
		t.Fatal(err)
	}
	if second.User.ID != first.User.ID {
		t.Fatal("second sign-in created another profile")
	}

	if _, err := svc.SignInWithProvider(ctx, FederatedRequest{Cancelled: true}); !errors.Is(err, ErrSignInCancelled) {
		t.Fatalf("expected ErrSignInCancelled, got %v", err)
	}

	verifier.err = errors.New("token is expired")
	if _, err := svc.SignInWithProvider(ctx, FederatedRequest{IDToken: "tok"}); !errors.Is(err, ErrInvalidIDToken) {
		t.Fatalf("expected ErrInvalidIDToken, got %v", err)
	}
}

func TestSignOut_RevokesToken(t *testing.T) {
	revoker := &memoryRevoker{}
	svc := NewService(newMemoryStore(), nil, revoker)
	resp := signUp(t, svc, "ada@example.com")

	jwt.SetRevocationCheck(revoker.IsRevoked)
	defer jwt.SetRevocationCheck(nil)

	ctx := context.Background()
	sess, err := jwt.Authenticate(ctx, resp.Token)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.SignOut(ctx, sess); err != nil {
		t.Fatal(err)
	}
	if _, err := jwt.Authenticate(ctx, resp.Token); !errors.Is(err, jwt.ErrRevoked) {
		t.Fatalf("expected ErrRevoked, got %v", err)
	}
}

func TestUpdateProfile_EmailImmutable(t *testing.T) {
	svc := NewService(newMemoryStore(), nil, nil)
	resp := signUp(t, svc, "ada@example.com")
	sess := jwt.Session{UserID: resp.User.ID}

	phone := "+44 20 7946 0958"
	name := "Ada King"
	u, err := svc.UpdateProfile(context.Background(), sess, UpdateProfileRequest{Name: &name, Phone: &phone})
	if err != nil {
		t.Fatal(err)
	}
	if u.Name != name || u.Phone != phone || u.Email != "ada@example.com" {
		t.Fatalf("unexpected profile %+v", u)
	}

	bad := "not a url"
	if _, err := svc.UpdateProfile(context.Background(), sess, UpdateProfileRequest{ProfilePictureURL: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestHandler_SessionAndFederatedCancel(t *testing.T) {
	svc := NewService(newMemoryStore(), &fakeVerifier{}, nil)
	h := NewHandler(svc).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/session", nil))
	var state SessionState
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil || state.State != StateSignedOut {
		t.Fatalf("anonymous session: %v %+v", err, state)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/federated", strings.NewReader(`{"cancelled":true}`)))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"cancelled"`) {
		t.Fatalf("cancelled sign-in: %d %s", rec.Code, rec.Body)
	}

	resp := signUp(t, svc, "ada@example.com")
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req = req.WithContext(jwt.WithSession(req.Context(), jwt.Session{UserID: resp.User.ID}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil || state.State != StateSignedIn {
		t.Fatalf("signed-in session: %v %+v", err, state)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"ada@example.com","password":"nope!!"}`)))
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "Invalid email or password.") {
		t.Fatalf("bad login: %d %s", rec.Code, rec.Body)
	}
}
