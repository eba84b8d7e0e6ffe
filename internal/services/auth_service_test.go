package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/docstore/docstoretest"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
)

func newAuthService(t *testing.T, admin config.Admin) (*AuthService, repository.ProfileRepository) {
	t.Helper()
	db := docstoretest.NewDB(t, &models.Account{}, &models.RefreshToken{})
	store := docstore.NewStore(db, nil)
	t.Cleanup(func() { store.Close() })
	profiles := repository.NewProfileRepository(store)
	cfg := &config.Config{JWT: config.JWT{Secret: "test-secret", AccessExpiry: time.Minute, RefreshExpiry: time.Hour}}
	return NewAuthService(db, cfg, profiles, NewAdminPolicy(admin, profiles)), profiles
}

func TestRegisterCreatesProfileAndToken(t *testing.T) {
	svc, profiles := newAuthService(t, config.Admin{Emails: []string{"Boss@LHStylehub.com"}})
	ctx := context.Background()

	resp, err := svc.Register(ctx, &dto.RegisterRequest{
		Email: " Boss@lhstylehub.com ", Password: "longenough", FirstName: "Asha", LastName: "Rao", Phone: "9876543210",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !resp.User.IsAdmin || resp.User.DisplayName != "Asha Rao" || resp.User.Email != "boss@lhstylehub.com" {
		t.Errorf("user = %+v", resp.User)
	}

	p, err := profiles.Get(ctx, resp.User.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.FirstName != "Asha" || p.Phone != "9876543210" || p.Provider != "email" {
		t.Errorf("profile = %+v", p)
	}

	token, err := jwt.Parse(resp.AccessToken, func(*jwt.Token) (any, error) { return []byte("test-secret"), nil })
	if err != nil || !token.Valid {
		t.Fatalf("access token invalid: %v", err)
	}
	claims := token.Claims.(jwt.MapClaims)
	if claims["sub"] != resp.User.ID || claims["email"] != "boss@lhstylehub.com" {
		t.Errorf("claims = %v", claims)
	}

	if _, err := svc.Register(ctx, &dto.RegisterRequest{Email: "boss@lhstylehub.com", Password: "longenough"}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate err = %v", err)
	}
	if _, err := svc.Register(ctx, &dto.RegisterRequest{Email: "x@y.com", Password: "short"}); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak password err = %v", err)
	}
}

func TestLoginRefreshLogout(t *testing.T) {
	svc, _ := newAuthService(t, config.Admin{})
	ctx := context.Background()
	if _, err := svc.Register(ctx, &dto.RegisterRequest{Email: "a@x.com", Password: "password1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "a@x.com", Password: "wrong-pass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("bad login err = %v", err)
	}
	login, err := svc.Login(ctx, &dto.LoginRequest{Email: "A@x.com", Password: "password1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.IsAdmin || login.User.DisplayName != "a" {
		t.Errorf("user = %+v", login.User)
	}

	refreshed, err := svc.Refresh(ctx, &dto.RefreshRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, err := svc.Refresh(ctx, &dto.RefreshRequest{RefreshToken: login.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("reused refresh token err = %v", err)
	}

	if err := svc.Logout(ctx, &dto.LogoutRequest{RefreshToken: refreshed.RefreshToken}); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, &dto.RefreshRequest{RefreshToken: refreshed.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh after logout err = %v", err)
	}
}

func TestUpdateProfileMergesFields(t *testing.T) {
	svc, profiles := newAuthService(t, config.Admin{})
	ctx := context.Background()
	resp, _ := svc.Register(ctx, &dto.RegisterRequest{Email: "a@x.com", Password: "password1", FirstName: "A"})

	phone := " 9000000000 "
	p, err := svc.UpdateProfile(ctx, resp.User.ID, &dto.ProfileUpdateRequest{Phone: &phone})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if p.Phone != "9000000000" || p.FirstName != "A" || p.Email != "a@x.com" {
		t.Errorf("profile = %+v", p)
	}

	if _, err := svc.UpdateProfile(ctx, "ghost", &dto.ProfileUpdateRequest{Phone: &phone}); !errors.Is(err, repository.ErrProfileNotFound) {
		t.Errorf("ghost err = %v", err)
	}
	if ok, _ := profiles.IsAdmin(ctx, resp.User.ID); ok {
		t.Error("new account is admin")
	}
}

func TestAdminPolicy(t *testing.T) {
	store := docstoretest.New(t)
	profiles := repository.NewProfileRepository(store)
	ctx := context.Background()
	profiles.Create(ctx, models.Profile{UID: "flagged", Email: "f@x.com", IsAdmin: true})

	p := NewAdminPolicy(config.Admin{Emails: []string{" owner@x.com "}, UserIDs: []string{"root"}, Token: "tok"}, profiles)
	cases := []struct {
		uid, email string
		want       bool
	}{
		{"u1", "OWNER@x.com", true},
		{"root", "", true},
		{"flagged", "f@x.com", true},
		{"u2", "u2@x.com", false},
		{"", "", false},
	}
	for _, c := range cases {
		if got := p.Allows(ctx, c.uid, c.email); got != c.want {
			t.Errorf("Allows(%q, %q) = %v", c.uid, c.email, got)
		}
	}
	if !p.TokenMatches("tok") || p.TokenMatches("nope") || p.TokenMatches("") {
		t.Error("token check wrong")
	}
	if NewAdminPolicy(config.Admin{}, nil).TokenMatches("") {
		t.Error("empty configured token matched")
	}
}
