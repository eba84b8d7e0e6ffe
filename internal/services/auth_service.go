package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
	ErrWeakPassword       = errors.New("valid email required and password must be at least 8 characters")
)

type AuthService struct {
	db       *gorm.DB
	cfg      *config.Config
	profiles repository.ProfileRepository
	admins   *AdminPolicy
}

func NewAuthService(db *gorm.DB, cfg *config.Config, profiles repository.ProfileRepository, admins *AdminPolicy) *AuthService {
	return &AuthService{db: db, cfg: cfg, profiles: profiles, admins: admins}
}

// Register creates the credential row and the profile node at users/{id}.
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !looseEmail.MatchString(email) || len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}

	var existing models.Account
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := models.Account{
		ID:       uuid.New(),
		Email:    email,
		Password: string(hash),
		Provider: "email",
	}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	first, last := strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName)
	profile := models.Profile{
		UID:         account.ID.String(),
		Email:       email,
		DisplayName: strings.TrimSpace(first + " " + last),
		FirstName:   first,
		LastName:    last,
		Phone:       strings.TrimSpace(req.Phone),
		CreatedAt:   time.Now().UTC(),
		Provider:    account.Provider,
	}
	if profile.DisplayName == "" {
		profile.DisplayName = strings.Split(email, "@")[0]
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		if derr := s.db.Delete(&account).Error; derr != nil {
			slog.Error("failed to roll back account", "user_id", profile.UID, "error", derr)
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	slog.Info("account registered", "user_id", profile.UID)
	return s.generateTokenPair(ctx, &account, &profile)
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	var account models.Account
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.generateTokenPair(ctx, &account, nil)
}

func (s *AuthService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	db := s.db.WithContext(ctx)
	var stored models.RefreshToken
	if err := db.Where("token_hash = ? AND revoked = ?", hashToken(req.RefreshToken), false).First(&stored).Error; err != nil {
		return nil, ErrInvalidToken
	}

	db.Model(&stored).Update("revoked", true)
	if time.Now().After(stored.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	var account models.Account
	if err := db.First(&account, "id = ?", stored.AccountID).Error; err != nil {
		return nil, fmt.Errorf("account not found: %w", err)
	}
	return s.generateTokenPair(ctx, &account, nil)
}

func (s *AuthService) Logout(ctx context.Context, req *dto.LogoutRequest) error {
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", hashToken(req.RefreshToken)).
		Update("revoked", true).Error
}

func (s *AuthService) Profile(ctx context.Context, uid string) (*models.Profile, error) {
	return s.profiles.Get(ctx, uid)
}

// UpdateProfile merges the provided fields into the stored profile.
func (s *AuthService) UpdateProfile(ctx context.Context, uid string, req *dto.ProfileUpdateRequest) (*models.Profile, error) {
	fields := map[string]any{}
	set := func(name string, v *string) {
		if v != nil {
			fields[name] = strings.TrimSpace(*v)
		}
	}
	set("displayName", req.DisplayName)
	set("firstName", req.FirstName)
	set("lastName", req.LastName)
	set("phone", req.Phone)

	if _, err := s.profiles.Get(ctx, uid); err != nil {
		return nil, err
	}
	if err := s.profiles.Update(ctx, uid, fields); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.profiles.Get(ctx, uid)
}

func (s *AuthService) generateTokenPair(ctx context.Context, account *models.Account, profile *models.Profile) (*dto.AuthResponse, error) {
	if profile == nil {
		p, err := s.profiles.Get(ctx, account.ID.String())
		if err != nil && !errors.Is(err, repository.ErrProfileNotFound) {
			return nil, fmt.Errorf("load profile: %w", err)
		}
		profile = p
	}

	accessToken, err := s.generateAccessToken(account)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.generateRefreshToken(ctx, account)
	if err != nil {
		return nil, err
	}

	user := dto.UserResponse{
		ID:      account.ID.String(),
		Email:   account.Email,
		IsAdmin: s.admins.Allows(ctx, account.ID.String(), account.Email),
	}
	if profile != nil {
		user.DisplayName = profile.Name()
	}
	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

func (s *AuthService) generateAccessToken(account *models.Account) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   account.ID.String(),
		"email": account.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.JWT.AccessExpiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWT.Secret))
}

func (s *AuthService) generateRefreshToken(ctx context.Context, account *models.Account) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	rawToken := base64.URLEncoding.EncodeToString(rawBytes)

	record := models.RefreshToken{
		ID:        uuid.New(),
		AccountID: account.ID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: time.Now().Add(s.cfg.JWT.RefreshExpiry),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return rawToken, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
