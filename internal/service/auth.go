package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/interfaces"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
)

const tokenIssuer = "ai-hypnosis-generator"

// AuthService registers users and issues, verifies and revokes their tokens.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, *models.TokenDetails, error)
	Login(ctx context.Context, email, password string) (*models.User, *models.TokenDetails, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenDetails, error)
	Logout(ctx context.Context, claims *models.Claims, refreshToken string) error
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error
	VerifyAccessToken(ctx context.Context, token string) (*models.Claims, error)
}

type RegisterInput struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=8,max=128"`
	Name     string  `json:"name" validate:"required,max=100"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128"`
}

// AuthConfig carries the secrets and token lifetimes.
type AuthConfig struct {
	JWTSecret       string
	PasswordPepper  string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

var _ AuthService = (*authService)(nil)

type authService struct {
	store     interfaces.Store
	tokenRepo interfaces.TokenRepository
	cfg       AuthConfig
	logger    *zap.Logger
}

func NewAuthService(store interfaces.Store, tokenRepo interfaces.TokenRepository, cfg AuthConfig, logger *zap.Logger) AuthService {
	return &authService{
		store:     store,
		tokenRepo: tokenRepo,
		cfg:       cfg,
		logger:    logger.Named("AuthService"),
	}
}

// Register creates the user together with its empty stats row and logs it in.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, *models.TokenDetails, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if phone == "" {
			input.Phone = nil
		} else {
			input.Phone = &phone
		}
	}
	if err := validateStruct(input); err != nil {
		return nil, nil, err
	}

	hash, err := hashPassword(input.Password, s.cfg.PasswordPepper)
	if err != nil {
		s.logger.Error("Failed to hash password during registration", zap.Error(err))
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{
		Email:        input.Email,
		Name:         input.Name,
		Phone:        input.Phone,
		PasswordHash: hash,
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx interfaces.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return tx.Stats().Ensure(ctx, user.ID)
	})
	if err != nil {
		if errors.Is(err, models.ErrEmailAlreadyExists) {
			s.logger.Info("Registration attempt for existing email", zap.String("email", input.Email))
		}
		return nil, nil, err
	}

	td, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("User registered", zap.String("userID", user.ID.String()))
	return user, td, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*models.User, *models.TokenDetails, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, nil, models.NewValidationError("email and password are required")
	}
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Burn a comparison so unknown e-mails take as long as wrong passwords.
			checkPasswordHash(password, dummyHash(), s.cfg.PasswordPepper)
			return nil, nil, models.ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !checkPasswordHash(password, user.PasswordHash, s.cfg.PasswordPepper) {
		s.logger.Warn("Login failed: invalid password", zap.String("userID", user.ID.String()))
		return nil, nil, models.ErrInvalidCredentials
	}

	td, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("User logged in", zap.String("userID", user.ID.String()))
	return user, td, nil
}

// Refresh rotates the pair: the presented refresh token is revoked and a new pair is stored.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*models.TokenDetails, error) {
	claims, err := s.parseToken(refreshToken, models.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	storedUserID, err := s.tokenRepo.GetUserIDByRefreshUUID(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if storedUserID != claims.UserID {
		s.logger.Error("Refresh token user mismatch",
			zap.String("tokenUserID", claims.UserID.String()), zap.String("storedUserID", storedUserID.String()))
		return nil, models.ErrTokenInvalid
	}

	user, err := s.store.Users().GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrTokenInvalid
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if _, err := s.tokenRepo.DeleteTokens(ctx, claims.UserID, "", claims.ID); err != nil {
		s.logger.Warn("Failed to revoke old refresh token", zap.String("refreshUUID", claims.ID), zap.Error(err))
	}
	return s.issueTokens(ctx, user)
}

// Logout revokes the access token of claims and, when given, the refresh token.
// Tokens already gone count as success.
func (s *authService) Logout(ctx context.Context, claims *models.Claims, refreshToken string) error {
	refreshUUID := ""
	if refreshToken != "" {
		if rc, err := s.parseToken(refreshToken, models.TokenTypeRefresh); err == nil && rc.UserID == claims.UserID {
			refreshUUID = rc.ID
		}
	}
	deleted, err := s.tokenRepo.DeleteTokens(ctx, claims.UserID, claims.ID, refreshUUID)
	if err != nil {
		return err
	}
	s.logger.Info("User logged out", zap.String("userID", claims.UserID.String()), zap.Int64("revoked", deleted))
	return nil
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.store.Users().GetByID(ctx, userID)
}

// ChangePassword replaces the password after checking the current one.
// Tokens already issued stay valid until they expire or are logged out.
func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error {
	if err := validateStruct(input); err != nil {
		return err
	}
	if input.NewPassword == input.CurrentPassword {
		return models.NewValidationError("newPassword must differ from currentPassword")
	}
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !checkPasswordHash(input.CurrentPassword, user.PasswordHash, s.cfg.PasswordPepper) {
		s.logger.Warn("Password change rejected: wrong current password", zap.String("userID", userID.String()))
		return models.ErrInvalidCredentials
	}
	hash, err := hashPassword(input.NewPassword, s.cfg.PasswordPepper)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.store.Users().UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	s.logger.Info("Password changed", zap.String("userID", userID.String()))
	return nil
}

// VerifyAccessToken checks signature, expiry, token type and that the token was not revoked.
func (s *authService) VerifyAccessToken(ctx context.Context, token string) (*models.Claims, error) {
	claims, err := s.parseToken(token, models.TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	if _, err := s.tokenRepo.GetUserIDByAccessUUID(ctx, claims.ID); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *authService) parseToken(raw, tokenType string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &models.Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		return nil, models.ErrTokenInvalid
	}
	claims, ok := token.Claims.(*models.Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType || claims.UserID == uuid.Nil || claims.ID == "" {
		return nil, models.ErrTokenInvalid
	}
	return claims, nil
}

func (s *authService) issueTokens(ctx context.Context, user *models.User) (*models.TokenDetails, error) {
	now := time.Now()
	td := &models.TokenDetails{
		AccessUUID:  uuid.NewString(),
		RefreshUUID: uuid.NewString(),
		AtExpires:   now.Add(s.cfg.AccessTokenTTL).Unix(),
		RtExpires:   now.Add(s.cfg.RefreshTokenTTL).Unix(),
	}

	var err error
	td.AccessToken, err = s.sign(user, models.TokenTypeAccess, td.AccessUUID, now, time.Unix(td.AtExpires, 0))
	if err != nil {
		return nil, err
	}
	td.RefreshToken, err = s.sign(user, models.TokenTypeRefresh, td.RefreshUUID, now, time.Unix(td.RtExpires, 0))
	if err != nil {
		return nil, err
	}
	if err := s.tokenRepo.SetToken(ctx, user.ID, td); err != nil {
		return nil, err
	}
	return td, nil
}

func (s *authService) sign(user *models.User, tokenType, id string, now, expires time.Time) (string, error) {
	claims := &models.Claims{
		UserID:    user.ID,
		Email:     user.Email,
		IsAdmin:   user.IsAdmin,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   user.ID.String(),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// dummyHash is compared against when the e-mail is unknown.
var dummyHash = sync.OnceValue(func() string {
	b, _ := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	return string(b)
})

// applyPepper keys HMAC-SHA256 with the pepper; bcrypt then salts the result.
func applyPepper(password, pepper string) []byte {
	h := hmac.New(sha256.New, []byte(pepper))
	h.Write([]byte(password))
	return h.Sum(nil)
}

func hashPassword(password, pepper string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(applyPepper(password, pepper), bcrypt.DefaultCost)
	return string(b), err
}

func checkPasswordHash(password, hash, pepper string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), applyPepper(password, pepper)) == nil
}
