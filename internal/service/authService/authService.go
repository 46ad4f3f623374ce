package authService

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"patrimonio-service/internal/model/profile"
	"patrimonio-service/internal/repository/BlackListRepo"
	"patrimonio-service/internal/repository/profileRepo"
	"patrimonio-service/internal/repository/refreshToken"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var (
	// ErrInvalidInput marks account data rejected before any store write.
	ErrInvalidInput = errors.New("invalid account data")
	// ErrEmailTaken marks a registration or email change that collides
	// with an existing account.
	ErrEmailTaken = errors.New("email already registered")
)

const (
	refreshTokenExpireTime = 7 * 24 * time.Hour
	jwtTokenExpireTime     = 3 * time.Hour
)

type AuthService struct {
	profileRepo   *profileRepo.ProfileRepo
	jwtSecretKey  string
	refreshRepo   *refreshToken.RefreshTokenRepo
	blacklistRepo *BlackListRepo.BlackListRepo
}

func New(profiles *profileRepo.ProfileRepo, jwtString string, tokenRepo *refreshToken.RefreshTokenRepo, blacklistRepo *BlackListRepo.BlackListRepo) *AuthService {
	return &AuthService{profileRepo: profiles, jwtSecretKey: jwtString, refreshRepo: tokenRepo, blacklistRepo: blacklistRepo}
}

func (s *AuthService) Register(ctx context.Context, fullName, email, password string) (uuid.UUID, error) {
	if fullName == "" || email == "" || password == "" {
		return uuid.Nil, fmt.Errorf("%w: missing required field", ErrInvalidInput)
	}

	if !emailRegex.MatchString(email) {
		return uuid.Nil, fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}

	if existing, err := s.profileRepo.GetByEmail(ctx, email); err == nil && existing != nil {
		return uuid.Nil, ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return s.profileRepo.Create(ctx, fullName, email, string(hashedPassword))
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, string, uuid.UUID, error) {
	user, err := s.profileRepo.GetByEmail(ctx, email)
	if err != nil || user == nil {
		return "", "", uuid.Nil, errors.New("user not found")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", "", uuid.Nil, errors.New("invalid credentials")
	}

	accessToken, err := s.generateJWT(user)
	if err != nil {
		return "", "", uuid.Nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh, err := s.generateRefreshToken(ctx, user.ID)
	if err != nil {
		return "", "", uuid.Nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refresh, user.ID, nil
}

func (s *AuthService) generateJWT(user *profile.Profile) (string, error) {
	payload := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(jwtTokenExpireTime)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	tokenStr, err := token.SignedString([]byte(s.jwtSecretKey))
	if err != nil {
		return "", err
	}
	return tokenStr, nil
}

func (s *AuthService) GetUIDByToken(ctx context.Context, token string) (uuid.UUID, bool) {
	blacklisted, err := s.blacklistRepo.IsTokenBlacklisted(ctx, token)
	if err != nil || blacklisted {
		return uuid.Nil, false
	}

	payload := &jwt.RegisteredClaims{}
	parsedToken, err := jwt.ParseWithClaims(token, payload, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecretKey), nil
	})

	if err != nil || !parsedToken.Valid {
		return uuid.Nil, false
	}

	uid, err := uuid.Parse(payload.Subject)
	if err != nil {
		return uuid.Nil, false
	}

	return uid, true
}

func (s *AuthService) generateRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	token := uuid.NewString()
	err := s.refreshRepo.SaveToken(ctx, userID, token, refreshTokenExpireTime)
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, accessToken string) error {
	if err := s.refreshRepo.DeleteToken(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}

	payload := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(accessToken, payload, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecretKey), nil
	})
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	if err := s.blacklistRepo.AddToken(ctx, accessToken, payload.ExpiresAt.Time); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	return nil
}

func (s *AuthService) RefreshToken(ctx context.Context, userID uuid.UUID, oldRefreshToken string) (string, string, error) {
	valid, err := s.refreshRepo.ValidateToken(ctx, userID, oldRefreshToken)
	if err != nil || !valid {
		return "", "", fmt.Errorf("expired refresh token")
	}

	user, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	if user == nil {
		return "", "", errors.New("user not found")
	}

	newAccessToken, err := s.generateJWT(user)
	if err != nil {
		return "", "", err
	}

	newRefreshToken, err := s.generateRefreshToken(ctx, userID)
	if err != nil {
		return "", "", err
	}

	return newAccessToken, newRefreshToken, nil
}

// UpdateUser changes the account email and/or password. Empty arguments
// leave the corresponding field untouched.
func (s *AuthService) UpdateUser(ctx context.Context, userID uuid.UUID, newEmail, newPassword string) error {
	if newEmail == "" && newPassword == "" {
		return fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}

	if newEmail != "" {
		if !emailRegex.MatchString(newEmail) {
			return fmt.Errorf("%w: malformed email", ErrInvalidInput)
		}
		if existing, err := s.profileRepo.GetByEmail(ctx, newEmail); err == nil && existing != nil && existing.ID != userID {
			return ErrEmailTaken
		}
		if err := s.profileRepo.UpdateEmail(ctx, userID, newEmail); err != nil {
			return fmt.Errorf("failed to update email: %w", err)
		}
	}

	if newPassword != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		if err := s.profileRepo.UpdatePassword(ctx, userID, string(hashed)); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
	}

	return nil
}

// exported for tests
// ---------------------------------------
func (s *AuthService) GenerateJWT(user *profile.Profile) (string, error) {
	return s.generateJWT(user)
}

func (s *AuthService) BlacklistRepo() *BlackListRepo.BlackListRepo {
	return s.blacklistRepo
}

//---------------------------------------
