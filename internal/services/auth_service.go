// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/affigraph/internal/config"
	"github.com/javajoker/affigraph/internal/models"
	"github.com/javajoker/affigraph/internal/utils"
)

type AuthService struct {
	db  *gorm.DB
	cfg *config.JWTConfig
}

func NewAuthService(db *gorm.DB, cfg *config.JWTConfig) *AuthService {
	return &AuthService{db: db, cfg: cfg}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string         `json:"token"`
	User  *models.Person `json:"user"`
}

// Login verifies credentials and issues a JWT. Unknown email and wrong
// password are deliberately indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	var person models.Person
	err := s.db.WithContext(ctx).Where("email = ?", req.Email).First(&person).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := person.CheckPassword(req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := utils.GenerateJWT(person.ID, person.Email, string(person.Role), s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": person.ID,
		"role":    person.Role,
	}).Info("User logged in")

	return &LoginResponse{Token: token, User: &person}, nil
}

// GetProfile loads the authenticated user's record.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*models.Person, error) {
	var person models.Person
	err := s.db.WithContext(ctx).First(&person, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAffiliateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &person, nil
}
