package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yeremiapane/dock-scheduler/database"
	"github.com/yeremiapane/dock-scheduler/models"
	"github.com/yeremiapane/dock-scheduler/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService registers drivers and issues their bearer tokens.
type AuthService struct {
	DB     *gorm.DB
	Tokens *utils.TokenIssuer
	Cost   int
}

func NewAuthService(db *gorm.DB, tokens *utils.TokenIssuer) *AuthService {
	return &AuthService{DB: db, Tokens: tokens, Cost: bcrypt.DefaultCost}
}

type SignupInput struct {
	Phone    string
	Name     string
	Password string
}

func (a *AuthService) Signup(ctx context.Context, in SignupInput) (*models.Driver, error) {
	phone := strings.TrimSpace(in.Phone)
	if phone == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: phone and password are required", ErrValidation)
	}

	var existing int64
	if err := a.DB.WithContext(ctx).Model(&models.Driver{}).Where("phone = ?", phone).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrPhoneTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), a.Cost)
	if err != nil {
		return nil, err
	}

	driver := models.Driver{
		Phone:          phone,
		Name:           strings.TrimSpace(in.Name),
		HashedPassword: string(hashed),
	}
	if err := a.DB.WithContext(ctx).Create(&driver).Error; err != nil {
		if errors.Is(database.TranslateError(err), database.ErrUniqueViolation) {
			return nil, ErrPhoneTaken
		}
		return nil, err
	}

	utils.InfoLogger.Printf("New driver registered: %s", driver.Phone)
	return &driver, nil
}

// Login returns a signed token for valid credentials.
func (a *AuthService) Login(ctx context.Context, phone, password string) (string, error) {
	var driver models.Driver
	if err := a.DB.WithContext(ctx).Where("phone = ?", strings.TrimSpace(phone)).First(&driver).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(driver.HashedPassword), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return a.Tokens.GenerateToken(driver.Phone)
}

// Authenticate resolves a bearer token to the driver it was issued to.
func (a *AuthService) Authenticate(ctx context.Context, token string) (*models.Driver, error) {
	claims, err := a.Tokens.ParseToken(token)
	if err != nil {
		return nil, err
	}

	var driver models.Driver
	if err := a.DB.WithContext(ctx).Where("phone = ?", claims.Subject).First(&driver).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrInvalidToken
		}
		return nil, err
	}
	return &driver, nil
}

// Logout revokes the token for the rest of its lifetime.
func (a *AuthService) Logout(token string) error {
	claims, err := a.Tokens.ParseToken(token)
	if err != nil {
		return err
	}
	exp := time.Now().Add(a.Tokens.TTL())
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	a.Tokens.Revoke(token, exp)
	return nil
}
