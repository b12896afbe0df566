package services

import (
	"context"
	"errors"
	"time"

	"fumiq/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost = 12
	tokenTTL   = time.Hour
)

// AuthService handles registration and credential-based login. Tokens are
// HS256 JWTs carrying the user id.
type AuthService struct {
	users     UserStore
	jwtSecret string
}

func NewAuthService(users UserStore, jwtSecret string) *AuthService {
	return &AuthService{users: users, jwtSecret: jwtSecret}
}

type RegisterRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	if _, err := s.users.ByEmail(ctx, req.Email); err == nil {
		return nil, models.Conflict("User", "user with this email already exists")
	} else if !errors.Is(err, models.ErrNoRecord) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    string(hash),
		IsActivated: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := s.users.ByEmail(ctx, req.Email)
	if errors.Is(err, models.ErrNoRecord) {
		return nil, models.Forbidden("User", "invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, models.Forbidden("User", "invalid email or password")
	}
	if !user.IsActivated {
		return nil, models.Forbidden("User", "account is not activated")
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Token: token, User: *user}, nil
}

func (s *AuthService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.ByID(ctx, userID)
	if errors.Is(err, models.ErrNoRecord) {
		return nil, models.NotFound("User", "user not found")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issueToken(userID uint) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(tokenTTL).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
