package service

import (
	"context"
	"fmt"
	"time"

	"inventaire-service/internal/models"
	"inventaire-service/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const RoleAdmin = "admin"

// AuthService handles login and admin seeding. Passwords are stored as
// bcrypt hashes, sessions are stateless HS256 tokens.
type AuthService struct {
	users      UtilisateurStore
	secret     []byte
	expiresIn  time.Duration
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(users UtilisateurStore, secret string, expiresInSeconds, bcryptCost int) *AuthService {
	return &AuthService{
		users:      users,
		secret:     []byte(secret),
		expiresIn:  time.Duration(expiresInSeconds) * time.Second,
		bcryptCost: bcryptCost,
		logger:     util.GetLogger(),
	}
}

// UserInfo is the public view of a user.
type UserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// LoginResult carries the authenticated user and their token.
type LoginResult struct {
	User  UserInfo `json:"user"`
	Token string   `json:"token"`
}

// AuthError rejects a login attempt. The message never says whether the
// email or the password was wrong.
type AuthError struct {
	Msg string
}

func (e *AuthError) Error() string { return e.Msg }

// Login verifies the password of the user behind email and issues a token.
func (s *AuthService) Login(ctx context.Context, email, mdp string) (*LoginResult, error) {
	if email == "" || mdp == "" {
		return nil, &ValidationError{Msg: "email et mdp sont requis."}
	}

	user, err := s.users.GetUtilisateurByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load utilisateur: %w", err)
	}
	if user == nil {
		util.LoginFailedTotal.Inc()
		return nil, &AuthError{Msg: "Identifiants invalides"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.MDP), []byte(mdp)); err != nil {
		util.LoginFailedTotal.Inc()
		s.logger.Info("Login refusé", zap.String("email", email))
		return nil, &AuthError{Msg: "Identifiants invalides"}
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &LoginResult{
		User:  UserInfo{ID: user.ID, Name: user.Nom, Email: user.Email, Role: user.Role},
		Token: token,
	}, nil
}

// SeedAdmin creates the admin user when no user holds its email yet.
func (s *AuthService) SeedAdmin(ctx context.Context, nom, email, password string) (*LoginResult, error) {
	if nom == "" || email == "" || len(password) < 6 {
		return nil, &ValidationError{Msg: "nom, email et un mot de passe d'au moins 6 caractères sont requis."}
	}

	existing, err := s.users.GetUtilisateurByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check utilisateur: %w", err)
	}
	if existing != nil {
		return nil, &ConflictError{Msg: "Admin déjà existant"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.Utilisateur{
		Nom:   nom,
		Email: email,
		MDP:   string(hash),
		Role:  RoleAdmin,
	}
	if err := s.users.CreateUtilisateur(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create utilisateur: %w", err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.logger.Info("Admin créé", zap.String("email", email))
	return &LoginResult{
		User:  UserInfo{ID: user.ID, Name: user.Nom, Email: user.Email, Role: user.Role},
		Token: token,
	}, nil
}

// VerifyToken parses and validates a token, returning its claims.
func (s *AuthService) VerifyToken(tokenString string) (*TokenClaims, error) {
	var claims TokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, &AuthError{Msg: "Token invalide ou expiré"}
	}
	return &claims, nil
}

// TokenClaims are the claims carried by issued tokens.
type TokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func (s *AuthService) generateToken(u *models.Utilisateur) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiresIn)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
