package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/flicky/mm2-store/internal/dto"
	"github.com/flicky/mm2-store/internal/model"
	"github.com/flicky/mm2-store/internal/repository"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid session")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidPassword    = errors.New("invalid password")
)

// Session is the decoded content of a session cookie.
type Session struct {
	UserID    uuid.UUID
	Role      string
	Admin     bool
	TokenID   string
	ExpiresAt time.Time
}

func (s *Session) Viewer() Viewer {
	if s == nil {
		return Viewer{}
	}
	return Viewer{UserID: s.UserID, Admin: s.Admin}
}

type sessionClaims struct {
	Role  string `json:"role,omitempty"`
	Admin bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

type AuthService struct {
	userRepo      repository.UserRepository
	sessions      repository.SessionStore
	secret        []byte
	ttl           time.Duration
	adminPassword string
}

func NewAuthService(userRepo repository.UserRepository, sessions repository.SessionStore, secret string, ttl time.Duration, adminPassword string) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		sessions:      sessions,
		secret:        []byte(secret),
		ttl:           ttl,
		adminPassword: adminPassword,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if existing != nil {
		return nil, ErrUserAlreadyExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email: email, Password: string(hashed),
		FirstName: strings.TrimSpace(req.FirstName), LastName: strings.TrimSpace(req.LastName),
		RobloxUsername: strings.TrimSpace(req.RobloxUsername), Role: model.RoleCustomer,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.newAuthResponse(user)
}

func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.newAuthResponse(user)
}

// Logout revokes the session token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, session *Session) error {
	if session == nil || session.TokenID == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, session.TokenID, time.Until(session.ExpiresAt)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, req dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.RobloxUsername != nil {
		user.RobloxUsername = strings.TrimSpace(*req.RobloxUsername)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// VerifyAdmin checks the shared admin password and, on success, issues a
// session with admin capability that keeps the current user, if any. The
// session it replaces is revoked.
func (s *AuthService) VerifyAdmin(ctx context.Context, current *Session, password string) (string, time.Time, error) {
	if s.adminPassword == "" ||
		subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) != 1 {
		return "", time.Time{}, ErrInvalidPassword
	}

	var userID uuid.UUID
	role := ""
	if current != nil {
		userID = current.UserID
		role = current.Role
	}
	token, exp, err := s.issue(userID, role, true)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate token: %w", err)
	}
	if err := s.Logout(ctx, current); err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// ParseSession validates a session token and rejects revoked ones.
func (s *AuthService) ParseSession(ctx context.Context, token string) (*Session, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}

	session := &Session{Role: claims.Role, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.Subject != "" {
		if session.UserID, err = uuid.Parse(claims.Subject); err != nil {
			return nil, ErrInvalidSession
		}
	}

	if session.TokenID != "" {
		revoked, err := s.sessions.IsRevoked(ctx, session.TokenID)
		if err != nil {
			return nil, fmt.Errorf("check session: %w", err)
		}
		if revoked {
			return nil, ErrInvalidSession
		}
	}

	session.Admin = claims.Admin
	if claims.Role == model.RoleAdmin && session.UserID != uuid.Nil {
		// the role claim is only a hint; a demoted account loses it at once
		user, err := s.userRepo.GetByID(ctx, session.UserID)
		if err != nil {
			return nil, fmt.Errorf("check session role: %w", err)
		}
		if user == nil {
			return nil, ErrInvalidSession
		}
		session.Role = user.Role
		session.Admin = session.Admin || user.IsAdmin()
	}
	return session, nil
}

func (s *AuthService) newAuthResponse(user *model.User) (*dto.AuthResponse, error) {
	token, exp, err := s.issue(user.ID, user.Role, false)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AuthResponse{Token: token, ExpiresAt: exp, User: toUserResponse(user)}, nil
}

func (s *AuthService) issue(userID uuid.UUID, role string, admin bool) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.ttl)
	claims := sessionClaims{
		Role:  role,
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if userID != uuid.Nil {
		claims.Subject = userID.String()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

func toUserResponse(user *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID: user.ID, Email: user.Email,
		FirstName: user.FirstName, LastName: user.LastName,
		RobloxUsername: user.RobloxUsername, Role: user.Role,
		CreatedAt: user.CreatedAt,
	}
}
