package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/flicky/mm2-store/internal/dto"
	"github.com/flicky/mm2-store/internal/model"
	"github.com/flicky/mm2-store/internal/repository/memory"
)

func newAuthService(store *memory.Store) *AuthService {
	return NewAuthService(store.Users(), store.Sessions(), "test-secret", time.Hour, "admin-pass")
}

func registerReq(email string) dto.RegisterRequest {
	return dto.RegisterRequest{
		Email: email, Password: "secret1",
		FirstName: "Ann", LastName: "Lee", RobloxUsername: "annlee",
	}
}

func TestAuthService_Register(t *testing.T) {
	store := memory.New()
	svc := newAuthService(store)

	resp, err := svc.Register(context.Background(), registerReq(" Ann@Example.com "))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ann@example.com", resp.User.Email)
	assert.Equal(t, model.RoleCustomer, resp.User.Role)
	assert.Equal(t, "annlee", resp.User.RobloxUsername)

	stored, err := store.Users().GetByEmail(context.Background(), "ann@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret1", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret1")))
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	svc := newAuthService(memory.New())

	_, err := svc.Register(context.Background(), registerReq("ann@example.com"))
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), registerReq("ANN@example.com"))
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestAuthService_Login(t *testing.T) {
	svc := newAuthService(memory.New())
	_, err := svc.Register(context.Background(), registerReq("ann@example.com"))
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", resp.User.Email)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Email: "ann@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_SessionRoundTrip(t *testing.T) {
	svc := newAuthService(memory.New())
	resp, err := svc.Register(context.Background(), registerReq("ann@example.com"))
	require.NoError(t, err)

	session, err := svc.ParseSession(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, session.UserID)
	assert.Equal(t, model.RoleCustomer, session.Role)
	assert.False(t, session.Admin)
	assert.NotEmpty(t, session.TokenID)

	_, err = svc.ParseSession(context.Background(), resp.Token+"x")
	assert.ErrorIs(t, err, ErrInvalidSession)

	other := NewAuthService(memory.New().Users(), memory.New().Sessions(), "other-secret", time.Hour, "")
	_, err = other.ParseSession(context.Background(), resp.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestAuthService_Logout_RevokesSession(t *testing.T) {
	svc := newAuthService(memory.New())
	resp, err := svc.Register(context.Background(), registerReq("ann@example.com"))
	require.NoError(t, err)

	session, err := svc.ParseSession(context.Background(), resp.Token)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(context.Background(), session))

	_, err = svc.ParseSession(context.Background(), resp.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestAuthService_Profile(t *testing.T) {
	svc := newAuthService(memory.New())
	resp, err := svc.Register(context.Background(), registerReq("ann@example.com"))
	require.NoError(t, err)

	name := "Annie"
	updated, err := svc.UpdateProfile(context.Background(), resp.User.ID, dto.UpdateProfileRequest{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Annie", updated.FirstName)
	assert.Equal(t, "Lee", updated.LastName)

	profile, err := svc.Profile(context.Background(), resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Annie", profile.FirstName)

	_, err = svc.Profile(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_VerifyAdmin(t *testing.T) {
	svc := newAuthService(memory.New())

	_, _, err := svc.VerifyAdmin(context.Background(), nil, "nope")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	token, _, err := svc.VerifyAdmin(context.Background(), nil, "admin-pass")
	require.NoError(t, err)
	session, err := svc.ParseSession(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, session.Admin)
	assert.Equal(t, uuid.Nil, session.UserID)
	assert.Equal(t, "admin-secret", session.Viewer().actor())
}

func TestAuthService_VerifyAdmin_KeepsUser(t *testing.T) {
	svc := newAuthService(memory.New())
	resp, err := svc.Register(context.Background(), registerReq("ann@example.com"))
	require.NoError(t, err)
	current, err := svc.ParseSession(context.Background(), resp.Token)
	require.NoError(t, err)

	token, _, err := svc.VerifyAdmin(context.Background(), current, "admin-pass")
	require.NoError(t, err)
	session, err := svc.ParseSession(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, session.Admin)
	assert.Equal(t, resp.User.ID, session.UserID)

	// the session it replaced no longer works
	_, err = svc.ParseSession(context.Background(), resp.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestAuthService_VerifyAdmin_DisabledWithoutPassword(t *testing.T) {
	store := memory.New()
	svc := NewAuthService(store.Users(), store.Sessions(), "test-secret", time.Hour, "")
	_, _, err := svc.VerifyAdmin(context.Background(), nil, "")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestAuthService_AdminRole(t *testing.T) {
	store := memory.New()
	svc := newAuthService(store)
	resp, err := svc.Register(context.Background(), registerReq("boss@example.com"))
	require.NoError(t, err)

	user, err := store.Users().GetByID(context.Background(), resp.User.ID)
	require.NoError(t, err)
	user.Role = model.RoleAdmin
	require.NoError(t, store.Users().Update(context.Background(), user))

	login, err := svc.Login(context.Background(), dto.LoginRequest{Email: "boss@example.com", Password: "secret1"})
	require.NoError(t, err)
	session, err := svc.ParseSession(context.Background(), login.Token)
	require.NoError(t, err)
	assert.True(t, session.Admin)
}

func TestAuthService_DemotedAdminLosesAccess(t *testing.T) {
	store := memory.New()
	svc := newAuthService(store)
	ctx := context.Background()
	resp, err := svc.Register(ctx, registerReq("boss@example.com"))
	require.NoError(t, err)

	user, err := store.Users().GetByID(ctx, resp.User.ID)
	require.NoError(t, err)
	user.Role = model.RoleAdmin
	require.NoError(t, store.Users().Update(ctx, user))
	login, err := svc.Login(ctx, dto.LoginRequest{Email: "boss@example.com", Password: "secret1"})
	require.NoError(t, err)

	user.Role = model.RoleCustomer
	require.NoError(t, store.Users().Update(ctx, user))

	session, err := svc.ParseSession(ctx, login.Token)
	require.NoError(t, err)
	assert.False(t, session.Admin)
	assert.Equal(t, model.RoleCustomer, session.Role)
	assert.False(t, session.Viewer().Admin)
}
