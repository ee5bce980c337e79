package auth

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gokatarajesh/partyquiz/internal/auth/jwt"
)

func newTestService(t *testing.T, password string, clock clockwork.Clock) *Service {
	t.Helper()
	svc, err := NewService(ServiceOptions{
		AdminPassword: password,
		TokenConfig:   jwt.TokenConfig{Secret: []byte("test-secret"), TTL: time.Hour, Clock: clock},
		BcryptCost:    bcrypt.MinCost,
	}, zerolog.Nop())
	require.NoError(t, err)
	return svc
}

func TestHashPassword(t *testing.T) {
	hash, err := hashPassword("testpassword123", bcrypt.MinCost)
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "testpassword123", hash)
}

func TestVerifyPassword(t *testing.T) {
	hash, _ := hashPassword("testpassword123", bcrypt.MinCost)

	err := VerifyPassword(hash, "testpassword123")
	assert.NoError(t, err)

	err = VerifyPassword(hash, "wrongpassword")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestPasswordTooShort(t *testing.T) {
	_, err := HashPassword("short")
	assert.Equal(t, ErrPasswordTooShort, err)

	_, err = NewService(ServiceOptions{AdminPassword: "short"}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestService_LoginAndValidate(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, "correct-horse", clock)
	require.True(t, svc.Enabled())

	resp, err := svc.Login("correct-horse")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, jwt.RoleAdmin, claims.Role)

	_, err = svc.Login("battery-staple")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestService_TokenExpires(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, "correct-horse", clock)

	resp, err := svc.Login("correct-horse")
	require.NoError(t, err)

	clock.Advance(61 * time.Minute)
	_, err = svc.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, jwt.ErrExpiredToken)
}

func TestService_RejectsForeignTokens(t *testing.T) {
	svc := newTestService(t, "correct-horse", nil)

	other := jwt.NewManager(jwt.TokenConfig{Secret: []byte("another-secret")})
	token, err := other.GenerateAdminToken()
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)

	_, err = svc.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestService_Disabled(t *testing.T) {
	svc := newTestService(t, "", nil)
	assert.False(t, svc.Enabled())

	_, err := svc.Login("anything")
	assert.ErrorIs(t, err, ErrAdminDisabled)

	_, err = svc.ValidateToken("anything")
	assert.ErrorIs(t, err, ErrAdminDisabled)
}
