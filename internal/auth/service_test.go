package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = strings.Repeat("s", 32)

func TestNewService(t *testing.T) {
	_, err := NewService("short", "admin", "pw", time.Hour)
	assert.Error(t, err)

	_, err = NewService(testSecret, "admin", "", time.Hour)
	assert.Error(t, err)

	_, err = NewService(testSecret, "admin", "pw", time.Hour)
	assert.NoError(t, err)
}

func TestLoginAndValidate(t *testing.T) {
	svc, err := NewService(testSecret, "admin", "secret", time.Hour)
	require.NoError(t, err)

	_, err = svc.Login("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login("root", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	resp, err := svc.Login("admin", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)

	_, err = svc.ValidateToken(resp.Token + "x")
	assert.Error(t, err)
}

func TestLogin_BcryptPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	svc, err := NewService(testSecret, "admin", string(hash), time.Hour)
	require.NoError(t, err)

	_, err = svc.Login("admin", "hunter2")
	assert.NoError(t, err)
	_, err = svc.Login("admin", string(hash))
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateToken_Expired(t *testing.T) {
	svc, err := NewService(testSecret, "admin", "secret", time.Minute)
	require.NoError(t, err)

	issued := time.Now().Add(-time.Hour)
	svc.now = func() time.Time { return issued }
	resp, err := svc.Login("admin", "secret")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateToken_OtherSecret(t *testing.T) {
	a, _ := NewService(testSecret, "admin", "secret", time.Hour)
	b, _ := NewService(strings.Repeat("t", 32), "admin", "secret", time.Hour)

	resp, err := a.Login("admin", "secret")
	require.NoError(t, err)

	_, err = b.ValidateToken(resp.Token)
	assert.Error(t, err)
}
