package identity

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTResolverRoundTrip(t *testing.T) {
	j := NewJWTResolver("secret")
	token, err := j.Sign("acct-1", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	account, err := j.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", account)

	req = httptest.NewRequest("GET", "/ws?token="+token, nil)
	account, err = j.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", account)
}

func TestJWTResolverRejects(t *testing.T) {
	j := NewJWTResolver("secret")

	other, err := NewJWTResolver("other").Sign("acct-1", time.Minute)
	require.NoError(t, err)
	_, err = j.Verify(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := j.Sign("acct-1", -time.Minute)
	require.NoError(t, err)
	_, err = j.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = j.Verify(noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = j.Resolve(httptest.NewRequest("GET", "/ws", nil))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHeaderResolver(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws", nil)
	_, err := HeaderResolver{}.Resolve(req)
	assert.ErrorIs(t, err, ErrInvalidToken)

	req.Header.Set(HeaderAccountID, " acct-7 ")
	account, err := HeaderResolver{}.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "acct-7", account)
}

func TestNew(t *testing.T) {
	r, err := New("header", "")
	require.NoError(t, err)
	assert.IsType(t, HeaderResolver{}, r)

	_, err = New("jwt", "")
	assert.Error(t, err)

	r, err = New("jwt", "k")
	require.NoError(t, err)
	assert.IsType(t, &JWTResolver{}, r)

	_, err = New("ldap", "")
	assert.Error(t, err)
}
