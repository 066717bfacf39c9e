package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitas-games/slotcore/internal/config"
	"github.com/gravitas-games/slotcore/pkg/models"
)

const testIssuer = "login.test"

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func signToken(t *testing.T, key *ecdsa.PrivateKey, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims(userID int64) Claims {
	return Claims{
		UserID:      userID,
		Username:    "alice",
		Permissions: models.PermissionPlay | models.PermissionCreative,
		Activated:   1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func testAuthConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Issuer = testIssuer
	cfg.JWT.PublicKeyRefreshHrs = 24
	cfg.Redis.BlacklistPrefix = "jwt:blacklist:"
	return cfg
}

func TestValidateToken(t *testing.T) {
	key := newKey(t)
	v := NewJWTValidatorWithKey(testAuthConfig(), &key.PublicKey, nil, nil)

	player, err := v.ValidateToken(signToken(t, key, validClaims(42)))
	require.NoError(t, err)
	assert.Equal(t, "42", player.ID)
	assert.Equal(t, "alice", player.Username)
	assert.True(t, player.HasPermission(models.PermissionCreative))
}

func TestValidateTokenRejects(t *testing.T) {
	key := newKey(t)
	other := newKey(t)
	v := NewJWTValidatorWithKey(testAuthConfig(), &key.PublicKey, nil, nil)

	wrongIssuer := validClaims(1)
	wrongIssuer.Issuer = "elsewhere"
	banned := validClaims(1)
	banned.Activated = -1
	pending := validClaims(1)
	pending.Activated = 0
	expired := validClaims(1)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	hmac, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims(1)).SignedString([]byte("secret"))
	require.NoError(t, err)

	cases := map[string]string{
		"issuer":    signToken(t, key, wrongIssuer),
		"banned":    signToken(t, key, banned),
		"pending":   signToken(t, key, pending),
		"expired":   signToken(t, key, expired),
		"other key": signToken(t, other, validClaims(1)),
		"hmac":      hmac,
		"garbage":   "not.a.token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.ValidateToken(token)
			assert.Error(t, err)
		})
	}
}

func TestRefreshPublicKey(t *testing.T) {
	key := newKey(t)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pemBytes)
	}))
	defer srv.Close()

	cfg := testAuthConfig()
	cfg.JWT.PublicKeyURL = srv.URL
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	v, err := NewJWTValidator(ctx, cfg, nil, nil)
	require.NoError(t, err)
	_, err = v.ValidateToken(signToken(t, key, validClaims(7)))
	assert.NoError(t, err)
}

func TestRefreshPublicKeyBadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not pem"))
	}))
	defer srv.Close()

	cfg := testAuthConfig()
	cfg.JWT.PublicKeyURL = srv.URL
	_, err := NewJWTValidator(context.Background(), cfg, nil, nil)
	assert.Error(t, err)
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Sec-WebSocket-Protocol", "access_token, abc")
	assert.Equal(t, "abc", extractTokenFromHeader(r))

	r = httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "Bearer xyz")
	assert.Equal(t, "xyz", extractTokenFromHeader(r))

	r = httptest.NewRequest(http.MethodGet, "/ws?token=q", nil)
	assert.Equal(t, "q", extractTokenFromHeader(r))

	r = httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.Empty(t, extractTokenFromHeader(r))
}
