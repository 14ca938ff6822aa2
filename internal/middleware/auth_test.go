package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims(sub string, exp time.Duration) Claims {
	return Claims{
		Username: "cook",
		Role:     "user",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(exp)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestParseToken(t *testing.T) {
	wrongIssuer := validClaims("7", time.Hour)
	wrongIssuer.Issuer = "someone-else"
	wrongAudience := validClaims("7", time.Hour)
	wrongAudience.Audience = jwt.ClaimStrings{"other-client"}
	noExpiry := validClaims("7", time.Hour)
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name    string
		token   string
		wantID  uint
		wantErr bool
	}{
		{"valid", signToken(t, testSecret, validClaims("7", time.Hour)), 7, false},
		{"empty", "", 0, true},
		{"expired", signToken(t, testSecret, validClaims("7", -time.Hour)), 0, true},
		{"wrong secret", signToken(t, "another-secret-another-secret-another", validClaims("7", time.Hour)), 0, true},
		{"wrong issuer", signToken(t, testSecret, wrongIssuer), 0, true},
		{"wrong audience", signToken(t, testSecret, wrongAudience), 0, true},
		{"missing expiry", signToken(t, testSecret, noExpiry), 0, true},
		{"non numeric subject", signToken(t, testSecret, validClaims("abc", time.Hour)), 0, true},
		{"garbage", "not.a.token", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ParseToken(testSecret, tt.token)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			id, err := claims.UserID()
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, "cook", claims.Username)
		})
	}
}

func TestBearerToken(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(BearerToken(c))
	})

	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"", ""},
		{"Basic dXNlcjpwYXNz", ""},
		{"Bearer", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		buf := make([]byte, 64)
		n, _ := resp.Body.Read(buf)
		assert.Equal(t, tt.want, string(buf[:n]), "header %q", tt.header)
	}
}
