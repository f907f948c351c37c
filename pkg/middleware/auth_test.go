package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.TokenExpiry = time.Hour
	return cfg
}

func setupAuthTestRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware(cfg))
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"tenant_id": TenantID(c),
			"user_id":   c.GetString("userID"),
		})
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name       string
		authHeader func(t *testing.T) string
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing token",
			authHeader: func(t *testing.T) string { return "" },
			wantStatus: http.StatusUnauthorized,
			wantError:  "Authorization header is required",
		},
		{
			name:       "not a bearer token",
			authHeader: func(t *testing.T) string { return "Basic abc123" },
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid token",
		},
		{
			name:       "garbage token",
			authHeader: func(t *testing.T) string { return "Bearer not-a-jwt" },
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid token",
		},
		{
			name: "expired token",
			authHeader: func(t *testing.T) string {
				expired := testConfig()
				expired.JWT.TokenExpiry = -time.Hour
				token, err := GenerateToken("tenant-1", "user-1", expired)
				require.NoError(t, err)
				return "Bearer " + token
			},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Token has expired",
		},
		{
			name: "token without tenant",
			authHeader: func(t *testing.T) string {
				claims := &Claims{
					UserID: "user-1",
					RegisteredClaims: jwt.RegisteredClaims{
						ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
					},
				}
				token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
				signed, err := token.SignedString([]byte(cfg.JWT.Secret))
				require.NoError(t, err)
				return "Bearer " + signed
			},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid token",
		},
		{
			name: "token without expiration",
			authHeader: func(t *testing.T) string {
				claims := &Claims{TenantID: "tenant-1"}
				token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
				signed, err := token.SignedString([]byte(cfg.JWT.Secret))
				require.NoError(t, err)
				return "Bearer " + signed
			},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid token",
		},
		{
			name: "valid token",
			authHeader: func(t *testing.T) string {
				token, err := GenerateToken("tenant-1", "user-1", cfg)
				require.NoError(t, err)
				return "Bearer " + token
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupAuthTestRouter(cfg)

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if header := tt.authHeader(t); header != "" {
				req.Header.Set("Authorization", header)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantError != "" {
				assert.Contains(t, w.Body.String(), tt.wantError)
			}
		})
	}
}

func TestAuthMiddleware_SetsIdentity(t *testing.T) {
	cfg := testConfig()
	router := setupAuthTestRouter(cfg)

	token, err := GenerateToken("tenant-42", "user-7", cfg)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tenant-42")
	assert.Contains(t, w.Body.String(), "user-7")
}

func TestGenerateToken(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name     string
		tenantID string
		userID   string
		cfg      *config.Config
		wantErr  string
	}{
		{name: "valid", tenantID: "tenant-1", userID: "user-1", cfg: cfg},
		{name: "empty tenant", tenantID: "", userID: "user-1", cfg: cfg, wantErr: "tenant ID is required"},
		{name: "nil config", tenantID: "tenant-1", cfg: nil, wantErr: "config is required"},
		{
			name:     "missing secret",
			tenantID: "tenant-1",
			cfg: func() *config.Config {
				c := testConfig()
				c.JWT.Secret = ""
				return c
			}(),
			wantErr: "JWT secret is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateToken(tt.tenantID, tt.userID, tt.cfg)
			if tt.wantErr != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Empty(t, token)
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, token)
			}
		})
	}
}
