package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"bottle_credits/internal/domain"
	"bottle_credits/internal/testutil"
	"bottle_credits/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func router(t *testing.T) (*gin.Engine, *testutil.Fixture) {
	conn := testutil.NewDB(t)
	fx := testutil.NewFixture(t, conn)

	r := gin.New()
	r.Use(JWTAuthMiddleware(secret), LoadUserMiddleware(conn))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentUser(c).ID})
	})
	r.GET("/staff-only", RequireRoles(domain.RoleStaff, domain.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r, fx
}

func get(t *testing.T, r *gin.Engine, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearerFor(t *testing.T, u domain.User) string {
	tok, err := utils.GenerateJWT(u.ID, u.Role, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestJWTAuthMiddleware(t *testing.T) {
	r, fx := router(t)

	assert.Equal(t, http.StatusUnauthorized, get(t, r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, r, "/me", "garbage").Code)

	w := get(t, r, "/me", bearerFor(t, fx.Customer))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":`+strconv.FormatUint(uint64(fx.Customer.ID), 10)+`}`, w.Body.String())
}

func TestUnknownUserRejected(t *testing.T) {
	r, _ := router(t)
	ghost := domain.User{ID: 99999, Role: domain.RoleAdmin}
	assert.Equal(t, http.StatusUnauthorized, get(t, r, "/me", bearerFor(t, ghost)).Code)
}

func TestRequireRoles(t *testing.T) {
	r, fx := router(t)
	assert.Equal(t, http.StatusForbidden, get(t, r, "/staff-only", bearerFor(t, fx.Customer)).Code)
	assert.Equal(t, http.StatusNoContent, get(t, r, "/staff-only", bearerFor(t, fx.Staff)).Code)
	assert.Equal(t, http.StatusNoContent, get(t, r, "/staff-only", bearerFor(t, fx.Admin)).Code)
}
