package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/dock-scheduler/models"
	"github.com/yeremiapane/dock-scheduler/services"
	"github.com/yeremiapane/dock-scheduler/utils"
)

const (
	ContextDriver      = "driver"
	ContextDriverPhone = "driver_phone"
	ContextToken       = "token"
)

// DriverAuth resolves the bearer token to a driver, or aborts with 401.
func DriverAuth(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Header("WWW-Authenticate", "Bearer")
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Authorization header missing"))
			c.Abort()
			return
		}

		tokenString, ok := bearerToken(authHeader)
		if !ok {
			c.Header("WWW-Authenticate", "Bearer")
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Could not validate credentials"))
			c.Abort()
			return
		}

		driver, err := auth.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			if !errors.Is(err, utils.ErrInvalidToken) {
				utils.ErrorLogger.Printf("driver auth failed: %v", err)
			}
			c.Header("WWW-Authenticate", "Bearer")
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Could not validate credentials"))
			c.Abort()
			return
		}

		c.Set(ContextDriver, driver)
		c.Set(ContextDriverPhone, driver.Phone)
		c.Set(ContextToken, tokenString)
		c.Next()
	}
}

// CurrentDriver returns the driver set by DriverAuth.
func CurrentDriver(c *gin.Context) (*models.Driver, bool) {
	v, exists := c.Get(ContextDriver)
	if !exists {
		return nil, false
	}
	driver, ok := v.(*models.Driver)
	return driver, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
