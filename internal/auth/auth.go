package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rmitchellscott/marquee/internal/config"
	"github.com/rmitchellscott/marquee/internal/database"
)

// ErrOwnershipConflict means a device is already bound to a different
// account. Callers must surface it without mutating any state.
var ErrOwnershipConflict = errors.New("device is bound to a different account")

const accountKey = "account"

// AccountMiddleware resolves the calling account from the X-Account-ID
// header, or from an X-API-Key of the form "<account>:<secret>" checked
// against API_KEYS (comma-separated list of the same form). When neither is
// present the request proceeds unauthenticated; ownership checks then apply
// only to already-bound devices.
func AccountMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if account := c.GetHeader("X-Account-ID"); account != "" {
			c.Set(accountKey, account)
			c.Next()
			return
		}
		if key := c.GetHeader("X-API-Key"); key != "" {
			account, ok := accountForAPIKey(key)
			if !ok {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
				c.Abort()
				return
			}
			c.Set(accountKey, account)
		}
		c.Next()
	}
}

func accountForAPIKey(key string) (string, bool) {
	configured := config.Get("API_KEYS", "")
	if configured == "" {
		return "", false
	}
	for _, candidate := range strings.Split(configured, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate != "" && candidate == key {
			account, _, found := strings.Cut(candidate, ":")
			if found && account != "" {
				return account, true
			}
		}
	}
	return "", false
}

// Account returns the resolved account for the request, if any.
func Account(c *gin.Context) *string {
	value, exists := c.Get(accountKey)
	if !exists {
		return nil
	}
	account, ok := value.(string)
	if !ok || account == "" {
		return nil
	}
	return &account
}

// EnforceDeviceOwner checks the caller may act on the device. An unbound
// device is bound to the caller's account on its first authenticated
// request; a device bound elsewhere yields ErrOwnershipConflict with
// nothing written.
func EnforceDeviceOwner(c *gin.Context, devices *database.DeviceService, device *database.Device) error {
	account := Account(c)
	if account == nil {
		if device.OwnerAccount != nil {
			return ErrOwnershipConflict
		}
		return nil
	}
	if device.OwnerAccount == nil {
		if err := devices.BindOwner(device.ID, *account); err != nil {
			return err
		}
		device.OwnerAccount = account
		return nil
	}
	if *device.OwnerAccount != *account {
		return ErrOwnershipConflict
	}
	return nil
}
