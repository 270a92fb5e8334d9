package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/rmitchellscott/marquee/internal/database"
)

func contextWithAccount(t *testing.T, account string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if account != "" {
		c.Set(accountKey, account)
	}
	return c
}

func TestAccountMiddlewareHeaderResolution(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AccountMiddleware())
	router.GET("/whoami", func(c *gin.Context) {
		account := Account(c)
		if account == nil {
			c.JSON(http.StatusOK, gin.H{"account": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"account": *account})
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Account-ID", "acme")
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != `{"account":"acme"}` {
		t.Errorf("X-Account-ID resolution failed: %d %s", rec.Code, rec.Body.String())
	}

	// No credentials at all is allowed through, unauthenticated.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("anonymous request = %d, want 200", rec.Code)
	}

	// A wrong API key is rejected outright.
	t.Setenv("API_KEYS", "acme:secret1")
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-API-Key", "acme:wrong")
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad API key = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-API-Key", "acme:secret1")
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != `{"account":"acme"}` {
		t.Errorf("API key resolution failed: %d %s", rec.Code, rec.Body.String())
	}
}

func TestEnforceDeviceOwnerBindsUnowned(t *testing.T) {
	db := database.NewTestDB(t)
	devices := database.NewDeviceService(db)
	device := &database.Device{Name: "fresh"}
	if err := db.Create(device).Error; err != nil {
		t.Fatalf("create device: %v", err)
	}

	c := contextWithAccount(t, "acme")
	if err := EnforceDeviceOwner(c, devices, device); err != nil {
		t.Fatalf("first authenticated request must bind: %v", err)
	}

	var reloaded database.Device
	if err := db.First(&reloaded, "id = ?", device.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.OwnerAccount == nil || *reloaded.OwnerAccount != "acme" {
		t.Errorf("OwnerAccount = %v, want acme", reloaded.OwnerAccount)
	}
}

func TestEnforceDeviceOwnerConflict(t *testing.T) {
	db := database.NewTestDB(t)
	devices := database.NewDeviceService(db)
	owner := "original"
	device := &database.Device{Name: "claimed", OwnerAccount: &owner}
	if err := db.Create(device).Error; err != nil {
		t.Fatalf("create device: %v", err)
	}

	c := contextWithAccount(t, "intruder")
	err := EnforceDeviceOwner(c, devices, device)
	if !errors.Is(err, ErrOwnershipConflict) {
		t.Fatalf("err = %v, want ErrOwnershipConflict", err)
	}

	var reloaded database.Device
	if err := db.First(&reloaded, "id = ?", device.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if *reloaded.OwnerAccount != "original" {
		t.Error("conflict must not mutate ownership")
	}
}

func TestEnforceDeviceOwnerAnonymous(t *testing.T) {
	db := database.NewTestDB(t)
	devices := database.NewDeviceService(db)

	unowned := &database.Device{Name: "open"}
	if err := db.Create(unowned).Error; err != nil {
		t.Fatalf("create device: %v", err)
	}
	c := contextWithAccount(t, "")
	if err := EnforceDeviceOwner(c, devices, unowned); err != nil {
		t.Errorf("anonymous access to an unbound device must pass: %v", err)
	}

	owner := "acme"
	bound := &database.Device{Name: "bound", OwnerAccount: &owner}
	if err := db.Create(bound).Error; err != nil {
		t.Fatalf("create device: %v", err)
	}
	if err := EnforceDeviceOwner(c, devices, bound); !errors.Is(err, ErrOwnershipConflict) {
		t.Errorf("anonymous access to a bound device must conflict, got %v", err)
	}
}
