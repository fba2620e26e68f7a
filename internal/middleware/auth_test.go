package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/icmpp/concursuri/internal/database"
	"github.com/icmpp/concursuri/internal/models"
	"github.com/icmpp/concursuri/internal/pkg/response"
	"github.com/icmpp/concursuri/internal/pkg/session"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newGuardedRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate db: %v", err)
	}

	r := gin.New()
	admin := r.Group("/admin", Auth(db))
	admin.GET("/staff", RequireRole(db, models.RoleAdmin, models.RoleEditor), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"role": CurrentRole(c)})
	})
	admin.GET("/only", RequireRole(db, models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, db
}

func loginAs(t *testing.T, db *gorm.DB, role string) string {
	t.Helper()
	user := models.UserModel{Email: role + "@icmpp.ro", Password: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if role != "" {
		if err := db.Create(&models.UserRoleModel{UserID: user.ID, Role: role}).Error; err != nil {
			t.Fatalf("seed role: %v", err)
		}
	}
	token, _, err := session.Issue(db, user.ID, "127.0.0.1", "go-test", 0)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return token
}

func do(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGuardRejectsAnonymous(t *testing.T) {
	r, _ := newGuardedRouter(t)

	w := do(r, "/admin/staff", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body["error"] != response.MsgUnauthenticated {
		t.Fatalf("error = %q", body["error"])
	}
}

func TestGuardRejectsGarbageToken(t *testing.T) {
	r, _ := newGuardedRouter(t)

	if w := do(r, "/admin/staff", "nu-e-jwt"); w.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", w.Code)
	}
}

func TestGuardAllowsBothRolesOnStaffRoutes(t *testing.T) {
	r, db := newGuardedRouter(t)

	for _, role := range []string{models.RoleAdmin, models.RoleEditor} {
		token := loginAs(t, db, role)
		w := do(r, "/admin/staff", token)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: code = %d, want 200", role, w.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("body: %v", err)
		}
		if body["role"] != role {
			t.Fatalf("resolved role = %q, want %q", body["role"], role)
		}
	}
}

func TestGuardKeepsEditorsOutOfAdminOnlyRoutes(t *testing.T) {
	r, db := newGuardedRouter(t)

	editor := loginAs(t, db, models.RoleEditor)
	w := do(r, "/admin/only", editor)
	if w.Code != http.StatusForbidden {
		t.Fatalf("editor: code = %d, want 403", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body["error"] != response.MsgForbidden {
		t.Fatalf("error = %q", body["error"])
	}

	admin := loginAs(t, db, models.RoleAdmin)
	if w := do(r, "/admin/only", admin); w.Code != http.StatusOK {
		t.Fatalf("admin: code = %d, want 200", w.Code)
	}
}

func TestGuardRejectsRolelessAccount(t *testing.T) {
	r, db := newGuardedRouter(t)

	token := loginAs(t, db, "")
	if w := do(r, "/admin/staff", token); w.Code != http.StatusForbidden {
		t.Fatalf("code = %d, want 403", w.Code)
	}
}

func TestNormalizeToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer abc":   "abc",
		"  abc  ":      "abc",
		"":             "",
		"Bearer   abc": "abc",
	}
	for in, want := range cases {
		if got := NormalizeToken(in); got != want {
			t.Errorf("NormalizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}
