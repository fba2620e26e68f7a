package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/icmpp/concursuri/internal/database"
	"github.com/icmpp/concursuri/internal/middleware"
	"github.com/icmpp/concursuri/internal/models"
	jwtpkg "github.com/icmpp/concursuri/internal/pkg/jwt"
	"github.com/icmpp/concursuri/internal/pkg/session"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return NewService(db, "icmpp.ro"), db
}

func seedUser(t *testing.T, db *gorm.DB, email, password, role string) *models.UserModel {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := models.UserModel{Email: email, Password: string(hash)}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if role != "" {
		if err := db.Create(&models.UserRoleModel{UserID: user.ID, Role: role}).Error; err != nil {
			t.Fatalf("seed role: %v", err)
		}
	}
	return &user
}

func TestLoginIssuesRevocableToken(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedUser(t, db, "ana@icmpp.ro", "parola-sigura", models.RoleAdmin)

	token, user, role, err := svc.Login(ctx, "Ana@ICMPP.ro", "parola-sigura", "127.0.0.1", "go-test")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if role != models.RoleAdmin {
		t.Fatalf("role = %q", role)
	}
	if user.LastLoginTime == nil || user.LastLoginIP != "127.0.0.1" {
		t.Fatalf("last login not recorded: %+v", user)
	}

	claims, err := jwtpkg.Parse(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("claims user = %q, want %q", claims.UserID, user.ID)
	}

	active, err := session.IsActive(db, claims.UserID, claims.SessionID)
	if err != nil {
		t.Fatalf("is active: %v", err)
	}
	if !active {
		t.Fatal("fresh session not active")
	}

	// Token survives the middleware validation path too.
	if _, err := middleware.ValidateTokenClaims(db, token); err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if err := svc.Logout(ctx, claims.UserID, claims.SessionID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	active, err = session.IsActive(db, claims.UserID, claims.SessionID)
	if err != nil {
		t.Fatalf("is active after logout: %v", err)
	}
	if active {
		t.Fatal("session still active after logout")
	}
	if _, err := middleware.ValidateTokenClaims(db, token); err == nil {
		t.Fatal("revoked token still validates")
	}
}

func TestLoginRejectsForeignDomain(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, _, err := svc.Login(context.Background(), "cineva@gmail.com", "parola", "127.0.0.1", "go-test")
	if !errors.Is(err, ErrWrongDomain) {
		t.Fatalf("err = %v, want ErrWrongDomain", err)
	}
}

func TestLoginRejectsRolelessAccount(t *testing.T) {
	svc, db := newTestService(t)

	seedUser(t, db, "fara.rol@icmpp.ro", "parola-sigura", "")

	_, _, _, err := svc.Login(context.Background(), "fara.rol@icmpp.ro", "parola-sigura", "127.0.0.1", "go-test")
	if !errors.Is(err, ErrNoRole) {
		t.Fatalf("err = %v, want ErrNoRole", err)
	}
}

func TestMe(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, db, "ion@icmpp.ro", "parola-sigura", models.RoleEditor)

	got, role, err := svc.Me(ctx, user.ID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if got == nil || got.Email != "ion@icmpp.ro" || role != models.RoleEditor {
		t.Fatalf("me = %+v, role = %q", got, role)
	}

	got, _, err = svc.Me(ctx, "00000000-0000-0000-0000-000000000000")
	if err != nil {
		t.Fatalf("me missing: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown id, got %+v", got)
	}
}
