package user

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/icmpp/concursuri/internal/database"
	"github.com/icmpp/concursuri/internal/models"
	"go.uber.org/zap"
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
	return NewService(db, "icmpp.ro", zap.NewNop()), db
}

func TestCreateUser(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	account, role, err := svc.Create(ctx, &CreateUserDTO{
		Email:    "Ana.Pop@ICMPP.RO",
		Password: "parola-sigura",
		Role:     models.RoleEditor,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if account.Email != "ana.pop@icmpp.ro" {
		t.Fatalf("email = %q, want lowercased", account.Email)
	}
	if role != models.RoleEditor {
		t.Fatalf("role = %q", role)
	}
	if bcrypt.CompareHashAndPassword([]byte(account.Password), []byte("parola-sigura")) != nil {
		t.Fatal("stored password is not a bcrypt hash of the input")
	}

	var roleRow models.UserRoleModel
	if err := db.First(&roleRow, "user_id = ?", account.ID).Error; err != nil {
		t.Fatalf("role row: %v", err)
	}
	if roleRow.Role != models.RoleEditor {
		t.Fatalf("role row = %+v", roleRow)
	}
}

func TestCreateUserRejectsBadInput(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		dto  CreateUserDTO
		want error
	}{
		{"foreign domain", CreateUserDTO{Email: "cineva@gmail.com", Password: "parola-sigura", Role: models.RoleEditor}, ErrWrongDomain},
		{"unknown role", CreateUserDTO{Email: "ok@icmpp.ro", Password: "parola-sigura", Role: "owner"}, ErrInvalidRole},
		{"short password", CreateUserDTO{Email: "ok@icmpp.ro", Password: "scurt", Role: models.RoleEditor}, ErrWeakPassword},
	}
	for _, tc := range cases {
		if _, _, err := svc.Create(ctx, &tc.dto); !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}

	var count int64
	if err := db.Model(&models.UserModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("%d accounts created by rejected requests", count)
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	dto := CreateUserDTO{Email: "dublu@icmpp.ro", Password: "parola-sigura", Role: models.RoleAdmin}
	if _, _, err := svc.Create(ctx, &dto); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, _, err := svc.Create(ctx, &dto); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("second create err = %v, want ErrEmailTaken", err)
	}
}

func TestCreateUserRollsBackAccountOnRoleFailure(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	// Force the role insert to fail after the account write succeeds.
	if err := db.Migrator().DropTable(&models.UserRoleModel{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	_, _, err := svc.Create(ctx, &CreateUserDTO{
		Email:    "orfan@icmpp.ro",
		Password: "parola-sigura",
		Role:     models.RoleEditor,
	})
	if err == nil {
		t.Fatal("create succeeded without a role table")
	}

	var count int64
	if err := db.Model(&models.UserModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("%d role-less accounts left behind", count)
	}
}

func TestListUsers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, email := range []string{"unu@icmpp.ro", "doi@icmpp.ro"} {
		if _, _, err := svc.Create(ctx, &CreateUserDTO{Email: email, Password: "parola-sigura", Role: models.RoleEditor}); err != nil {
			t.Fatalf("create %s: %v", email, err)
		}
	}

	users, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("len = %d", len(users))
	}
	for _, u := range users {
		if u.Role != models.RoleEditor || u.Email == "" {
			t.Fatalf("user = %+v", u)
		}
	}
}

func TestDeleteUser(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	admin, _, err := svc.Create(ctx, &CreateUserDTO{Email: "admin@icmpp.ro", Password: "parola-sigura", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	target, _, err := svc.Create(ctx, &CreateUserDTO{Email: "pleaca@icmpp.ro", Password: "parola-sigura", Role: models.RoleEditor})
	if err != nil {
		t.Fatalf("create target: %v", err)
	}
	if err := db.Create(&models.UserSession{UserID: target.ID}).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}

	if err := svc.Delete(ctx, admin.ID, admin.ID); !errors.Is(err, ErrSelfDeletion) {
		t.Fatalf("self delete err = %v, want ErrSelfDeletion", err)
	}
	if err := svc.Delete(ctx, "nu-exista", admin.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing delete err = %v, want ErrUserNotFound", err)
	}

	if err := svc.Delete(ctx, target.ID, admin.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	for _, probe := range []struct {
		name  string
		model interface{}
	}{
		{"account", &models.UserModel{}},
		{"role", &models.UserRoleModel{}},
		{"session", &models.UserSession{}},
	} {
		var count int64
		q := db.Model(probe.model)
		if probe.name == "account" {
			q = q.Where("id = ?", target.ID)
		} else {
			q = q.Where("user_id = ?", target.ID)
		}
		if err := q.Count(&count).Error; err != nil {
			t.Fatalf("count %s: %v", probe.name, err)
		}
		if count != 0 {
			t.Fatalf("%d %s rows left for deleted user", count, probe.name)
		}
	}
}
