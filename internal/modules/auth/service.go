package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/icmpp/concursuri/internal/models"
	"github.com/icmpp/concursuri/internal/pkg/session"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrBadCredentials = errors.New("bad credentials")
	ErrWrongDomain    = errors.New("email outside the allowed domain")
	ErrNoRole         = errors.New("account has no role assigned")
)

type Service struct {
	db          *gorm.DB
	emailDomain string
}

func NewService(db *gorm.DB, emailDomain string) *Service {
	return &Service{db: db, emailDomain: emailDomain}
}

// AllowedEmail reports whether the address belongs to the institutional
// domain. The comparison is case insensitive.
func (s *Service) AllowedEmail(email string) bool {
	if s.emailDomain == "" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(email), "@"+strings.ToLower(s.emailDomain))
}

// Login verifies credentials and opens a session. A failed password
// check is delayed to blunt brute forcing.
func (s *Service) Login(ctx context.Context, email, password, ip, ua string) (string, *models.UserModel, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !s.AllowedEmail(email) {
		return "", nil, "", ErrWrongDomain
	}

	var user models.UserModel
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			time.Sleep(3 * time.Second)
			return "", nil, "", ErrBadCredentials
		}
		return "", nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		time.Sleep(3 * time.Second)
		return "", nil, "", ErrBadCredentials
	}

	role, err := s.roleOf(ctx, user.ID)
	if err != nil {
		return "", nil, "", err
	}
	if role == "" {
		return "", nil, "", ErrNoRole
	}

	token, _, err := session.Issue(s.db.WithContext(ctx), user.ID, ip, ua, session.DefaultTTL)
	if err != nil {
		return "", nil, "", err
	}

	now := time.Now()
	s.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"last_login_time": now,
		"last_login_ip":   ip,
	})
	user.LastLoginTime = &now
	user.LastLoginIP = ip

	return token, &user, role, nil
}

// Logout revokes the presented session. Other sessions of the same user
// stay valid.
func (s *Service) Logout(ctx context.Context, userID, sessionID string) error {
	return session.Revoke(s.db.WithContext(ctx), userID, sessionID)
}

// Me returns the account and role behind an authenticated request.
func (s *Service) Me(ctx context.Context, userID string) (*models.UserModel, string, error) {
	var user models.UserModel
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", nil
		}
		return nil, "", err
	}
	role, err := s.roleOf(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	return &user, role, nil
}

func (s *Service) roleOf(ctx context.Context, userID string) (string, error) {
	var row models.UserRoleModel
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return row.Role, nil
}
