package user

import (
	"context"
	"errors"
	"strings"

	"github.com/icmpp/concursuri/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrWrongDomain   = errors.New("email outside the allowed domain")
	ErrInvalidRole   = errors.New("invalid role")
	ErrEmailTaken    = errors.New("email already registered")
	ErrUserNotFound  = errors.New("user not found")
	ErrSelfDeletion  = errors.New("cannot delete own account")
	ErrWeakPassword  = errors.New("password too short")
)

const minPasswordLen = 8

type Service struct {
	db          *gorm.DB
	emailDomain string
	logger      *zap.Logger
}

func NewService(db *gorm.DB, emailDomain string, logger *zap.Logger) *Service {
	return &Service{db: db, emailDomain: emailDomain, logger: logger.Named("user")}
}

// Create provisions an account with a role. The role row is written
// right after the account; if that write fails the account is removed
// again so no role-less account is left behind.
func (s *Service) Create(ctx context.Context, dto *CreateUserDTO) (*models.UserModel, string, error) {
	email := strings.ToLower(strings.TrimSpace(dto.Email))
	if s.emailDomain != "" && !strings.HasSuffix(email, "@"+strings.ToLower(s.emailDomain)) {
		return nil, "", ErrWrongDomain
	}
	if !models.IsValidRole(dto.Role) {
		return nil, "", ErrInvalidRole
	}
	if len(dto.Password) < minPasswordLen {
		return nil, "", ErrWeakPassword
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, "", err
	}
	if count > 0 {
		return nil, "", ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	account := models.UserModel{Email: email, Password: string(hash)}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, "", err
	}

	role := models.UserRoleModel{UserID: account.ID, Role: dto.Role}
	if err := s.db.WithContext(ctx).Create(&role).Error; err != nil {
		// Undo the account so a later retry is not blocked by a
		// role-less duplicate.
		if delErr := s.db.WithContext(ctx).Delete(&models.UserModel{}, "id = ?", account.ID).Error; delErr != nil {
			s.logger.Error("account rollback failed",
				zap.String("user", account.ID), zap.Error(delErr))
		}
		return nil, "", err
	}

	return &account, dto.Role, nil
}

// List returns every account that has a role, newest first.
func (s *Service) List(ctx context.Context) ([]userResponse, error) {
	var roles []models.UserRoleModel
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&roles).Error; err != nil {
		return nil, err
	}

	out := make([]userResponse, 0, len(roles))
	for _, r := range roles {
		var account models.UserModel
		err := s.db.WithContext(ctx).First(&account, "id = ?", r.UserID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.logger.Warn("role row without account", zap.String("user", r.UserID))
				continue
			}
			return nil, err
		}
		out = append(out, userResponse{
			ID:            account.ID,
			Email:         account.Email,
			Role:          r.Role,
			LastLoginTime: account.LastLoginTime,
			CreatedAt:     account.CreatedAt,
		})
	}
	return out, nil
}

// Delete removes an account together with its role and sessions in one
// transaction. callerID guards against deleting oneself.
func (s *Service) Delete(ctx context.Context, id, callerID string) error {
	if id == callerID {
		return ErrSelfDeletion
	}

	var account models.UserModel
	if err := s.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.UserRoleModel{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.UserSession{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.UserModel{}, "id = ?", id).Error
	})
}
