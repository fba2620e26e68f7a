package competition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/icmpp/concursuri/internal/models"
	"github.com/icmpp/concursuri/internal/pkg/cache"
	"github.com/icmpp/concursuri/internal/pkg/pagination"
	"github.com/icmpp/concursuri/internal/pkg/response"
	"github.com/icmpp/concursuri/internal/pkg/slug"
	"gorm.io/gorm"
)

var (
	ErrSlugExists    = errors.New("slug already exists")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidTitle  = errors.New("title does not produce a usable slug")
)

const dateLayout = "2006-01-02"

// Service handles competition business logic.
type Service struct {
	db    *gorm.DB
	cache *cache.Service
}

func NewService(db *gorm.DB, c *cache.Service) *Service {
	return &Service{db: db, cache: c}
}

// List returns competitions ordered by creation time descending. Status,
// year (of the start date) and free-text filters are applied in SQL.
// Plain and status-only lists are cached; filtered variants are not.
func (s *Service) List(ctx context.Context, q ListQuery) ([]models.CompetitionModel, error) {
	cacheable := q.Year == nil && q.Search == ""
	key := cache.KeyCompetitionList(q.Status)
	if cacheable {
		var cached []models.CompetitionModel
		if s.cache.GetJSON(ctx, key, &cached) {
			return cached, nil
		}
	}

	tx, err := s.filteredQuery(ctx, q)
	if err != nil {
		return nil, err
	}

	var comps []models.CompetitionModel
	if err := tx.Find(&comps).Error; err != nil {
		return nil, err
	}
	if cacheable {
		s.cache.SetJSON(ctx, key, comps)
	}
	return comps, nil
}

// ListPaged is the admin-panel variant of List: same filters, but with
// limit/offset paging and a total count. Never cached.
func (s *Service) ListPaged(ctx context.Context, q ListQuery, pq pagination.Query) ([]models.CompetitionModel, response.Pagination, error) {
	tx, err := s.filteredQuery(ctx, q)
	if err != nil {
		return nil, response.Pagination{}, err
	}
	var comps []models.CompetitionModel
	meta, err := pagination.Paginate(tx, pq, &comps)
	if err != nil {
		return nil, response.Pagination{}, err
	}
	return comps, meta, nil
}

func (s *Service) filteredQuery(ctx context.Context, q ListQuery) (*gorm.DB, error) {
	tx := s.db.WithContext(ctx).Model(&models.CompetitionModel{}).
		Order("created_at DESC")

	if q.Status != "" {
		if !models.IsValidStatus(q.Status) {
			return nil, ErrInvalidStatus
		}
		tx = tx.Where("status = ?", q.Status)
	}
	if q.Year != nil {
		from := time.Date(*q.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		tx = tx.Where("start_date >= ? AND start_date < ?", from, from.AddDate(1, 0, 0))
	}
	if needle := strings.TrimSpace(q.Search); needle != "" {
		pattern := "%" + strings.ToLower(needle) + "%"
		tx = tx.Where("LOWER(title) LIKE ? OR LOWER(keywords) LIKE ? OR LOWER(description) LIKE ?",
			pattern, pattern, pattern)
	}
	return tx, nil
}

// GetBySlug fetches one competition by slug with its documents ordered by
// order_index ascending.
func (s *Service) GetBySlug(ctx context.Context, slugVal string) (*models.CompetitionModel, error) {
	var cached models.CompetitionModel
	if s.cache.GetJSON(ctx, cache.KeyCompetitionBySlug(slugVal), &cached) {
		return &cached, nil
	}

	comp, err := s.fetchOne(ctx, "slug = ?", slugVal)
	if err != nil || comp == nil {
		return comp, err
	}
	s.cache.SetJSON(ctx, cache.KeyCompetitionBySlug(slugVal), comp)
	return comp, nil
}

// GetByID fetches one competition by id with its documents ordered.
func (s *Service) GetByID(ctx context.Context, id string) (*models.CompetitionModel, error) {
	var cached models.CompetitionModel
	if s.cache.GetJSON(ctx, cache.KeyCompetitionByID(id), &cached) {
		return &cached, nil
	}

	comp, err := s.fetchOne(ctx, "id = ?", id)
	if err != nil || comp == nil {
		return comp, err
	}
	s.cache.SetJSON(ctx, cache.KeyCompetitionByID(id), comp)
	return comp, nil
}

// GetByIdentifier resolves slug first, then falls back to id.
func (s *Service) GetByIdentifier(ctx context.Context, identifier string) (*models.CompetitionModel, error) {
	if comp, err := s.GetBySlug(ctx, identifier); err != nil {
		return nil, err
	} else if comp != nil {
		return comp, nil
	}
	return s.GetByID(ctx, identifier)
}

func (s *Service) fetchOne(ctx context.Context, cond string, arg interface{}) (*models.CompetitionModel, error) {
	var comp models.CompetitionModel
	err := s.db.WithContext(ctx).
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Where(cond, arg).
		First(&comp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comp, nil
}

// Create inserts a new competition.
func (s *Service) Create(ctx context.Context, dto *CreateCompetitionDTO) (*models.CompetitionModel, error) {
	slugVal := strings.TrimSpace(dto.Slug)
	if slugVal == "" {
		slugVal = slug.Generate(dto.Title)
	}
	if slugVal == "" {
		return nil, ErrInvalidTitle
	}

	status := dto.Status
	if status == "" {
		status = models.StatusActive
	}
	if !models.IsValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	startDate, err := parseDate(dto.StartDate)
	if err != nil {
		return nil, err
	}
	endDate, err := parseDate(dto.EndDate)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.CompetitionModel{}).
		Where("slug = ?", slugVal).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}

	comp := models.CompetitionModel{
		Title:       dto.Title,
		Slug:        slugVal,
		Description: dto.Description,
		Status:      status,
		StartDate:   startDate,
		EndDate:     endDate,
		Keywords:    dto.Keywords,
	}
	if dto.AutoArchive != nil {
		comp.AutoArchive = *dto.AutoArchive
	}

	if err := s.db.WithContext(ctx).Create(&comp).Error; err != nil {
		return nil, err
	}

	s.cache.InvalidateCompetitionLists(ctx)
	return &comp, nil
}

// Update patches a competition by id. Returns (nil, nil) when it does not
// exist.
func (s *Service) Update(ctx context.Context, id string, dto *UpdateCompetitionDTO) (*models.CompetitionModel, error) {
	comp, err := s.fetchOne(ctx, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if comp == nil {
		return nil, nil
	}
	oldSlug := comp.Slug

	updates := map[string]interface{}{}
	if dto.Title != nil {
		updates["title"] = *dto.Title
	}
	if dto.Slug != nil && *dto.Slug != comp.Slug {
		newSlug := strings.TrimSpace(*dto.Slug)
		if newSlug == "" {
			return nil, ErrSlugExists
		}
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.CompetitionModel{}).
			Where("slug = ? AND id <> ?", newSlug, id).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrSlugExists
		}
		updates["slug"] = newSlug
	}
	if dto.Description != nil {
		updates["description"] = *dto.Description
	}
	if dto.Status != nil {
		if !models.IsValidStatus(*dto.Status) {
			return nil, ErrInvalidStatus
		}
		updates["status"] = *dto.Status
	}
	if dto.StartDate != nil {
		d, err := parseDate(dto.StartDate)
		if err != nil {
			return nil, err
		}
		updates["start_date"] = d
	}
	if dto.EndDate != nil {
		d, err := parseDate(dto.EndDate)
		if err != nil {
			return nil, err
		}
		updates["end_date"] = d
	}
	if dto.Keywords != nil {
		updates["keywords"] = *dto.Keywords
	}
	if dto.AutoArchive != nil {
		updates["auto_archive"] = *dto.AutoArchive
	}

	if err := s.db.WithContext(ctx).Model(comp).Updates(updates).Error; err != nil {
		return nil, err
	}

	s.cache.InvalidateCompetitionLists(ctx)
	s.cache.InvalidateCompetition(ctx, comp.ID, oldSlug)
	if comp.Slug != oldSlug {
		s.cache.InvalidateCompetition(ctx, comp.ID, comp.Slug)
	}
	return comp, nil
}

// Delete removes a competition and all its documents in one transaction
// and returns the object-store keys of the removed documents so the
// caller can clean up the bucket.
func (s *Service) Delete(ctx context.Context, id string) ([]string, error) {
	comp, err := s.fetchOne(ctx, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if comp == nil {
		return nil, gorm.ErrRecordNotFound
	}

	filePaths := make([]string, 0, len(comp.Documents))
	for _, d := range comp.Documents {
		filePaths = append(filePaths, d.FilePath)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("competition_id = ?", id).
			Delete(&models.CompetitionDocumentModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.CompetitionModel{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateCompetitionLists(ctx)
	s.cache.InvalidateCompetition(ctx, comp.ID, comp.Slug)
	s.cache.InvalidateDocuments(ctx, comp.ID, comp.Slug)
	return filePaths, nil
}

// ArchiveExpired archives every auto_archive competition whose end date
// has passed. Run daily from the scheduler.
func (s *Service) ArchiveExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.CompetitionModel{}).
		Where("auto_archive = ? AND status = ? AND end_date IS NOT NULL AND end_date < ?",
			true, models.StatusActive, time.Now()).
		Update("status", models.StatusArchived)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.cache.InvalidateCompetitionLists(ctx)
	}
	return res.RowsAffected, nil
}

func parseDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(*raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, *raw)
	}
	return &t, nil
}
