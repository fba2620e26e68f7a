package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/icmpp/concursuri/internal/models"
	"github.com/icmpp/concursuri/internal/pkg/cache"
	"gorm.io/gorm"
)

var (
	ErrCompetitionNotFound = errors.New("competition not found")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrInvalidDate         = errors.New("invalid date")
)

const dateLayout = "2006-01-02"

// Service handles document rows; the object store itself is the handler's
// concern.
type Service struct {
	db    *gorm.DB
	cache *cache.Service
}

func NewService(db *gorm.DB, c *cache.Service) *Service {
	return &Service{db: db, cache: c}
}

// ListByCompetition returns a competition's documents ordered by
// order_index ascending.
func (s *Service) ListByCompetition(ctx context.Context, competitionID string) ([]models.CompetitionDocumentModel, error) {
	var cached []models.CompetitionDocumentModel
	if s.cache.GetJSON(ctx, cache.KeyDocuments(competitionID), &cached) {
		return cached, nil
	}

	var docs []models.CompetitionDocumentModel
	err := s.db.WithContext(ctx).
		Where("competition_id = ?", competitionID).
		Order("order_index ASC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, cache.KeyDocuments(competitionID), docs)
	return docs, nil
}

// Create inserts a document row at the end of the display order. The
// caller has already uploaded the file and provides its object key.
func (s *Service) Create(ctx context.Context, competitionID string, form *UploadDocumentForm, filePath, fileName, fileType string) (*models.CompetitionDocumentModel, error) {
	comp, err := s.competition(ctx, competitionID)
	if err != nil {
		return nil, err
	}

	docDate, err := parseDate(form.DocDate)
	if err != nil {
		return nil, err
	}

	var maxIndex *int
	if err := s.db.WithContext(ctx).Model(&models.CompetitionDocumentModel{}).
		Where("competition_id = ?", competitionID).
		Select("MAX(order_index)").Scan(&maxIndex).Error; err != nil {
		return nil, err
	}
	next := 0
	if maxIndex != nil {
		next = *maxIndex + 1
	}

	doc := models.CompetitionDocumentModel{
		CompetitionID: competitionID,
		Title:         form.Title,
		DocDate:       docDate,
		Description:   form.Description,
		FilePath:      filePath,
		FileName:      fileName,
		FileType:      fileType,
		OrderIndex:    next,
	}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return nil, err
	}

	s.cache.InvalidateDocuments(ctx, competitionID, comp.Slug)
	s.cache.InvalidateCompetitionLists(ctx)
	return &doc, nil
}

// Update patches document metadata; when newFilePath is non-empty the
// stored object reference is replaced and the previous key returned so
// the caller can remove the old object.
func (s *Service) Update(ctx context.Context, id string, form *UpdateDocumentForm, newFilePath, newFileName, newFileType string) (*models.CompetitionDocumentModel, string, error) {
	doc, err := s.byID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	updates := map[string]interface{}{}
	if form.Title != nil {
		updates["title"] = *form.Title
	}
	if form.DocDate != nil {
		d, err := parseDate(*form.DocDate)
		if err != nil {
			return nil, "", err
		}
		updates["doc_date"] = d
	}
	if form.Description != nil {
		updates["description"] = *form.Description
	}

	oldFilePath := ""
	if newFilePath != "" {
		oldFilePath = doc.FilePath
		updates["file_path"] = newFilePath
		updates["file_name"] = newFileName
		updates["file_type"] = newFileType
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(doc).Updates(updates).Error; err != nil {
			return nil, "", err
		}
		if doc, err = s.byID(ctx, id); err != nil {
			return nil, "", err
		}
	}

	s.invalidate(ctx, doc.CompetitionID)
	return doc, oldFilePath, nil
}

// Delete removes a document row and returns it so the caller can remove
// the stored object.
func (s *Service) Delete(ctx context.Context, id string) (*models.CompetitionDocumentModel, error) {
	doc, err := s.byID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Delete(&models.CompetitionDocumentModel{}, "id = ?", id).Error; err != nil {
		return nil, err
	}
	s.invalidate(ctx, doc.CompetitionID)
	return doc, nil
}

// Reorder applies all (id, order_index) pairs in a single transaction.
// The store supports transactions, so the batch is atomic: any failing
// pair rolls back the whole reorder.
func (s *Service) Reorder(ctx context.Context, competitionID string, items []ReorderItem) error {
	comp, err := s.competition(ctx, competitionID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			res := tx.Model(&models.CompetitionDocumentModel{}).
				Where("id = ? AND competition_id = ?", item.ID, competitionID).
				Update("order_index", item.OrderIndex)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: %s", ErrDocumentNotFound, item.ID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.InvalidateDocuments(ctx, competitionID, comp.Slug)
	return nil
}

func (s *Service) byID(ctx context.Context, id string) (*models.CompetitionDocumentModel, error) {
	var doc models.CompetitionDocumentModel
	if err := s.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (s *Service) competition(ctx context.Context, id string) (*models.CompetitionModel, error) {
	var comp models.CompetitionModel
	if err := s.db.WithContext(ctx).Select("id, slug").First(&comp, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, err
	}
	return &comp, nil
}

func (s *Service) invalidate(ctx context.Context, competitionID string) {
	if comp, err := s.competition(ctx, competitionID); err == nil {
		s.cache.InvalidateDocuments(ctx, competitionID, comp.Slug)
	} else {
		s.cache.InvalidateDocuments(ctx, competitionID, "")
	}
}

func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return &t, nil
}
