package competition

import (
	"time"

	"github.com/icmpp/concursuri/internal/models"
	"github.com/icmpp/concursuri/internal/modules/storage"
)

// CreateCompetitionDTO is the request body for creating a competition.
// Slug is derived from the title when omitted.
type CreateCompetitionDTO struct {
	Title       string  `json:"title"       binding:"required"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	StartDate   *string `json:"start_date"` // "2006-01-02"
	EndDate     *string `json:"end_date"`
	Keywords    string  `json:"keywords"`
	AutoArchive *bool   `json:"auto_archive"`
}

// UpdateCompetitionDTO is the request body for a partial update.
type UpdateCompetitionDTO struct {
	Title       *string `json:"title"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	Keywords    *string `json:"keywords"`
	AutoArchive *bool   `json:"auto_archive"`
}

// ListQuery holds query params for listing competitions.
type ListQuery struct {
	Status string `form:"status"`
	Year   *int   `form:"year"`
	Search string `form:"q"`
}

type documentResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	DocDate     *time.Time `json:"doc_date"`
	Description string     `json:"description"`
	FileName    string     `json:"file_name"`
	FileType    string     `json:"file_type"`
	OrderIndex  int        `json:"order_index"`
	URL         string     `json:"url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type competitionResponse struct {
	models.CompetitionModel
	Documents []documentResponse `json:"documents"`
}

// toResponse resolves document download URLs against the bucket; the URL
// never lives in the table.
func toResponse(c *models.CompetitionModel, store *storage.Client) competitionResponse {
	docs := make([]documentResponse, len(c.Documents))
	for i, d := range c.Documents {
		docs[i] = documentResponse{
			ID:          d.ID,
			Title:       d.Title,
			DocDate:     d.DocDate,
			Description: d.Description,
			FileName:    d.FileName,
			FileType:    d.FileType,
			OrderIndex:  d.OrderIndex,
			CreatedAt:   d.CreatedAt,
		}
		if store != nil {
			docs[i].URL = store.PublicURL(d.FilePath)
		}
	}

	resp := competitionResponse{CompetitionModel: *c, Documents: docs}
	resp.CompetitionModel.Documents = nil
	return resp
}
