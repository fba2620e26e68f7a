package models

import "time"

// CompetitionDocumentModel is a file attachment belonging to one
// competition. OrderIndex defines display order; unique per competition
// in practice but not enforced, and not required to be contiguous.
type CompetitionDocumentModel struct {
	Base
	CompetitionID string     `json:"competition_id" gorm:"index;not null"`
	Title         string     `json:"title"          gorm:"not null"`
	DocDate       *time.Time `json:"doc_date"`
	Description   string     `json:"description"    gorm:"type:text"`
	FilePath      string     `json:"file_path"      gorm:"not null"` // object-store key
	FileName      string     `json:"file_name"      gorm:"not null"`
	FileType      string     `json:"file_type"`
	OrderIndex    int        `json:"order_index"    gorm:"default:0;index"`
}

func (CompetitionDocumentModel) TableName() string { return "competition_documents" }
