package models

import "time"

// Competition status values.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// CompetitionModel is a published job/post announcement.
type CompetitionModel struct {
	Base
	Title       string     `json:"title"        gorm:"not null"`
	Slug        string     `json:"slug"         gorm:"uniqueIndex;not null"`
	Description string     `json:"description"  gorm:"type:longtext"`
	Status      string     `json:"status"       gorm:"type:varchar(16);default:'active';index"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Keywords    string     `json:"keywords"`
	AutoArchive bool       `json:"auto_archive" gorm:"default:false"`

	Documents []CompetitionDocumentModel `json:"documents,omitempty" gorm:"foreignKey:CompetitionID;constraint:OnDelete:CASCADE"`
}

func (CompetitionModel) TableName() string { return "competitions" }

// IsValidStatus reports whether s is a known competition status.
func IsValidStatus(s string) bool {
	return s == StatusActive || s == StatusArchived
}
