package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Keyword is the unit of content being enriched: a word or phrase that the
// generation pipeline decorates with a pictogram URL and voice clips.
// PictogramURL and AudioID stay nil until the corresponding stage succeeds.
type Keyword struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name         string         `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Description  string         `gorm:"column:description" json:"description,omitempty"`
	Language     string         `gorm:"column:language;not null;default:'en'" json:"language"`
	PictogramURL *string        `gorm:"column:pictogram_url" json:"pictogram_url,omitempty"`
	AudioID      *uuid.UUID     `gorm:"type:uuid;column:audio_id;index" json:"audio_id,omitempty"`
	Audio        *Audio         `gorm:"foreignKey:AudioID;references:ID" json:"audio,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Keyword) TableName() string { return "keywords" }
