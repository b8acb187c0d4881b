package types

import (
	"time"

	"github.com/google/uuid"
)

// Audio is one voice-clip bundle for a keyword. Either URL may be nil when
// that synthesis failed. Rows are append-only: each generation run creates a
// fresh record and relinks the keyword to it.
type Audio struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	KeywordID     uuid.UUID `gorm:"type:uuid;column:keyword_id;not null;index" json:"keyword_id"`
	VoiceManURL   *string   `gorm:"column:voice_man" json:"voice_man,omitempty"`
	VoiceWomanURL *string   `gorm:"column:voice_woman" json:"voice_woman,omitempty"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Audio) TableName() string { return "audio_files" }
