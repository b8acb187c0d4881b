package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RunStatusQueued  = "queued"
	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusFailed  = "failed"
)

const (
	RunStageResolve    = "resolve"
	RunStageCandidates = "candidates"
	RunStageSelect     = "select"
	RunStagePictogram  = "pictogram"
	RunStageVoice      = "voice"
	RunStageDone       = "done"
)

// GenerationRun is one queued enrichment attempt for a keyword. The worker
// claims runs from this table, so dispatch survives process restarts and is
// at-least-once; re-execution is safe because keyword resolution is
// idempotent by name.
type GenerationRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	KeywordID   uuid.UUID      `gorm:"type:uuid;column:keyword_id;not null;index" json:"keyword_id"`
	Status      string         `gorm:"column:status;not null;default:'queued';index" json:"status"`
	Stage       string         `gorm:"column:stage" json:"stage"`
	Progress    int            `gorm:"column:progress;not null;default:0" json:"progress"`
	Attempts    int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Error       string         `gorm:"column:error" json:"error,omitempty"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	LockedAt    *time.Time     `gorm:"column:locked_at" json:"locked_at,omitempty"`
	HeartbeatAt *time.Time     `gorm:"column:heartbeat_at" json:"heartbeat_at,omitempty"`
	Metadata    datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (GenerationRun) TableName() string { return "generation_runs" }
