package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pictovoice/pictovoice-backend/internal/logger"
	"github.com/pictovoice/pictovoice-backend/internal/types"
)

type AudioRepo interface {
	Create(ctx context.Context, tx *gorm.DB, records []*types.Audio) ([]*types.Audio, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Audio, error)
	GetByKeywordID(ctx context.Context, tx *gorm.DB, keywordID uuid.UUID) ([]*types.Audio, error)
}

type audioRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAudioRepo(db *gorm.DB, baseLog *logger.Logger) AudioRepo {
	repoLog := baseLog.With("repo", "AudioRepo")
	return &audioRepo{db: db, log: repoLog}
}

func (r *audioRepo) Create(ctx context.Context, tx *gorm.DB, records []*types.Audio) ([]*types.Audio, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(records) == 0 {
		return []*types.Audio{}, nil
	}
	for _, rec := range records {
		if rec != nil && rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(ctx).Create(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *audioRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Audio, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var rec types.Audio
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}

func (r *audioRepo) GetByKeywordID(ctx context.Context, tx *gorm.DB, keywordID uuid.UUID) ([]*types.Audio, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Audio
	if keywordID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("keyword_id = ?", keywordID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
