package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pictovoice/pictovoice-backend/internal/logger"
	"github.com/pictovoice/pictovoice-backend/internal/types"
)

type KeywordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, keywords []*types.Keyword) ([]*types.Keyword, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Keyword, error)
	GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.Keyword, error)
	List(ctx context.Context, tx *gorm.DB, skip, limit int) ([]*types.Keyword, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	// ResolveOrCreateByName is the idempotent entry of the generation
	// pipeline: exact-name lookup, insert on miss, re-fetch for the
	// authoritative row. A concurrent duplicate insert is absorbed by
	// re-fetching after a unique-constraint failure.
	ResolveOrCreateByName(ctx context.Context, tx *gorm.DB, name, language string) (*types.Keyword, error)
	SoftDeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type keywordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKeywordRepo(db *gorm.DB, baseLog *logger.Logger) KeywordRepo {
	repoLog := baseLog.With("repo", "KeywordRepo")
	return &keywordRepo{db: db, log: repoLog}
}

func (r *keywordRepo) Create(ctx context.Context, tx *gorm.DB, keywords []*types.Keyword) ([]*types.Keyword, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(keywords) == 0 {
		return []*types.Keyword{}, nil
	}
	for _, kw := range keywords {
		if kw != nil && kw.ID == uuid.Nil {
			kw.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(ctx).Create(&keywords).Error; err != nil {
		return nil, err
	}
	return keywords, nil
}

func (r *keywordRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Keyword, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var kw types.Keyword
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&kw).Error
	if err != nil {
		return nil, err
	}
	if kw.ID == uuid.Nil {
		return nil, nil
	}
	return &kw, nil
}

func (r *keywordRepo) GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.Keyword, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var kw types.Keyword
	err := transaction.WithContext(ctx).
		Where("name = ?", name).
		Limit(1).
		Find(&kw).Error
	if err != nil {
		return nil, err
	}
	if kw.ID == uuid.Nil {
		return nil, nil
	}
	return &kw, nil
}

func (r *keywordRepo) List(ctx context.Context, tx *gorm.DB, skip, limit int) ([]*types.Keyword, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}
	var results []*types.Keyword
	if err := transaction.WithContext(ctx).
		Order("created_at ASC").
		Offset(skip).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *keywordRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Keyword{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *keywordRepo) ResolveOrCreateByName(ctx context.Context, tx *gorm.DB, name, language string) (*types.Keyword, error) {
	existing, err := r.GetByName(ctx, tx, name)
	if err != nil {
		return nil, fmt.Errorf("lookup keyword %q: %w", name, err)
	}
	if existing != nil {
		return existing, nil
	}

	kw := &types.Keyword{ID: uuid.New(), Name: name}
	if language != "" {
		kw.Language = language
	}
	if _, err := r.Create(ctx, tx, []*types.Keyword{kw}); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.log.Debug("Keyword created concurrently, re-fetching", "name", name)
		} else {
			// A unique-index violation can also surface as a plain driver
			// error; re-fetch decides whether creation actually lost a race.
			refetched, lookupErr := r.GetByName(ctx, tx, name)
			if lookupErr != nil || refetched == nil {
				return nil, fmt.Errorf("create keyword %q: %w", name, err)
			}
			return refetched, nil
		}
	}

	created, err := r.GetByName(ctx, tx, name)
	if err != nil {
		return nil, fmt.Errorf("re-fetch keyword %q: %w", name, err)
	}
	if created == nil {
		return nil, fmt.Errorf("keyword %q missing after create", name)
	}
	return created, nil
}

func (r *keywordRepo) SoftDeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Keyword{}).Error
}
