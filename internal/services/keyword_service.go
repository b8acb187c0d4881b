package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pictovoice/pictovoice-backend/internal/logger"
	"github.com/pictovoice/pictovoice-backend/internal/repos"
	"github.com/pictovoice/pictovoice-backend/internal/types"
)

var (
	ErrKeywordExists   = errors.New("keyword already exists")
	ErrKeywordNotFound = errors.New("keyword not found")
	ErrAudioNotFound   = errors.New("no audio for keyword")
	ErrRunNotFound     = errors.New("no generation run for keyword")
)

// KeywordUpdate carries the mutable keyword fields; nil means unchanged.
type KeywordUpdate struct {
	Name        *string
	Description *string
	Language    *string
}

// KeywordAudioView joins a keyword with its voice clip URLs for the audio
// lookup endpoint.
type KeywordAudioView struct {
	KeywordID     uuid.UUID `json:"keyword_id"`
	KeywordName   string    `json:"keyword_name"`
	AudioID       uuid.UUID `json:"audio_id"`
	VoiceManURL   *string   `json:"voice_man"`
	VoiceWomanURL *string   `json:"voice_woman"`
	CreatedAt     time.Time `json:"created_at"`
}

type KeywordService interface {
	Create(ctx context.Context, name, description, language string) (*types.Keyword, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Keyword, error)
	GetByName(ctx context.Context, name string) (*types.Keyword, error)
	List(ctx context.Context, skip, limit int) ([]*types.Keyword, error)
	Update(ctx context.Context, id uuid.UUID, update KeywordUpdate) (*types.Keyword, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetAudioByKeywordName(ctx context.Context, name string) (*KeywordAudioView, error)
	GetLatestRun(ctx context.Context, keywordID uuid.UUID) (*types.GenerationRun, error)
}

type keywordService struct {
	log         *logger.Logger
	keywordRepo repos.KeywordRepo
	audioRepo   repos.AudioRepo
	runRepo     repos.GenerationRunRepo
}

func NewKeywordService(
	log *logger.Logger,
	keywordRepo repos.KeywordRepo,
	audioRepo repos.AudioRepo,
	runRepo repos.GenerationRunRepo,
) KeywordService {
	return &keywordService{
		log:         log.With("service", "KeywordService"),
		keywordRepo: keywordRepo,
		audioRepo:   audioRepo,
		runRepo:     runRepo,
	}
}

func (s *keywordService) Create(ctx context.Context, name, description, language string) (*types.Keyword, error) {
	existing, err := s.keywordRepo.GetByName(ctx, nil, name)
	if err != nil {
		return nil, fmt.Errorf("lookup keyword %q: %w", name, err)
	}
	if existing != nil {
		return existing, ErrKeywordExists
	}

	kw := &types.Keyword{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
	}
	if language != "" {
		kw.Language = language
	}
	created, err := s.keywordRepo.Create(ctx, nil, []*types.Keyword{kw})
	if err != nil {
		// Lost creation races resolve in favor of the existing row.
		if raced, lookupErr := s.keywordRepo.GetByName(ctx, nil, name); lookupErr == nil && raced != nil {
			return raced, ErrKeywordExists
		}
		return nil, fmt.Errorf("create keyword %q: %w", name, err)
	}
	s.log.Info("Created keyword", "keyword_id", created[0].ID, "name", name)
	return created[0], nil
}

func (s *keywordService) GetByID(ctx context.Context, id uuid.UUID) (*types.Keyword, error) {
	kw, err := s.keywordRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if kw == nil {
		return nil, ErrKeywordNotFound
	}
	return kw, nil
}

func (s *keywordService) GetByName(ctx context.Context, name string) (*types.Keyword, error) {
	kw, err := s.keywordRepo.GetByName(ctx, nil, name)
	if err != nil {
		return nil, err
	}
	if kw == nil {
		return nil, ErrKeywordNotFound
	}
	return kw, nil
}

func (s *keywordService) List(ctx context.Context, skip, limit int) ([]*types.Keyword, error) {
	return s.keywordRepo.List(ctx, nil, skip, limit)
}

func (s *keywordService) Update(ctx context.Context, id uuid.UUID, update KeywordUpdate) (*types.Keyword, error) {
	kw, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if update.Name != nil && *update.Name != kw.Name {
		conflict, err := s.keywordRepo.GetByName(ctx, nil, *update.Name)
		if err != nil {
			return nil, err
		}
		if conflict != nil && conflict.ID != id {
			return nil, ErrKeywordExists
		}
		updates["name"] = *update.Name
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.Language != nil {
		updates["language"] = *update.Language
	}
	if len(updates) == 0 {
		return kw, nil
	}

	if err := s.keywordRepo.UpdateFields(ctx, nil, id, updates); err != nil {
		return nil, fmt.Errorf("update keyword %s: %w", id, err)
	}
	return s.GetByID(ctx, id)
}

func (s *keywordService) Delete(ctx context.Context, id uuid.UUID) error {
	kw, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.keywordRepo.SoftDeleteByID(ctx, nil, id); err != nil {
		return fmt.Errorf("delete keyword %s: %w", id, err)
	}
	s.log.Info("Deleted keyword", "keyword_id", id, "name", kw.Name)
	return nil
}

func (s *keywordService) GetAudioByKeywordName(ctx context.Context, name string) (*KeywordAudioView, error) {
	kw, err := s.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if kw.AudioID == nil {
		return nil, ErrAudioNotFound
	}
	audio, err := s.audioRepo.GetByID(ctx, nil, *kw.AudioID)
	if err != nil {
		return nil, err
	}
	if audio == nil {
		return nil, ErrAudioNotFound
	}
	return &KeywordAudioView{
		KeywordID:     kw.ID,
		KeywordName:   kw.Name,
		AudioID:       audio.ID,
		VoiceManURL:   audio.VoiceManURL,
		VoiceWomanURL: audio.VoiceWomanURL,
		CreatedAt:     audio.CreatedAt,
	}, nil
}

func (s *keywordService) GetLatestRun(ctx context.Context, keywordID uuid.UUID) (*types.GenerationRun, error) {
	if _, err := s.GetByID(ctx, keywordID); err != nil {
		return nil, err
	}
	run, err := s.runRepo.GetLatestByKeywordID(ctx, nil, keywordID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}
	return run, nil
}
