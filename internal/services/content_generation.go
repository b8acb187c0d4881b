package services

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/pictovoice/pictovoice-backend/internal/assets"
	"github.com/pictovoice/pictovoice-backend/internal/logger"
	"github.com/pictovoice/pictovoice-backend/internal/repos"
	"github.com/pictovoice/pictovoice-backend/internal/types"
	"github.com/pictovoice/pictovoice-backend/internal/utils"
)

// ProgressFunc receives stage transitions from the pipeline so the run row
// can reflect them. Metadata entries are merged into the run's metadata.
type ProgressFunc func(stage string, progress int, metadata map[string]interface{})

// ContentGenerationService drives a keyword from "name only" to "name +
// pictogram URL + voice clip URLs". Stage failures downgrade to no-ops and
// the pipeline continues; only keyword resolution is fatal.
type ContentGenerationService interface {
	EnqueueRun(ctx context.Context, keywordID uuid.UUID) (*types.GenerationRun, error)
	GenerateContentForKeyword(ctx context.Context, name, language string, progress ProgressFunc) (*types.Keyword, error)
	GeneratePictogram(ctx context.Context, name string) (*types.Keyword, error)
	GenerateVoice(ctx context.Context, name, language string) (*types.Keyword, error)
	StartWorker(ctx context.Context)
}

type contentGenerationService struct {
	log         *logger.Logger
	keywordRepo repos.KeywordRepo
	audioRepo   repos.AudioRepo
	runRepo     repos.GenerationRunRepo
	generator   PictogramGenerator
	selector    CandidateSelector
	remover     BackgroundRemover
	synth       VoiceSynthesizer
	bucket      BucketService
	store       *assets.Store

	pollInterval      time.Duration
	heartbeatInterval time.Duration
	maxAttempts       int
	retryDelay        time.Duration
	staleRunning      time.Duration
}

func NewContentGenerationService(
	log *logger.Logger,
	keywordRepo repos.KeywordRepo,
	audioRepo repos.AudioRepo,
	runRepo repos.GenerationRunRepo,
	generator PictogramGenerator,
	selector CandidateSelector,
	remover BackgroundRemover,
	synth VoiceSynthesizer,
	bucket BucketService,
	store *assets.Store,
) ContentGenerationService {
	serviceLog := log.With("service", "ContentGenerationService")
	return &contentGenerationService{
		log:               serviceLog,
		keywordRepo:       keywordRepo,
		audioRepo:         audioRepo,
		runRepo:           runRepo,
		generator:         generator,
		selector:          selector,
		remover:           remover,
		synth:             synth,
		bucket:            bucket,
		store:             store,
		pollInterval:      time.Duration(utils.GetEnvAsInt("WORKER_POLL_SECONDS", 5, log)) * time.Second,
		heartbeatInterval: 30 * time.Second,
		maxAttempts:       utils.GetEnvAsInt("WORKER_MAX_ATTEMPTS", 5, log),
		retryDelay:        time.Duration(utils.GetEnvAsInt("WORKER_RETRY_DELAY_SECONDS", 30, log)) * time.Second,
		staleRunning:      time.Duration(utils.GetEnvAsInt("WORKER_STALE_RUNNING_SECONDS", 120, log)) * time.Second,
	}
}

func (s *contentGenerationService) EnqueueRun(ctx context.Context, keywordID uuid.UUID) (*types.GenerationRun, error) {
	run := &types.GenerationRun{
		ID:        uuid.New(),
		KeywordID: keywordID,
		Status:    types.RunStatusQueued,
		Stage:     types.RunStageResolve,
	}
	created, err := s.runRepo.Create(ctx, nil, []*types.GenerationRun{run})
	if err != nil {
		return nil, fmt.Errorf("enqueue generation run for keyword %s: %w", keywordID, err)
	}
	s.log.Info("Enqueued generation run", "run_id", created[0].ID, "keyword_id", keywordID)
	return created[0], nil
}

// GenerateContentForKeyword runs the full pipeline. Side effects are persisted
// after each successful stage, so a crash mid-pipeline leaves partial but
// consistent progress.
func (s *contentGenerationService) GenerateContentForKeyword(ctx context.Context, name, language string, progress ProgressFunc) (*types.Keyword, error) {
	report := func(stage string, pct int, md map[string]interface{}) {
		if progress != nil {
			progress(stage, pct, md)
		}
	}

	report(types.RunStageResolve, 5, nil)
	kw, err := s.keywordRepo.ResolveOrCreateByName(ctx, nil, name, language)
	if err != nil {
		return nil, fmt.Errorf("resolve keyword %q: %w", name, err)
	}

	report(types.RunStageCandidates, 15, nil)
	s.generateCandidates(ctx, kw.Name)

	report(types.RunStageSelect, 40, nil)
	kw = s.processBestPicture(ctx, kw, report)

	report(types.RunStageVoice, 70, nil)
	kw = s.processVoiceClips(ctx, kw)

	report(types.RunStageDone, 100, nil)
	s.log.Info("Content generation completed", "keyword", kw.Name)
	return kw, nil
}

// GeneratePictogram runs only the pictogram half of the pipeline,
// synchronously.
func (s *contentGenerationService) GeneratePictogram(ctx context.Context, name string) (*types.Keyword, error) {
	kw, err := s.keywordRepo.ResolveOrCreateByName(ctx, nil, name, "")
	if err != nil {
		return nil, fmt.Errorf("resolve keyword %q: %w", name, err)
	}
	s.generateCandidates(ctx, kw.Name)
	return s.processBestPicture(ctx, kw, func(string, int, map[string]interface{}) {}), nil
}

// GenerateVoice runs only the voice half of the pipeline, synchronously.
func (s *contentGenerationService) GenerateVoice(ctx context.Context, name, language string) (*types.Keyword, error) {
	kw, err := s.keywordRepo.ResolveOrCreateByName(ctx, nil, name, language)
	if err != nil {
		return nil, fmt.Errorf("resolve keyword %q: %w", name, err)
	}
	return s.processVoiceClips(ctx, kw), nil
}

// generateCandidates stages candidate images. A collaborator failure leaves
// zero candidates; selection reports "no pictures found" downstream.
func (s *contentGenerationService) generateCandidates(ctx context.Context, name string) {
	s.log.Info("Generating candidate images", "keyword", name)
	staged, err := s.generator.GenerateCandidates(ctx, name)
	if err != nil {
		s.log.Error("Error generating candidate images", "keyword", name, "error", err)
		return
	}
	s.log.Info("Candidate images staged", "keyword", name, "count", len(staged))
}

// processBestPicture selects the winner, strips its background, uploads the
// final image and persists the URL. Any failure leaves pictogram_url unset;
// scratch files are deleted only after a verified upload.
func (s *contentGenerationService) processBestPicture(ctx context.Context, kw *types.Keyword, report ProgressFunc) *types.Keyword {
	best, rationale, err := s.selector.SelectBest(ctx, kw.Name)
	if err != nil {
		s.log.Error("No suitable picture found", "keyword", kw.Name, "error", err)
		return kw
	}
	s.log.Info("Selected best image", "keyword", kw.Name, "path", best)
	report(types.RunStagePictogram, 55, map[string]interface{}{"judge_rationale": rationale})

	finalPath := s.store.FinalPath(kw.Name)
	if err := s.remover.RemoveBackground(ctx, best, finalPath); err != nil {
		s.log.Error("Error removing background", "keyword", kw.Name, "error", err)
		return kw
	}

	key := fmt.Sprintf("pictograms/%s", filepath.Base(finalPath))
	if err := s.bucket.UploadLocalFile(ctx, key, finalPath); err != nil {
		s.log.Error("Error uploading pictogram", "keyword", kw.Name, "key", key, "error", err)
		return kw
	}
	exists, err := s.bucket.FileExists(ctx, key)
	if err != nil || !exists {
		s.log.Error("Pictogram upload verification failed", "keyword", kw.Name, "key", key, "error", err)
		return kw
	}

	url := s.bucket.GetPublicURL(key)
	if err := s.keywordRepo.UpdateFields(ctx, nil, kw.ID, map[string]interface{}{"pictogram_url": url}); err != nil {
		s.log.Error("Error persisting pictogram URL", "keyword", kw.Name, "error", err)
		return kw
	}
	kw.PictogramURL = &url
	s.log.Info("Pictogram uploaded and persisted", "keyword", kw.Name, "url", url)

	// Verified success: candidates, losers included, and the final image all go.
	s.store.CleanupPictogramFiles(kw.Name)
	return kw
}

// processVoiceClips synthesizes the (man, woman) pair for the keyword's
// language, uploads whatever succeeded and creates one Audio record when at
// least one clip made it.
func (s *contentGenerationService) processVoiceClips(ctx context.Context, kw *types.Keyword) *types.Keyword {
	pair, recognized := types.ProfilesForLanguage(kw.Language)
	if !recognized {
		s.log.Warn("Unsupported language, defaulting to English voices", "keyword", kw.Name, "language", kw.Language)
	}

	// Profiles are independent: one failing never blocks the other.
	type slot struct {
		profile types.VoiceProfile
		path    string
	}
	slots := map[string]*slot{
		"voice_man":   {profile: pair.Man},
		"voice_woman": {profile: pair.Woman},
	}
	for name, sl := range slots {
		path := s.store.AudioPath(kw.Name, sl.profile)
		s.log.Info("Generating voice clip", "keyword", kw.Name, "slot", name, "profile", sl.profile)
		if err := s.synth.Synthesize(ctx, kw.Name, sl.profile, path); err != nil {
			s.log.Error("Error generating voice clip", "keyword", kw.Name, "profile", sl.profile, "error", err)
			continue
		}
		sl.path = path
	}

	urls := map[string]string{}
	uploaded := map[string]string{}
	for name, sl := range slots {
		if sl.path == "" {
			continue
		}
		key := fmt.Sprintf("voice_clips/%s", filepath.Base(sl.path))
		if err := s.bucket.UploadLocalFile(ctx, key, sl.path); err != nil {
			s.log.Error("Error uploading voice clip", "keyword", kw.Name, "key", key, "error", err)
			continue
		}
		urls[name] = s.bucket.GetPublicURL(key)
		uploaded[name] = sl.path
	}

	if len(urls) == 0 {
		s.log.Warn("No voice clips produced, skipping audio record", "keyword", kw.Name)
		return kw
	}

	audio := &types.Audio{ID: uuid.New(), KeywordID: kw.ID}
	if u, ok := urls["voice_man"]; ok {
		audio.VoiceManURL = &u
	}
	if u, ok := urls["voice_woman"]; ok {
		audio.VoiceWomanURL = &u
	}
	created, err := s.audioRepo.Create(ctx, nil, []*types.Audio{audio})
	if err != nil {
		s.log.Error("Error saving audio record", "keyword", kw.Name, "error", err)
		return kw
	}
	audioID := created[0].ID
	if err := s.keywordRepo.UpdateFields(ctx, nil, kw.ID, map[string]interface{}{"audio_id": audioID}); err != nil {
		s.log.Error("Error linking audio record", "keyword", kw.Name, "error", err)
		return kw
	}
	kw.AudioID = &audioID
	s.log.Info("Audio record saved", "keyword", kw.Name, "audio_id", audioID)

	// Only clips that made it to the bucket are cleaned up locally.
	for _, path := range uploaded {
		s.store.RemoveFile(path)
	}
	return kw
}

// StartWorker launches the background claim loop. Runs are claimed from the
// database, so dispatch survives restarts and is shared across replicas.
func (s *contentGenerationService) StartWorker(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		s.log.Info("Generation worker started",
			"poll_interval", s.pollInterval.String(),
			"max_attempts", s.maxAttempts,
		)
		for {
			select {
			case <-ctx.Done():
				s.log.Info("Generation worker stopped")
				return
			case <-ticker.C:
				s.drainRunnable(ctx)
			}
		}
	}()
}

func (s *contentGenerationService) drainRunnable(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		run, err := s.runRepo.ClaimNextRunnable(ctx, nil, s.maxAttempts, s.retryDelay, s.staleRunning)
		if err != nil {
			s.log.Error("Error claiming generation run", "error", err)
			return
		}
		if run == nil {
			return
		}
		s.processRun(ctx, run)
	}
}

func (s *contentGenerationService) processRun(ctx context.Context, run *types.GenerationRun) {
	s.log.Info("Processing generation run", "run_id", run.ID, "keyword_id", run.KeywordID, "attempt", run.Attempts+1)

	kw, err := s.keywordRepo.GetByID(ctx, nil, run.KeywordID)
	if err != nil {
		s.failRun(ctx, run.ID, fmt.Sprintf("load keyword: %v", err))
		return
	}
	if kw == nil {
		s.failRun(ctx, run.ID, fmt.Sprintf("keyword %s not found", run.KeywordID))
		return
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go s.heartbeatLoop(hbCtx, run.ID)

	progress := func(stage string, pct int, md map[string]interface{}) {
		updates := map[string]interface{}{"stage": stage, "progress": pct}
		if len(md) > 0 {
			if raw, mErr := json.Marshal(md); mErr == nil {
				updates["metadata"] = datatypes.JSON(raw)
			}
		}
		if uErr := s.runRepo.UpdateFields(ctx, nil, run.ID, updates); uErr != nil {
			s.log.Error("Error updating run progress", "run_id", run.ID, "error", uErr)
		}
	}

	if _, err := s.GenerateContentForKeyword(ctx, kw.Name, kw.Language, progress); err != nil {
		s.failRun(ctx, run.ID, err.Error())
		return
	}

	if err := s.runRepo.UpdateFields(ctx, nil, run.ID, map[string]interface{}{
		"status":   types.RunStatusDone,
		"stage":    types.RunStageDone,
		"progress": 100,
		"error":    "",
	}); err != nil {
		s.log.Error("Error finalizing run", "run_id", run.ID, "error", err)
		return
	}
	s.log.Info("Generation run completed", "run_id", run.ID, "keyword", kw.Name)
}

func (s *contentGenerationService) failRun(ctx context.Context, runID uuid.UUID, message string) {
	now := time.Now()
	if err := s.runRepo.UpdateFields(ctx, nil, runID, map[string]interface{}{
		"status":        types.RunStatusFailed,
		"error":         message,
		"last_error_at": now,
	}); err != nil {
		s.log.Error("Error marking run failed", "run_id", runID, "error", err)
	}
	s.log.Error("Generation run failed", "run_id", runID, "error", message)
}

func (s *contentGenerationService) heartbeatLoop(ctx context.Context, runID uuid.UUID) {
	ticker := time.NewTicker(s.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.runRepo.Heartbeat(ctx, nil, runID); err != nil {
				s.log.Error("Error updating run heartbeat", "run_id", runID, "error", err)
			}
		}
	}
}
