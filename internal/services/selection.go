package services

import (
	"context"
	"errors"

	"github.com/pictovoice/pictovoice-backend/internal/assets"
	"github.com/pictovoice/pictovoice-backend/internal/logger"
)

// ErrNoSelection means no staged candidate could be selected for the keyword.
var ErrNoSelection = errors.New("no candidate image could be selected")

// CandidateSelector picks the winning staged candidate for a keyword.
// Selection is decoupled from judging: the judge is one strategy, the
// deterministic lowest-index scan is another, and production chains them so a
// judge outage degrades selection quality instead of failing the run.
type CandidateSelector interface {
	SelectBest(ctx context.Context, keyword string) (path string, rationale string, err error)
}

type judgeSelector struct {
	log   *logger.Logger
	judge ImageJudge
	store *assets.Store
}

func NewJudgeSelector(log *logger.Logger, judge ImageJudge, store *assets.Store) CandidateSelector {
	return &judgeSelector{
		log:   log.With("service", "JudgeSelector"),
		judge: judge,
		store: store,
	}
}

func (s *judgeSelector) SelectBest(ctx context.Context, keyword string) (string, string, error) {
	candidates := s.store.ExistingCandidates(keyword)
	if len(candidates) == 0 {
		return "", "", ErrNoSelection
	}
	best, rationale, err := s.judge.PickBest(ctx, keyword, candidates)
	if err != nil {
		return "", "", err
	}
	// The judge answers from encoded copies; the winner must still be on disk.
	if !assets.FileExists(best) {
		s.log.Warn("Selected image doesn't exist", "keyword", keyword, "path", best)
		return "", "", ErrNoSelection
	}
	return best, rationale, nil
}

type fallbackSelector struct {
	log   *logger.Logger
	store *assets.Store
}

// NewFallbackSelector returns the deterministic selector: the existing
// candidate with the lowest index wins.
func NewFallbackSelector(log *logger.Logger, store *assets.Store) CandidateSelector {
	return &fallbackSelector{
		log:   log.With("service", "FallbackSelector"),
		store: store,
	}
}

func (s *fallbackSelector) SelectBest(ctx context.Context, keyword string) (string, string, error) {
	path, ok := s.store.FirstExistingCandidate(keyword)
	if !ok {
		s.log.Error("No pictures found for keyword", "keyword", keyword)
		return "", "", ErrNoSelection
	}
	s.log.Info("Using fallback image selection", "keyword", keyword, "path", path)
	return path, "Fallback selection due to judge error", nil
}

type chainSelector struct {
	log       *logger.Logger
	selectors []CandidateSelector
}

// NewChainSelector tries each selector in order and returns the first
// successful pick. It fails only when every selector fails.
func NewChainSelector(log *logger.Logger, selectors ...CandidateSelector) CandidateSelector {
	return &chainSelector{
		log:       log.With("service", "ChainSelector"),
		selectors: selectors,
	}
}

func (s *chainSelector) SelectBest(ctx context.Context, keyword string) (string, string, error) {
	var lastErr error
	for i, sel := range s.selectors {
		path, rationale, err := sel.SelectBest(ctx, keyword)
		if err == nil {
			return path, rationale, nil
		}
		lastErr = err
		if i < len(s.selectors)-1 {
			s.log.Warn("Selector failed, trying next", "keyword", keyword, "error", err)
		}
	}
	if lastErr == nil {
		lastErr = ErrNoSelection
	}
	return "", "", lastErr
}
