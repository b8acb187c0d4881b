package services

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/pictovoice/pictovoice-backend/internal/assets"
	"github.com/pictovoice/pictovoice-backend/internal/logger"
)

type fakeJudge struct {
	pickIndex int
	pickPath  string
	rationale string
	err       error
	calls     int
}

func (f *fakeJudge) PickBest(ctx context.Context, keyword string, candidatePaths []string) (string, string, error) {
	f.calls++
	if f.err != nil {
		return "", "", f.err
	}
	if f.pickPath != "" {
		return f.pickPath, f.rationale, nil
	}
	return candidatePaths[f.pickIndex], f.rationale, nil
}

func newSelectionStore(t *testing.T) (*assets.Store, *logger.Logger) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	store, err := assets.NewStore(t.TempDir(), log)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, log
}

func stageCandidates(t *testing.T, store *assets.Store, keyword string, indices ...int) {
	t.Helper()
	for _, i := range indices {
		if err := os.WriteFile(store.CandidatePath(keyword, i), []byte("png"), 0o644); err != nil {
			t.Fatalf("stage candidate %d: %v", i, err)
		}
	}
}

func TestJudgeSelectorReturnsJudgeWinner(t *testing.T) {
	store, log := newSelectionStore(t)
	stageCandidates(t, store, "TV", 1, 2, 3, 4)
	judge := &fakeJudge{pickIndex: 2, rationale: "Image 3 is clearest"}

	sel := NewJudgeSelector(log, judge, store)
	path, rationale, err := sel.SelectBest(context.Background(), "TV")
	if err != nil {
		t.Fatalf("SelectBest: %v", err)
	}
	if path != store.CandidatePath("TV", 3) {
		t.Fatalf("SelectBest: want candidate 3 got=%s", path)
	}
	if rationale != "Image 3 is clearest" {
		t.Fatalf("SelectBest rationale: got=%q", rationale)
	}
}

func TestJudgeSelectorNoCandidates(t *testing.T) {
	store, log := newSelectionStore(t)
	judge := &fakeJudge{}

	sel := NewJudgeSelector(log, judge, store)
	if _, _, err := sel.SelectBest(context.Background(), "TV"); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("SelectBest: want ErrNoSelection got=%v", err)
	}
	if judge.calls != 0 {
		t.Fatalf("judge called with zero candidates: calls=%d", judge.calls)
	}
}

func TestJudgeSelectorRejectsMissingWinner(t *testing.T) {
	store, log := newSelectionStore(t)
	stageCandidates(t, store, "TV", 1, 2)
	judge := &fakeJudge{pickPath: store.CandidatePath("TV", 4)}

	sel := NewJudgeSelector(log, judge, store)
	if _, _, err := sel.SelectBest(context.Background(), "TV"); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("SelectBest: want ErrNoSelection for missing winner got=%v", err)
	}
}

func TestFallbackSelectorLowestIndex(t *testing.T) {
	store, log := newSelectionStore(t)
	stageCandidates(t, store, "TV", 2, 4)

	sel := NewFallbackSelector(log, store)
	path, _, err := sel.SelectBest(context.Background(), "TV")
	if err != nil {
		t.Fatalf("SelectBest: %v", err)
	}
	if path != store.CandidatePath("TV", 2) {
		t.Fatalf("SelectBest: want candidate 2 got=%s", path)
	}
}

func TestFallbackSelectorNoFiles(t *testing.T) {
	store, log := newSelectionStore(t)
	sel := NewFallbackSelector(log, store)
	if _, _, err := sel.SelectBest(context.Background(), "TV"); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("SelectBest: want ErrNoSelection got=%v", err)
	}
}

func TestChainSelectorFallsBackOnJudgeError(t *testing.T) {
	store, log := newSelectionStore(t)
	stageCandidates(t, store, "TV", 1, 3)
	judge := &fakeJudge{err: errors.New("vendor down")}

	sel := NewChainSelector(log,
		NewJudgeSelector(log, judge, store),
		NewFallbackSelector(log, store),
	)
	path, rationale, err := sel.SelectBest(context.Background(), "TV")
	if err != nil {
		t.Fatalf("SelectBest: %v", err)
	}
	if path != store.CandidatePath("TV", 1) {
		t.Fatalf("SelectBest: want candidate 1 got=%s", path)
	}
	if rationale == "" {
		t.Fatalf("SelectBest: expected fallback rationale")
	}
}

func TestChainSelectorAllFail(t *testing.T) {
	store, log := newSelectionStore(t)
	judge := &fakeJudge{err: errors.New("vendor down")}

	sel := NewChainSelector(log,
		NewJudgeSelector(log, judge, store),
		NewFallbackSelector(log, store),
	)
	if _, _, err := sel.SelectBest(context.Background(), "TV"); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("SelectBest: want ErrNoSelection got=%v", err)
	}
}
