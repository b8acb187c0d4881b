package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pictovoice/pictovoice-backend/internal/logger"
	"github.com/pictovoice/pictovoice-backend/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	store, err := NewStore(t.TempDir(), log)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestCandidatePathNaming(t *testing.T) {
	store := newTestStore(t)
	got := filepath.Base(store.CandidatePath("TV", 1))
	if got != "pic_TV_01.png" {
		t.Fatalf("CandidatePath: want=pic_TV_01.png got=%s", got)
	}
	got = filepath.Base(store.CandidatePath("come_here", 4))
	if got != "pic_come_here_04.png" {
		t.Fatalf("CandidatePath: want=pic_come_here_04.png got=%s", got)
	}
}

func TestFinalAndAudioPathNaming(t *testing.T) {
	store := newTestStore(t)
	if got := filepath.Base(store.FinalPath("TV")); got != "pic_TV_final.png" {
		t.Fatalf("FinalPath: want=pic_TV_final.png got=%s", got)
	}
	if got := filepath.Base(store.AudioPath("TV", types.VoiceMan)); got != "audio_TV_man.mp3" {
		t.Fatalf("AudioPath: want=audio_TV_man.mp3 got=%s", got)
	}
	if got := filepath.Base(store.AudioPath("TV", types.VoiceWomanFlemish)); got != "audio_TV_woman_vl.mp3" {
		t.Fatalf("AudioPath: want=audio_TV_woman_vl.mp3 got=%s", got)
	}
}

func TestFirstExistingCandidatePicksLowestIndex(t *testing.T) {
	store := newTestStore(t)
	touch(t, store.CandidatePath("TV", 3))
	touch(t, store.CandidatePath("TV", 2))

	path, ok := store.FirstExistingCandidate("TV")
	if !ok {
		t.Fatalf("FirstExistingCandidate: expected a candidate")
	}
	if path != store.CandidatePath("TV", 2) {
		t.Fatalf("FirstExistingCandidate: want index 2 got=%s", path)
	}
}

func TestFirstExistingCandidateNoneStaged(t *testing.T) {
	store := newTestStore(t)
	if _, ok := store.FirstExistingCandidate("TV"); ok {
		t.Fatalf("FirstExistingCandidate: expected no candidate")
	}
}

func TestExistingCandidatesAscendingOrder(t *testing.T) {
	store := newTestStore(t)
	touch(t, store.CandidatePath("TV", 4))
	touch(t, store.CandidatePath("TV", 1))

	existing := store.ExistingCandidates("TV")
	if len(existing) != 2 {
		t.Fatalf("ExistingCandidates: want=2 got=%d", len(existing))
	}
	if existing[0] != store.CandidatePath("TV", 1) || existing[1] != store.CandidatePath("TV", 4) {
		t.Fatalf("ExistingCandidates: wrong order: %v", existing)
	}
}

func TestCleanupPictogramFilesRemovesCandidatesAndFinal(t *testing.T) {
	store := newTestStore(t)
	for i := 1; i <= CandidateCount; i++ {
		touch(t, store.CandidatePath("TV", i))
	}
	touch(t, store.FinalPath("TV"))
	otherKeyword := store.CandidatePath("dog", 1)
	touch(t, otherKeyword)

	store.CleanupPictogramFiles("TV")

	if got := store.ExistingCandidates("TV"); len(got) != 0 {
		t.Fatalf("CleanupPictogramFiles: candidates remain: %v", got)
	}
	if FileExists(store.FinalPath("TV")) {
		t.Fatalf("CleanupPictogramFiles: final image remains")
	}
	if !FileExists(otherKeyword) {
		t.Fatalf("CleanupPictogramFiles: removed another keyword's file")
	}
}

func TestFileNonEmpty(t *testing.T) {
	store := newTestStore(t)
	empty := store.AudioPath("TV", types.VoiceMan)
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if FileNonEmpty(empty) {
		t.Fatalf("FileNonEmpty: zero-byte file reported non-empty")
	}
	full := store.AudioPath("TV", types.VoiceWoman)
	touch(t, full)
	if !FileNonEmpty(full) {
		t.Fatalf("FileNonEmpty: non-empty file reported empty")
	}
}
