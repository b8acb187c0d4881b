// Package assets owns the local scratch files a generation run stages before
// upload: candidate pictograms, the finalized pictogram, and voice clips.
// Filenames are deterministic per keyword, so a run can always rediscover
// (and clean up) its own files. Nothing here touches remote storage.
package assets

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pictovoice/pictovoice-backend/internal/logger"
	"github.com/pictovoice/pictovoice-backend/internal/types"
)

// CandidateCount is how many pictogram candidates one run requests.
const CandidateCount = 4

type Store struct {
	log *logger.Logger

	PictogramsDir string
	FinalDir      string
	AudioDir      string
}

func NewStore(baseDir string, baseLog *logger.Logger) (*Store, error) {
	s := &Store{
		log:           baseLog.With("service", "AssetStore"),
		PictogramsDir: filepath.Join(baseDir, "pictograms"),
		FinalDir:      filepath.Join(baseDir, "pictograms_final"),
		AudioDir:      filepath.Join(baseDir, "audio"),
	}
	for _, dir := range []string{s.PictogramsDir, s.FinalDir, s.AudioDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create asset directory %s: %w", dir, err)
		}
	}
	return s, nil
}

// CandidatePath returns the staged path for candidate index (1-based).
func (s *Store) CandidatePath(keyword string, index int) string {
	return filepath.Join(s.PictogramsDir, fmt.Sprintf("pic_%s_%02d.png", keyword, index))
}

// CandidatePaths returns all expected candidate paths in ascending index
// order, whether or not the files exist.
func (s *Store) CandidatePaths(keyword string) []string {
	paths := make([]string, 0, CandidateCount)
	for i := 1; i <= CandidateCount; i++ {
		paths = append(paths, s.CandidatePath(keyword, i))
	}
	return paths
}

// ExistingCandidates filters CandidatePaths down to files present on disk.
func (s *Store) ExistingCandidates(keyword string) []string {
	var existing []string
	for _, path := range s.CandidatePaths(keyword) {
		if fileExists(path) {
			existing = append(existing, path)
		}
	}
	return existing
}

// FirstExistingCandidate scans expected filenames in ascending index order
// and returns the first one found on disk.
func (s *Store) FirstExistingCandidate(keyword string) (string, bool) {
	for _, path := range s.CandidatePaths(keyword) {
		if fileExists(path) {
			return path, true
		}
	}
	return "", false
}

func (s *Store) FinalPath(keyword string) string {
	return filepath.Join(s.FinalDir, fmt.Sprintf("pic_%s_final.png", keyword))
}

func (s *Store) AudioPath(keyword string, profile types.VoiceProfile) string {
	return filepath.Join(s.AudioDir, fmt.Sprintf("audio_%s_%s.mp3", keyword, profile))
}

// RemoveFile deletes one staged file, tolerating its absence.
func (s *Store) RemoveFile(path string) {
	if path == "" {
		return
	}
	if !fileExists(path) {
		s.log.Debug("File does not exist, no cleanup needed", "path", path)
		return
	}
	if err := os.Remove(path); err != nil {
		s.log.Error("Error removing local file", "path", path, "error", err)
		return
	}
	s.log.Info("Removed local file", "path", path)
}

// CleanupPictogramFiles removes every staged pictogram file for a keyword,
// losers included, plus the finalized image.
func (s *Store) CleanupPictogramFiles(keyword string) {
	for _, path := range s.CandidatePaths(keyword) {
		s.RemoveFile(path)
	}
	s.RemoveFile(s.FinalPath(keyword))
	s.log.Info("Cleaned up local pictogram files", "keyword", keyword)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// FileExists reports whether a staged file is present and non-empty. Vendor
// clients use the non-empty check to demote zero-byte results to failures.
func FileExists(path string) bool {
	return fileExists(path)
}

// FileNonEmpty reports whether path exists with size > 0.
func FileNonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}
