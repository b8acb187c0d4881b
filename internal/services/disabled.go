package services

import (
	"context"
	"io"

	"github.com/pictovoice/pictovoice-backend/internal/types"
)

// Disabled collaborators stand in when a vendor is not configured at startup.
// Every call fails with the configuration error, so the affected stage fails
// per run while keyword CRUD and the remaining stages keep working.

type disabledBucket struct{ err error }

func NewDisabledBucketService(err error) BucketService { return &disabledBucket{err: err} }

func (d *disabledBucket) UploadFile(ctx context.Context, key string, file io.Reader) error {
	return d.err
}

func (d *disabledBucket) UploadLocalFile(ctx context.Context, key, localPath string) error {
	return d.err
}

func (d *disabledBucket) FileExists(ctx context.Context, key string) (bool, error) {
	return false, d.err
}

func (d *disabledBucket) DeleteFile(ctx context.Context, key string) error { return d.err }

func (d *disabledBucket) GetPublicURL(key string) string { return "" }

type disabledGenerator struct{ err error }

func NewDisabledGenerator(err error) PictogramGenerator { return &disabledGenerator{err: err} }

func (d *disabledGenerator) GenerateCandidates(ctx context.Context, keyword string) ([]string, error) {
	return nil, d.err
}

type disabledJudge struct{ err error }

func NewDisabledJudge(err error) ImageJudge { return &disabledJudge{err: err} }

func (d *disabledJudge) PickBest(ctx context.Context, keyword string, candidatePaths []string) (string, string, error) {
	return "", "", d.err
}

type disabledRemover struct{ err error }

func NewDisabledRemover(err error) BackgroundRemover { return &disabledRemover{err: err} }

func (d *disabledRemover) RemoveBackground(ctx context.Context, inputPath, outputPath string) error {
	return d.err
}

type disabledSynthesizer struct{ err error }

func NewDisabledSynthesizer(err error) VoiceSynthesizer { return &disabledSynthesizer{err: err} }

func (d *disabledSynthesizer) Synthesize(ctx context.Context, text string, profile types.VoiceProfile, outputPath string) error {
	return d.err
}
