package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pictovoice/pictovoice-backend/internal/assets"
	"github.com/pictovoice/pictovoice-backend/internal/logger"
	"github.com/pictovoice/pictovoice-backend/internal/types"
)

const (
	elevenLabsModelID      = "eleven_multilingual_v2"
	elevenLabsOutputFormat = "mp3_44100_128"
)

// VoiceSynthesizer renders a keyword as speech in a given voice profile and
// stages the clip at outputPath.
type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, text string, profile types.VoiceProfile, outputPath string) error
}

type elevenLabsSynthesizer struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
}

func NewElevenLabsSynthesizer(log *logger.Logger) (VoiceSynthesizer, error) {
	apiKey := os.Getenv("ELEVEN_LABS_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing ELEVEN_LABS_API_KEY")
	}
	baseURL := os.Getenv("ELEVEN_LABS_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.elevenlabs.io"
	}

	timeoutSec := 60
	if v := os.Getenv("ELEVEN_LABS_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}
	maxRetries := 3
	if v := os.Getenv("ELEVEN_LABS_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &elevenLabsSynthesizer{
		log:        log.With("service", "VoiceSynthesizer"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

func (s *elevenLabsSynthesizer) Synthesize(ctx context.Context, text string, profile types.VoiceProfile, outputPath string) error {
	voiceID := profile.VendorVoiceID()
	if voiceID == "" {
		return fmt.Errorf("unknown voice profile %q", profile)
	}

	path := fmt.Sprintf("/v1/text-to-speech/%s?output_format=%s", voiceID, elevenLabsOutputFormat)

	backoff := 1 * time.Second
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, audio, reqErr := s.doOnce(ctx, path, ttsRequest{Text: text, ModelID: elevenLabsModelID})
		if reqErr == nil {
			if err := os.WriteFile(outputPath, audio, 0o644); err != nil {
				return fmt.Errorf("write voice clip %q: %w", outputPath, err)
			}
			// A zero-byte clip counts as a vendor failure, not a success.
			if !assets.FileNonEmpty(outputPath) {
				return fmt.Errorf("voice clip %q is empty", outputPath)
			}
			s.log.Info("Saved voice clip", "profile", profile, "output", outputPath)
			return nil
		}

		if !isRetryableErr(reqErr) {
			return reqErr
		}
		if attempt == s.maxRetries {
			return reqErr
		}

		sleepFor := retryAfter(resp, backoff)
		s.log.Warn("Voice synthesis retrying",
			"profile", profile,
			"attempt", attempt+1,
			"max_retries", s.maxRetries,
			"sleep", sleepFor.String(),
			"error", reqErr.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

func (s *elevenLabsSynthesizer) doOnce(ctx context.Context, path string, body ttsRequest) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, nil, &vendorHTTPError{Vendor: "elevenlabs", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if len(raw) == 0 {
		return resp, nil, fmt.Errorf("elevenlabs returned empty audio")
	}
	return resp, raw, nil
}
