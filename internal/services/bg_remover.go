package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pictovoice/pictovoice-backend/internal/logger"
)

// BackgroundRemover turns a selected candidate into the finalized pictogram
// by stripping its background. Input and output are local staged files.
type BackgroundRemover interface {
	RemoveBackground(ctx context.Context, inputPath, outputPath string) error
}

type httpBackgroundRemover struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
}

func NewHTTPBackgroundRemover(log *logger.Logger) (BackgroundRemover, error) {
	baseURL := os.Getenv("BG_REMOVER_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("missing BG_REMOVER_URL")
	}
	apiKey := os.Getenv("BG_REMOVER_API_KEY")

	timeoutSec := 120
	if v := os.Getenv("BG_REMOVER_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}
	maxRetries := 3
	if v := os.Getenv("BG_REMOVER_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &httpBackgroundRemover{
		log:        log.With("service", "BackgroundRemover"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

func (r *httpBackgroundRemover) RemoveBackground(ctx context.Context, inputPath, outputPath string) error {
	info, err := os.Stat(inputPath)
	if err != nil || info.IsDir() {
		return fmt.Errorf("input file not found: %s", inputPath)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	r.log.Info("Removing background", "input", inputPath)

	backoff := 1 * time.Second
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, processed, reqErr := r.doOnce(ctx, inputPath)
		if reqErr == nil {
			if err := os.WriteFile(outputPath, processed, 0o644); err != nil {
				return fmt.Errorf("write processed image %q: %w", outputPath, err)
			}
			r.log.Info("Saved background-removed image", "output", outputPath)
			return nil
		}

		if !isRetryableErr(reqErr) {
			return reqErr
		}
		if attempt == r.maxRetries {
			return reqErr
		}

		sleepFor := retryAfter(resp, backoff)
		r.log.Warn("Background removal retrying",
			"input", inputPath,
			"attempt", attempt+1,
			"max_retries", r.maxRetries,
			"sleep", sleepFor.String(),
			"error", reqErr.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

func (r *httpBackgroundRemover) doOnce(ctx context.Context, inputPath string) (*http.Response, []byte, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image_file", filepath.Base(inputPath))
	if err != nil {
		return nil, nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/remove", &body)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if r.apiKey != "" {
		req.Header.Set("Api-Key", r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, nil, &vendorHTTPError{Vendor: "bg-remover", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if len(raw) == 0 {
		return resp, nil, fmt.Errorf("bg-remover returned empty image for %s", inputPath)
	}
	return resp, raw, nil
}
