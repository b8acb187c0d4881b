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

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/pictovoice/pictovoice-backend/internal/assets"
	"github.com/pictovoice/pictovoice-backend/internal/logger"
)

// PictogramGenerator produces candidate pictogram images for a keyword and
// stages them on local disk. Implementations return the paths of the
// candidates that actually landed, in ascending index order.
type PictogramGenerator interface {
	GenerateCandidates(ctx context.Context, keyword string) ([]string, error)
}

// pictogramStylePrompt encodes the AAC symbol design guidelines every
// candidate is generated against.
const pictogramStylePrompt = `You are an AI image generator specializing in creating high-quality pictograms for Augmentative and Alternative Communication (AAC) systems, following established AAC symbol design guidelines. Your pictograms will be used by individuals with communication difficulties, including children with autism, developmental disabilities, and adults with acquired communication challenges.

TECHNICAL SPECIFICATIONS:
- Create a 512x512 pixel image with a completely transparent background
- NO borders or frames around the pictogram (it will be placed inside a card element)
- Use clean vector-style graphics with smooth lines and shapes
- Maintain consistent line thickness (3-5 points for main outlines, 2-3 points for interior details)
- Ensure a minimum contrast ratio of 7:1 between elements for maximum visibility
- Use a limited, purposeful color palette (3-5 colors maximum) with strong visual differentiation

DESIGN PRINCIPLES:
- Create symbols with high 'iconicity' - the meaning should be immediately guessable
- Display objects in their canonical positions (viewpoint where their most prominent features are clearly visible)
- Use simplified representations that maintain essential identifying features
- Avoid unnecessary details, textures, or decorative elements that don't contribute to meaning
- Design with cultural neutrality in mind unless specifically requested otherwise
- NEVER include text within the image (the system will add labels separately)
- Ensure the symbol works at different sizes and maintains clarity when scaled down

VISUAL STYLE:
- Use clean, geometric shapes with smooth curves and minimal angles
- Apply flat coloring without gradients, shadows, or 3D effects
- Create a visually appealing, modern aesthetic while maintaining simplicity
- Design with visual hierarchy - make the most important elements larger or more central
- Maintain consistent visual weight and balance across the image
- Use color purposefully to distinguish elements and enhance understanding

DARK MODE COMPATIBILITY:
- Use lighter, brighter colors that will stand out against dark backgrounds
- Add thin white or light-colored outlines (1-2px) to elements when needed for visibility
- Avoid very dark colors that would blend into dark backgrounds
- Maintain clarity and visibility when viewed in low-light environments

- Use a 100% TRANSPARENT BACKGROUND with NO BORDERS, NO FRAMES, NO UI ELEMENTS

For each concept, generate ONE clear, visually appealing pictogram that best represents the given word or phrase, optimized for immediate recognition and understanding.`

type ideogramGenerator struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	breaker    *gobreaker.CircuitBreaker
	store      *assets.Store
}

func NewIdeogramGenerator(log *logger.Logger, store *assets.Store) (PictogramGenerator, error) {
	apiKey := os.Getenv("IDEOGRAM_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing IDEOGRAM_API_KEY")
	}
	baseURL := os.Getenv("IDEOGRAM_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.ideogram.ai"
	}

	timeoutSec := 120
	if v := os.Getenv("IDEOGRAM_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}
	maxRetries := 3
	if v := os.Getenv("IDEOGRAM_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	serviceLog := log.With("service", "IdeogramGenerator")
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "ideogram",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			serviceLog.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &ideogramGenerator{
		log:        serviceLog,
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
		breaker:    breaker,
		store:      store,
	}, nil
}

type ideogramImageRequest struct {
	Prompt            string `json:"prompt"`
	AspectRatio       string `json:"aspect_ratio"`
	MagicPromptOption string `json:"magic_prompt_option"`
	StyleType         string `json:"style_type"`
	NumImages         int    `json:"num_images"`
	Model             string `json:"model"`
}

type ideogramGenerateRequest struct {
	ImageRequest ideogramImageRequest `json:"image_request"`
}

type ideogramGenerateResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

func (g *ideogramGenerator) GenerateCandidates(ctx context.Context, keyword string) ([]string, error) {
	prompt := fmt.Sprintf(
		"KEYWORD IS %s\n\n%s\n\nCreate a professional '%s' pictogram that would work well in an AAC system. ONLY the pictogram itself with transparent background. NO borders, frames, or lines below the image. Optimize for dark mode with lighter colors that stand out against dark backgrounds.",
		strings.ToUpper(keyword), pictogramStylePrompt, keyword,
	)

	req := ideogramGenerateRequest{
		ImageRequest: ideogramImageRequest{
			Prompt:            prompt,
			AspectRatio:       "ASPECT_1_1",
			MagicPromptOption: "ON",
			StyleType:         "DESIGN",
			NumImages:         assets.CandidateCount,
			Model:             "V_2",
		},
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		var resp ideogramGenerateResponse
		if err := g.do(ctx, "/generate", req, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("ideogram generate for %q: %w", keyword, err)
	}
	resp := result.(*ideogramGenerateResponse)
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("ideogram returned no images for %q", keyword)
	}

	// Downloads run concurrently; a single failed download drops that
	// candidate rather than the whole batch.
	grp, grpCtx := errgroup.WithContext(ctx)
	for i, img := range resp.Data {
		if i >= assets.CandidateCount {
			break
		}
		index := i + 1
		url := img.URL
		path := g.store.CandidatePath(keyword, index)
		grp.Go(func() error {
			if err := downloadToFile(grpCtx, g.httpClient, url, path); err != nil {
				g.log.Error("Error downloading candidate image", "keyword", keyword, "index", index, "error", err)
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	staged := g.store.ExistingCandidates(keyword)
	if len(staged) == 0 {
		return nil, fmt.Errorf("no candidate images staged for %q", keyword)
	}
	g.log.Info("Staged candidate images", "keyword", keyword, "count", len(staged))
	return staged, nil
}

func (g *ideogramGenerator) do(ctx context.Context, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := g.doOnce(ctx, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("ideogram decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !isRetryableErr(err) {
			return err
		}
		if attempt == g.maxRetries {
			return err
		}

		sleepFor := retryAfter(resp, backoff)
		g.log.Warn("Ideogram request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", g.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

func (g *ideogramGenerator) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Api-Key", g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &vendorHTTPError{Vendor: "ideogram", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}
