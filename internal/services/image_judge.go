package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"regexp"
	"strconv"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pictovoice/pictovoice-backend/internal/logger"
)

// ImageJudge evaluates a batch of staged candidate images and picks the one
// best suited as a communication pictogram. It returns the winner's path and
// the model's rationale.
type ImageJudge interface {
	PickBest(ctx context.Context, keyword string, candidatePaths []string) (string, string, error)
}

type visionImageJudge struct {
	log    *logger.Logger
	client *openai.Client
	model  string
}

var imageNumberPattern = regexp.MustCompile(`Image (\d+)`)

func NewVisionImageJudge(log *logger.Logger) (ImageJudge, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.BaseURL = baseURL
	}
	model := os.Getenv("OPENAI_JUDGE_MODEL")
	if model == "" {
		model = openai.GPT4o
	}
	return &visionImageJudge{
		log:    log.With("service", "ImageJudge"),
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

func (j *visionImageJudge) PickBest(ctx context.Context, keyword string, candidatePaths []string) (string, string, error) {
	if len(candidatePaths) == 0 {
		return "", "", fmt.Errorf("no images provided for judging")
	}
	// One candidate needs no model call.
	if len(candidatePaths) == 1 {
		return candidatePaths[0], "Only one image available", nil
	}

	parts := []openai.ChatMessagePart{
		{
			Type: openai.ChatMessagePartTypeText,
			Text: fmt.Sprintf(
				"I'm going to show you %d pictogram images. "+
					"These are AAC (Augmentative and Alternative Communication) pictograms "+
					"that need to be clear, simple, and effective for communication. "+
					"Please evaluate them and tell me which one is the best based on: "+
					"1. Visual clarity and simplicity "+
					"2. Effectiveness in conveying meaning "+
					"3. Emotional appropriateness "+
					"4. Overall quality as a communication pictogram",
				len(candidatePaths),
			),
		},
	}
	for i, path := range candidatePaths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", "", fmt.Errorf("read candidate %q: %w", path, err)
		}
		parts = append(parts,
			openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw),
					Detail: openai.ImageURLDetailHigh,
				},
			},
			openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: fmt.Sprintf("Image %d", i+1),
			},
		)
	}
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: "Which image is the best pictogram for clear communication? " +
			"Please respond with the image number (1, 2, etc.) and a brief explanation why.",
	})

	resp, err := j.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: j.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("vision judge call for %q: %w", keyword, err)
	}
	if len(resp.Choices) == 0 {
		return "", "", fmt.Errorf("vision judge returned no choices for %q", keyword)
	}
	result := resp.Choices[0].Message.Content

	if m := imageNumberPattern.FindStringSubmatch(result); m != nil {
		index, convErr := strconv.Atoi(m[1])
		if convErr == nil && index >= 1 && index <= len(candidatePaths) {
			return candidatePaths[index-1], result, nil
		}
	}

	// Parse failure keeps the pipeline moving: take the first candidate and
	// keep the model's text as the rationale.
	j.log.Warn("Failed to parse best image from response, defaulting to first image", "keyword", keyword)
	return candidatePaths[0], result, nil
}
