package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/pictovoice/pictovoice-backend/internal/logger"
)

func newJudgeWithServer(t *testing.T, handler http.HandlerFunc) ImageJudge {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", server.URL+"/v1")

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	judge, err := NewVisionImageJudge(log)
	if err != nil {
		t.Fatalf("NewVisionImageJudge: %v", err)
	}
	return judge
}

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"model":   "gpt-4o",
		"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"}},
	}
}

func writeCandidates(t *testing.T, count int) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, count)
	for i := 0; i < count; i++ {
		path := dir + "/candidate.png"
		if i > 0 {
			path = dir + "/candidate" + string(rune('0'+i)) + ".png"
		}
		if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
			t.Fatalf("write candidate: %v", err)
		}
		paths = append(paths, path)
	}
	return paths
}

func TestImageJudgeSingleCandidateSkipsAPICall(t *testing.T) {
	called := false
	judge := newJudgeWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		_ = json.NewEncoder(w).Encode(chatResponse("Image 1"))
	})
	paths := writeCandidates(t, 1)

	best, rationale, err := judge.PickBest(context.Background(), "TV", paths)
	if err != nil {
		t.Fatalf("PickBest: %v", err)
	}
	if best != paths[0] {
		t.Fatalf("PickBest: want=%s got=%s", paths[0], best)
	}
	if rationale != "Only one image available" {
		t.Fatalf("PickBest rationale: got=%q", rationale)
	}
	if called {
		t.Fatalf("PickBest: API called for single candidate")
	}
}

func TestImageJudgeParsesImageNumber(t *testing.T) {
	judge := newJudgeWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse("Image 2 is the best because it is the clearest."))
	})
	paths := writeCandidates(t, 3)

	best, rationale, err := judge.PickBest(context.Background(), "TV", paths)
	if err != nil {
		t.Fatalf("PickBest: %v", err)
	}
	if best != paths[1] {
		t.Fatalf("PickBest: want=%s got=%s", paths[1], best)
	}
	if rationale == "" {
		t.Fatalf("PickBest: expected the model text as rationale")
	}
}

func TestImageJudgeParseFailureDefaultsToFirst(t *testing.T) {
	judge := newJudgeWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse("They are all equally good."))
	})
	paths := writeCandidates(t, 2)

	best, rationale, err := judge.PickBest(context.Background(), "TV", paths)
	if err != nil {
		t.Fatalf("PickBest: %v", err)
	}
	if best != paths[0] {
		t.Fatalf("PickBest: want first candidate got=%s", best)
	}
	if rationale != "They are all equally good." {
		t.Fatalf("PickBest rationale: got=%q", rationale)
	}
}

func TestImageJudgeOutOfRangeNumberDefaultsToFirst(t *testing.T) {
	judge := newJudgeWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse("Image 9 wins."))
	})
	paths := writeCandidates(t, 2)

	best, _, err := judge.PickBest(context.Background(), "TV", paths)
	if err != nil {
		t.Fatalf("PickBest: %v", err)
	}
	if best != paths[0] {
		t.Fatalf("PickBest: want first candidate got=%s", best)
	}
}

func TestImageJudgeVendorErrorPropagates(t *testing.T) {
	judge := newJudgeWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad"}}`, http.StatusBadRequest)
	})
	paths := writeCandidates(t, 2)

	if _, _, err := judge.PickBest(context.Background(), "TV", paths); err == nil {
		t.Fatalf("PickBest: expected vendor error")
	}
}
