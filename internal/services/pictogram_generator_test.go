package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pictovoice/pictovoice-backend/internal/assets"
	"github.com/pictovoice/pictovoice-backend/internal/logger"
)

func newGeneratorWithServer(t *testing.T, handler http.Handler) (PictogramGenerator, *assets.Store) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	t.Setenv("IDEOGRAM_API_KEY", "test-key")
	t.Setenv("IDEOGRAM_BASE_URL", server.URL)
	t.Setenv("IDEOGRAM_MAX_RETRIES", "0")

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	store, err := assets.NewStore(t.TempDir(), log)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	gen, err := NewIdeogramGenerator(log, store)
	if err != nil {
		t.Fatalf("NewIdeogramGenerator: %v", err)
	}
	return gen, store
}

func TestGenerateCandidatesStagesFourImages(t *testing.T) {
	mux := http.NewServeMux()
	var gotAPIKey string
	var gotBody ideogramGenerateRequest
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("Api-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		base := "http://" + r.Host
		resp := map[string]any{"data": []map[string]string{
			{"url": base + "/img/1"},
			{"url": base + "/img/2"},
			{"url": base + "/img/3"},
			{"url": base + "/img/4"},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "png-bytes-%s", r.URL.Path)
	})

	gen, store := newGeneratorWithServer(t, mux)
	staged, err := gen.GenerateCandidates(context.Background(), "TV")
	if err != nil {
		t.Fatalf("GenerateCandidates: %v", err)
	}
	if len(staged) != assets.CandidateCount {
		t.Fatalf("staged count: want=%d got=%d", assets.CandidateCount, len(staged))
	}
	for i := 1; i <= assets.CandidateCount; i++ {
		if !assets.FileNonEmpty(store.CandidatePath("TV", i)) {
			t.Fatalf("candidate %d not staged", i)
		}
	}
	if gotAPIKey != "test-key" {
		t.Fatalf("Api-Key header: got=%q", gotAPIKey)
	}
	if gotBody.ImageRequest.NumImages != assets.CandidateCount {
		t.Fatalf("num_images: want=%d got=%d", assets.CandidateCount, gotBody.ImageRequest.NumImages)
	}
	if !strings.Contains(gotBody.ImageRequest.Prompt, "KEYWORD IS TV") {
		t.Fatalf("prompt missing keyword header")
	}
}

func TestGenerateCandidatesToleratesFailedDownload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		resp := map[string]any{"data": []map[string]string{
			{"url": base + "/img/1"},
			{"url": base + "/missing"},
			{"url": base + "/img/3"},
			{"url": base + "/img/4"},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "png-bytes")
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	gen, store := newGeneratorWithServer(t, mux)
	staged, err := gen.GenerateCandidates(context.Background(), "TV")
	if err != nil {
		t.Fatalf("GenerateCandidates: %v", err)
	}
	if len(staged) != 3 {
		t.Fatalf("staged count: want=3 got=%d", len(staged))
	}
	if assets.FileExists(store.CandidatePath("TV", 2)) {
		t.Fatalf("failed download left a candidate file")
	}
}

func TestGenerateCandidatesVendorError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad prompt"}`, http.StatusBadRequest)
	})

	gen, _ := newGeneratorWithServer(t, mux)
	if _, err := gen.GenerateCandidates(context.Background(), "TV"); err == nil {
		t.Fatalf("GenerateCandidates: expected vendor error")
	}
}

func TestGenerateCandidatesEmptyResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []map[string]string{}})
	})

	gen, _ := newGeneratorWithServer(t, mux)
	if _, err := gen.GenerateCandidates(context.Background(), "TV"); err == nil {
		t.Fatalf("GenerateCandidates: expected error for empty response")
	}
}
