package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pictovoice/pictovoice-backend/internal/logger"
	"github.com/pictovoice/pictovoice-backend/internal/types"
)

func newSynthWithServer(t *testing.T, handler http.HandlerFunc) VoiceSynthesizer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	t.Setenv("ELEVEN_LABS_API_KEY", "test-key")
	t.Setenv("ELEVEN_LABS_BASE_URL", server.URL)
	t.Setenv("ELEVEN_LABS_MAX_RETRIES", "0")

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	synth, err := NewElevenLabsSynthesizer(log)
	if err != nil {
		t.Fatalf("NewElevenLabsSynthesizer: %v", err)
	}
	return synth
}

func TestSynthesizeWritesClip(t *testing.T) {
	var gotPath, gotKey string
	var gotBody ttsRequest
	synth := newSynthWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, "mp3-bytes")
	})

	out := filepath.Join(t.TempDir(), "audio_TV_man.mp3")
	if err := synth.Synthesize(context.Background(), "TV", types.VoiceMan, out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read clip: %v", err)
	}
	if string(raw) != "mp3-bytes" {
		t.Fatalf("clip content: got=%q", raw)
	}
	wantPath := "/v1/text-to-speech/" + types.VoiceMan.VendorVoiceID()
	if gotPath != wantPath {
		t.Fatalf("request path: want=%s got=%s", wantPath, gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("xi-api-key header: got=%q", gotKey)
	}
	if gotBody.Text != "TV" || gotBody.ModelID != elevenLabsModelID {
		t.Fatalf("request body: got=%+v", gotBody)
	}
}

func TestSynthesizeRequestsMP3OutputFormat(t *testing.T) {
	var gotQuery string
	synth := newSynthWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, "mp3-bytes")
	})

	out := filepath.Join(t.TempDir(), "audio_TV_woman.mp3")
	if err := synth.Synthesize(context.Background(), "TV", types.VoiceWoman, out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !strings.Contains(gotQuery, "output_format="+elevenLabsOutputFormat) {
		t.Fatalf("output format query: got=%q", gotQuery)
	}
}

func TestSynthesizeEmptyAudioFails(t *testing.T) {
	synth := newSynthWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	out := filepath.Join(t.TempDir(), "audio_TV_man.mp3")
	if err := synth.Synthesize(context.Background(), "TV", types.VoiceMan, out); err == nil {
		t.Fatalf("Synthesize: expected failure for empty audio")
	}
}

func TestSynthesizeVendorError(t *testing.T) {
	synth := newSynthWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid voice"}`, http.StatusBadRequest)
	})

	out := filepath.Join(t.TempDir(), "audio_TV_man.mp3")
	if err := synth.Synthesize(context.Background(), "TV", types.VoiceMan, out); err == nil {
		t.Fatalf("Synthesize: expected vendor error")
	}
}

func TestSynthesizeUnknownProfile(t *testing.T) {
	synth := newSynthWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "mp3-bytes")
	})

	out := filepath.Join(t.TempDir(), "audio_TV_robot.mp3")
	if err := synth.Synthesize(context.Background(), "TV", types.VoiceProfile("robot"), out); err == nil {
		t.Fatalf("Synthesize: expected error for unknown profile")
	}
}
