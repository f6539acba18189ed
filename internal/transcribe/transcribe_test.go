package transcribe

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeAudioFile(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("RIFF fake wav bytes"), 0o644); err != nil {
		t.Fatalf("failed to write audio file: %v", err)
	}
	return path
}

func TestTranscribe(t *testing.T) {
	var gotPath, gotField, gotFilename string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		file, header, err := r.FormFile("audio")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotField = "audio"
		gotFilename = header.Filename
		_, _ = io.Copy(io.Discard, file)

		_ = json.NewEncoder(w).Encode(map[string]string{"journal": "Today I went hiking."})
	}))
	defer srv.Close()

	c := NewWhisperClient(srv.URL, log.New(os.Stderr, "[test] ", 0))
	text, err := c.Transcribe(context.Background(), writeAudioFile(t, "note.wav"))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if text != "Today I went hiking." {
		t.Errorf("text = %q", text)
	}
	if gotPath != "/whisper" {
		t.Errorf("path = %q, want /whisper", gotPath)
	}
	if gotField != "audio" || gotFilename != "note.wav" {
		t.Errorf("upload field=%q filename=%q", gotField, gotFilename)
	}
}

func TestTranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewWhisperClient(srv.URL, log.New(os.Stderr, "[test] ", 0))
	_, err := c.Transcribe(context.Background(), writeAudioFile(t, "note.wav"))
	if err == nil {
		t.Fatal("expected error from failing endpoint")
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Errorf("error hides upstream detail: %v", err)
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	c := NewWhisperClient("http://localhost:0", log.New(os.Stderr, "[test] ", 0))
	if _, err := c.Transcribe(context.Background(), "/does/not/exist.wav"); err == nil {
		t.Fatal("expected error for missing audio file")
	}
}

func TestTranscribeContextCancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewWhisperClient(srv.URL, log.New(os.Stderr, "[test] ", 0))
	if _, err := c.Transcribe(ctx, writeAudioFile(t, "note.wav")); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
