// Package transcribe turns recorded audio into journal text.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Transcriber converts an audio file into text. Implementations may
// call out to external services and should honor ctx cancellation.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// WhisperClient transcribes audio through a whisper HTTP endpoint. The
// audio file is sent as a multipart upload and the response carries the
// transcription as journal text.
type WhisperClient struct {
	endpoint string
	client   *http.Client
	logger   *log.Logger
}

// NewWhisperClient creates a client against endpoint
// (e.g. "https://speech.example.com"). If logger is nil, a default
// logger writing to stderr is used.
func NewWhisperClient(endpoint string, logger *log.Logger) *WhisperClient {
	if logger == nil {
		logger = log.New(os.Stderr, "[transcribe] ", log.LstdFlags)
	}
	return &WhisperClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: 2 * time.Minute},
		logger:   logger,
	}
}

// Transcribe uploads the audio file and returns the transcribed text.
// Transcription is the one sync path whose failure is surfaced to the
// user directly, so errors here carry the upstream detail.
func (c *WhisperClient) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("failed to read audio file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finish upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/whisper", &body)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	c.logger.Printf("Transcribing %s", filepath.Base(audioPath))
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("transcription failed: %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var out struct {
		Journal string `json:"journal"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode transcription response: %w", err)
	}
	return out.Journal, nil
}
