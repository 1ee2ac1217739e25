// Package speech converts between audio and text through an
// OpenAI-compatible audio API.
package speech

import (
	"context"
	"fmt"
	"strings"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/apperr"
)

// Codec transcribes and synthesizes speech.
type Codec interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// AudioAPI is the subset of proxy.Client the codec calls.
type AudioAPI interface {
	Transcribe(ctx context.Context, model, filename string, audio []byte) (string, error)
	Speech(ctx context.Context, model, voice, text string) ([]byte, error)
}

// Config selects models for the audio endpoints.
type Config struct {
	TranscribeModel string // default "whisper-1"
	SpeechModel     string // default "tts-1"
	Voice           string // default "alloy"
}

var _ Codec = (*Client)(nil)

// Client implements Codec over an AudioAPI.
type Client struct {
	api AudioAPI
	cfg Config
}

// New returns a Client. Empty Config fields take defaults.
func New(api AudioAPI, cfg Config) *Client {
	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = "whisper-1"
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	return &Client{api: api, cfg: cfg}
}

// Transcribe returns the spoken text. Silence, or audio the model could not
// make out, yields an EmptyInput error.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", apperr.New(apperr.EmptyInput, "audio is empty")
	}
	if filename == "" {
		filename = "audio.webm"
	}
	text, err := c.api.Transcribe(ctx, c.cfg.TranscribeModel, filename, audio)
	if err != nil {
		return "", fmt.Errorf("transcribing %s: %w", filename, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.New(apperr.EmptyInput, "no speech recognized in %s", filename)
	}
	return text, nil
}

// Synthesize returns MP3 audio for text.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.New(apperr.EmptyInput, "no text to synthesize")
	}
	audio, err := c.api.Speech(ctx, c.cfg.SpeechModel, c.cfg.Voice, text)
	if err != nil {
		return nil, fmt.Errorf("synthesizing speech: %w", err)
	}
	return audio, nil
}
