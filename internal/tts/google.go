// Package tts synthesizes script text into audio via the Google Translate
// speech endpoint.
//
// The endpoint accepts at most 200 characters per request, so longer scripts
// are split on word boundaries and the returned audio chunks concatenated.
// One synthesis call is bounded by a hard deadline; past it the attempt fails.
package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	speechEndpoint = "https://translate.google.com/translate_tts"
	maxChunkLen    = 200
)

// languageFallback remaps codes the speech backend has no native voice for.
// A backend limitation, not a business rule.
var languageFallback = map[string]string{
	"mr": "hi",
	"ur": "hi",
}

// Remap returns the language code actually sent to the speech backend.
func Remap(lang string) string {
	if fallback, ok := languageFallback[lang]; ok {
		return fallback
	}
	return lang
}

// Synthesizer turns text into audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

// GoogleSpeech is the HTTP implementation of Synthesizer.
type GoogleSpeech struct {
	client   *http.Client
	endpoint string
	timeout  time.Duration
}

// NewGoogleSpeech builds a synthesizer with the given per-call deadline.
func NewGoogleSpeech(client *http.Client, timeout time.Duration) *GoogleSpeech {
	if client == nil {
		client = &http.Client{}
	}
	return &GoogleSpeech{client: client, endpoint: speechEndpoint, timeout: timeout}
}

// Synthesize fetches audio for text in lang, applying the fallback remap.
func (g *GoogleSpeech) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	lang = Remap(lang)
	chunks := SplitText(text, maxChunkLen)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no text to synthesize")
	}

	var audio []byte
	for i, chunk := range chunks {
		part, err := g.fetchChunk(ctx, chunk, lang, i, len(chunks))
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("audio generation timed out: %w", ctx.Err())
			}
			return nil, err
		}
		audio = append(audio, part...)
	}
	return audio, nil
}

func (g *GoogleSpeech) fetchChunk(ctx context.Context, chunk, lang string, idx, total int) ([]byte, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("tl", lang)
	params.Set("q", chunk)
	params.Set("total", fmt.Sprint(total))
	params.Set("idx", fmt.Sprint(idx))
	params.Set("textlen", fmt.Sprint(len(chunk)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech request failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// SplitText breaks text into chunks of at most limit characters, splitting on
// spaces where possible so words stay intact.
func SplitText(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		// Oversized single words are hard-cut, on rune boundaries so no
		// multi-byte sequence is split.
		for len(word) > limit {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			cut := limit
			for cut > 0 && !utf8.RuneStart(word[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
			chunks = append(chunks, word[:cut])
			word = word[cut:]
		}
		if current.Len() > 0 && current.Len()+1+len(word) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
