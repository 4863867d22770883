package audio

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	ttsRequestTimeout = 10 * time.Second
	googleTTSEndpoint = "https://translate.google.com/translate_tts"
)

// TTSService reads dictation items aloud by rendering them to MP3 clips in
// audioDir, which is served to the browser.
type TTSService struct {
	audioDir string
	endpoint string
	client   *http.Client

	mu       sync.Mutex
	inflight map[string]bool
	wg       sync.WaitGroup
}

// NewTTSService creates a new TTS service
func NewTTSService(audioDir string) *TTSService {
	return &TTSService{
		audioDir: audioDir,
		endpoint: googleTTSEndpoint,
		client:   &http.Client{Timeout: ttsRequestTimeout},
		inflight: make(map[string]bool),
	}
}

// ClipFilename is the deterministic file name of the clip for an utterance
func ClipFilename(text, languageTag string, rate float64, voiceHint string) string {
	key := strings.Join([]string{languageTag, voiceHint, formatRate(rate), text}, "|")
	return "clip_" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String() + ".mp3"
}

// Speak starts rendering the utterance in the background and returns
// immediately. voiceHint, when set, replaces the language tag sent to the
// synthesizer (e.g. "en-GB" for a British voice).
func (s *TTSService) Speak(text, languageTag string, rate float64, voiceHint string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	filename := ClipFilename(text, languageTag, rate, voiceHint)
	path := filepath.Join(s.audioDir, filename)

	if _, err := os.Stat(path); err == nil {
		return
	}

	s.mu.Lock()
	if s.inflight[filename] {
		s.mu.Unlock()
		return
	}
	s.inflight[filename] = true
	s.mu.Unlock()

	lang := languageTag
	if voiceHint != "" {
		lang = voiceHint
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inflight, filename)
			s.mu.Unlock()
		}()

		if err := s.generate(text, lang, rate, path); err != nil {
			log.Printf("Speech synthesis failed for %q: %v", text, err)
		}
	}()
}

// Wait blocks until all pending clips have been rendered
func (s *TTSService) Wait() {
	s.wg.Wait()
}

func (s *TTSService) generate(text, lang string, rate float64, outputPath string) error {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("q", text)
	params.Set("tl", lang)
	params.Set("client", "tw-ob")
	params.Set("ttsspeed", formatRate(rate))
	params.Set("textlen", strconv.Itoa(len([]rune(text))))

	ctx, cancel := context.WithTimeout(context.Background(), ttsRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	// Set user agent (required by Google)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create audio directory: %w", err)
	}

	// Write to a temp file first so a half-written clip is never served
	tmp, err := os.CreateTemp(filepath.Dir(outputPath), "clip-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write audio file: %w", err)
	}

	return os.Rename(tmp.Name(), outputPath)
}

// ClampRate bounds a speech rate to [0.5, 2.0]; zero or negative means 1.0
func ClampRate(rate float64) float64 {
	switch {
	case rate <= 0:
		return 1.0
	case rate < 0.5:
		return 0.5
	case rate > 2.0:
		return 2.0
	default:
		return rate
	}
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(ClampRate(rate), 'f', 1, 64)
}
