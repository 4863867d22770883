package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Grade maps a grade code to the resource holding its items.
type Grade struct {
	Code string `yaml:"code"`
	Path string `yaml:"path"`
}

// Language describes one dictation language: its grades, the reward paid
// per correct answer and the speech tag used when reading items aloud.
type Language struct {
	Code      string  `yaml:"code"`
	SpeechTag string  `yaml:"speech_tag"`
	Reward    int     `yaml:"reward"`
	Grades    []Grade `yaml:"grades"`
}

// Sources is the static catalog of languages, grades and rewards.
// It is fixed at startup and never edited through the API.
type Sources struct {
	Languages []Language `yaml:"languages"`
}

// DefaultSources returns the built-in catalog used when no sources file exists.
func DefaultSources() *Sources {
	return &Sources{
		Languages: []Language{
			{
				Code:      "ko",
				SpeechTag: "ko-KR",
				Reward:    100,
				Grades: []Grade{
					{Code: "G1", Path: "data/ko_G1.json"},
					{Code: "G2", Path: "data/ko_G2.json"},
				},
			},
			{
				Code:      "en",
				SpeechTag: "en-US",
				Reward:    200,
				Grades: []Grade{
					{Code: "G1", Path: "data/en_G1.json"},
					{Code: "G2", Path: "data/en_G2.json"},
				},
			},
		},
	}
}

// LoadSources reads the catalog from a YAML file, falling back to the
// built-in defaults when the file does not exist.
func LoadSources(path string) (*Sources, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultSources(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var sources Sources
	if err := yaml.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("failed to parse sources file %s: %w", path, err)
	}
	if err := sources.validate(); err != nil {
		return nil, fmt.Errorf("invalid sources file %s: %w", path, err)
	}

	return &sources, nil
}

func (s *Sources) validate() error {
	if len(s.Languages) == 0 {
		return errors.New("no languages configured")
	}
	seen := make(map[string]bool)
	for _, lang := range s.Languages {
		if lang.Code == "" {
			return errors.New("language without code")
		}
		if seen[lang.Code] {
			return fmt.Errorf("duplicate language %q", lang.Code)
		}
		seen[lang.Code] = true
		if lang.Reward < 0 {
			return fmt.Errorf("language %q has negative reward", lang.Code)
		}
	}
	return nil
}

// Language looks up a language by code.
func (s *Sources) Language(code string) (Language, bool) {
	for _, lang := range s.Languages {
		if lang.Code == code {
			return lang, true
		}
	}
	return Language{}, false
}

// Path resolves the resource path for a (language, grade) pair.
func (s *Sources) Path(language, grade string) (string, bool) {
	lang, ok := s.Language(language)
	if !ok {
		return "", false
	}
	for _, g := range lang.Grades {
		if g.Code == grade {
			return g.Path, g.Path != ""
		}
	}
	return "", false
}

// Reward returns the per-correct-answer reward for a language, 0 if unknown.
func (s *Sources) Reward(language string) int {
	lang, _ := s.Language(language)
	return lang.Reward
}

// SpeechTag returns the speech synthesis language tag for a language.
func (s *Sources) SpeechTag(language string) string {
	if lang, ok := s.Language(language); ok && lang.SpeechTag != "" {
		return lang.SpeechTag
	}
	if language == "en" {
		return "en-US"
	}
	return "ko-KR"
}

// GradeCodes lists the configured grades of a language in catalog order.
func (s *Sources) GradeCodes(language string) []string {
	lang, ok := s.Language(language)
	if !ok {
		return nil
	}
	codes := make([]string, 0, len(lang.Grades))
	for _, g := range lang.Grades {
		codes = append(codes, g.Code)
	}
	return codes
}

// LanguageCodes lists the configured languages in catalog order.
func (s *Sources) LanguageCodes() []string {
	codes := make([]string, 0, len(s.Languages))
	for _, lang := range s.Languages {
		codes = append(codes, lang.Code)
	}
	return codes
}
