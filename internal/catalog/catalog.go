// Package catalog loads and indexes the voice/emotion configuration
// document.
//
// The catalog is read once at startup from a unified JSON document, with
// an optional legacy voices document merged in, and is immutable
// afterward. It resolves voice ids to their engine provider, model path,
// and sample rate, and resolves a language to a baseline fallback voice.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/book-expert/voice-service/internal/core"
	"github.com/book-expert/voice-service/internal/emotion"
)

const derivedIDLength = 8

// Defaults carries the document-level default knobs.
type Defaults struct {
	SampleRate    int   `json:"sample_rate"`
	EnableProsody *bool `json:"enable_prosody"`
}

type providerExtras struct {
	ExtraModels []extraModel `json:"extra_models"`
}

type extraModel struct {
	Model      string `json:"model"`
	Lang       string `json:"lang"`
	SampleRate int    `json:"sample_rate"`
}

// document is the on-disk shape of the unified configuration document.
type document struct {
	Voices   []core.Voice               `json:"voices"`
	Emotions map[string]json.RawMessage `json:"emotions"`
	Defaults Defaults                   `json:"defaults"`
	Coqui    providerExtras             `json:"coqui"`
}

// Catalog is the immutable, indexed voice catalog.
type Catalog struct {
	voices   map[string]core.Voice
	ordered  []core.Voice
	emotions map[string]emotion.Preset
	defaults Defaults
	baseline string
}

// Load reads the unified document at path, merges the legacy document at
// legacyPath (if non-empty), and builds the indexed catalog. The baseline
// argument names the fallback provider used by FindFallback.
func Load(path, legacyPath, baseline string, log *logger.Logger) (*Catalog, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, err
	}

	if legacyPath != "" {
		legacy, legacyErr := readDocument(legacyPath)
		if legacyErr != nil {
			// The legacy document is a compatibility aid, not a
			// requirement; log and continue with the unified one.
			log.Warn("Skipping legacy voices document %s: %v", legacyPath, legacyErr)
		} else {
			doc.Voices = mergeVoices(doc.Voices, legacy.Voices)
		}
	}

	cat := build(doc, baseline)

	log.Info("Voice catalog loaded: %d voices, %d custom emotions", len(cat.ordered), len(cat.emotions))

	return cat, nil
}

func readDocument(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read voices document %s: %w", path, err)
	}

	var doc document

	err = json.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse voices document %s: %w", path, err)
	}

	return &doc, nil
}

// mergeVoices appends legacy entries whose ids are not already declared
// in the unified document. The unified document always wins on conflict.
func mergeVoices(unified, legacy []core.Voice) []core.Voice {
	seen := make(map[string]struct{}, len(unified))
	for _, voice := range unified {
		seen[voice.ID] = struct{}{}
	}

	for _, voice := range legacy {
		if _, ok := seen[voice.ID]; ok {
			continue
		}

		unified = append(unified, voice)
	}

	return unified
}

func build(doc *document, baseline string) *Catalog {
	cat := &Catalog{
		voices:   make(map[string]core.Voice, len(doc.Voices)),
		ordered:  nil,
		emotions: emotion.ParsePresets(doc.Emotions),
		defaults: doc.Defaults,
		baseline: strings.ToLower(baseline),
	}

	for _, extra := range doc.Coqui.ExtraModels {
		doc.Voices = append(doc.Voices, deriveVoice(extra))
	}

	defaultRate := doc.Defaults.SampleRate
	if defaultRate <= 0 {
		defaultRate = core.DefaultSampleRate
	}

	for _, voice := range doc.Voices {
		voice.Provider = strings.ToLower(voice.Provider)
		if voice.SampleRate <= 0 {
			voice.SampleRate = defaultRate
		}

		if _, exists := cat.voices[voice.ID]; exists {
			continue
		}

		cat.voices[voice.ID] = voice
		cat.ordered = append(cat.ordered, voice)
	}

	return cat
}

// deriveVoice turns a dynamically-declared extra model into a Voice
// record with a generated id.
func deriveVoice(extra extraModel) core.Voice {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:derivedIDLength]

	return core.Voice{
		ID:         fmt.Sprintf("coqui-%s-%s", extra.Lang, suffix),
		Provider:   "coqui",
		Lang:       extra.Lang,
		Model:      extra.Model,
		Config:     "",
		SampleRate: extra.SampleRate,
	}
}

// Resolve returns the voice registered under the given id.
func (c *Catalog) Resolve(voiceID string) (core.Voice, error) {
	voice, ok := c.voices[voiceID]
	if !ok {
		return core.Voice{}, fmt.Errorf("%w: %q", core.ErrVoiceNotFound, voiceID)
	}

	return voice, nil
}

// FindFallback returns the first catalog entry whose provider is the
// baseline provider and whose language matches exactly.
func (c *Catalog) FindFallback(lang string) (core.Voice, bool) {
	for _, voice := range c.ordered {
		if voice.Provider == c.baseline && voice.Lang == lang {
			return voice, true
		}
	}

	return core.Voice{}, false
}

// Emotions returns the custom emotion presets declared in the document.
func (c *Catalog) Emotions() map[string]emotion.Preset {
	return c.emotions
}

// Defaults returns the document-level defaults.
func (c *Catalog) Defaults() Defaults {
	return c.defaults
}

// Voices returns the catalog entries in document order.
func (c *Catalog) Voices() []core.Voice {
	return c.ordered
}

// BaselineProvider returns the configured universal fallback provider.
func (c *Catalog) BaselineProvider() string {
	return c.baseline
}
