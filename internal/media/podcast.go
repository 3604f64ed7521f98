package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/deepwander/deepwander/internal/graph"
	"github.com/deepwander/deepwander/internal/tts"
)

const podcastScriptPrompt = `You are a podcast script writer. Turn the content below into a lively two-host dialogue. Keep each line short and conversational, and alternate speakers.

Respond ONLY with valid JSON:
{
  "locale": "en",
  "lines": [
    {"speaker": "male", "paragraph": "..."},
    {"speaker": "female", "paragraph": "..."}
  ]
}

CONTENT:
%s`

// Script is a podcast dialogue produced from report content.
type Script struct {
	Locale string       `json:"locale"`
	Lines  []ScriptLine `json:"lines"`
}

type ScriptLine struct {
	Speaker   string `json:"speaker"`
	Paragraph string `json:"paragraph"`
}

// PodcastGenerator turns report text into a two-voice audio file.
type PodcastGenerator struct {
	llm    *graph.LLMClient
	tts    *tts.Client
	logger *log.Logger

	maleVoice   string
	femaleVoice string
}

func NewPodcastGenerator(llm *graph.LLMClient, ttsClient *tts.Client, logger *log.Logger) *PodcastGenerator {
	if logger == nil {
		logger = log.New(log.Writer(), "[MEDIA] ", log.LstdFlags)
	}
	return &PodcastGenerator{
		llm:         llm,
		tts:         ttsClient,
		logger:      logger,
		maleVoice:   "BV002_streaming",
		femaleVoice: "BV001_streaming",
	}
}

// Generate writes a script from the content, synthesizes each line and
// returns the concatenated MP3 audio.
func (p *PodcastGenerator) Generate(ctx context.Context, content string) ([]byte, error) {
	if p.tts == nil {
		return nil, tts.ErrNotConfigured
	}
	script, err := p.writeScript(ctx, content)
	if err != nil {
		return nil, err
	}

	var audio bytes.Buffer
	for i, line := range script.Lines {
		voice := p.maleVoice
		if line.Speaker == "female" {
			voice = p.femaleVoice
		}
		segment, err := p.tts.Synthesize(ctx, line.Paragraph, tts.Params{VoiceType: voice, SpeedRatio: 1.05})
		if err != nil {
			return nil, fmt.Errorf("synthesize line %d: %w", i, err)
		}
		audio.Write(segment)
	}
	return audio.Bytes(), nil
}

func (p *PodcastGenerator) writeScript(ctx context.Context, content string) (Script, error) {
	raw, err := p.llm.Complete(ctx, []graph.Message{
		{Role: "user", Content: fmt.Sprintf(podcastScriptPrompt, content)},
	})
	if err != nil {
		return Script{}, fmt.Errorf("write script: %w", err)
	}
	var script Script
	if err := json.Unmarshal([]byte(stripFence(raw)), &script); err != nil {
		return Script{}, fmt.Errorf("parse script: %w", err)
	}
	if len(script.Lines) == 0 {
		return Script{}, fmt.Errorf("script has no lines")
	}
	return script, nil
}

// stripFence removes a surrounding markdown code fence if the model added one.
func stripFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
