package media

import (
	"context"
	"fmt"

	"github.com/deepwander/deepwander/internal/graph"
)

const pptPrompt = `You are a presentation writer. Turn the content below into a Marp slide deck.

Rules:
- Start with the Marp front matter (marp: true, a theme and paginate: true).
- Separate slides with "---" lines.
- Open with a title slide and close with a takeaways slide.
- Keep each slide to a handful of bullet points.
- Respond with the Markdown only, no commentary.

CONTENT:
%s`

// PPTGenerator renders report content as a Marp-compatible Markdown deck.
// Clients feed the output to the Marp CLI to get the final slides.
type PPTGenerator struct {
	llm *graph.LLMClient
}

func NewPPTGenerator(llm *graph.LLMClient) *PPTGenerator {
	return &PPTGenerator{llm: llm}
}

func (p *PPTGenerator) Generate(ctx context.Context, content string) ([]byte, error) {
	raw, err := p.llm.Complete(ctx, []graph.Message{
		{Role: "user", Content: fmt.Sprintf(pptPrompt, content)},
	})
	if err != nil {
		return nil, fmt.Errorf("generate deck: %w", err)
	}
	return []byte(stripFence(raw)), nil
}
