package media

import (
	"context"
	"fmt"

	"github.com/deepwander/deepwander/internal/graph"
)

// prosePrompts maps a writing option to its system prompt.
var prosePrompts = map[string]string{
	"continue": "You are a writing assistant. Continue the text naturally from where it stops. Respond with the continuation only.",
	"improve":  "You are a writing assistant. Improve the clarity and flow of the text while keeping its meaning. Respond with the rewritten text only.",
	"shorter":  "You are a writing assistant. Shorten the text while keeping every key point. Respond with the shortened text only.",
	"longer":   "You are a writing assistant. Expand the text with more detail and examples. Respond with the expanded text only.",
	"fix":      "You are a writing assistant. Fix grammar, spelling and punctuation without changing the meaning. Respond with the corrected text only.",
	"zap":      "You are a writing assistant. Apply the user's command to the text. Respond with the result only.",
}

// ValidOption reports whether the writing option is known.
func ValidOption(option string) bool {
	_, ok := prosePrompts[option]
	return ok
}

// ProseWriter streams rewritten prose for the editor's writing commands.
type ProseWriter struct {
	llm *graph.LLMClient
}

func NewProseWriter(llm *graph.LLMClient) *ProseWriter {
	return &ProseWriter{llm: llm}
}

// Stream runs the given option over the prompt text, invoking fn for each
// token. Command is only consulted by the "zap" option.
func (p *ProseWriter) Stream(ctx context.Context, prompt, option, command string, fn func(delta string) error) error {
	system, ok := prosePrompts[option]
	if !ok {
		return fmt.Errorf("unknown prose option %q", option)
	}
	user := prompt
	if option == "zap" {
		user = fmt.Sprintf("COMMAND: %s\n\nTEXT:\n%s", command, prompt)
	}
	_, err := p.llm.StreamChat(ctx, []graph.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, fn)
	return err
}
