// Package provider abstracts the model backend behind a single Generate
// call.
package provider

import (
	"context"

	"github.com/aide-agent/aide/internal/chat"
	"github.com/aide-agent/aide/internal/tool"
)

// Provider is the interface to the language model.
type Provider interface {
	// Generate sends the conversation and the available tool declarations
	// and returns the model's next turn.
	Generate(ctx context.Context, messages []chat.Message, tools []tool.Declaration) (*chat.ModelResponse, error)
}
