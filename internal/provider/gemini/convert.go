package gemini

import (
	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/aide-agent/aide/internal/chat"
	"github.com/aide-agent/aide/internal/tool"
)

// toContents converts a conversation to Gemini content, preserving
// message order. Tool results need the original function name, which
// Gemini requires but our result blocks do not carry, so it is recovered
// from the preceding tool-use blocks.
func toContents(messages []chat.Message) []*genai.Content {
	callNames := make(map[string]string)
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		content := toContent(msg, callNames)
		if content != nil {
			contents = append(contents, content)
		}
	}
	return contents
}

func toContent(msg chat.Message, callNames map[string]string) *genai.Content {
	role := "user"
	if msg.Role == chat.RoleAssistant {
		role = "model"
	}

	var parts []*genai.Part
	for _, block := range msg.Content {
		switch b := block.(type) {
		case chat.TextBlock:
			if b.Text != "" {
				parts = append(parts, genai.NewPartFromText(b.Text))
			}
		case chat.ToolUseBlock:
			callNames[b.ID] = b.Name
			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{
					ID:   b.ID,
					Name: b.Name,
					Args: b.Input,
				},
			})
		case chat.ToolResultBlock:
			response := map[string]any{"content": b.Content}
			if b.IsError {
				response["is_error"] = true
			}
			parts = append(parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       b.ToolUseID,
					Name:     callNames[b.ToolUseID],
					Response: response,
				},
			})
		}
	}

	if len(parts) == 0 {
		return nil
	}
	return &genai.Content{Role: role, Parts: parts}
}

// fromCandidate converts the first candidate's parts back to content
// blocks. Gemini omits function-call IDs, so missing ones are minted.
func fromCandidate(candidate *genai.Candidate) []chat.ContentBlock {
	var blocks []chat.ContentBlock
	if candidate.Content == nil {
		return blocks
	}
	for _, part := range candidate.Content.Parts {
		switch {
		case part.Text != "":
			blocks = append(blocks, chat.TextBlock{Text: part.Text})
		case part.FunctionCall != nil:
			id := part.FunctionCall.ID
			if id == "" {
				id = uuid.NewString()
			}
			blocks = append(blocks, chat.ToolUseBlock{
				ID:    id,
				Name:  part.FunctionCall.Name,
				Input: part.FunctionCall.Args,
			})
		}
	}
	return blocks
}

// toTools converts tool declarations for the request.
func toTools(decls []tool.Declaration) []*genai.Tool {
	if len(decls) == 0 {
		return nil
	}
	fns := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, d := range decls {
		fd := &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
		}
		if d.Parameters != nil {
			fd.Parameters = toSchema(d.Parameters)
		}
		fns = append(fns, fd)
	}
	return []*genai.Tool{{FunctionDeclarations: fns}}
}

func toSchema(s *tool.Schema) *genai.Schema {
	out := &genai.Schema{
		Type:        toType(s.Type),
		Description: s.Description,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toSchema(prop)
		}
	}
	if s.Items != nil {
		out.Items = toSchema(s.Items)
	}
	if len(s.Required) > 0 {
		out.Required = s.Required
	}
	if len(s.Enum) > 0 {
		out.Enum = s.Enum
	}
	return out
}

func toType(t tool.Type) genai.Type {
	switch t {
	case tool.TypeString:
		return genai.TypeString
	case tool.TypeNumber:
		return genai.TypeNumber
	case tool.TypeInteger:
		return genai.TypeInteger
	case tool.TypeBoolean:
		return genai.TypeBoolean
	case tool.TypeArray:
		return genai.TypeArray
	case tool.TypeObject:
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// stopReason maps the finish reason onto the machine's vocabulary.
func stopReason(candidate *genai.Candidate, blocks []chat.ContentBlock) string {
	for _, b := range blocks {
		if _, ok := b.(chat.ToolUseBlock); ok {
			return "tool_use"
		}
	}
	if candidate.FinishReason == genai.FinishReasonMaxTokens {
		return "max_tokens"
	}
	return "end_turn"
}
