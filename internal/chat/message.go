package chat

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentBlock is the interface for all message content blocks.
// Consumers handle blocks via type switch.
type ContentBlock interface {
	isContentBlock()
}

// TextBlock is plain text content.
type TextBlock struct {
	Text string
}

func (TextBlock) isContentBlock() {}

// ToolUseBlock is a tool invocation requested by the model.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input map[string]any
}

func (ToolUseBlock) isContentBlock() {}

// ToolResultBlock carries the output of a completed tool call back to the model.
type ToolResultBlock struct {
	ToolUseID string
	Content   string
	IsError   bool
}

func (ToolResultBlock) isContentBlock() {}

// Message is a single conversational turn. Messages are immutable once
// appended to a conversation; build new ones with the constructors below.
type Message struct {
	Role    Role
	Content []ContentBlock
}

// UserMessage builds a user turn with text content.
func UserMessage(text string) Message {
	return Message{
		Role:    RoleUser,
		Content: []ContentBlock{TextBlock{Text: text}},
	}
}

// AssistantMessage builds an assistant turn from the model's content blocks.
func AssistantMessage(content []ContentBlock) Message {
	return Message{
		Role:    RoleAssistant,
		Content: content,
	}
}

// ToolResultMessage builds a tool turn carrying a successful result.
func ToolResultMessage(toolUseID, content string) Message {
	return Message{
		Role: RoleTool,
		Content: []ContentBlock{ToolResultBlock{
			ToolUseID: toolUseID,
			Content:   content,
		}},
	}
}

// ToolErrorMessage builds a tool turn carrying a failed result.
func ToolErrorMessage(toolUseID, content string) Message {
	return Message{
		Role: RoleTool,
		Content: []ContentBlock{ToolResultBlock{
			ToolUseID: toolUseID,
			Content:   content,
			IsError:   true,
		}},
	}
}

// Text concatenates the message's text blocks.
func (m Message) Text() string {
	var out string
	for _, block := range m.Content {
		if t, ok := block.(TextBlock); ok {
			out += t.Text
		}
	}
	return out
}

// ToolCall is a single requested tool invocation, parsed from an
// assistant message. Immutable after creation; arguments are validated
// lazily by the tool implementation.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]any
}

// ToolCalls extracts the tool invocations requested by an assistant message.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, block := range m.Content {
		if tu, ok := block.(ToolUseBlock); ok {
			calls = append(calls, ToolCall{ID: tu.ID, Name: tu.Name, Input: tu.Input})
		}
	}
	return calls
}

// ModelResponse is the shape of a completed model turn as consumed by the
// state machine.
type ModelResponse struct {
	Content    []ContentBlock
	StopReason string
}
