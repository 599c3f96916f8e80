// Package conversation defines the chat history exchanged with the agent.
//
// Information Hiding:
// - Items form a closed set; only this package can add variants
// - Streamed deltas are assembled into items by Log
// - Tool calls are executed by Log through a tools.API, never by the agent

package conversation

// Item is one entry of the conversation history: System, User, Assistant or
// ToolResult.
type Item interface {
	item()
}

// System carries instructions for the model.
type System struct {
	Content string `json:"content"`
}

// User is a message from the person talking to the agent.
type User struct {
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Assistant is a model reply, possibly requesting tool calls.
type Assistant struct {
	Content   string      `json:"content,omitempty"`
	Thinking  string      `json:"thinking,omitempty"`
	ToolCalls []ToolInput `json:"tool_calls,omitempty"`
}

// ToolResult answers one tool call.
type ToolResult struct {
	ToolCallID string         `json:"tool_call_id"`
	ToolName   string         `json:"tool_name"`
	Result     map[string]any `json:"result"`
}

func (System) item()     {}
func (User) item()       {}
func (Assistant) item()  {}
func (ToolResult) item() {}

// Attachment references a file sent along with a user message.
type Attachment struct {
	Path     string `json:"path"`
	MimeType string `json:"mime_type"`
}

// ToolInput is a tool call requested by the model. Args holds the decoded
// arguments; arguments that were not valid JSON are kept under
// RawArgumentsKey.
type ToolInput struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// RawArgumentsKey holds tool arguments that could not be decoded.
const RawArgumentsKey = "raw_arguments"
