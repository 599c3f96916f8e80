package storage

import (
	"encoding/json"
	"fmt"

	"github.com/richinex/xaiconv/conversation"
)

// Item kinds as stored.
const (
	kindSystem     = "system"
	kindUser       = "user"
	kindAssistant  = "assistant"
	kindToolResult = "tool_result"
)

// EncodeItem returns the stored kind and JSON payload of item.
func EncodeItem(item conversation.Item) (string, []byte, error) {
	var kind string
	switch item.(type) {
	case conversation.System:
		kind = kindSystem
	case conversation.User:
		kind = kindUser
	case conversation.Assistant:
		kind = kindAssistant
	case conversation.ToolResult:
		kind = kindToolResult
	default:
		return "", nil, fmt.Errorf("unsupported conversation item %T", item)
	}

	payload, err := json.Marshal(item)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode %s item: %w", kind, err)
	}
	return kind, payload, nil
}

// DecodeItem rebuilds an item from its stored kind and payload.
func DecodeItem(kind string, payload []byte) (conversation.Item, error) {
	switch kind {
	case kindSystem:
		return decodeAs[conversation.System](kind, payload)
	case kindUser:
		return decodeAs[conversation.User](kind, payload)
	case kindAssistant:
		return decodeAs[conversation.Assistant](kind, payload)
	case kindToolResult:
		return decodeAs[conversation.ToolResult](kind, payload)
	default:
		return nil, fmt.Errorf("unknown conversation item kind %q", kind)
	}
}

func decodeAs[T conversation.Item](kind string, payload []byte) (conversation.Item, error) {
	var item T
	if err := json.Unmarshal(payload, &item); err != nil {
		return nil, fmt.Errorf("failed to decode %s item: %w", kind, err)
	}
	return item, nil
}
