// Command execution for CLI commands.
//
// Information Hiding:
// - Entity lookup and turn dispatch hidden
// - Interactive loop hidden
// - Output formatting hidden

package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"strings"

	"github.com/richinex/xaiconv/config"
	"github.com/richinex/xaiconv/conversation"
	"github.com/richinex/xaiconv/entity"
	"github.com/richinex/xaiconv/llm"
)

// ChatOptions configures Chat.
type ChatOptions struct {
	SubentryID     string
	ConversationID string
	Attachments    []string
	ExtraPrompt    string
	ShowThinking   bool
	Verbose        bool
}

// Chat sends message to a conversation agent and streams the reply to out.
// With an empty message it reads one message per line from in until EOF
// or "exit", continuing the same conversation.
func Chat(ctx context.Context, sess *Session, message string, in io.Reader, out io.Writer, opts ChatOptions) error {
	agent, ok := sess.Runtime.Conversation(opts.SubentryID)
	if !ok {
		return fmt.Errorf("no conversation agent %q", opts.SubentryID)
	}

	p := newPrinter(out, opts.ShowThinking, opts.Verbose)
	attachments := toAttachments(opts.Attachments)
	conversationID := opts.ConversationID

	turn := func(text string) error {
		res, err := agent.Process(ctx, entity.Input{
			Text:              text,
			ConversationID:    conversationID,
			Attachments:       attachments,
			ExtraSystemPrompt: opts.ExtraPrompt,
			Listener:          p,
			OnToolResult:      p.toolResult,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		p.usage(res.Usage)
		conversationID = res.ConversationID
		attachments = nil
		return nil
	}

	if message != "" {
		if err := turn(message); err != nil {
			return err
		}
		fmt.Fprintf(out, "(conversation %s)\n", conversationID)
		return nil
	}

	fmt.Fprintf(out, "Chatting with %s. Type 'exit' to quit.\n", agent.Subentry().Title)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		switch text {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprintf(out, "(conversation %s)\n", conversationID)
			return nil
		}
		if err := turn(text); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	if conversationID != "" {
		fmt.Fprintf(out, "\n(conversation %s)\n", conversationID)
	}
	return nil
}

// DataOptions configures GenerateData.
type DataOptions struct {
	SubentryID   string
	Name         string
	Instructions string
	SchemaPath   string
	Attachments  []string
}

// GenerateData runs a data task and prints the result. Structured results
// are printed as indented JSON.
func GenerateData(ctx context.Context, sess *Session, out io.Writer, opts DataOptions) error {
	task, ok := sess.Runtime.Task(opts.SubentryID)
	if !ok {
		return fmt.Errorf("no AI task entity %q", opts.SubentryID)
	}

	var schema json.RawMessage
	if opts.SchemaPath != "" {
		data, err := os.ReadFile(opts.SchemaPath)
		if err != nil {
			return fmt.Errorf("failed to read schema: %w", err)
		}
		schema = data
	}

	res, err := task.GenerateData(ctx, entity.DataTask{
		Name:         opts.Name,
		Instructions: opts.Instructions,
		Attachments:  toAttachments(opts.Attachments),
		Structure:    schema,
	})
	if err != nil {
		return err
	}

	if text, ok := res.Data.(string); ok {
		fmt.Fprintln(out, text)
		return nil
	}
	pretty, err := json.MarshalIndent(res.Data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(out, string(pretty))
	return nil
}

// ImageOptions configures GenerateImage.
type ImageOptions struct {
	SubentryID string
	Name       string
	Prompt     string
	// OutputPath defaults to <name>.<ext> for the returned image type.
	OutputPath string
}

// GenerateImage runs an image task and writes the image to disk.
func GenerateImage(ctx context.Context, sess *Session, out io.Writer, opts ImageOptions) error {
	task, ok := sess.Runtime.Task(opts.SubentryID)
	if !ok {
		return fmt.Errorf("no AI task entity %q", opts.SubentryID)
	}

	res, err := task.GenerateImage(ctx, entity.ImageTask{Name: opts.Name, Instructions: opts.Prompt})
	if err != nil {
		return err
	}

	path := opts.OutputPath
	if path == "" {
		path = imageFileName(opts.Name, res.MimeType)
	}
	if err := os.WriteFile(path, res.Image, 0o644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}

	fmt.Fprintf(out, "Saved %s (%s, %d bytes)\n", path, res.MimeType, len(res.Image))
	if res.RevisedPrompt != "" {
		fmt.Fprintf(out, "Revised prompt: %s\n", res.RevisedPrompt)
	}
	return nil
}

func imageFileName(name, mimeType string) string {
	if name == "" {
		name = "image"
	}
	ext := ".jpg"
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		ext = exts[0]
		if mimeType == "image/jpeg" {
			ext = ".jpg"
		}
	}
	return name + ext
}

// Models lists the models the API key can use. Models known to accept a
// reasoning effort are marked.
func Models(ctx context.Context, sess *Session, out io.Writer) error {
	ids, err := sess.Runtime.Provider.ListModels(ctx)
	if err != nil {
		return err
	}
	table := llm.Models()
	for _, id := range ids {
		if table.SupportsReasoning(id) {
			fmt.Fprintf(out, "%s (reasoning effort)\n", id)
			continue
		}
		fmt.Fprintln(out, id)
	}
	return nil
}

// Validate checks the API key of the entry without setting it up.
func Validate(ctx context.Context, opts Options, out io.Writer) error {
	entry, err := LoadEntry(opts)
	if err != nil && !errors.Is(err, config.ErrMissingAPIKey) {
		return err
	}
	if err := entity.ValidateAPIKey(ctx, llm.ClientConfig{APIKey: entry.APIKey, BaseURL: entry.BaseURL}); err != nil {
		return err
	}
	fmt.Fprintln(out, "API key is valid")
	return nil
}

// Conversations lists stored conversation ids, most recent first.
func Conversations(ctx context.Context, sess *Session, out io.Writer) error {
	ids, err := sess.Store.ListConversations(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(out, id)
	}
	return nil
}

// History prints a stored conversation.
func History(ctx context.Context, sess *Session, id string, out io.Writer) error {
	items, err := sess.Store.Load(ctx, id)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("conversation %s not found", id)
	}
	for _, item := range items {
		switch it := item.(type) {
		case conversation.System:
			fmt.Fprintf(out, "[system] %s\n", firstLine(it.Content))
		case conversation.User:
			fmt.Fprintf(out, "[user] %s\n", it.Content)
		case conversation.Assistant:
			for _, call := range it.ToolCalls {
				fmt.Fprintf(out, "[tool call] %s %s\n", call.Name, compact(call.Args))
			}
			if it.Content != "" {
				fmt.Fprintf(out, "[assistant] %s\n", it.Content)
			}
		case conversation.ToolResult:
			fmt.Fprintf(out, "[tool result] %s %s\n", it.ToolName, compact(it.Result))
		}
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

func toAttachments(paths []string) []conversation.Attachment {
	if len(paths) == 0 {
		return nil
	}
	out := make([]conversation.Attachment, len(paths))
	for i, p := range paths {
		out[i] = conversation.Attachment{Path: p}
	}
	return out
}

// ListTools prints the tools of every available tool API.
func ListTools(sess *Session, out io.Writer, verbose bool) {
	for _, api := range sess.APIs {
		fmt.Fprintf(out, "%s:\n", api.ID)
		for _, meta := range api.Tools() {
			fmt.Fprintf(out, "  %s - %s\n", meta.Name, firstLine(meta.Description))
			if !verbose {
				continue
			}
			if schema, err := api.Serialize(meta); err == nil {
				fmt.Fprintf(out, "    %s\n", compact(schema))
			}
		}
	}
}
