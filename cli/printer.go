// Terminal output for streamed turns.
//
// Information Hiding:
// - Delta rendering rules hidden
// - Tool call and result formatting hidden

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/richinex/xaiconv/agent"
	"github.com/richinex/xaiconv/conversation"
)

// printer writes streamed deltas to out as they arrive.
type printer struct {
	out      io.Writer
	thinking bool
	verbose  bool
}

func newPrinter(out io.Writer, thinking, verbose bool) *printer {
	return &printer{out: out, thinking: thinking, verbose: verbose}
}

// Accept implements conversation.DeltaSink.
func (p *printer) Accept(_ context.Context, d conversation.Delta) error {
	switch d.Kind {
	case conversation.DeltaText:
		fmt.Fprint(p.out, d.Text)
	case conversation.DeltaReasoning:
		if p.thinking {
			fmt.Fprint(p.out, d.Text)
		}
	case conversation.DeltaProgress:
		fmt.Fprintln(p.out, d.Text)
	case conversation.DeltaToolCalls:
		if p.verbose {
			for _, call := range d.ToolCalls {
				fmt.Fprintf(p.out, "\n→ %s %s\n", call.Name, compact(call.Args))
			}
		}
	}
	return nil
}

// toolResult prints each tool result when verbose.
func (p *printer) toolResult(r conversation.ToolResult) {
	if p.verbose {
		fmt.Fprintf(p.out, "← %s %s\n", r.ToolName, compact(r.Result))
	}
}

func (p *printer) usage(u *agent.UsageStats) {
	if !p.verbose || u == nil {
		return
	}
	fmt.Fprintf(p.out, "(tokens: %s in, %s out)\n", intString(u.InputTokens), intString(u.OutputTokens))
}

func compact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func intString(n *int) string {
	if n == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *n)
}
