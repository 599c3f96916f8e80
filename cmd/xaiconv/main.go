// Package main provides the xaiconv CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/xaiconv/cli"
)

var opts cli.Options

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "xaiconv",
		Short: "Talk to xAI Grok as a smart-home conversation agent",
		Long: `A CLI for the xAI conversation integration.

Conversation agents stream Grok replies and control simulated devices
through the assist tool API (plus any configured MCP servers). AI task
entities generate text, structured data and images.

Without --config the entry is built from XAI_* environment variables.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to entry YAML file")
	rootCmd.PersistentFlags().StringVar(&opts.DBPath, "db", ".xaiconv/conversations.db", "Database path for conversations")
	rootCmd.PersistentFlags().StringVar(&opts.DevicesPath, "devices", "", "Path to devices YAML file")
	rootCmd.PersistentFlags().StringVar(&opts.MCPConfigPath, "mcp-config", "", "Path to MCP config file")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show tool calls, usage and debug logs")

	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(generateDataCmd())
	rootCmd.AddCommand(generateImageCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(conversationsCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withSession opens a session for the duration of run.
func withSession(cmd *cobra.Command, run func(*cli.Session) error) error {
	sess, err := cli.Open(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer sess.Close()
	return run(sess)
}

func chatCmd() *cobra.Command {
	var chat cli.ChatOptions

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send a message, or chat interactively without one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var message string
			if len(args) == 1 {
				message = args[0]
			}
			chat.Verbose = opts.Verbose
			return withSession(cmd, func(sess *cli.Session) error {
				return cli.Chat(cmd.Context(), sess, message, os.Stdin, os.Stdout, chat)
			})
		},
	}

	cmd.Flags().StringVar(&chat.SubentryID, "agent", "", "Conversation subentry id (default: first)")
	cmd.Flags().StringVar(&chat.ConversationID, "conversation", "", "Continue a stored conversation")
	cmd.Flags().StringArrayVarP(&chat.Attachments, "attach", "a", nil, "Image to attach to the first message (repeatable)")
	cmd.Flags().StringVar(&chat.ExtraPrompt, "extra-prompt", "", "Extra system prompt text")
	cmd.Flags().BoolVar(&chat.ShowThinking, "thinking", false, "Print reasoning text")

	return cmd
}

func generateDataCmd() *cobra.Command {
	var data cli.DataOptions

	cmd := &cobra.Command{
		Use:   "generate-data [instructions]",
		Short: "Run an AI data task, optionally constrained by a JSON schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data.Instructions = args[0]
			return withSession(cmd, func(sess *cli.Session) error {
				return cli.GenerateData(cmd.Context(), sess, os.Stdout, data)
			})
		},
	}

	cmd.Flags().StringVar(&data.SubentryID, "task", "", "AI task subentry id (default: first)")
	cmd.Flags().StringVar(&data.Name, "name", "data", "Task name")
	cmd.Flags().StringVar(&data.SchemaPath, "schema", "", "Path to JSON schema for a structured reply")
	cmd.Flags().StringArrayVarP(&data.Attachments, "attach", "a", nil, "Image attachment (repeatable)")

	return cmd
}

func generateImageCmd() *cobra.Command {
	var image cli.ImageOptions

	cmd := &cobra.Command{
		Use:   "generate-image [prompt]",
		Short: "Generate an image and save it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image.Prompt = args[0]
			return withSession(cmd, func(sess *cli.Session) error {
				return cli.GenerateImage(cmd.Context(), sess, os.Stdout, image)
			})
		},
	}

	cmd.Flags().StringVar(&image.SubentryID, "task", "", "AI task subentry id (default: first)")
	cmd.Flags().StringVar(&image.Name, "name", "image", "Task name, also the default file name")
	cmd.Flags().StringVarP(&image.OutputPath, "output", "o", "", "Output file")

	return cmd
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models available to the API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(sess *cli.Session) error {
				return cli.Models(cmd.Context(), sess, os.Stdout)
			})
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the API key can reach xAI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Validate(cmd.Context(), opts, os.Stdout)
		},
	}
}

func toolsCmd() *cobra.Command {
	var schemas bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(sess *cli.Session) error {
				cli.ListTools(sess, os.Stdout, schemas)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&schemas, "schemas", "s", false, "Show tool parameter schemas")

	return cmd
}

func conversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conversations [id]",
		Short: "List stored conversations, or print one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(sess *cli.Session) error {
				if len(args) == 1 {
					return cli.History(cmd.Context(), sess, args[0], os.Stdout)
				}
				return cli.Conversations(cmd.Context(), sess, os.Stdout)
			})
		},
	}
	return cmd
}
