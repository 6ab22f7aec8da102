// Package main provides a terminal client for the voice widget: a widget
// session driven by typed lines, optionally joined to a relay session.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xiaot623/voicewidget/internal/domain"
	"github.com/xiaot623/voicewidget/internal/embed"
	"github.com/xiaot623/voicewidget/internal/extract"
	"github.com/xiaot623/voicewidget/internal/protocol"
	"github.com/xiaot623/voicewidget/internal/widget"
)

type chatOptions struct {
	api      string
	name     string
	color    string
	position string
	platform string
	relay    string
	session  string
	origin   string
	tts      string
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:          "voicewidget-cli",
		Short:        "Terminal client for the voice shopping widget",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newChatCmd(), newHostCmd(), newExtractCmd(), newSnippetCmd())
	return root
}

func newChatCmd() *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant, one line per utterance",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runChat(ctx, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.api, "api", "http://localhost:3000", "chat bridge base URL")
	f.StringVar(&opts.name, "name", "", "assistant display name")
	f.StringVar(&opts.color, "color", "", "accent color")
	f.StringVar(&opts.position, "position", "", "screen corner")
	f.StringVar(&opts.platform, "platform", "", "store platform")
	f.StringVar(&opts.relay, "relay", "", "relay WebSocket URL, e.g. ws://localhost:3000/relay")
	f.StringVar(&opts.session, "session", "", "relay session to join")
	f.StringVar(&opts.origin, "origin", "", "Origin header sent to the relay")
	f.StringVar(&opts.tts, "tts", "", "text-to-speech command reading stdin, e.g. espeak")
	return cmd
}

func runChat(ctx context.Context, opts *chatOptions, in io.Reader, out io.Writer) error {
	cfg := domain.WidgetConfig{
		DisplayName:  opts.name,
		AccentColor:  opts.color,
		ScreenCorner: domain.ScreenCorner(opts.position),
		APIBaseURL:   opts.api,
		Platform:     opts.platform,
	}.Normalize()

	capture := &LineCapture{}
	printer := NewPrinter(out, cfg.DisplayName)

	var relay *RelayClient
	session := widget.NewSession(widget.Options{
		Config:   cfg,
		Capture:  capture,
		Playback: NewCommandPlayback(opts.tts),
		Client:   widget.NewHTTPChatClient(cfg.APIBaseURL),
		Embedded: opts.relay != "",
		OnClose: func() {
			if relay != nil {
				if err := relay.CloseWidget(); err != nil {
					log.Warn().Err(err).Msg("failed to send close_widget")
				}
			}
		},
		OnChange: printer.Render,
	})
	session.Open()

	if opts.relay != "" {
		var err error
		relay, err = NewRelayClient(opts.relay, opts.origin)
		if err != nil {
			return fmt.Errorf("connect relay: %w", err)
		}
		defer relay.Close()

		if err := relay.Hello(opts.session, protocol.RoleWidget); err != nil {
			return err
		}
		go relay.Read(RelayHandlers{OnContext: session.UpdateContext})
		if err := relay.RequestContext(); err != nil {
			return fmt.Errorf("request context: %w", err)
		}
		fmt.Fprintf(out, "Joined relay session %s\n", relay.SessionID())
	}

	fmt.Fprintf(out, "%s is listening. Type a message and press Enter.\n", cfg.DisplayName)
	fmt.Fprintln(out, "Commands: /1../9 pick a suggestion, /context, /close, /quit")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case line == "/close":
			session.Close()
			return nil
		case line == "/context":
			printContext(out, session.Snapshot().Context)
		case strings.HasPrefix(line, "/"):
			if err := chooseSuggestion(ctx, session, strings.TrimPrefix(line, "/")); err != nil {
				fmt.Fprintf(out, "! %v\n", err)
			}
		default:
			if err := session.StartListening(); err != nil {
				fmt.Fprintf(out, "! %v\n", err)
				continue
			}
			capture.Emit(line)
		}
	}
}

func chooseSuggestion(ctx context.Context, session *widget.Session, arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("unknown command /%s", arg)
	}
	messages := session.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role != domain.RoleAssistant {
			continue
		}
		if n < 1 || n > len(m.Suggestions) {
			return fmt.Errorf("no suggestion %d", n)
		}
		return session.ChooseSuggestion(ctx, m.Suggestions[n-1])
	}
	return fmt.Errorf("no suggestions yet")
}

func printContext(out io.Writer, pc *domain.PageContext) {
	if pc == nil {
		fmt.Fprintln(out, "No page context received.")
		return
	}
	data, _ := json.MarshalIndent(pc, "", "  ")
	fmt.Fprintln(out, string(data))
}

func newExtractCmd() *cobra.Command {
	var pageURL string
	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Print the page context extracted from an HTML file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			pc := extract.FromHTML(in, pageURL)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(pc)
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "", "URL the page was served from")
	return cmd
}

func newSnippetCmd() *cobra.Command {
	var (
		api      string
		name     string
		color    string
		position string
		id       string
		shopify  bool
	)
	cmd := &cobra.Command{
		Use:   "snippet",
		Short: "Print the embed snippet for a store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := domain.WidgetConfig{
				DisplayName:  name,
				AccentColor:  color,
				ScreenCorner: domain.ScreenCorner(position),
				APIBaseURL:   api,
			}.Normalize()
			variant := embed.VariantGeneric
			if shopify {
				variant = embed.VariantShopify
			}
			fmt.Fprintln(cmd.OutOrStdout(), embed.Snippet(cfg, variant, id))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&api, "api", "http://localhost:3000", "public base URL of the service")
	f.StringVar(&name, "name", "", "assistant display name")
	f.StringVar(&color, "color", "", "accent color")
	f.StringVar(&position, "position", "", "screen corner")
	f.StringVar(&id, "id", "demo-store-123", "website ID or store domain")
	f.BoolVar(&shopify, "shopify", false, "print the Shopify snippet")
	return cmd
}
