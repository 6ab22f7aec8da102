package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xiaot623/voicewidget/internal/domain"
	"github.com/xiaot623/voicewidget/internal/extract"
	"github.com/xiaot623/voicewidget/internal/protocol"
)

type hostOptions struct {
	relay   string
	session string
	origin  string
	pageURL string
	file    string
}

func newHostCmd() *cobra.Command {
	opts := &hostOptions{}
	cmd := &cobra.Command{
		Use:   "host [file]",
		Short: "Serve the page context of an HTML file to relay widgets",
		Long: "Joins a relay session as the host page. The page context extracted from the " +
			"HTML file is pushed on join and again for every request_context. The file is " +
			"re-read each time, so edits show up in the next push. Without a file the page " +
			"is read once from stdin.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.file = args[0]
			}
			source, err := pageSource(opts.file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runHost(ctx, opts, source, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.relay, "relay", "ws://localhost:3000/relay", "relay WebSocket URL")
	f.StringVar(&opts.session, "session", "", "relay session to host")
	f.StringVar(&opts.origin, "origin", "", "Origin header sent to the relay")
	f.StringVar(&opts.pageURL, "url", "", "URL the page was served from")
	return cmd
}

// pageSource returns a reader factory for the page HTML.
func pageSource(file string, stdin io.Reader) (func() (io.Reader, error), error) {
	if file != "" {
		return func() (io.Reader, error) {
			data, err := os.ReadFile(file)
			if err != nil {
				return nil, err
			}
			return bytes.NewReader(data), nil
		}, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	return func() (io.Reader, error) { return bytes.NewReader(data), nil }, nil
}

func runHost(ctx context.Context, opts *hostOptions, source func() (io.Reader, error), out io.Writer) error {
	relay, err := NewRelayClient(opts.relay, opts.origin)
	if err != nil {
		return fmt.Errorf("connect relay: %w", err)
	}
	defer relay.Close()

	if err := relay.Hello(opts.session, protocol.RoleHost); err != nil {
		return err
	}

	var outMu sync.Mutex
	printf := func(format string, args ...interface{}) {
		outMu.Lock()
		defer outMu.Unlock()
		fmt.Fprintf(out, format, args...)
	}

	push := func() {
		pc := domain.EmptyPageContext()
		if r, err := source(); err != nil {
			log.Warn().Err(err).Msg("failed to read page, sending empty context")
		} else {
			pc = extract.FromHTML(r, opts.pageURL)
		}
		if err := relay.SendContext(pc); err != nil {
			log.Warn().Err(err).Msg("failed to send context_update")
			return
		}
		printf("Sent page context: %d products, %d collections\n", len(pc.Products), len(pc.Collections))
	}

	printf("Hosting relay session %s\n", relay.SessionID())
	push()

	done := make(chan struct{})
	go func() {
		defer close(done)
		relay.Read(RelayHandlers{
			OnRequestContext: push,
			OnCloseWidget: func() {
				printf("Widget asked to close\n")
			},
		})
	}()

	select {
	case <-ctx.Done():
		return nil
	case <-done:
		return nil
	}
}
