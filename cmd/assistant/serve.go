package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lgc202/assistant/assistant"
	"github.com/lgc202/assistant/bus"
	"github.com/lgc202/assistant/dispatch"
	"github.com/lgc202/assistant/llm/providers"
	"github.com/lgc202/assistant/render"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat core, exchanging JSON events on stdin/stdout",
		Long: `Run the chat core for a host process. Each line on stdin is one inbound
event such as {"command":"askQuestion","text":"..."}; replies are written to
stdout the same way. The process exits when stdin closes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return o.serve(ctx, cmd)
		},
	}
}

func (o *rootOptions) serve(ctx context.Context, cmd *cobra.Command) error {
	st, err := o.openSettings(true)
	if err != nil {
		return err
	}

	sessions, closeSessions, err := o.openSessions()
	if err != nil {
		return err
	}
	defer closeSessions()

	adapter, err := providers.NewAdapter(o.adapterOptions()...)
	if err != nil {
		return err
	}
	d := dispatch.New(adapter, st, dispatch.WithLogger(o.logger))

	stream := bus.NewStream(cmd.InOrStdin(), cmd.OutOrStdout(), bus.WithLogger(o.logger))
	core := assistant.New(stream, sessions, d, st,
		assistant.WithLogger(o.logger),
		assistant.WithScheduler(render.NewScheduler(render.WithLogger(o.logger))),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	coreDone := make(chan error, 1)
	go func() { coreDone <- core.Run(ctx) }()

	o.logger.Info("serving on stdio", "settings", st.Path(), "store", o.store)
	readErr := stream.Run(ctx)
	if readErr == nil {
		// stdin closed: finish what the host already asked for
		if err := core.Drain(ctx); err != nil && !errors.Is(err, context.Canceled) {
			o.logger.Warn("drain core", "err", err)
		}
	}
	cancel()
	<-coreDone

	if readErr != nil && !errors.Is(readErr, context.Canceled) {
		return readErr
	}
	return nil
}
