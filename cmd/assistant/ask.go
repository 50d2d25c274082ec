package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/lgc202/assistant/assistant"
	"github.com/lgc202/assistant/dispatch"
	"github.com/lgc202/assistant/llm"
	"github.com/lgc202/assistant/llm/providers"
	"github.com/lgc202/assistant/render"
	"github.com/lgc202/assistant/session"
	"github.com/lgc202/assistant/settings"
)

var (
	modelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

type askOptions struct {
	model     string
	noAnimate bool
	save      bool
}

func newAskCmd(o *rootOptions) *cobra.Command {
	a := &askOptions{}
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return o.ask(ctx, cmd.OutOrStdout(), strings.Join(args, " "), a)
		},
	}
	cmd.Flags().StringVarP(&a.model, "model", "m", "", "model id for this question only (see `assistant models`)")
	cmd.Flags().BoolVar(&a.noAnimate, "no-animate", false, "print the answer at once")
	cmd.Flags().BoolVar(&a.save, "save", true, "record the exchange in the active session")
	return cmd
}

func (o *rootOptions) ask(ctx context.Context, out io.Writer, question string, a *askOptions) error {
	st, err := o.openSettings(false)
	if err != nil {
		return err
	}
	var store settings.Store = st
	if a.model != "" {
		if _, ok := llm.Lookup(a.model); !ok {
			o.logger.Warn("model not in catalog, using DeepSeek", "model", a.model)
		}
		v := st.Get()
		v.SelectedModel = a.model
		store = settings.NewMemoryStore(v)
	}

	adapter, err := providers.NewAdapter(o.adapterOptions()...)
	if err != nil {
		return err
	}
	d := dispatch.New(adapter, store, dispatch.WithLogger(o.logger))

	var (
		sessions *session.Store
		active   session.Session
	)
	if a.save {
		var closeSessions func() error
		sessions, closeSessions, err = o.openSessions()
		if err != nil {
			return err
		}
		defer closeSessions()
		var ok bool
		if active, ok = sessions.Active(ctx); !ok {
			active = sessions.Create(ctx)
		}
	}

	history := active.Messages
	if n := assistant.DefaultContextSize; len(history) > n {
		history = history[len(history)-n:]
	}
	asked := time.Now()
	ans, askErr := d.Ask(ctx, question, history)

	text := ans.Text
	if askErr != nil {
		text = dispatch.Describe(askErr)
		fmt.Fprintln(out, errorStyle.Render(text))
	} else {
		fmt.Fprintln(out, modelStyle.Render(ans.ModelID+" ›"))
		if err := o.typewrite(ctx, out, text, a.noAnimate); err != nil {
			return err
		}
	}

	if sessions != nil {
		msgs := append(active.Messages, session.Message{
			ID:        session.NextMessageID(asked, active.Messages),
			Text:      question,
			Sender:    session.SenderUser,
			Timestamp: asked,
		})
		now := time.Now()
		modelID := ans.ModelID
		if modelID == "" {
			modelID = d.Current().ModelID
		}
		msgs = append(msgs, session.Message{
			ID:        session.NextMessageID(now, msgs),
			Text:      render.Final(text),
			Sender:    session.SenderAssistant,
			Timestamp: now,
			ModelUsed: modelID,
		})
		sessions.UpdateMessages(context.WithoutCancel(ctx), active.ID, msgs)
	}

	if askErr != nil {
		return errReported
	}
	return nil
}

func (o *rootOptions) typewrite(ctx context.Context, out io.Writer, text string, instant bool) error {
	if instant {
		_, err := fmt.Fprintln(out, render.Final(text))
		return err
	}
	sched := render.NewScheduler(render.WithLogger(o.logger))
	w := &terminalSink{out: out}
	outcome := sched.Animate(ctx, render.Job{Text: text}, w)
	if outcome != render.Completed {
		// interrupted: show the rest at once
		full := render.Final(text)
		w.Reveal(0, full)
	}
	_, err := fmt.Fprintln(out)
	return err
}

// terminalSink prints the part of each frame that has not been printed yet.
type terminalSink struct {
	out     io.Writer
	printed string
}

func (s *terminalSink) Reveal(_ int64, text string) bool {
	if strings.HasPrefix(text, s.printed) {
		fmt.Fprint(s.out, text[len(s.printed):])
	} else {
		fmt.Fprint(s.out, "\n"+text)
	}
	s.printed = text
	return true
}

func (s *terminalSink) Finish(int64) {}
