// Package assistant is the chat core. One goroutine owns the session list;
// bus events, provider replies and animation callbacks are all queued to it.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lgc202/assistant/bus"
	"github.com/lgc202/assistant/dispatch"
	"github.com/lgc202/assistant/llm"
	"github.com/lgc202/assistant/render"
	"github.com/lgc202/assistant/session"
	"github.com/lgc202/assistant/settings"
)

// DefaultContextSize is how many trailing session messages are sent as
// history when the question carries none.
const DefaultContextSize = 6

// BusyText is returned when a question arrives while another one is still
// being answered or animated.
const BusyText = dispatch.ErrorPrefix + "a previous question is still being answered"

// Asker answers one question. *dispatch.Dispatcher implements it.
type Asker interface {
	Ask(ctx context.Context, question string, history []session.Message) (dispatch.Answer, error)
	Current() dispatch.Triple
	Invalidate()
}

// ErrStopped is returned by Drain once Run has returned.
var ErrStopped = errors.New("assistant: core stopped")

// drainPoll is how often Drain re-checks an unfinished core.
const drainPoll = 10 * time.Millisecond

type Core struct {
	bus         bus.Bus
	sessions    *session.Store
	asker       Asker
	settings    settings.Store
	scheduler   *render.Scheduler
	logger      *slog.Logger
	now         func() time.Time
	contextSize int

	inbox   chan func(ctx context.Context)
	stopped chan struct{}

	// owned by the loop
	busy  bool
	anim  *animation
	token uint64
}

type animation struct {
	token     uint64
	sessionID string
	messageID int64
	text      string
}

type Option func(*Core)

func WithScheduler(s *render.Scheduler) Option {
	return func(c *Core) {
		if s != nil {
			c.scheduler = s
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Core) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Core) {
		if now != nil {
			c.now = now
		}
	}
}

// WithContextSize sets the default history length. Values below 1 are
// ignored.
func WithContextSize(n int) Option {
	return func(c *Core) {
		if n > 0 {
			c.contextSize = n
		}
	}
}

// New wires the core to b. Events received before Run starts are queued.
func New(b bus.Bus, sessions *session.Store, asker Asker, store settings.Store, opts ...Option) *Core {
	c := &Core{
		bus:         b,
		sessions:    sessions,
		asker:       asker,
		settings:    store,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:         time.Now,
		contextSize: DefaultContextSize,
		inbox:       make(chan func(ctx context.Context), 64),
		stopped:     make(chan struct{}),
	}
	for _, o := range opts {
		if o != nil {
			o(c)
		}
	}
	if c.scheduler == nil {
		c.scheduler = render.NewScheduler(render.WithLogger(c.logger))
	}
	b.OnReceive(c.receive)
	return c
}

// Run processes events until ctx ends. An animation still running at that
// point is written out in full and persisted.
func (c *Core) Run(ctx context.Context) error {
	defer close(c.stopped)
	defer c.shutdown(context.WithoutCancel(ctx))

	c.logger.Info("assistant core started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("assistant core stopping")
			return ctx.Err()
		case fn := <-c.inbox:
			fn(ctx)
		}
	}
}

// Drain blocks until every queued event has been handled and no question or
// animation is in flight.
func (c *Core) Drain(ctx context.Context) error {
	for {
		res := make(chan bool, 1)
		if !c.enqueue(func(context.Context) { res <- !c.busy && len(c.inbox) == 0 }) {
			return ErrStopped
		}
		select {
		case idle := <-res:
			if idle {
				return nil
			}
		case <-c.stopped:
			return ErrStopped
		case <-ctx.Done():
			return ctx.Err()
		}

		select {
		case <-time.After(drainPoll):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Core) receive(e bus.Event) {
	c.enqueue(func(ctx context.Context) { c.handle(ctx, e) })
}

func (c *Core) enqueue(fn func(ctx context.Context)) bool {
	select {
	case <-c.stopped:
		return false
	default:
	}
	select {
	case c.inbox <- fn:
		return true
	case <-c.stopped:
		return false
	}
}

// call runs fn on the loop and waits for its result. It returns false when
// the loop has stopped.
func (c *Core) call(fn func(ctx context.Context) bool) bool {
	res := make(chan bool, 1)
	if !c.enqueue(func(ctx context.Context) { res <- fn(ctx) }) {
		return false
	}
	select {
	case ok := <-res:
		return ok
	case <-c.stopped:
		return false
	}
}

func (c *Core) handle(ctx context.Context, e bus.Event) {
	c.logger.Debug("event received", "command", e.Command)

	switch e.Command {
	case bus.CmdAskQuestion:
		c.ask(ctx, e)
	case bus.CmdGetConfig:
		c.sendConfig()
	case bus.CmdUpdateConfig:
		c.updateConfig(e.Config)
	case bus.CmdGetModelList:
		c.send(bus.Event{Command: bus.CmdModelListReceived, Models: llm.Models()})
	case bus.CmdLoadSessions:
		if _, err := c.sessions.Load(ctx); err != nil {
			c.send(bus.Event{Command: bus.CmdSessionsLoadError, Error: err.Error()})
			return
		}
		c.sendSessions(ctx)
	case bus.CmdSaveSessions:
		c.sessions.Replace(ctx, e.Sessions)
	case bus.CmdCreateSession:
		c.sessions.Create(ctx)
		c.sendSessions(ctx)
	case bus.CmdSelectSession:
		c.sessions.Select(ctx, e.ID)
		c.sendSessions(ctx)
	case bus.CmdDeleteSession:
		c.sessions.Delete(ctx, e.ID)
		c.sendSessions(ctx)
	case bus.CmdCopyCode:
		c.send(bus.Event{Command: bus.CmdClipboard, Code: e.Code})
	default:
		c.logger.Debug("ignoring unknown command", "command", e.Command)
	}
}

func (c *Core) ask(ctx context.Context, e bus.Event) {
	if strings.TrimSpace(e.Text) == "" {
		return
	}
	if c.busy {
		c.send(bus.Event{Command: bus.CmdError, Text: BusyText})
		return
	}

	sess, ok := c.sessions.Active(ctx)
	if !ok {
		sess = c.sessions.Create(ctx)
	}
	history := e.Context
	if len(history) == 0 {
		history = tail(sess.Messages, c.contextSize)
	}

	now := c.now()
	msgs := append(sess.Messages, session.Message{
		ID:        session.NextMessageID(now, sess.Messages),
		Text:      e.Text,
		Sender:    session.SenderUser,
		Timestamp: now,
	})
	placeholder := session.NextMessageID(now, msgs)
	msgs = append(msgs, session.Message{
		ID:        placeholder,
		Text:      dispatch.ThinkingText,
		Sender:    session.SenderAssistant,
		Timestamp: now,
	})
	if updated, ok := c.sessions.UpdateMessages(ctx, sess.ID, msgs); ok {
		c.publish(ctx, updated)
	}

	c.busy = true
	sessionID, question := sess.ID, e.Text
	go func() {
		ans, err := c.asker.Ask(ctx, question, history)
		c.enqueue(func(ctx context.Context) { c.answered(ctx, sessionID, placeholder, ans, err) })
	}()
}

func (c *Core) answered(ctx context.Context, sessionID string, placeholder int64, ans dispatch.Answer, err error) {
	sess, ok := c.sessions.Get(ctx, sessionID)
	var msgs []session.Message
	if ok {
		msgs = withoutPlaceholder(sess.Messages, placeholder)
	}
	now := c.now()

	if err != nil {
		c.busy = false
		text := dispatch.Describe(err)
		if ok {
			msgs = append(msgs, session.Message{
				ID:        session.NextMessageID(now, msgs),
				Text:      text,
				Sender:    session.SenderAssistant,
				Timestamp: now,
				ModelUsed: c.asker.Current().ModelID,
			})
			if updated, ok := c.sessions.UpdateMessages(ctx, sessionID, msgs); ok {
				c.publish(ctx, updated)
			}
		}
		c.send(bus.Event{Command: bus.CmdError, Text: text})
		return
	}

	id := session.NextMessageID(now, msgs)
	c.send(bus.Event{
		Command: bus.CmdAnswerReceived,
		Text:    ans.Text,
		ID:      strconv.FormatInt(id, 10),
		ModelID: ans.ModelID,
	})
	if !ok {
		c.logger.Debug("session removed before answer arrived", "session_id", sessionID)
		c.busy = false
		return
	}

	msgs = append(msgs, session.Message{
		ID:          id,
		Sender:      session.SenderAssistant,
		Timestamp:   now,
		IsAnimating: true,
		ModelUsed:   ans.ModelID,
	})
	if updated, ok := c.sessions.UpdateMessages(ctx, sessionID, msgs); ok {
		c.publish(ctx, updated)
	}
	c.animate(ctx, sessionID, id, ans.Text)
}

func (c *Core) animate(ctx context.Context, sessionID string, messageID int64, text string) {
	c.token++
	a := &animation{
		token:     c.token,
		sessionID: sessionID,
		messageID: messageID,
		text:      render.Final(text),
	}
	c.anim = a

	done := c.scheduler.Start(ctx, render.Job{MessageID: messageID, Text: text}, &sink{core: c, token: a.token})
	go func() {
		outcome := <-done
		c.enqueue(func(ctx context.Context) { c.animationEnded(ctx, a, outcome) })
	}()
}

func (c *Core) animationEnded(ctx context.Context, a *animation, outcome render.Outcome) {
	if c.anim != a {
		return
	}
	c.anim = nil
	c.busy = false

	switch outcome {
	case render.Completed:
		c.send(bus.Event{Command: bus.CmdAnimationDone, ID: strconv.FormatInt(a.messageID, 10)})
	case render.Canceled:
		c.finalize(ctx, a)
	case render.Orphaned:
		c.logger.Debug("animated message disappeared", "message_id", a.messageID)
	}
}

// finalize writes the full text into the animated message, clears its
// animating flag and persists the session.
func (c *Core) finalize(ctx context.Context, a *animation) bool {
	sess, ok := c.sessions.Get(ctx, a.sessionID)
	if !ok {
		return false
	}
	found := false
	for i := range sess.Messages {
		if sess.Messages[i].ID == a.messageID {
			sess.Messages[i].Text = a.text
			sess.Messages[i].IsAnimating = false
			found = true
		}
	}
	if !found {
		return false
	}
	if updated, ok := c.sessions.UpdateMessages(ctx, a.sessionID, sess.Messages); ok {
		c.publish(ctx, updated)
	}
	return true
}

func (c *Core) shutdown(ctx context.Context) {
	c.scheduler.Stop()
	if a := c.anim; a != nil {
		c.anim = nil
		c.finalize(ctx, a)
	}
}

func (c *Core) sendConfig() {
	raw, err := json.Marshal(c.settings.Get().View())
	if err != nil {
		c.logger.Error("encode config", "err", err)
		return
	}
	c.send(bus.Event{Command: bus.CmdConfigReceived, Config: raw})
}

func (c *Core) updateConfig(raw json.RawMessage) {
	p, err := settings.DecodePatch(raw)
	if err != nil {
		c.logger.Warn("ignoring malformed config update", "err", err)
	} else if !p.Empty() {
		if err := c.settings.Update(p); err != nil {
			c.logger.Error("save settings", "err", err)
		}
	}
	c.asker.Invalidate()
	c.sendConfig()
}

func (c *Core) sendSessions(ctx context.Context) {
	e := bus.Event{Command: bus.CmdSessionsLoaded, Sessions: c.sessions.List(ctx)}
	if active, ok := c.sessions.Active(ctx); ok {
		e.ActiveID = active.ID
	}
	c.send(e)
}

func (c *Core) publish(ctx context.Context, s session.Session) {
	e := bus.Event{Command: bus.CmdSessionUpdated, Session: &s}
	if active, ok := c.sessions.Active(ctx); ok {
		e.ActiveID = active.ID
	}
	c.send(e)
}

func (c *Core) send(e bus.Event) {
	if err := c.bus.Send(e); err != nil {
		c.logger.Warn("send event", "command", e.Command, "err", err)
	}
}

func tail(msgs []session.Message, n int) []session.Message {
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return append([]session.Message(nil), msgs...)
}

func withoutPlaceholder(msgs []session.Message, id int64) []session.Message {
	out := make([]session.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.ID == id || dispatch.IsPlaceholder(m) {
			continue
		}
		out = append(out, m)
	}
	return out
}
