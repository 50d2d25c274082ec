// Package session keeps the list of chat sessions and persists it as one
// JSON blob.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultKey is the blob key the session list is stored under.
const DefaultKey = "chatSessions"

// Blob is the persisted blob collaborator.
type Blob interface {
	Load(ctx context.Context, key string) (data []byte, ok bool, err error)
	Save(ctx context.Context, key string, data []byte) error
}

// Store holds sessions ordered most recently updated first. Every mutation
// persists the full list; persistence failures are logged and the in-memory
// state is kept.
type Store struct {
	mu sync.Mutex

	blob   Blob
	key    string
	now    func() time.Time
	newID  func() string
	logger *slog.Logger

	loaded   bool
	sessions []Session
	activeID string
}

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewStore(b Blob, opts ...Option) *Store {
	s := &Store{
		blob:   b,
		key:    DefaultKey,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		if o != nil {
			o(s)
		}
	}
	return s
}

// Load (re)reads the persisted list. When nothing usable is stored, one
// empty session is created so the store is never empty after a load.
func (s *Store) Load(ctx context.Context) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s.snapshot(), nil
}

// List returns the sessions, loading them on first use.
func (s *Store) List(ctx context.Context) []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)
	return s.snapshot()
}

func (s *Store) Get(ctx context.Context, id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)
	if i := s.index(id); i >= 0 {
		return s.sessions[i].clone(), true
	}
	return Session{}, false
}

// Active returns the selected session.
func (s *Store) Active(ctx context.Context) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)
	if i := s.index(s.activeID); i >= 0 {
		return s.sessions[i].clone(), true
	}
	return Session{}, false
}

// Create inserts an empty session at the front and selects it.
func (s *Store) Create(ctx context.Context) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	sess := s.newSession()
	s.sessions = append([]Session{sess}, s.sessions...)
	s.activeID = sess.ID
	s.persist(ctx)
	return sess.clone()
}

// Select makes id the active session. Unknown ids are ignored.
func (s *Store) Select(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)
	if s.index(id) < 0 {
		return false
	}
	s.activeID = id
	return true
}

// Delete removes id. Deleting the active session selects the first
// remaining one, or none.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	i := s.index(id)
	if i < 0 {
		return false
	}
	s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
	if s.activeID == id {
		s.activeID = ""
		if len(s.sessions) > 0 {
			s.activeID = s.sessions[0].ID
		}
	}
	s.persist(ctx)
	return true
}

// UpdateMessages replaces the messages of id, bumps UpdatedAt and moves the
// session to the front. A session still carrying the default title is
// renamed after its first message.
func (s *Store) UpdateMessages(ctx context.Context, id string, msgs []Message) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	i := s.index(id)
	if i < 0 {
		return Session{}, false
	}
	sess := s.sessions[i]
	sess.Messages = append([]Message(nil), msgs...)
	sess.UpdatedAt = s.now()
	if sess.UpdatedAt.Before(sess.CreatedAt) {
		sess.UpdatedAt = sess.CreatedAt
	}
	if sess.HasDefaultTitle() {
		if len(msgs) > 0 {
			sess.Title = Title(msgs[0].Text)
		} else {
			sess.Title = DefaultTitle
		}
	}

	s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
	s.sessions = append([]Session{sess}, s.sessions...)
	s.persist(ctx)
	return sess.clone(), true
}

// ReviseMessage changes the text of one message in memory only. It is used
// for animation frames; the next persisting mutation writes the result.
func (s *Store) ReviseMessage(ctx context.Context, sessionID string, messageID int64, text string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	i := s.index(sessionID)
	if i < 0 {
		return Session{}, false
	}
	msgs := s.sessions[i].Messages
	for j := range msgs {
		if msgs[j].ID == messageID {
			msgs[j].Text = text
			return s.sessions[i].clone(), true
		}
	}
	return Session{}, false
}

// Replace adopts a full snapshot from the host. The active session is kept
// when it is still present.
func (s *Store) Replace(ctx context.Context, sessions []Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true
	s.sessions = normalize(sessions)
	if s.index(s.activeID) < 0 {
		s.activeID = ""
		if len(s.sessions) > 0 {
			s.activeID = s.sessions[0].ID
		}
	}
	s.persist(ctx)
}

func (s *Store) ensureLoaded(ctx context.Context) {
	if s.loaded {
		return
	}
	if err := s.load(ctx); err != nil {
		s.logger.Error("load sessions failed", "key", s.key, "err", err)
	}
}

func (s *Store) load(ctx context.Context) error {
	s.loaded = true
	s.sessions = nil
	s.activeID = ""

	data, ok, err := s.blob.Load(ctx, s.key)
	if err != nil {
		return fmt.Errorf("session: load %q: %w", s.key, err)
	}
	if ok && len(data) > 0 {
		var list []Session
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("session: decode %q: %w", s.key, err)
		}
		s.sessions = normalize(list)
	}

	if len(s.sessions) == 0 {
		s.sessions = []Session{s.newSession()}
		s.persist(ctx)
	}
	s.activeID = s.sessions[0].ID
	return nil
}

func (s *Store) persist(ctx context.Context) {
	list := s.sessions
	if list == nil {
		list = []Session{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		s.logger.Error("encode sessions failed", "err", err)
		return
	}
	if err := s.blob.Save(ctx, s.key, data); err != nil {
		s.logger.Error("save sessions failed", "key", s.key, "sessions", len(list), "err", err)
	}
}

func (s *Store) newSession() Session {
	now := s.now()
	return Session{
		ID:        s.newID(),
		Title:     DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []Message{},
	}
}

func (s *Store) index(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshot() []Session {
	out := make([]Session, len(s.sessions))
	for i := range s.sessions {
		out[i] = s.sessions[i].clone()
	}
	return out
}

// normalize drops sessions without an id and orders the rest by UpdatedAt,
// newest first.
func normalize(in []Session) []Session {
	out := make([]Session, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, sess := range in {
		if sess.ID == "" || seen[sess.ID] {
			continue
		}
		seen[sess.ID] = true
		out = append(out, sess.clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}
