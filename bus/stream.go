package bus

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// MaxLineBytes bounds one inbound event line.
const MaxLineBytes = 8 << 20

// Stream speaks newline delimited JSON: one Event per line.
type Stream struct {
	r      io.Reader
	logger *slog.Logger

	wmu sync.Mutex
	w   io.Writer
	enc *json.Encoder

	hmu      sync.RWMutex
	handlers []func(Event)
}

type StreamOption func(*Stream)

func WithLogger(logger *slog.Logger) StreamOption {
	return func(s *Stream) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewStream(r io.Reader, w io.Writer, opts ...StreamOption) *Stream {
	s := &Stream{
		r:      r,
		w:      w,
		enc:    json.NewEncoder(w),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	s.enc.SetEscapeHTML(false)
	for _, o := range opts {
		if o != nil {
			o(s)
		}
	}
	return s
}

func (s *Stream) Send(e Event) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := s.enc.Encode(e); err != nil {
		return fmt.Errorf("bus: write %s: %w", e.Command, err)
	}
	return nil
}

func (s *Stream) OnReceive(h func(Event)) {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	s.handlers = append(s.handlers, h)
}

// Run reads events until EOF or ctx is done. Malformed lines are logged and
// skipped. Handlers run on the Run goroutine.
func (s *Stream) Run(ctx context.Context) error {
	sc := bufio.NewScanner(s.r)
	sc.Buffer(make([]byte, 0, 64<<10), MaxLineBytes)

	lines := make(chan []byte)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					if err != nil {
						return fmt.Errorf("bus: read: %w", err)
					}
				default:
				}
				return nil
			}
			s.dispatch(line)
		}
	}
}

func (s *Stream) dispatch(line []byte) {
	if len(line) == 0 {
		return
	}
	var e Event
	if err := json.Unmarshal(line, &e); err != nil {
		s.logger.Warn("skipping malformed event", "bytes", len(line), "err", err)
		return
	}
	if e.Command == "" {
		s.logger.Warn("skipping event without command")
		return
	}
	s.hmu.RLock()
	hs := make([]func(Event), len(s.handlers))
	copy(hs, s.handlers)
	s.hmu.RUnlock()
	for _, h := range hs {
		h(e)
	}
}
