package assistant

import "context"

// sink applies animation frames on the core loop. Frames from a replaced
// animation are refused.
type sink struct {
	core  *Core
	token uint64
}

func (s *sink) Reveal(id int64, text string) bool {
	return s.core.call(func(ctx context.Context) bool {
		a := s.core.anim
		if a == nil || a.token != s.token || a.messageID != id {
			return false
		}
		sess, ok := s.core.sessions.ReviseMessage(ctx, a.sessionID, id, text)
		if !ok {
			return false
		}
		s.core.publish(ctx, sess)
		return true
	})
}

func (s *sink) Finish(id int64) {
	s.core.call(func(ctx context.Context) bool {
		a := s.core.anim
		if a == nil || a.token != s.token || a.messageID != id {
			return false
		}
		return s.core.finalize(ctx, a)
	})
}
