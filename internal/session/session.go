package session

import "github.com/CI5co22/MindSprout/internal/domain"

// Session is the FIFO consumption of a planned card sequence. The caller
// presents the front card, grades it, persists the scheduler's result, and
// advances. Abandoning a session needs no rollback: every graded card was
// already durably rescheduled, and the remaining queue is simply discarded.
type Session struct {
	queue []domain.Card
	total int
	done  int
}

// Start begins a session over an already-planned card sequence.
func Start(planned []domain.Card) *Session {
	return &Session{queue: planned, total: len(planned)}
}

// Current returns the card at the front of the queue, or false when the
// session is finished.
func (s *Session) Current() (domain.Card, bool) {
	if len(s.queue) == 0 {
		return domain.Card{}, false
	}
	return s.queue[0], true
}

// Advance removes the front card after it has been graded and persisted.
func (s *Session) Advance() {
	if len(s.queue) == 0 {
		return
	}
	s.queue = s.queue[1:]
	s.done++
}

// Progress reports graded and total card counts for the session.
func (s *Session) Progress() (done, total int) {
	return s.done, s.total
}

// Remaining reports how many cards are still queued.
func (s *Session) Remaining() int {
	return len(s.queue)
}
