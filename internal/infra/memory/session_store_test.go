package memory

import (
	"testing"
	"time"

	"quizhost/internal/app"
	"quizhost/internal/domain"
)

type noopScheduler struct{}

func (noopScheduler) Schedule(string, time.Duration, func()) {}
func (noopScheduler) Cancel(string)                          {}

func newStoredSession(id string) *app.Session {
	return app.NewSession(id, sampleQuiz(), 0, noopScheduler{}, time.Second)
}

func TestSessionStoreLookup(t *testing.T) {
	store := NewSessionStore()
	session := newStoredSession("s1")

	store.Put(session)
	if got, ok := store.Get("s1"); !ok || got != session {
		t.Fatalf("expected stored session back")
	}
	if _, ok := store.Get("s2"); ok {
		t.Fatalf("expected miss for unknown id")
	}

	store.BindPlayer("p1", "s1")
	if got, ok := store.ByPlayer("p1"); !ok || got != session {
		t.Fatalf("expected player lookup to resolve session")
	}
	if _, ok := store.ByPlayer("stranger"); ok {
		t.Fatalf("expected miss for unbound player")
	}
}

func TestSessionStoreActiveCount(t *testing.T) {
	store := NewSessionStore()

	first := newStoredSession("s1")
	second := newStoredSession("s2")
	store.Put(first)
	store.Put(second)

	if got := store.ActiveCount("quiz-1"); got != 2 {
		t.Fatalf("expected 2 active, got %d", got)
	}
	if got := store.ActiveCount("other-quiz"); got != 0 {
		t.Fatalf("expected 0 for other quiz, got %d", got)
	}

	if _, err := first.Dispatch(domain.ActionEnd); err != nil {
		t.Fatalf("end: %v", err)
	}
	store.MarkEnded(first)
	if got := store.ActiveCount("quiz-1"); got != 1 {
		t.Fatalf("expected ended session excluded, got %d", got)
	}
	// Ended sessions stay queryable.
	if _, ok := store.Get("s1"); !ok {
		t.Fatalf("expected ended session to remain readable")
	}
}
