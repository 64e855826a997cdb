package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/NethermindEth/holiday-dalle/pkg/studio/holiday"
)

type NotificationKind string

const (
	NotificationError NotificationKind = "error"
	NotificationSaved NotificationKind = "saved"
)

type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	At      time.Time        `json:"at"`
}

// Snapshot is what a front end renders: the machine state, the derived
// control flags and whatever content is visible in that state. PendingPrompt
// is set from the moment the prompt is expanded until the image request
// finishes or fails.
type Snapshot struct {
	State          State           `json:"state"`
	Holiday        holiday.Holiday `json:"holiday"`
	Busy           bool            `json:"busy"`
	CanGenerate    bool            `json:"canGenerate"`
	CanSave        bool            `json:"canSave"`
	RawPrompt      string          `json:"rawPrompt,omitempty"`
	ExpandedPrompt string          `json:"expandedPrompt,omitempty"`
	PendingPrompt  string          `json:"pendingPrompt,omitempty"`
	ImageUrl       string          `json:"imageUrl,omitempty"`
	Notification   *Notification   `json:"notification,omitempty"`
}

// Listener is called after every state change and notification, outside the
// session lock.
type Listener interface {
	SessionChanged(snapshot Snapshot)
}

type ListenerFunc func(snapshot Snapshot)

func (f ListenerFunc) SessionChanged(snapshot Snapshot) {
	f(snapshot)
}

var ErrNoPendingPrompt = errors.New("no expanded prompt pending")

// Session is the single in-memory record of one user's work. Generated data
// is only committed when a generation completes, so a failed attempt leaves
// the previous prompt and image untouched.
type Session struct {
	mu sync.Mutex

	state          State
	holiday        holiday.Holiday
	rawPrompt      string
	expandedPrompt string
	imageUrl       string

	pendingRaw    string
	pendingPrompt string

	notification *Notification
	listeners    []Listener
	now          func() time.Time
}

func New(h holiday.Holiday) *Session {
	return &Session{
		state:   StateIdle,
		holiday: h,
		now:     time.Now,
	}
}

func (s *Session) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snapshot := Snapshot{
		State:       s.state,
		Holiday:     s.holiday,
		Busy:        s.state.Busy(),
		CanGenerate: s.state.CanGenerate(),
		CanSave:     s.state.CanSave(),
		RawPrompt:   s.rawPrompt,
	}

	switch s.state {
	case StateReady:
		snapshot.ExpandedPrompt = s.expandedPrompt
		snapshot.ImageUrl = s.imageUrl
	case StatePromptReady, StateGenerating:
		// stays visible until the image request settles
		snapshot.PendingPrompt = s.pendingPrompt
	}

	if s.notification != nil {
		n := *s.notification
		snapshot.Notification = &n
	}

	return snapshot
}

// Result is a completed generation as committed to the session.
type Result struct {
	Holiday        holiday.Holiday
	RawPrompt      string
	ExpandedPrompt string
	ImageUrl       string
}

// Result returns the committed generation together with the currently
// selected holiday; ok is false unless a save is allowed right now.
func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.CanSave() {
		return Result{}, false
	}
	return Result{
		Holiday:        s.holiday,
		RawPrompt:      s.rawPrompt,
		ExpandedPrompt: s.expandedPrompt,
		ImageUrl:       s.imageUrl,
	}, true
}

func (s *Session) SelectHoliday(h holiday.Holiday) {
	s.update(func() error {
		s.holiday = h
		return nil
	})
}

func (s *Session) Holiday() holiday.Holiday {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holiday
}

// BeginGeneration moves to Generating and remembers the raw prompt of the
// attempt; the visible image is hidden until the attempt completes.
func (s *Session) BeginGeneration(rawPrompt string) error {
	return s.update(func() error {
		return s.beginLocked(rawPrompt)
	})
}

// BeginGenerationFor is BeginGeneration with a holiday selection applied in
// the same step. A rejected attempt leaves the selection alone.
func (s *Session) BeginGenerationFor(rawPrompt string, h holiday.Holiday) error {
	return s.update(func() error {
		if !h.Valid() {
			return fmt.Errorf("invalid holiday %d", h)
		}
		if err := s.beginLocked(rawPrompt); err != nil {
			return err
		}
		s.holiday = h
		return nil
	})
}

func (s *Session) beginLocked(rawPrompt string) error {
	if err := s.fire(EventGenerate); err != nil {
		return err
	}
	s.pendingRaw = rawPrompt
	s.pendingPrompt = ""
	return nil
}

// PromptExpanded exposes the expanded prompt, then moves back to Generating
// for the image request.
func (s *Session) PromptExpanded(expandedPrompt string) error {
	err := s.update(func() error {
		if err := s.fire(EventPromptExpanded); err != nil {
			return err
		}
		s.pendingPrompt = expandedPrompt
		return nil
	})
	if err != nil {
		return err
	}

	return s.update(func() error {
		return s.fire(EventImageRequested)
	})
}

func (s *Session) CompleteGeneration(imageUrl string) error {
	return s.update(func() error {
		if s.pendingPrompt == "" {
			return ErrNoPendingPrompt
		}
		if err := s.fire(EventImageGenerated); err != nil {
			return err
		}
		s.rawPrompt = s.pendingRaw
		s.expandedPrompt = s.pendingPrompt
		s.imageUrl = imageUrl
		s.pendingRaw = ""
		s.pendingPrompt = ""
		return nil
	})
}

// FailGeneration drops the in-flight attempt and returns to Idle.
func (s *Session) FailGeneration(cause error) error {
	return s.update(func() error {
		if err := s.fire(EventFail); err != nil {
			return err
		}
		s.pendingRaw = ""
		s.pendingPrompt = ""
		s.notifyLocked(NotificationError, "Error", cause.Error())
		return nil
	})
}

func (s *Session) CheckSave() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := Transition(s.state, EventSave)
	return err
}

func (s *Session) Reset() error {
	return s.update(func() error {
		return s.fire(EventReset)
	})
}

func (s *Session) Notify(kind NotificationKind, title, message string) {
	s.update(func() error {
		s.notifyLocked(kind, title, message)
		return nil
	})
}

func (s *Session) notifyLocked(kind NotificationKind, title, message string) {
	s.notification = &Notification{
		Kind:    kind,
		Title:   title,
		Message: message,
		At:      s.now(),
	}
}

func (s *Session) fire(e Event) error {
	next, err := Transition(s.state, e)
	if err != nil {
		return err
	}
	if next != s.state {
		slog.Debug("session transition", "from", s.state, "event", e, "to", next)
	}
	s.state = next
	return nil
}

// update applies fn under the lock and, on success, fans the new snapshot
// out to listeners once the lock is released.
func (s *Session) update(fn func() error) error {
	s.mu.Lock()
	if err := fn(); err != nil {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("session %s: %w", state, err)
	}
	snapshot := s.snapshotLocked()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l.SessionChanged(snapshot)
	}
	return nil
}
