package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionUpcoming  SessionStatus = "upcoming"
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionMissed    SessionStatus = "missed"
)

// StudySession is one scheduled study block. Elapsed time accrues across
// pause/resume cycles: SegmentStart marks the beginning of the current active
// segment and is set if and only if the session is active.
type StudySession struct {
	ID                  uuid.UUID     `json:"id"`
	UserID              uuid.UUID     `json:"user_id"`
	Subject             string        `json:"subject"`
	Topic               string        `json:"topic"`
	ScheduledAt         time.Time     `json:"scheduled_at"`
	DurationMinutes     int           `json:"duration_minutes"`
	Status              SessionStatus `json:"status"`
	SegmentStart        *time.Time    `json:"segment_start,omitempty"`
	TotalElapsedSeconds int64         `json:"total_elapsed_seconds"`
	EndedAt             *time.Time    `json:"ended_at,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// InvalidStateTransitionError reports an operation that is not legal from the
// session's current status. The session is left unchanged.
type InvalidStateTransitionError struct {
	Op     string
	Status SessionStatus
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("cannot %s session in status %q", e.Op, e.Status)
}

// Start begins the first timed segment. Only an upcoming session can be
// started; completed and missed sessions are terminal.
func (s *StudySession) Start(now time.Time) error {
	if s.Status != SessionUpcoming {
		return &InvalidStateTransitionError{Op: "start", Status: s.Status}
	}
	s.Status = SessionActive
	s.SegmentStart = &now
	return nil
}

// Pause folds the in-progress segment into TotalElapsedSeconds and clears
// SegmentStart. The delta is clamped at zero so clock skew can never make the
// accumulated time go backwards.
func (s *StudySession) Pause(now time.Time) error {
	if s.Status != SessionActive {
		return &InvalidStateTransitionError{Op: "pause", Status: s.Status}
	}
	s.foldSegment(now)
	s.Status = SessionPaused
	return nil
}

// Resume starts a fresh segment. Time spent paused is not counted.
func (s *StudySession) Resume(now time.Time) error {
	if s.Status != SessionPaused {
		return &InvalidStateTransitionError{Op: "resume", Status: s.Status}
	}
	s.Status = SessionActive
	s.SegmentStart = &now
	return nil
}

// Complete ends the session from either active or paused. An open segment is
// folded exactly as Pause would fold it.
func (s *StudySession) Complete(now time.Time) error {
	if s.Status != SessionActive && s.Status != SessionPaused {
		return &InvalidStateTransitionError{Op: "complete", Status: s.Status}
	}
	if s.Status == SessionActive {
		s.foldSegment(now)
	}
	s.Status = SessionCompleted
	s.EndedAt = &now
	return nil
}

func (s *StudySession) foldSegment(now time.Time) {
	if s.SegmentStart == nil {
		return
	}
	elapsed := int64(now.Sub(*s.SegmentStart).Seconds())
	if elapsed > 0 {
		s.TotalElapsedSeconds += elapsed
	}
	s.SegmentStart = nil
}

// EndedEarly reports whether the session finished with less active time than
// was scheduled. Meaningful once Status is completed.
func (s *StudySession) EndedEarly() bool {
	return s.TotalElapsedSeconds < int64(s.DurationMinutes)*60
}
