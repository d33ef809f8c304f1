package models

import (
	"errors"
	"testing"
	"time"
)

func newTestSession() *StudySession {
	return &StudySession{
		Subject:         "Mathematics",
		Topic:           "Integration",
		ScheduledAt:     time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
		Status:          SessionUpcoming,
	}
}

func TestSessionLifecycle_SingleSegment(t *testing.T) {
	s := newTestSession()
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	if err := s.Start(start); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s.Status != SessionActive {
		t.Errorf("Expected status active, got %s", s.Status)
	}
	if s.SegmentStart == nil || !s.SegmentStart.Equal(start) {
		t.Error("Expected SegmentStart set to start time")
	}

	end := start.Add(25 * time.Minute)
	if err := s.Complete(end); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if s.Status != SessionCompleted {
		t.Errorf("Expected status completed, got %s", s.Status)
	}
	if s.TotalElapsedSeconds != 1500 {
		t.Errorf("Expected 1500 elapsed seconds, got %d", s.TotalElapsedSeconds)
	}
	if s.SegmentStart != nil {
		t.Error("Expected SegmentStart cleared after complete")
	}
	if s.EndedAt == nil || !s.EndedAt.Equal(end) {
		t.Error("Expected EndedAt set to completion time")
	}
}

func TestSessionLifecycle_PauseResumeExcludesPausedTime(t *testing.T) {
	s := newTestSession()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	// Active 10m, paused 5m, active 5m → 15m counted.
	if err := s.Start(base); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Pause(base.Add(10 * time.Minute)); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if s.TotalElapsedSeconds != 600 {
		t.Errorf("Expected 600 seconds after pause, got %d", s.TotalElapsedSeconds)
	}
	if s.SegmentStart != nil {
		t.Error("Expected SegmentStart nil while paused")
	}

	if err := s.Resume(base.Add(15 * time.Minute)); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if err := s.Complete(base.Add(20 * time.Minute)); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if s.TotalElapsedSeconds != 900 {
		t.Errorf("Expected 900 seconds total, got %d", s.TotalElapsedSeconds)
	}
}

func TestSessionCompleteWhilePaused(t *testing.T) {
	s := newTestSession()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	s.Start(base)
	s.Pause(base.Add(8 * time.Minute))

	// Completing from paused must not count the pause gap.
	if err := s.Complete(base.Add(45 * time.Minute)); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if s.TotalElapsedSeconds != 480 {
		t.Errorf("Expected 480 seconds, got %d", s.TotalElapsedSeconds)
	}
}

func TestSessionIllegalTransitions(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		prep func(s *StudySession)
		op   func(s *StudySession) error
	}{
		{"pause before start", func(s *StudySession) {}, func(s *StudySession) error { return s.Pause(base) }},
		{"resume before start", func(s *StudySession) {}, func(s *StudySession) error { return s.Resume(base) }},
		{"complete before start", func(s *StudySession) {}, func(s *StudySession) error { return s.Complete(base) }},
		{"start twice", func(s *StudySession) { s.Start(base) }, func(s *StudySession) error { return s.Start(base) }},
		{"resume while active", func(s *StudySession) { s.Start(base) }, func(s *StudySession) error { return s.Resume(base) }},
		{"pause while paused", func(s *StudySession) {
			s.Start(base)
			s.Pause(base.Add(time.Minute))
		}, func(s *StudySession) error { return s.Pause(base.Add(2 * time.Minute)) }},
		{"start after complete", func(s *StudySession) {
			s.Start(base)
			s.Complete(base.Add(time.Minute))
		}, func(s *StudySession) error { return s.Start(base.Add(2 * time.Minute)) }},
		{"complete twice", func(s *StudySession) {
			s.Start(base)
			s.Complete(base.Add(time.Minute))
		}, func(s *StudySession) error { return s.Complete(base.Add(2 * time.Minute)) }},
		{"start a missed session", func(s *StudySession) { s.Status = SessionMissed }, func(s *StudySession) error { return s.Start(base) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestSession()
			tc.prep(s)
			before := *s

			err := tc.op(s)
			var transitionErr *InvalidStateTransitionError
			if !errors.As(err, &transitionErr) {
				t.Fatalf("Expected InvalidStateTransitionError, got %v", err)
			}
			if s.Status != before.Status || s.TotalElapsedSeconds != before.TotalElapsedSeconds {
				t.Error("Session must be unchanged after a rejected transition")
			}
		})
	}
}

func TestSessionElapsedNeverDecreases(t *testing.T) {
	s := newTestSession()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	s.Start(base)
	// A clock that went backwards must not subtract time.
	if err := s.Pause(base.Add(-2 * time.Minute)); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if s.TotalElapsedSeconds != 0 {
		t.Errorf("Expected elapsed clamped at 0, got %d", s.TotalElapsedSeconds)
	}
}

func TestSessionEndedEarly(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	s := newTestSession() // 30 minutes scheduled
	s.Start(base)
	s.Complete(base.Add(12 * time.Minute))
	if !s.EndedEarly() {
		t.Error("12 of 30 minutes should count as ended early")
	}

	full := newTestSession()
	full.Start(base)
	full.Complete(base.Add(30 * time.Minute))
	if full.EndedEarly() {
		t.Error("Full-duration session should not count as ended early")
	}
}
