package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"studyhub-backend/internal/models"
)

// fakeSessionStore keeps sessions in a map and hands out copies, the way a row
// scan would.
type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]models.StudySession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[uuid.UUID]models.StudySession)}
}

func (f *fakeSessionStore) Create(ctx context.Context, s *models.StudySession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = uuid.New()
	s.Status = models.SessionUpcoming
	f.sessions[s.ID] = *s
	return nil
}

func (f *fakeSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*models.StudySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &s, nil
}

func (f *fakeSessionStore) Save(ctx context.Context, s *models.StudySession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = *s
	return nil
}

func (f *fakeSessionStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.StudySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.StudySession
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func newTestSessionService(store *fakeSessionStore, clock func() time.Time) *SessionService {
	svc := NewSessionService(store)
	svc.clock = clock
	return svc
}

func TestSessionService_CreateValidation(t *testing.T) {
	svc := NewSessionService(newFakeSessionStore())
	userID := uuid.New()

	_, err := svc.Create(context.Background(), userID, "", "", time.Now(), 0)
	vErr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if _, ok := vErr.Fields["subject"]; !ok {
		t.Error("Expected subject field error")
	}
	if _, ok := vErr.Fields["duration_minutes"]; !ok {
		t.Error("Expected duration_minutes field error")
	}
}

func TestSessionService_FullLifecycle(t *testing.T) {
	store := newFakeSessionStore()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := newTestSessionService(store, func() time.Time { return now })

	userID := uuid.New()
	session, err := svc.Create(context.Background(), userID, "Physics", "Optics", now, 30)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := svc.Start(context.Background(), userID, session.ID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	now = now.Add(10 * time.Minute)
	if _, err := svc.Pause(context.Background(), userID, session.ID); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}

	now = now.Add(5 * time.Minute)
	if _, err := svc.Resume(context.Background(), userID, session.ID); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}

	now = now.Add(5 * time.Minute)
	completed, endedEarly, err := svc.Complete(context.Background(), userID, session.ID)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if completed.TotalElapsedSeconds != 900 {
		t.Errorf("Expected 900 elapsed seconds, got %d", completed.TotalElapsedSeconds)
	}
	if !endedEarly {
		t.Error("15 of 30 minutes should be flagged as ended early")
	}

	// The persisted row must match what was returned.
	stored, _ := store.GetByID(context.Background(), session.ID)
	if stored.Status != models.SessionCompleted || stored.TotalElapsedSeconds != 900 {
		t.Errorf("Persisted session out of sync: status=%s elapsed=%d", stored.Status, stored.TotalElapsedSeconds)
	}
}

func TestSessionService_NotFound(t *testing.T) {
	svc := NewSessionService(newFakeSessionStore())

	_, err := svc.Start(context.Background(), uuid.New(), uuid.New())
	if _, ok := err.(*NotFoundError); !ok {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
}

func TestSessionService_OwnershipEnforced(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewSessionService(store)

	owner := uuid.New()
	session, err := svc.Create(context.Background(), owner, "History", "", time.Now(), 20)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = svc.Start(context.Background(), uuid.New(), session.ID)
	if _, ok := err.(*ForbiddenError); !ok {
		t.Errorf("Expected ForbiddenError for another user's session, got %v", err)
	}
}

func TestSessionService_ConcurrentPauseOnlyOneWins(t *testing.T) {
	store := newFakeSessionStore()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := newTestSessionService(store, func() time.Time { return now })

	userID := uuid.New()
	session, _ := svc.Create(context.Background(), userID, "Biology", "", now, 30)
	svc.Start(context.Background(), userID, session.ID)

	now = now.Add(10 * time.Minute)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Pause(context.Background(), userID, session.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Errorf("Expected exactly one pause to win, got %d", succeeded)
	}

	stored, _ := store.GetByID(context.Background(), session.ID)
	if stored.TotalElapsedSeconds != 600 {
		t.Errorf("Expected 600 elapsed seconds after one fold, got %d", stored.TotalElapsedSeconds)
	}
}
