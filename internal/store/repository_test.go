package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/boothsim/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newSQLiteRepo(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "sim.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newRedisRepo(t *testing.T) Repository {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}
	repo := NewRedisWithClient(client, time.Hour, nil)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleSession(traineeID string, created time.Time) *domain.Session {
	return &domain.Session{
		ID:          uuid.NewString(),
		TraineeID:   traineeID,
		Difficulty:  "medium",
		Phase:       domain.PhaseExploration,
		OutcomeSeed: "seed",
		Persona:     domain.Persona{Key: "skeptical-sre", Role: "Senior SRE", Modifiers: []string{"busy"}},
		Transcript: []domain.Message{
			{ID: "m1", Type: domain.MessageAttendee, Text: "Hi.", Timestamp: created},
		},
		PhaseHistory:     []domain.PhaseTransition{{From: domain.PhaseOpening, To: domain.PhaseExploration, At: created}},
		Violations:       []string{"early_pitch"},
		ExpressedIntents: []domain.Intent{domain.IntentShareTooling},
		ToolingContext:   []string{"Prometheus", "Grafana"},
		Active:           true,
		CreatedAt:        created,
		UpdatedAt:        created,
	}
}

func forEachRepo(t *testing.T, fn func(t *testing.T, repo Repository)) {
	t.Run("sqlite", func(t *testing.T) {
		t.Parallel()
		fn(t, newSQLiteRepo(t))
	})
	t.Run("redis", func(t *testing.T) {
		t.Parallel()
		fn(t, newRedisRepo(t))
	})
}

func TestSessionRoundTrip(t *testing.T) {
	t.Parallel()

	forEachRepo(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		now := time.Now().UTC()
		s := sampleSession("trainee-"+uuid.NewString(), now)
		if err := repo.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		if s.Version != 1 {
			t.Fatalf("Version = %d, want 1", s.Version)
		}

		got, err := repo.GetSession(ctx, s.ID)
		if err != nil || got == nil {
			t.Fatalf("GetSession = %v, %v", got, err)
		}
		if got.Phase != domain.PhaseExploration || got.Persona.Role != "Senior SRE" {
			t.Fatalf("unexpected session: %+v", got)
		}
		if len(got.Transcript) != 1 || got.Transcript[0].Text != "Hi." {
			t.Fatalf("transcript not stored: %+v", got.Transcript)
		}
		if len(got.ToolingContext) != 2 || got.ExpressedIntents[0] != domain.IntentShareTooling {
			t.Fatalf("json columns not stored: %+v", got)
		}
		if !got.CreatedAt.Equal(now) {
			t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, now)
		}
	})
}

func TestGetMissingReturnsNil(t *testing.T) {
	t.Parallel()

	forEachRepo(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		if s, err := repo.GetSession(ctx, "nope"); s != nil || err != nil {
			t.Fatalf("GetSession = %v, %v", s, err)
		}
		if tr, err := repo.GetTrainee(ctx, "nope"); tr != nil || err != nil {
			t.Fatalf("GetTrainee = %v, %v", tr, err)
		}
		if sc, err := repo.GetScore(ctx, "nope"); sc != nil || err != nil {
			t.Fatalf("GetScore = %v, %v", sc, err)
		}
	})
}

func TestUpdateSessionOptimisticVersion(t *testing.T) {
	t.Parallel()

	forEachRepo(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		s := sampleSession("trainee-"+uuid.NewString(), time.Now().UTC())
		if err := repo.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}

		stale := *s
		s.Phase = domain.PhasePainDiscovery
		if err := repo.UpdateSession(ctx, s); err != nil {
			t.Fatalf("UpdateSession failed: %v", err)
		}
		if s.Version != 2 {
			t.Fatalf("Version = %d, want 2", s.Version)
		}

		stale.Phase = domain.PhaseOutcome
		if err := repo.UpdateSession(ctx, &stale); !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("stale update err = %v, want ErrVersionConflict", err)
		}

		got, _ := repo.GetSession(ctx, s.ID)
		if got.Phase != domain.PhasePainDiscovery || got.Version != 2 {
			t.Fatalf("stored session = %+v", got)
		}

		missing := sampleSession("x", time.Now())
		missing.Version = 1
		if err := repo.UpdateSession(ctx, missing); !errors.Is(err, ErrNotFound) {
			t.Fatalf("missing update err = %v, want ErrNotFound", err)
		}
	})
}

func TestConcurrentUpdatesOnlyOneWins(t *testing.T) {
	t.Parallel()

	forEachRepo(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		s := sampleSession("trainee-"+uuid.NewString(), time.Now().UTC())
		if err := repo.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}

		const writers = 5
		var wg sync.WaitGroup
		results := make(chan error, writers)
		for i := 0; i < writers; i++ {
			mine := s.Clone()
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- repo.UpdateSession(ctx, &mine)
			}()
		}
		wg.Wait()
		close(results)

		wins := 0
		for err := range results {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrVersionConflict):
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if wins != 1 {
			t.Fatalf("%d writers won, want exactly 1", wins)
		}
	})
}

func TestListSessionsNewestFirst(t *testing.T) {
	t.Parallel()

	forEachRepo(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		trainee := "trainee-" + uuid.NewString()
		base := time.Now().UTC()
		older := sampleSession(trainee, base.Add(-time.Minute))
		newer := sampleSession(trainee, base)
		other := sampleSession("someone-else-"+uuid.NewString(), base)
		for _, s := range []*domain.Session{older, newer, other} {
			if err := repo.CreateSession(ctx, s); err != nil {
				t.Fatalf("CreateSession failed: %v", err)
			}
		}

		list, err := repo.ListSessions(ctx, trainee)
		if err != nil {
			t.Fatalf("ListSessions failed: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("got %d sessions, want 2", len(list))
		}
		if list[0].ID != newer.ID || list[1].ID != older.ID {
			t.Fatalf("wrong order: %s, %s", list[0].ID, list[1].ID)
		}
	})
}

func TestScoresAreImmutable(t *testing.T) {
	t.Parallel()

	forEachRepo(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		id := uuid.NewString()
		score := &domain.ScoreRecord{SessionID: id, Total: 72, Grade: "B", Outcome: domain.OutcomeDemo}
		if err := repo.SaveScore(ctx, score); err != nil {
			t.Fatalf("SaveScore failed: %v", err)
		}
		again := &domain.ScoreRecord{SessionID: id, Total: 10, Grade: "F"}
		if err := repo.SaveScore(ctx, again); !errors.Is(err, ErrScoreExists) {
			t.Fatalf("second SaveScore err = %v, want ErrScoreExists", err)
		}
		got, err := repo.GetScore(ctx, id)
		if err != nil || got == nil {
			t.Fatalf("GetScore = %v, %v", got, err)
		}
		if got.Total != 72 || got.Grade != "B" {
			t.Fatalf("score was overwritten: %+v", got)
		}
	})
}

func TestTraineeUpsert(t *testing.T) {
	t.Parallel()

	forEachRepo(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		now := time.Now().UTC()
		tr := &domain.Trainee{TraineeID: uuid.NewString(), DisplayName: "Trainee", LastSeenAt: now, CreatedAt: now, UpdatedAt: now}
		if err := repo.UpsertTrainee(ctx, tr); err != nil {
			t.Fatalf("UpsertTrainee failed: %v", err)
		}
		tr.DisplayName = "Renamed"
		tr.LastSeenAt = now.Add(time.Minute)
		if err := repo.UpsertTrainee(ctx, tr); err != nil {
			t.Fatalf("second UpsertTrainee failed: %v", err)
		}
		got, err := repo.GetTrainee(ctx, tr.TraineeID)
		if err != nil || got == nil {
			t.Fatalf("GetTrainee = %v, %v", got, err)
		}
		if got.DisplayName != "Renamed" || !got.LastSeenAt.Equal(now.Add(time.Minute)) {
			t.Fatalf("trainee = %+v", got)
		}
	})
}

func TestSQLiteDeleteExpiredSessions(t *testing.T) {
	t.Parallel()

	repo := newSQLiteRepo(t)
	ctx := context.Background()
	stale := sampleSession("t", time.Now().Add(-48*time.Hour).UTC())
	fresh := sampleSession("t", time.Now().UTC())
	for _, s := range []*domain.Session{stale, fresh} {
		if err := repo.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}
	n, err := repo.DeleteExpiredSessions(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted %d, want 1", n)
	}
	if got, _ := repo.GetSession(ctx, stale.ID); got != nil {
		t.Fatal("stale session survived")
	}
	if got, _ := repo.GetSession(ctx, fresh.ID); got == nil {
		t.Fatal("fresh session deleted")
	}
}
