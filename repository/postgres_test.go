package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"ranked-ledger/models"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB connects to DATABASE_URL (from the environment or ../.env) or skips.
func openTestDB(t *testing.T) *PostgresRepository {
	t.Helper()
	_ = godotenv.Load("../.env")
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping postgres integration test")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	repo := NewPostgresRepository(db)
	if err := repo.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

func TestPostgresRoundTrip(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()
	player := "test-" + uuid.NewString()
	t.Cleanup(func() {
		repo.DB.Where("player_id = ?", player).Delete(&models.SessionRecord{})
	})

	s := newSession(uuid.NewString(), player, "valorant", models.SessionStatusActive, time.Now().UTC())
	s.Name = "integration"
	saved, err := repo.Save(ctx, s)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	saved.Matches = append(saved.Matches, models.MatchRecord{
		ID: uuid.NewString(), Result: models.ResultWin, PointsChange: 18, Comments: []models.Comment{},
	})
	saved.CurrentPoints += 18
	saved, err = repo.Save(ctx, saved)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.LoadByID(ctx, player, s.ID)
	if err != nil || got == nil {
		t.Fatalf("load: %+v %v", got, err)
	}
	if got.CurrentPoints != 118 || len(got.Matches) != 1 || got.Name != "integration" || got.Version != 2 {
		t.Fatalf("unexpected session %+v", got)
	}

	stale := *got
	stale.Version = 1
	if _, err := repo.Save(ctx, stale); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	second := newSession(uuid.NewString(), player, "valorant", models.SessionStatusActive, time.Now().UTC())
	if _, err := repo.Save(ctx, second); !errors.Is(err, ErrActiveExists) {
		t.Fatalf("expected ErrActiveExists, got %v", err)
	}

	end := time.Now().UTC()
	got.Status = models.SessionStatusCompleted
	got.EndTime = &end
	if _, err := repo.Save(ctx, *got); err != nil {
		t.Fatalf("complete: %v", err)
	}
	completed, err := repo.CompletedSince(ctx, end.Add(-time.Minute))
	if err != nil {
		t.Fatalf("completed since: %v", err)
	}
	found := false
	for _, c := range completed {
		found = found || c.ID == s.ID
	}
	if !found {
		t.Fatal("completed session missing from CompletedSince")
	}

	if err := repo.Delete(ctx, player, s.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, player, s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
