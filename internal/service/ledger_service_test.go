package service

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"questacademy/internal/database"
	"questacademy/internal/repository"
)

type testEnv struct {
	db          *database.DB
	ledger      *LedgerService
	wallet      *WalletService
	progress    *repository.ProgressRepository
	scores      *repository.ScoreRepository
	wallets     *repository.WalletRepository
	users       *repository.UserRepository
	connections *repository.ConnectionRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	progressRepo := repository.NewProgressRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)

	return &testEnv{
		db:          db,
		ledger:      NewLedgerService(progressRepo, scoreRepo, walletRepo, achievementRepo),
		wallet:      NewWalletService(walletRepo),
		progress:    progressRepo,
		scores:      scoreRepo,
		wallets:     walletRepo,
		users:       repository.NewUserRepository(db),
		connections: repository.NewConnectionRepository(db),
	}
}

func (e *testEnv) createUser(t *testing.T, email, role string) int64 {
	t.Helper()
	user, err := e.users.CreateUser(email, "hash", "Test User", role)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user.ID
}

func TestRecordCompletion(t *testing.T) {
	env := newTestEnv(t)
	// First user becomes admin, create a second as the student
	env.createUser(t, "admin@example.com", "admin")
	userID := env.createUser(t, "student@example.com", "student")

	result, err := env.ledger.RecordCompletion(userID, "math-01", "math", 3)
	if err != nil {
		t.Fatalf("RecordCompletion failed: %v", err)
	}
	if result.AlreadyCompleted {
		t.Error("first completion should not be marked already completed")
	}

	s, err := env.ledger.Stats(userID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if s.CompletedCount != 1 {
		t.Errorf("expected 1 completed lesson, got %d", s.CompletedCount)
	}
	if s.Tokens != tokensPerCompletion {
		t.Errorf("expected %d tokens, got %d", tokensPerCompletion, s.Tokens)
	}
	if s.XP != xpPerCompletion {
		t.Errorf("expected %d xp, got %d", xpPerCompletion, s.XP)
	}
}

func TestRecordCompletionIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "admin@example.com", "admin")
	userID := env.createUser(t, "student@example.com", "student")

	if _, err := env.ledger.RecordCompletion(userID, "math-01", "math", 3); err != nil {
		t.Fatalf("RecordCompletion failed: %v", err)
	}
	result, err := env.ledger.RecordCompletion(userID, "math-01", "math", 3)
	if err != nil {
		t.Fatalf("repeat RecordCompletion failed: %v", err)
	}
	if !result.AlreadyCompleted {
		t.Error("repeat completion should be marked already completed")
	}

	s, _ := env.ledger.Stats(userID)
	if s.CompletedCount != 1 {
		t.Errorf("expected 1 completed lesson after repeat, got %d", s.CompletedCount)
	}
	if s.Tokens != tokensPerCompletion {
		t.Errorf("repeat completion must not earn again: got %d tokens", s.Tokens)
	}
}

func TestRecordCompletionRefreshesCompletedAt(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "admin@example.com", "admin")
	userID := env.createUser(t, "student@example.com", "student")

	if _, err := env.ledger.RecordCompletion(userID, "math-01", "math", 3); err != nil {
		t.Fatalf("RecordCompletion failed: %v", err)
	}
	first, err := env.progress.GetByUserAndLesson(userID, "math-01")
	if err != nil || first == nil || first.CompletedAt == nil {
		t.Fatalf("expected completion record with timestamp, got %v (err %v)", first, err)
	}

	time.Sleep(20 * time.Millisecond)

	if _, err := env.ledger.RecordCompletion(userID, "math-01", "math", 3); err != nil {
		t.Fatalf("repeat RecordCompletion failed: %v", err)
	}
	second, err := env.progress.GetByUserAndLesson(userID, "math-01")
	if err != nil || second == nil || second.CompletedAt == nil {
		t.Fatalf("expected completion record with timestamp, got %v (err %v)", second, err)
	}
	if !second.CompletedAt.After(*first.CompletedAt) {
		t.Errorf("repeat completion must refresh completed_at: first %v, second %v",
			first.CompletedAt, second.CompletedAt)
	}
}

func TestRecordCompletionValidation(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "student@example.com", "student")

	if _, err := env.ledger.RecordCompletion(userID, "", "math", 3); err == nil {
		t.Error("expected error for empty lesson id")
	}
	if _, err := env.ledger.RecordCompletion(userID, "math-01", "math", 0); err == nil {
		t.Error("expected error for invalid year level")
	}
}

func TestRecordScore(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "admin@example.com", "admin")
	userID := env.createUser(t, "student@example.com", "student")

	result, err := env.ledger.RecordScore(userID, "science", 5, 8, 10, "")
	if err != nil {
		t.Fatalf("RecordScore failed: %v", err)
	}
	if result.Duplicate {
		t.Error("first attempt should not be a duplicate")
	}
	if result.Record.Percentage != 80 {
		t.Errorf("expected percentage 80, got %d", result.Record.Percentage)
	}
	if result.Record.AttemptKey == "" {
		t.Error("expected a generated attempt key")
	}

	s, _ := env.ledger.Stats(userID)
	if s.ExamsTaken != 1 {
		t.Errorf("expected 1 exam taken, got %d", s.ExamsTaken)
	}
	if s.AverageScore != 80 {
		t.Errorf("expected average 80, got %d", s.AverageScore)
	}
}

func TestRecordScoreIdempotentByAttemptKey(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "admin@example.com", "admin")
	userID := env.createUser(t, "student@example.com", "student")

	key := "11111111-2222-3333-4444-555555555555"
	first, err := env.ledger.RecordScore(userID, "science", 5, 8, 10, key)
	if err != nil {
		t.Fatalf("RecordScore failed: %v", err)
	}

	// A retried submission carries the same attempt key
	second, err := env.ledger.RecordScore(userID, "science", 5, 8, 10, key)
	if err != nil {
		t.Fatalf("retried RecordScore failed: %v", err)
	}
	if !second.Duplicate {
		t.Error("retried attempt should be reported as duplicate")
	}
	if second.Record.ID != first.Record.ID {
		t.Errorf("retried attempt should return the stored record: got id %d, want %d", second.Record.ID, first.Record.ID)
	}

	count, err := env.scores.CountByUser(userID)
	if err != nil {
		t.Fatalf("CountByUser failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 stored attempt, got %d", count)
	}

	s, _ := env.ledger.Stats(userID)
	if s.Tokens != tokensPerExam {
		t.Errorf("duplicate must not earn again: got %d tokens", s.Tokens)
	}
}

func TestRecordScoreAppendOnly(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "admin@example.com", "admin")
	userID := env.createUser(t, "student@example.com", "student")

	// Same subject and year, distinct attempts: all are kept
	if _, err := env.ledger.RecordScore(userID, "science", 5, 6, 10, ""); err != nil {
		t.Fatalf("RecordScore failed: %v", err)
	}
	if _, err := env.ledger.RecordScore(userID, "science", 5, 9, 10, ""); err != nil {
		t.Fatalf("RecordScore failed: %v", err)
	}

	count, _ := env.scores.CountByUser(userID)
	if count != 2 {
		t.Errorf("expected 2 stored attempts, got %d", count)
	}

	s, _ := env.ledger.Stats(userID)
	if s.AverageScore != 75 {
		t.Errorf("expected average 75, got %d", s.AverageScore)
	}
}

func TestRecordScorePerfectBonus(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "admin@example.com", "admin")
	userID := env.createUser(t, "student@example.com", "student")

	if _, err := env.ledger.RecordScore(userID, "math", 4, 10, 10, ""); err != nil {
		t.Fatalf("RecordScore failed: %v", err)
	}

	s, _ := env.ledger.Stats(userID)
	if s.PerfectScores != 1 {
		t.Errorf("expected 1 perfect score, got %d", s.PerfectScores)
	}
	want := int64(tokensPerExam + perfectBonusTokens)
	if s.Tokens != want {
		t.Errorf("expected %d tokens with perfect bonus, got %d", want, s.Tokens)
	}
}

func TestRecordScoreRejectsInvalid(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "student@example.com", "student")

	if _, err := env.ledger.RecordScore(userID, "math", 4, 11, 10, ""); err == nil {
		t.Error("expected error for score above total marks")
	}
	if _, err := env.ledger.RecordScore(userID, "math", 4, 5, 0, ""); err == nil {
		t.Error("expected error for zero total marks")
	}
	if _, err := env.ledger.RecordScore(userID, "math", 4, -1, 10, ""); err == nil {
		t.Error("expected error for negative score")
	}
}

func TestAchievementUnlocksAreMonotonic(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "admin@example.com", "admin")
	userID := env.createUser(t, "student@example.com", "student")

	result, err := env.ledger.RecordCompletion(userID, "math-01", "math", 3)
	if err != nil {
		t.Fatalf("RecordCompletion failed: %v", err)
	}

	found := false
	for _, id := range result.NewAchievements {
		if id == "first_steps" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected first_steps unlock, got %v", result.NewAchievements)
	}

	// A later event must not report the same unlock again
	result, err = env.ledger.RecordCompletion(userID, "math-02", "math", 3)
	if err != nil {
		t.Fatalf("RecordCompletion failed: %v", err)
	}
	for _, id := range result.NewAchievements {
		if id == "first_steps" {
			t.Error("first_steps reported as new twice")
		}
	}

	unlocked, err := env.ledger.Achievements(userID)
	if err != nil {
		t.Fatalf("Achievements failed: %v", err)
	}
	if len(unlocked) == 0 {
		t.Error("expected persisted unlocks")
	}
}

func TestRecordStreak(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "admin@example.com", "admin")
	userID := env.createUser(t, "student@example.com", "student")

	if _, err := env.ledger.RecordStreak(userID, 7); err != nil {
		t.Fatalf("RecordStreak failed: %v", err)
	}
	// A worse run later must not lower the best
	if _, err := env.ledger.RecordStreak(userID, 3); err != nil {
		t.Fatalf("RecordStreak failed: %v", err)
	}

	s, _ := env.ledger.Stats(userID)
	if s.BestStreak != 7 {
		t.Errorf("expected best streak 7, got %d", s.BestStreak)
	}

	if _, err := env.ledger.RecordStreak(userID, -1); err == nil {
		t.Error("expected error for negative streak")
	}
}

func TestWalletSpend(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "admin@example.com", "admin")
	userID := env.createUser(t, "student@example.com", "student")

	if err := env.wallet.Earn(userID, 50); err != nil {
		t.Fatalf("Earn failed: %v", err)
	}
	if err := env.wallet.Spend(userID, 20); err != nil {
		t.Fatalf("Spend failed: %v", err)
	}

	w, err := env.wallet.Get(userID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if w.Tokens != 30 {
		t.Errorf("expected 30 tokens, got %d", w.Tokens)
	}
	if w.XP != 50 {
		t.Errorf("spending must not reduce xp: got %d", w.XP)
	}

	if err := env.wallet.Spend(userID, 100); err != ErrInsufficientTokens {
		t.Errorf("expected ErrInsufficientTokens, got %v", err)
	}
	w, _ = env.wallet.Get(userID)
	if w.Tokens != 30 {
		t.Errorf("failed spend must not change balance: got %d", w.Tokens)
	}
}

func TestConcurrentEarnsAllLand(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "admin@example.com", "admin")
	userID := env.createUser(t, "student@example.com", "student")

	const workers = 5
	const earnsPerWorker = 10

	var wg sync.WaitGroup
	errs := make(chan error, workers*earnsPerWorker)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < earnsPerWorker; j++ {
				if err := env.wallet.Earn(userID, 2); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Earn failed: %v", err)
	}

	w, err := env.wallet.Get(userID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	want := int64(workers * earnsPerWorker * 2)
	if w.Tokens != want {
		t.Errorf("expected %d tokens after concurrent earns, got %d", want, w.Tokens)
	}
	if w.XP != want {
		t.Errorf("expected %d xp after concurrent earns, got %d", want, w.XP)
	}
}
