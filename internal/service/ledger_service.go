package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"questacademy/internal/achievements"
	"questacademy/internal/models"
	"questacademy/internal/repository"
	"questacademy/internal/stats"
	"questacademy/internal/validation"
)

var (
	ErrInvalidScore  = errors.New("invalid score")
	ErrEmptyLessonID = errors.New("lesson id is required")
)

// Token and XP earned per event. Score rewards scale with the percentage.
const (
	tokensPerCompletion = 5
	xpPerCompletion     = 10
	tokensPerExam       = 10
	xpPerExamBase       = 20
	perfectBonusTokens  = 5
)

// LedgerService records lesson completions and exam attempts, maintains the
// wallet counters they earn, and unlocks achievements as stats cross
// thresholds.
type LedgerService struct {
	progressRepo    *repository.ProgressRepository
	scoreRepo       *repository.ScoreRepository
	walletRepo      *repository.WalletRepository
	achievementRepo *repository.AchievementRepository
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	progressRepo *repository.ProgressRepository,
	scoreRepo *repository.ScoreRepository,
	walletRepo *repository.WalletRepository,
	achievementRepo *repository.AchievementRepository,
) *LedgerService {
	return &LedgerService{
		progressRepo:    progressRepo,
		scoreRepo:       scoreRepo,
		walletRepo:      walletRepo,
		achievementRepo: achievementRepo,
	}
}

// CompletionResult describes the outcome of recording a completion
type CompletionResult struct {
	AlreadyCompleted bool
	NewAchievements  []string
}

// RecordCompletion marks a lesson complete for a user. Completing the same
// lesson again is a no-op for the ledger and earns nothing.
func (s *LedgerService) RecordCompletion(userID int64, lessonID, subjectID string, yearLevel int) (*CompletionResult, error) {
	if lessonID == "" {
		return nil, ErrEmptyLessonID
	}
	if err := validation.ValidateYearLevel(yearLevel); err != nil {
		return nil, err
	}

	existing, err := s.progressRepo.GetByUserAndLesson(userID, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to check progress: %w", err)
	}
	alreadyCompleted := existing != nil && existing.Completed

	if err := s.progressRepo.UpsertCompletion(userID, lessonID, subjectID, yearLevel, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to record completion: %w", err)
	}

	result := &CompletionResult{AlreadyCompleted: alreadyCompleted}
	if alreadyCompleted {
		return result, nil
	}

	if err := s.walletRepo.AddToCounter(userID, models.CounterTokens, tokensPerCompletion); err != nil {
		return nil, fmt.Errorf("failed to award tokens: %w", err)
	}
	if err := s.walletRepo.AddToCounter(userID, models.CounterXP, xpPerCompletion); err != nil {
		return nil, fmt.Errorf("failed to award xp: %w", err)
	}

	newlyUnlocked, err := s.refreshAchievements(userID)
	if err != nil {
		return nil, err
	}
	result.NewAchievements = newlyUnlocked
	return result, nil
}

// ScoreResult describes the outcome of recording an exam attempt
type ScoreResult struct {
	Record          *models.ScoreRecord
	Duplicate       bool
	NewAchievements []string
}

// RecordScore appends an exam attempt to the ledger. The attempt key makes
// retried submissions idempotent: a key seen before returns the stored
// record without appending or earning again. An empty key gets a fresh one.
func (s *LedgerService) RecordScore(userID int64, subjectID string, yearLevel, score, totalMarks int, attemptKey string) (*ScoreResult, error) {
	if err := validation.ValidateScore(score, totalMarks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}
	if err := validation.ValidateYearLevel(yearLevel); err != nil {
		return nil, err
	}

	percentage, err := stats.Percentage(score, totalMarks)
	if err != nil {
		return nil, err
	}

	if attemptKey == "" {
		attemptKey = uuid.New().String()
	}

	record := &models.ScoreRecord{
		UserID:      userID,
		SubjectID:   subjectID,
		YearLevel:   yearLevel,
		Score:       score,
		TotalMarks:  totalMarks,
		Percentage:  percentage,
		AttemptKey:  attemptKey,
		CompletedAt: time.Now(),
	}

	saved, inserted, err := s.scoreRepo.InsertAttempt(record)
	if err != nil {
		return nil, fmt.Errorf("failed to record score: %w", err)
	}

	result := &ScoreResult{Record: saved, Duplicate: !inserted}
	if !inserted {
		log.Printf("Duplicate exam attempt ignored: user=%d key=%s", userID, attemptKey)
		return result, nil
	}

	tokens := int64(tokensPerExam)
	if percentage == 100 {
		tokens += perfectBonusTokens
	}
	if err := s.walletRepo.AddToCounter(userID, models.CounterTokens, tokens); err != nil {
		return nil, fmt.Errorf("failed to award tokens: %w", err)
	}
	xp := int64(xpPerExamBase) + int64(percentage)/10
	if err := s.walletRepo.AddToCounter(userID, models.CounterXP, xp); err != nil {
		return nil, fmt.Errorf("failed to award xp: %w", err)
	}

	newlyUnlocked, err := s.refreshAchievements(userID)
	if err != nil {
		return nil, err
	}
	result.NewAchievements = newlyUnlocked
	return result, nil
}

// RecordStreak raises the user's best streak counter. Streaks only ever go
// up; reporting a lower run leaves the stored best untouched.
func (s *LedgerService) RecordStreak(userID int64, streak int64) ([]string, error) {
	if streak < 0 {
		return nil, fmt.Errorf("streak cannot be negative")
	}
	if err := s.walletRepo.RaiseCounter(userID, models.CounterBestStreak, streak); err != nil {
		return nil, fmt.Errorf("failed to record streak: %w", err)
	}
	return s.refreshAchievements(userID)
}

// Stats computes the user's derived statistics from the ledger and wallet
func (s *LedgerService) Stats(userID int64) (stats.Stats, error) {
	progress, err := s.progressRepo.GetByUser(userID)
	if err != nil {
		return stats.Stats{}, fmt.Errorf("failed to load progress: %w", err)
	}
	scores, err := s.scoreRepo.GetByUser(userID)
	if err != nil {
		return stats.Stats{}, fmt.Errorf("failed to load scores: %w", err)
	}
	wallet, err := s.walletRepo.GetWallet(userID)
	if err != nil {
		return stats.Stats{}, fmt.Errorf("failed to load wallet: %w", err)
	}

	return stats.Compute(progress, scores).WithWallet(*wallet), nil
}

// History returns the user's progress records and exam attempts
func (s *LedgerService) History(userID int64) ([]models.ProgressRecord, []models.ScoreRecord, error) {
	progress, err := s.progressRepo.GetByUser(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load progress: %w", err)
	}
	scores, err := s.scoreRepo.GetByUser(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load scores: %w", err)
	}
	return progress, scores, nil
}

// Achievements returns the unlock records for a user
func (s *LedgerService) Achievements(userID int64) ([]models.UserAchievement, error) {
	return s.achievementRepo.GetUnlocked(userID)
}

// refreshAchievements evaluates the catalogue against current stats and
// persists any newly earned unlocks. Unlocks already stored stay locked in;
// stats sliding back below a threshold never revokes one.
func (s *LedgerService) refreshAchievements(userID int64) ([]string, error) {
	current, err := s.Stats(userID)
	if err != nil {
		return nil, err
	}

	unlocked, err := s.achievementRepo.GetUnlockedIDs(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unlocks: %w", err)
	}

	var newly []string
	now := time.Now()
	for _, id := range achievements.Evaluate(current) {
		if unlocked[id] {
			continue
		}
		if err := s.achievementRepo.Unlock(userID, id, now); err != nil {
			return nil, fmt.Errorf("failed to unlock achievement %s: %w", id, err)
		}
		newly = append(newly, id)
	}
	return newly, nil
}
