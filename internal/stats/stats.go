// Package stats computes derived statistics from the progress and score
// ledgers. Everything here is pure: identical ledger contents always give
// identical results, and nothing is persisted. UI layers, achievement
// evaluation, and the sync agent are all consumers of this package; none of
// them carry their own level math.
package stats

import (
	"errors"
	"math"

	"questacademy/internal/models"
)

// ErrZeroMaxScore is returned when a score is submitted with zero total
// marks. Guarded explicitly so percentage math can never divide by zero.
var ErrZeroMaxScore = errors.New("total marks must be greater than zero")

// XPPerLevel is the XP step for the numeric player level
const XPPerLevel = 100

// LevelThreshold maps a minimum completed-lesson count to a level label
type LevelThreshold struct {
	MinCompleted int
	Label        string
}

// levelTable is the single ordered threshold table for level labels,
// ascending by threshold. Evaluation walks it highest-first.
var levelTable = []LevelThreshold{
	{0, "Novice"},
	{5, "Apprentice"},
	{10, "Skilled"},
	{15, "Expert"},
	{20, "Master"},
}

// Stats is the full set of values derived from a user's ledgers, plus the
// wallet counters attached via WithWallet for achievement evaluation.
type Stats struct {
	CompletedCount int
	PerSubject     map[string]int
	ExamsTaken     int
	AverageScore   int
	PerfectScores  int
	LevelLabel     string

	// Wallet-backed counters, zero until attached with WithWallet
	Tokens     int64
	XP         int64
	BestStreak int64
	Level      int
	XPToNext   int64
}

// Compute derives statistics from ledger records. Pure: no side effects, no
// clock reads, no randomness.
func Compute(progress []models.ProgressRecord, scores []models.ScoreRecord) Stats {
	s := Stats{
		PerSubject: make(map[string]int),
		Level:      1,
		XPToNext:   XPPerLevel,
	}

	for _, p := range progress {
		if !p.Completed {
			continue
		}
		s.CompletedCount++
		s.PerSubject[p.SubjectID]++
	}

	total := 0
	for _, sc := range scores {
		s.ExamsTaken++
		total += sc.Percentage
		if sc.Percentage == 100 {
			s.PerfectScores++
		}
	}
	if s.ExamsTaken > 0 {
		s.AverageScore = int(math.Round(float64(total) / float64(s.ExamsTaken)))
	}

	s.LevelLabel = LabelForCompleted(s.CompletedCount)

	return s
}

// WithWallet returns a copy of s with the wallet counters and the
// XP-derived numeric level attached.
func (s Stats) WithWallet(w models.Wallet) Stats {
	s.Tokens = w.Tokens
	s.XP = w.XP
	s.BestStreak = w.BestStreak
	s.Level = PlayerLevel(w.XP)
	s.XPToNext = XPToNext(w.XP)
	return s
}

// LabelForCompleted returns the level label for a completed-lesson count,
// evaluating the threshold table highest-first.
func LabelForCompleted(completed int) string {
	for i := len(levelTable) - 1; i >= 0; i-- {
		if completed >= levelTable[i].MinCompleted {
			return levelTable[i].Label
		}
	}
	return levelTable[0].Label
}

// Levels returns a copy of the threshold table for display purposes
func Levels() []LevelThreshold {
	out := make([]LevelThreshold, len(levelTable))
	copy(out, levelTable)
	return out
}

// PlayerLevel returns the numeric level for an XP total: level 1 at 0 XP,
// one level per XPPerLevel thereafter.
func PlayerLevel(xp int64) int {
	if xp < 0 {
		return 1
	}
	return int(xp/XPPerLevel) + 1
}

// XPToNext returns the XP remaining until the next numeric level
func XPToNext(xp int64) int64 {
	if xp < 0 {
		return XPPerLevel
	}
	level := int64(PlayerLevel(xp))
	return level*XPPerLevel - xp
}

// Percentage computes round(score/totalMarks*100). totalMarks must be
// positive; zero returns ErrZeroMaxScore rather than NaN or a panic.
func Percentage(score, totalMarks int) (int, error) {
	if totalMarks <= 0 {
		return 0, ErrZeroMaxScore
	}
	return int(math.Round(float64(score) / float64(totalMarks) * 100)), nil
}
