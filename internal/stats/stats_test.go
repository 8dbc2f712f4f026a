package stats

import (
	"reflect"
	"testing"
	"time"

	"questacademy/internal/models"
)

func completedRecord(lesson, subject string) models.ProgressRecord {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return models.ProgressRecord{
		LessonID:    lesson,
		SubjectID:   subject,
		Completed:   true,
		CompletedAt: &now,
	}
}

func TestComputeCounts(t *testing.T) {
	progress := []models.ProgressRecord{
		completedRecord("math-y1-l1", "math"),
		completedRecord("math-y1-l2", "math"),
		completedRecord("english-y1-l1", "english"),
		{LessonID: "science-y1-l1", SubjectID: "science", Completed: false},
	}

	s := Compute(progress, nil)

	if s.CompletedCount != 3 {
		t.Errorf("CompletedCount = %d, want 3", s.CompletedCount)
	}
	if s.PerSubject["math"] != 2 {
		t.Errorf("PerSubject[math] = %d, want 2", s.PerSubject["math"])
	}
	if s.PerSubject["english"] != 1 {
		t.Errorf("PerSubject[english] = %d, want 1", s.PerSubject["english"])
	}
	if _, ok := s.PerSubject["science"]; ok {
		t.Error("incomplete lesson must not count toward its subject")
	}
}

func TestComputeAverageScore(t *testing.T) {
	scores := []models.ScoreRecord{
		{Percentage: 80},
		{Percentage: 90},
	}

	s := Compute(nil, scores)

	if s.ExamsTaken != 2 {
		t.Errorf("ExamsTaken = %d, want 2", s.ExamsTaken)
	}
	if s.AverageScore != 85 {
		t.Errorf("AverageScore = %d, want 85", s.AverageScore)
	}
}

func TestComputeIsReferentiallyTransparent(t *testing.T) {
	progress := []models.ProgressRecord{
		completedRecord("math-y1-l1", "math"),
	}
	scores := []models.ScoreRecord{
		{Percentage: 100},
		{Percentage: 50},
	}

	first := Compute(progress, scores)
	second := Compute(progress, scores)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Compute is not deterministic: %+v != %+v", first, second)
	}
}

func TestLabelForCompleted(t *testing.T) {
	tests := []struct {
		completed int
		want      string
	}{
		{0, "Novice"},
		{4, "Novice"},
		{5, "Apprentice"},
		{9, "Apprentice"},
		{10, "Skilled"},
		{15, "Expert"},
		{19, "Expert"},
		{20, "Master"},
		{500, "Master"},
	}

	for _, tt := range tests {
		if got := LabelForCompleted(tt.completed); got != tt.want {
			t.Errorf("LabelForCompleted(%d) = %v, want %v", tt.completed, got, tt.want)
		}
	}
}

func TestLabelIsMonotonic(t *testing.T) {
	// The label index must never decrease as the completed count rises
	rank := func(label string) int {
		for i, lt := range Levels() {
			if lt.Label == label {
				return i
			}
		}
		t.Fatalf("unknown label %q", label)
		return -1
	}

	prev := 0
	for completed := 0; completed <= 50; completed++ {
		r := rank(LabelForCompleted(completed))
		if r < prev {
			t.Fatalf("level rank regressed at completed=%d", completed)
		}
		prev = r
	}
}

func TestPlayerLevel(t *testing.T) {
	tests := []struct {
		xp        int64
		wantLevel int
		wantNext  int64
	}{
		{0, 1, 100},
		{99, 1, 1},
		{100, 2, 100},
		{250, 3, 50},
		{-10, 1, 100},
	}

	for _, tt := range tests {
		if got := PlayerLevel(tt.xp); got != tt.wantLevel {
			t.Errorf("PlayerLevel(%d) = %d, want %d", tt.xp, got, tt.wantLevel)
		}
		if got := XPToNext(tt.xp); got != tt.wantNext {
			t.Errorf("XPToNext(%d) = %d, want %d", tt.xp, got, tt.wantNext)
		}
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		name    string
		score   int
		total   int
		want    int
		wantErr bool
	}{
		{name: "full marks", score: 10, total: 10, want: 100},
		{name: "eight out of ten", score: 8, total: 10, want: 80},
		{name: "rounds half up", score: 1, total: 3, want: 33},
		{name: "rounds up", score: 2, total: 3, want: 67},
		{name: "zero score", score: 0, total: 10, want: 0},
		{name: "zero total is an error", score: 5, total: 0, wantErr: true},
		{name: "negative total is an error", score: 5, total: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Percentage(tt.score, tt.total)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Percentage(%d, %d) = %d, want %d", tt.score, tt.total, got, tt.want)
			}
		})
	}
}

func TestWithWallet(t *testing.T) {
	s := Compute(nil, nil)
	s = s.WithWallet(models.Wallet{Tokens: 50, XP: 230, BestStreak: 7})

	if s.Tokens != 50 || s.XP != 230 || s.BestStreak != 7 {
		t.Errorf("wallet counters not attached: %+v", s)
	}
	if s.Level != 3 {
		t.Errorf("Level = %d, want 3", s.Level)
	}
	if s.XPToNext != 70 {
		t.Errorf("XPToNext = %d, want 70", s.XPToNext)
	}
}
