// Package achievements defines the badge catalogue and evaluates which
// badges a user's statistics currently satisfy. Unlock persistence (and the
// once-unlocked-always-unlocked guarantee) lives in the repository layer;
// this package is pure rules.
package achievements

import "questacademy/internal/stats"

// Definition describes one achievement. Predicate is evaluated against a
// user's derived stats; a nil Predicate marks an achievement whose signal
// the ledger does not collect yet — it can never unlock.
type Definition struct {
	ID          string
	Name        string
	Description string
	Predicate   func(stats.Stats) bool
}

// Trackable reports whether the achievement can actually unlock with the
// signals the ledger collects today.
func (d Definition) Trackable() bool {
	return d.Predicate != nil
}

var definitions = []Definition{
	{
		ID:          "first_steps",
		Name:        "First Steps",
		Description: "Complete your first lesson",
		Predicate:   func(s stats.Stats) bool { return s.CompletedCount >= 1 },
	},
	{
		ID:          "quick_learner",
		Name:        "Quick Learner",
		Description: "Complete 5 lessons",
		Predicate:   func(s stats.Stats) bool { return s.CompletedCount >= 5 },
	},
	{
		ID:          "scholar",
		Name:        "Scholar",
		Description: "Complete 20 lessons",
		Predicate:   func(s stats.Stats) bool { return s.CompletedCount >= 20 },
	},
	{
		ID:          "subject_explorer",
		Name:        "Subject Explorer",
		Description: "Complete lessons in 3 different subjects",
		Predicate:   func(s stats.Stats) bool { return len(s.PerSubject) >= 3 },
	},
	{
		ID:          "boss_challenger",
		Name:        "Boss Challenger",
		Description: "Take your first exam",
		Predicate:   func(s stats.Stats) bool { return s.ExamsTaken >= 1 },
	},
	{
		ID:          "perfectionist",
		Name:        "Perfectionist",
		Description: "Score 100% on an exam",
		Predicate:   func(s stats.Stats) bool { return s.PerfectScores >= 1 },
	},
	{
		ID:          "high_achiever",
		Name:        "High Achiever",
		Description: "Average 90% or better across 3 or more exams",
		Predicate:   func(s stats.Stats) bool { return s.ExamsTaken >= 3 && s.AverageScore >= 90 },
	},
	{
		ID:          "streak_runner",
		Name:        "Streak Runner",
		Description: "Reach a 5 day streak",
		Predicate:   func(s stats.Stats) bool { return s.BestStreak >= 5 },
	},
	{
		ID:          "marathon",
		Name:        "Marathon",
		Description: "Reach a 30 day streak",
		Predicate:   func(s stats.Stats) bool { return s.BestStreak >= 30 },
	},
	{
		ID:          "token_collector",
		Name:        "Token Collector",
		Description: "Hold 100 tokens at once",
		Predicate:   func(s stats.Stats) bool { return s.Tokens >= 100 },
	},
	{
		ID:          "level_five",
		Name:        "Seasoned Adventurer",
		Description: "Reach player level 5",
		Predicate:   func(s stats.Stats) bool { return s.Level >= 5 },
	},

	// The ledger has no birthday, clock-of-day, or device signals. These
	// stay locked until such signals exist; they are deliberately not
	// approximated from data we do not collect.
	{
		ID:          "birthday_quest",
		Name:        "Birthday Quest",
		Description: "Complete a quest on your birthday",
	},
	{
		ID:          "night_owl",
		Name:        "Night Owl",
		Description: "Finish a lesson after midnight",
	},
}

// All returns the full achievement catalogue
func All() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// ByID returns the definition for an achievement ID
func ByID(id string) (Definition, bool) {
	for _, d := range definitions {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}

// Evaluate returns the IDs of all achievements whose predicates hold for
// the given stats. Untrackable achievements are never returned. The result
// reflects the stats alone; callers merge it with the stored unlocked set
// to preserve monotonicity.
func Evaluate(s stats.Stats) []string {
	var unlocked []string
	for _, d := range definitions {
		if d.Predicate != nil && d.Predicate(s) {
			unlocked = append(unlocked, d.ID)
		}
	}
	return unlocked
}
