package scoring

import (
	"math"
	"time"
)

// ScoringConfig holds configurable scoring constants (defaults match the live game rules).
type ScoringConfig struct {
	BaseScore        int // default: 1000
	MaxSpeedBonus    int // default: 300
	StreakBonus      int // default: 500, awarded on every StreakInterval-th consecutive correct answer
	StreakInterval   int // default: 3
	DoubleMultiplier int // default: 2
}

// DefaultScoringConfig returns production defaults.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		BaseScore:        1000,
		MaxSpeedBonus:    300,
		StreakBonus:      500,
		StreakInterval:   3,
		DoubleMultiplier: 2,
	}
}

// Engine computes server-side scores with configurable constants.
type Engine struct {
	config ScoringConfig
}

// NewEngine creates a scoring engine with the provided config.
func NewEngine(config ScoringConfig) *Engine {
	if config.StreakInterval <= 0 {
		config.StreakInterval = 1
	}
	if config.DoubleMultiplier <= 0 {
		config.DoubleMultiplier = 1
	}
	return &Engine{config: config}
}

// Input describes one accepted answer.
// StreakAfter is the player's consecutive-correct count including this answer.
type Input struct {
	Correct      bool
	ResponseTime time.Duration
	TimeLimit    time.Duration
	Double       bool
	StreakAfter  int
}

// Result is the scoring outcome for one answer.
type Result struct {
	Points      int
	SpeedBonus  int
	StreakBonus bool
}

// CalculateScore computes points for a single answer.
// Formula: (base + speed_bonus) * multiplier, plus streak_bonus * multiplier on streak milestones.
// - speed_bonus: max when answered instantly, decays linearly to 0 at the time limit
// - streak_bonus: flat, on every StreakInterval-th consecutive correct answer
func (e *Engine) CalculateScore(in Input) Result {
	if !in.Correct {
		return Result{}
	}

	multiplier := 1
	if in.Double {
		multiplier = e.config.DoubleMultiplier
	}

	speed := e.SpeedBonus(in.ResponseTime, in.TimeLimit)
	points := (e.config.BaseScore + speed) * multiplier

	res := Result{SpeedBonus: speed}
	if e.IsStreakMilestone(in.StreakAfter) {
		points += e.config.StreakBonus * multiplier
		res.StreakBonus = true
	}
	res.Points = points
	return res
}

// SpeedBonus returns round(max * unused/limit), using millisecond resolution.
func (e *Engine) SpeedBonus(responseTime, timeLimit time.Duration) int {
	limitMs := timeLimit.Milliseconds()
	if limitMs <= 0 {
		return 0
	}
	remaining := limitMs - responseTime.Milliseconds()
	if remaining < 0 {
		remaining = 0
	}
	if remaining > limitMs {
		remaining = limitMs
	}
	return int(math.Round(float64(remaining) / float64(limitMs) * float64(e.config.MaxSpeedBonus)))
}

// IsStreakMilestone reports whether a streak of this length earns the flat bonus.
func (e *Engine) IsStreakMilestone(streak int) bool {
	return streak >= e.config.StreakInterval && streak%e.config.StreakInterval == 0
}
