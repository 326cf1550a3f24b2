package services

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	types "github.com/propplyai/compliance-backend/internal/domain"
)

// CategoryPolicy controls how one category contributes to the overall score.
// Categories with Weight == 0 are informational only: their counts are
// tracked but they do not move the score.
type CategoryPolicy struct {
	PenaltyPerViolation float64 `yaml:"penalty_per_violation"`
	Weight              float64 `yaml:"weight"`
}

// ScorePolicy is the deterministic weighting used by the recalculator.
// Given the same active-violation counts it always produces the same score,
// and the score is monotone: dismissing an active violation never lowers it,
// restoring one never raises it.
type ScorePolicy struct {
	Categories map[types.Category]CategoryPolicy `yaml:"categories"`
}

// DefaultScorePolicy mirrors the original product weighting: NYC reports
// score HPD at 10 points per active violation and DOB at 15, averaged in
// equal halves; Philadelphia reports score L&I violations at 10 points each.
func DefaultScorePolicy() ScorePolicy {
	return ScorePolicy{
		Categories: map[types.Category]CategoryPolicy{
			types.CategoryHPDViolations: {PenaltyPerViolation: 10, Weight: 0.5},
			types.CategoryDOBViolations: {PenaltyPerViolation: 15, Weight: 0.5},
			types.CategoryLIViolations:  {PenaltyPerViolation: 10, Weight: 1.0},
		},
	}
}

// LoadScorePolicy overlays the default policy with entries from a YAML file.
// An unreadable or invalid file is a startup failure, not a silent fallback.
func LoadScorePolicy(path string) (ScorePolicy, error) {
	policy := DefaultScorePolicy()
	if path == "" {
		return policy, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return ScorePolicy{}, fmt.Errorf("read score policy %s: %w", path, err)
	}
	var override ScorePolicy
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return ScorePolicy{}, fmt.Errorf("parse score policy %s: %w", path, err)
	}
	for category, cp := range override.Categories {
		if !category.Valid() {
			return ScorePolicy{}, fmt.Errorf("score policy %s: unknown category %q", path, category)
		}
		if cp.PenaltyPerViolation < 0 || cp.Weight < 0 {
			return ScorePolicy{}, fmt.Errorf("score policy %s: negative penalty or weight for %q", path, category)
		}
		policy.Categories[category] = cp
	}
	if err := policy.validate(); err != nil {
		return ScorePolicy{}, fmt.Errorf("score policy %s: %w", path, err)
	}
	return policy, nil
}

func (p ScorePolicy) validate() error {
	for _, city := range []types.City{types.CityNYC, types.CityPhiladelphia} {
		weighted := 0
		for _, category := range types.CategoriesForCity(city) {
			if p.Categories[category].Weight > 0 {
				weighted++
			}
		}
		if weighted == 0 {
			return fmt.Errorf("city %q has no weighted categories", city)
		}
	}
	return nil
}

// Score computes the 0-100 compliance score for a report from its active
// counts. Result is rounded to one decimal.
func (p ScorePolicy) Score(city types.City, active map[types.Category]int) float64 {
	var weightSum, weighted float64
	for _, category := range types.CategoriesForCity(city) {
		cp, ok := p.Categories[category]
		if !ok || cp.Weight == 0 {
			continue
		}
		categoryScore := 100 - float64(active[category])*cp.PenaltyPerViolation
		if categoryScore < 0 {
			categoryScore = 0
		}
		weightSum += cp.Weight
		weighted += cp.Weight * categoryScore
	}
	if weightSum == 0 {
		return 0
	}
	score := weighted / weightSum
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return math.Round(score*10) / 10
}
