package models

import (
	"fmt"
	"math"
	"time"
)

// ScorePolicy decides the numeric score shown for an overridden article
type ScorePolicy string

const (
	// PolicyDerive maps the override confidence into the band of the
	// override label, so the shown score always bands to the shown category.
	PolicyDerive ScorePolicy = "derive"
	// PolicyRetain keeps the automated score number (null if never scored)
	// while label, category and confidence come from the override.
	PolicyRetain ScorePolicy = "retain"
)

// ParseScorePolicy validates a policy name from configuration
func ParseScorePolicy(s string) (ScorePolicy, error) {
	switch ScorePolicy(s) {
	case PolicyDerive, PolicyRetain:
		return ScorePolicy(s), nil
	case "":
		return PolicyDerive, nil
	}
	return "", fmt.Errorf("unknown override score policy %q", s)
}

// ScoreSource tells readers where an effective score came from
type ScoreSource string

const (
	SourceAutomated ScoreSource = "automated"
	SourceOverride  ScoreSource = "override"
)

// DefaultOverrideConfidence applies when a moderator gives no confidence
const DefaultOverrideConfidence = 1.0

// EffectiveScore is the score shown to readers and moderators. Never stored.
type EffectiveScore struct {
	Score        *int        `json:"score"`
	Label        Label       `json:"label"`
	Confidence   float64     `json:"confidence"`
	Category     Category    `json:"category"`
	Source       ScoreSource `json:"source"`
	ModelVersion string      `json:"model_version,omitempty"`
	Notes        string      `json:"notes,omitempty"`
	UpdatedAt    time.Time   `json:"created_at"`
}

// ResolveEffectiveScore applies override > automated > none. A stored
// automated record with out-of-domain values counts as absent.
func ResolveEffectiveScore(automated *ScoreRecord, override *Override, policy ScorePolicy) *EffectiveScore {
	if override != nil {
		return fromOverride(automated, override, policy)
	}
	if automated == nil || !automated.Valid() {
		return nil
	}

	score := automated.Score
	return &EffectiveScore{
		Score:        &score,
		Label:        automated.Label,
		Confidence:   automated.Confidence,
		Category:     CategoryForScore(automated.Score),
		Source:       SourceAutomated,
		ModelVersion: automated.ModelVersion,
		UpdatedAt:    automated.CreatedAt,
	}
}

func fromOverride(automated *ScoreRecord, override *Override, policy ScorePolicy) *EffectiveScore {
	confidence := DefaultOverrideConfidence
	if override.Confidence != nil {
		confidence = *override.Confidence
	}

	effective := &EffectiveScore{
		Label:      override.Label,
		Confidence: confidence,
		Category:   CategoryForLabel(override.Label),
		Source:     SourceOverride,
		Notes:      override.Notes,
		UpdatedAt:  override.AppliedAt,
	}

	switch policy {
	case PolicyRetain:
		if automated != nil && automated.Valid() {
			score := automated.Score
			effective.Score = &score
			effective.ModelVersion = automated.ModelVersion
		}
	default:
		score := DeriveOverrideScore(override.Label, confidence)
		effective.Score = &score
	}

	return effective
}

// DeriveOverrideScore places a confidence inside the band of a label:
// fake lands in [0,34], real in [50,100].
func DeriveOverrideScore(label Label, confidence float64) int {
	c := math.Max(0, math.Min(1, confidence))
	if label == LabelReal {
		return UnverifiedBelow + int(math.Round(c*float64(MaxScore-UnverifiedBelow)))
	}
	return int(math.Round((1 - c) * float64(MisleadingBelow-1)))
}
