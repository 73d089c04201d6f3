// Package scoring talks to the external FIRE classifier.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"

	"fire-news/internal/models"
)

// ErrInvalidPrediction marks a classifier answer outside the score contract
var ErrInvalidPrediction = errors.New("scoring: invalid prediction")

// ScoreInput is what the classifier sees of an article
type ScoreInput struct {
	ArticleID string
	Title     string
	Content   string
	Source    string
}

// Prediction is a validated classifier answer. Category is always banded
// locally from Score.
type Prediction struct {
	Score        int
	Label        models.Label
	Confidence   float64
	Category     models.Category
	ModelVersion string
}

// Classifier scores one article. Implementations must honour ctx.
type Classifier interface {
	Score(ctx context.Context, input ScoreInput) (Prediction, error)
}

// rawPrediction is the wire shape shared by the HTTP service and the
// predictor script. Older predictors answer with overall_score.
type rawPrediction struct {
	Score        *float64 `json:"score"`
	OverallScore *float64 `json:"overall_score"`
	Label        string   `json:"label"`
	Confidence   *float64 `json:"confidence"`
	ModelVersion string   `json:"model_version"`
}

func (r rawPrediction) validate(defaultVersion string) (Prediction, error) {
	value := r.Score
	if value == nil {
		value = r.OverallScore
	}
	if value == nil {
		return Prediction{}, fmt.Errorf("%w: missing score", ErrInvalidPrediction)
	}
	if math.IsNaN(*value) || *value < models.MinScore || *value > models.MaxScore {
		return Prediction{}, fmt.Errorf("%w: score %v out of range", ErrInvalidPrediction, *value)
	}
	score := int(math.Round(*value))

	if r.Confidence == nil {
		return Prediction{}, fmt.Errorf("%w: missing confidence", ErrInvalidPrediction)
	}
	confidence := *r.Confidence
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return Prediction{}, fmt.Errorf("%w: confidence %v out of range", ErrInvalidPrediction, confidence)
	}

	label := models.LabelForScore(score)
	if r.Label != "" {
		parsed, err := models.ParseLabel(r.Label)
		if err != nil {
			return Prediction{}, fmt.Errorf("%w: %w", ErrInvalidPrediction, err)
		}
		label = parsed
	}

	version := r.ModelVersion
	if version == "" {
		version = defaultVersion
	}

	return Prediction{
		Score:        score,
		Label:        label,
		Confidence:   confidence,
		Category:     models.CategoryForScore(score),
		ModelVersion: version,
	}, nil
}
