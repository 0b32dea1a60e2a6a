package classify

import "go-photo-culler/pkg/models"

// Thresholds defines the disposition boundaries on the overall quality
// score. Scores at or above Accept are accepted; scores below Reject are
// rejected; everything between goes to human review.
type Thresholds struct {
	Accept float64
	Reject float64
}

// DefaultThresholds returns the standard triage boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Accept: 75.0,
		Reject: 50.0,
	}
}

// Classifier maps an overall score to a disposition. It is a pure function
// of the score: monotonic, and exhaustive over [0,100].
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier creates a classifier with default thresholds.
func NewClassifier() *Classifier {
	return &Classifier{thresholds: DefaultThresholds()}
}

// NewClassifierWithThresholds creates a classifier with custom boundaries.
func NewClassifierWithThresholds(t Thresholds) *Classifier {
	return &Classifier{thresholds: t}
}

// Disposition returns the triage outcome for score.
func (c *Classifier) Disposition(score float64) models.Disposition {
	if score >= c.thresholds.Accept {
		return models.DispositionAccepted
	}
	if score < c.thresholds.Reject {
		return models.DispositionRejected
	}
	return models.DispositionReview
}
