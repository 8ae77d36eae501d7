// Package rhythm правиловая классификация ритма по статистике
// RR-интервалов с опциональным внешним классификатором.
package rhythm

import (
	"github.com/ChaudhariAzam/ecg-reader/internal/models"
)

// Classifier внешняя способность: окно интервалов и статистика на входе,
// метка на выходе. Реализация может отсутствовать или отказывать —
// ядро обязано работать и без неё.
type Classifier interface {
	Classify(window []models.RRInterval, stats models.IntervalStats) (models.RhythmLabel, error)
}

// Engine объединяет правиловую классификацию и внешний классификатор
type Engine struct {
	cfg      models.AnalysisConfig
	external Classifier // nil — работаем только по правилам
}

// NewEngine создает движок классификации; external может быть nil
func NewEngine(cfg models.AnalysisConfig, external Classifier) *Engine {
	return &Engine{cfg: cfg, external: external}
}

// Assess выдает оценку ритма на один аналитический тик
func (e *Engine) Assess(window []models.RRInterval, stats models.IntervalStats, timeSec float64) models.RhythmAssessment {
	assessment := e.assessByRules(stats, timeSec)

	// Внешний классификатор может переопределить правиловую метку,
	// но его отказ никогда не ломает оценку
	if e.external != nil && assessment.Label != models.RhythmInsufficientData {
		if label, err := e.external.Classify(window, stats); err == nil {
			assessment.External = string(label)
			if known(label) {
				assessment.Label = label
				assessment.Source = "external"
			}
		}
	}

	return assessment
}

// assessByRules пороговые и дисперсионные правила
func (e *Engine) assessByRules(stats models.IntervalStats, timeSec float64) models.RhythmAssessment {
	assessment := models.RhythmAssessment{
		TimeSec: timeSec,
		Source:  "rules",
		Stats:   stats,
	}

	if stats.Count < e.cfg.MinIntervals {
		assessment.Label = models.RhythmInsufficientData
		return assessment
	}

	if stats.CV > e.cfg.IrregularityCV {
		assessment.Reasons = append(assessment.Reasons, "rr_cv_above_threshold")
	}
	if stats.MaxSuccDiff > e.cfg.SuccDiffFraction {
		assessment.Reasons = append(assessment.Reasons, "successive_interval_jump")
	}
	if stats.SuspectCount > 0 {
		assessment.Reasons = append(assessment.Reasons, "suspect_interval_in_window")
	}

	if len(assessment.Reasons) > 0 {
		assessment.Label = models.RhythmIrregular
	} else {
		assessment.Label = models.RhythmNormal
	}
	return assessment
}

func known(label models.RhythmLabel) bool {
	switch label {
	case models.RhythmNormal, models.RhythmIrregular, models.RhythmInsufficientData:
		return true
	}
	return false
}
