package rhythm

import (
	"errors"
	"testing"

	"github.com/ChaudhariAzam/ecg-reader/internal/models"
)

// stubClassifier управляемый внешний классификатор для тестов
type stubClassifier struct {
	label  models.RhythmLabel
	err    error
	called bool
}

func (s *stubClassifier) Classify(window []models.RRInterval, stats models.IntervalStats) (models.RhythmLabel, error) {
	s.called = true
	return s.label, s.err
}

func regularStats(count int) models.IntervalStats {
	return models.IntervalStats{
		Count:      count,
		ValidCount: count,
		MeanRR:     0.8,
		MeanBPM:    75,
		SDNN:       0.02,
		CV:         0.025,
	}
}

func TestRulesNormalRhythm(t *testing.T) {
	e := NewEngine(models.DefaultAnalysisConfig(), nil)

	a := e.Assess(nil, regularStats(8), 10.0)
	if a.Label != models.RhythmNormal {
		t.Fatalf("метка %s, ожидалась Normal", a.Label)
	}
	if a.Source != "rules" {
		t.Errorf("источник %s, ожидался rules", a.Source)
	}
	if len(a.Reasons) != 0 {
		t.Errorf("для нормального ритма не должно быть причин: %v", a.Reasons)
	}
}

func TestRulesIrregularHighCV(t *testing.T) {
	e := NewEngine(models.DefaultAnalysisConfig(), nil)

	stats := regularStats(8)
	stats.SDNN = 0.2
	stats.CV = 0.25

	a := e.Assess(nil, stats, 10.0)
	if a.Label != models.RhythmIrregular {
		t.Fatalf("метка %s, ожидалась Irregular", a.Label)
	}
	if !hasReason(a.Reasons, "rr_cv_above_threshold") {
		t.Errorf("нет причины rr_cv_above_threshold: %v", a.Reasons)
	}
}

func TestRulesIrregularSuccessiveJump(t *testing.T) {
	e := NewEngine(models.DefaultAnalysisConfig(), nil)

	stats := regularStats(8)
	stats.MaxSuccDiff = 0.6

	a := e.Assess(nil, stats, 10.0)
	if a.Label != models.RhythmIrregular {
		t.Fatalf("метка %s, ожидалась Irregular", a.Label)
	}
	if !hasReason(a.Reasons, "successive_interval_jump") {
		t.Errorf("нет причины successive_interval_jump: %v", a.Reasons)
	}
}

func TestRulesIrregularSuspectInWindow(t *testing.T) {
	e := NewEngine(models.DefaultAnalysisConfig(), nil)

	stats := regularStats(8)
	stats.SuspectCount = 1
	stats.ValidCount = 7

	a := e.Assess(nil, stats, 10.0)
	if a.Label != models.RhythmIrregular {
		t.Fatalf("метка %s, ожидалась Irregular", a.Label)
	}
	if !hasReason(a.Reasons, "suspect_interval_in_window") {
		t.Errorf("нет причины suspect_interval_in_window: %v", a.Reasons)
	}
}

func TestRulesInsufficientData(t *testing.T) {
	e := NewEngine(models.DefaultAnalysisConfig(), nil)

	a := e.Assess(nil, regularStats(2), 10.0)
	if a.Label != models.RhythmInsufficientData {
		t.Fatalf("метка %s, ожидалась InsufficientData", a.Label)
	}
}

func TestExternalOverridesRules(t *testing.T) {
	stub := &stubClassifier{label: models.RhythmIrregular}
	e := NewEngine(models.DefaultAnalysisConfig(), stub)

	a := e.Assess(nil, regularStats(8), 10.0)
	if !stub.called {
		t.Fatal("внешний классификатор не вызван")
	}
	if a.Label != models.RhythmIrregular {
		t.Fatalf("метка %s, внешняя Irregular должна переопределить", a.Label)
	}
	if a.Source != "external" {
		t.Errorf("источник %s, ожидался external", a.Source)
	}
	if a.External != string(models.RhythmIrregular) {
		t.Errorf("внешняя метка %q не сохранена", a.External)
	}
}

func TestExternalFailureFallsBackToRules(t *testing.T) {
	stub := &stubClassifier{err: errors.New("сервис недоступен")}
	e := NewEngine(models.DefaultAnalysisConfig(), stub)

	a := e.Assess(nil, regularStats(8), 10.0)
	if a.Label != models.RhythmNormal {
		t.Fatalf("метка %s, отказ внешнего не должен менять правиловую", a.Label)
	}
	if a.Source != "rules" {
		t.Errorf("источник %s, ожидался rules", a.Source)
	}
}

func TestExternalUnknownLabelIgnored(t *testing.T) {
	stub := &stubClassifier{label: models.RhythmLabel("Chaos")}
	e := NewEngine(models.DefaultAnalysisConfig(), stub)

	a := e.Assess(nil, regularStats(8), 10.0)
	if a.Label != models.RhythmNormal {
		t.Fatalf("метка %s, неизвестная внешняя метка должна игнорироваться", a.Label)
	}
	if a.External != "Chaos" {
		t.Errorf("сырая внешняя метка %q должна сохраняться для диагностики", a.External)
	}
}

func TestExternalSkippedOnInsufficientData(t *testing.T) {
	stub := &stubClassifier{label: models.RhythmNormal}
	e := NewEngine(models.DefaultAnalysisConfig(), stub)

	a := e.Assess(nil, regularStats(1), 10.0)
	if stub.called {
		t.Fatal("внешний классификатор не должен вызываться без данных")
	}
	if a.Label != models.RhythmInsufficientData {
		t.Fatalf("метка %s, ожидалась InsufficientData", a.Label)
	}
}

func TestExplainCoversAllLabels(t *testing.T) {
	for _, label := range []models.RhythmLabel{
		models.RhythmNormal, models.RhythmIrregular, models.RhythmInsufficientData,
	} {
		e := Explain(label)
		if e.Title == "" || e.Recommendation == "" || len(e.Findings) == 0 {
			t.Errorf("пустая расшифровка для метки %s", label)
		}
	}

	// Неизвестная метка деградирует до InsufficientData, а не до пустоты
	if e := Explain(models.RhythmLabel("Chaos")); e.Title == "" {
		t.Error("неизвестная метка должна давать осмысленную расшифровку")
	}
}

func hasReason(reasons []string, want string) bool {
	for _, r := range reasons {
		if r == want {
			return true
		}
	}
	return false
}
