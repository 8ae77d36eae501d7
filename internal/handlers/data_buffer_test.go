package handlers

import (
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/ChaudhariAzam/ecg-reader/internal/models"
)

// writeCapture подменяет запись в БД и копит всё записанное
type writeCapture struct {
	mu          sync.Mutex
	clean       []models.Sample
	peaks       []models.PeakEvent
	assessments []models.RhythmAssessment
	calls       int
}

func (w *writeCapture) write(_ uuid.UUID, clean []models.Sample, peaks []models.PeakEvent, assessments []models.RhythmAssessment) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clean = append(w.clean, clean...)
	w.peaks = append(w.peaks, peaks...)
	w.assessments = append(w.assessments, assessments...)
	w.calls++
	return nil
}

func newCapturedBuffer(t *testing.T) (*DataBuffer, *writeCapture) {
	t.Helper()
	buf := NewDataBuffer(nil)
	capture := &writeCapture{}
	buf.writeFn = capture.write
	t.Cleanup(buf.Stop)
	return buf, capture
}

func TestRemoveSessionBufferFlushesTail(t *testing.T) {
	buf, capture := newCapturedBuffer(t)
	sessionID := uuid.New()

	// Хвост сессии: несколько точек, пик и финальная оценка дренажа
	buf.AddCleanPoint(sessionID, models.FilteredSample{TimeSec: 0.1, Value: 0.5})
	buf.AddCleanPoint(sessionID, models.FilteredSample{TimeSec: 0.2, Value: 0.7})
	buf.AddPeak(sessionID, models.PeakEvent{TimeSec: 0.2, Amplitude: 0.7, Confidence: 1})
	buf.AddAssessment(sessionID, models.RhythmAssessment{
		TimeSec: 0.2,
		Label:   models.RhythmInsufficientData,
		Source:  "rules",
	})

	buf.RemoveSessionBuffer(sessionID)

	// Флаш синхронный: к возврату всё уже записано
	capture.mu.Lock()
	defer capture.mu.Unlock()
	if len(capture.clean) != 2 {
		t.Errorf("записано %d точек сигнала, ожидалось 2", len(capture.clean))
	}
	if len(capture.peaks) != 1 {
		t.Errorf("записано %d пиков, ожидался 1", len(capture.peaks))
	}
	if len(capture.assessments) != 1 {
		t.Errorf("записано %d оценок, ожидалась 1", len(capture.assessments))
	}
	if capture.assessments[0].Label != models.RhythmInsufficientData {
		t.Errorf("финальная оценка %s потеряна при удалении буфера", capture.assessments[0].Label)
	}
}

func TestRemoveEmptySessionBufferNoWrite(t *testing.T) {
	buf, capture := newCapturedBuffer(t)
	sessionID := uuid.New()

	buf.AddCleanPoint(sessionID, models.FilteredSample{TimeSec: 0.1, Value: 0.5})
	buf.RemoveSessionBuffer(sessionID)

	// Повторное удаление и удаление несуществующей сессии ничего не пишут
	buf.RemoveSessionBuffer(sessionID)
	buf.RemoveSessionBuffer(uuid.New())

	capture.mu.Lock()
	defer capture.mu.Unlock()
	if capture.calls != 1 {
		t.Errorf("записей в БД %d, ожидалась 1", capture.calls)
	}
}

func TestStopFlushesRemainingBuffers(t *testing.T) {
	buf := NewDataBuffer(nil)
	capture := &writeCapture{}
	buf.writeFn = capture.write

	first := uuid.New()
	second := uuid.New()
	buf.AddCleanPoint(first, models.FilteredSample{TimeSec: 0.1, Value: 0.5})
	buf.AddAssessment(second, models.RhythmAssessment{TimeSec: 0.2, Label: models.RhythmNormal, Source: "rules"})

	// Stop дожидается воркера: после возврата хвосты обеих сессий записаны
	buf.Stop()

	capture.mu.Lock()
	defer capture.mu.Unlock()
	if len(capture.clean) != 1 || len(capture.assessments) != 1 {
		t.Errorf("после Stop записано clean=%d, assessments=%d, ожидалось 1 и 1",
			len(capture.clean), len(capture.assessments))
	}
}
