package pipeline

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/ChaudhariAzam/ecg-reader/internal/models"
	"github.com/ChaudhariAzam/ecg-reader/internal/simulator"
)

func simSignal(fs, hr float64, seconds float64, irregular bool) []models.Sample {
	sim := simulator.NewECGSim(fs, hr, 0.01)
	sim.SetIrregular(irregular)
	return sim.Generate(int(seconds * fs))
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := New(models.DefaultAnalysisConfig(), nil, Outputs{})
	if err != nil {
		t.Fatalf("создание конвейера: %v", err)
	}
	return p
}

func TestRunBatchDetectsPlausibleRate(t *testing.T) {
	p := newTestPipeline(t)

	res, err := p.RunBatch(NewSliceSource(simSignal(250, 75, 30, false)))
	if err != nil {
		t.Fatalf("батч-прогон: %v", err)
	}

	if len(res.Peaks) < 30 {
		t.Fatalf("обнаружено %d пиков за 30 сек при 75 уд/мин", len(res.Peaks))
	}

	last := res.Estimates[len(res.Estimates)-1]
	if last.RollingAvgBPM < 70 || last.RollingAvgBPM > 80 {
		t.Errorf("скользящий пульс %v, ожидался ~75", last.RollingAvgBPM)
	}

	if res.Final.Label != models.RhythmNormal {
		t.Errorf("финальная метка %s, ожидалась Normal", res.Final.Label)
	}
}

func TestRunBatchIrregularRhythm(t *testing.T) {
	p := newTestPipeline(t)

	res, err := p.RunBatch(NewSliceSource(simSignal(250, 75, 40, true)))
	if err != nil {
		t.Fatalf("батч-прогон: %v", err)
	}

	if res.Final.Label != models.RhythmIrregular {
		t.Errorf("финальная метка %s, ожидалась Irregular", res.Final.Label)
	}
	if len(res.Final.Reasons) == 0 {
		t.Error("у нерегулярной метки должны быть причины")
	}
}

func TestRunBatchDeterministic(t *testing.T) {
	signal := simSignal(250, 75, 20, false)

	a, err := newTestPipeline(t).RunBatch(NewSliceSource(signal))
	if err != nil {
		t.Fatalf("первый прогон: %v", err)
	}
	b, err := newTestPipeline(t).RunBatch(NewSliceSource(signal))
	if err != nil {
		t.Fatalf("второй прогон: %v", err)
	}

	if !reflect.DeepEqual(a, b) {
		t.Fatal("два прогона одного входа дали разный результат")
	}
}

func TestRunBatchFlatLineInsufficient(t *testing.T) {
	p := newTestPipeline(t)

	values := make([]float64, 250*20)
	res, err := p.RunBatch(NewValuesSource(values, 250))
	if err != nil {
		t.Fatalf("батч-прогон: %v", err)
	}

	if len(res.Peaks) != 0 {
		t.Fatalf("на плоском сигнале обнаружено %d пиков", len(res.Peaks))
	}
	if res.Final.Label != models.RhythmInsufficientData {
		t.Fatalf("финальная метка %s, ожидалась InsufficientData", res.Final.Label)
	}
}

func TestRunBatchFilteredAligned(t *testing.T) {
	p := newTestPipeline(t)
	signal := simSignal(250, 75, 10, false)

	res, err := p.RunBatch(NewSliceSource(signal))
	if err != nil {
		t.Fatalf("батч-прогон: %v", err)
	}
	if len(res.Filtered) != len(signal) {
		t.Fatalf("очищенный сигнал %d семплов, вход %d", len(res.Filtered), len(signal))
	}
}

func TestPipelineStateTransitions(t *testing.T) {
	p := newTestPipeline(t)
	if p.State() != StateIdle {
		t.Fatalf("новое состояние %s, ожидалось idle", p.State())
	}

	if err := p.Start(); err != nil {
		t.Fatalf("старт: %v", err)
	}
	if p.State() != StateWarming {
		t.Fatalf("после старта %s, ожидалось warming", p.State())
	}
	if err := p.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("повторный старт: %v", err)
	}

	// Прогрев фильтра переводит сессию в active
	for i := 0; i < 600; i++ {
		if err := p.Push(models.Sample{TimeSec: float64(i) / 250.0, Value: math.Sin(float64(i))}); err != nil {
			t.Fatalf("семпл %d: %v", i, err)
		}
	}
	if p.State() != StateActive {
		t.Fatalf("после прогрева %s, ожидалось active", p.State())
	}

	p.Drain()
	if p.State() != StateClosed {
		t.Fatalf("после дренажа %s, ожидалось closed", p.State())
	}
	if err := p.Push(models.Sample{TimeSec: 100}); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("push в закрытую сессию: %v", err)
	}
}

func TestPushRejectsBadInput(t *testing.T) {
	p := newTestPipeline(t)
	if err := p.Push(models.Sample{TimeSec: 0, Value: 1}); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("push до старта: %v", err)
	}

	if err := p.Start(); err != nil {
		t.Fatalf("старт: %v", err)
	}

	if err := p.Push(models.Sample{TimeSec: 0.1, Value: 1}); err != nil {
		t.Fatalf("валидный семпл отклонён: %v", err)
	}
	if err := p.Push(models.Sample{TimeSec: 0.05, Value: 1}); !errors.Is(err, ErrNonMonotonic) {
		t.Fatalf("немонотонный семпл: %v", err)
	}
	if err := p.Push(models.Sample{TimeSec: 0.2, Value: math.NaN()}); !errors.Is(err, ErrBadValue) {
		t.Fatalf("NaN семпл: %v", err)
	}

	// Отклонённые семплы не ломают сессию
	if err := p.Push(models.Sample{TimeSec: 0.3, Value: 1}); err != nil {
		t.Fatalf("сессия сломана после отклонённых семплов: %v", err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := models.DefaultAnalysisConfig()
	cfg.SamplingRateHz = 0
	if _, err := New(cfg, nil, Outputs{}); err == nil {
		t.Fatal("нулевая частота дискретизации должна быть отклонена")
	}

	cfg = models.DefaultAnalysisConfig()
	cfg.FilterBandHighHz = 200 // Выше Найквиста для 250 Гц
	if _, err := New(cfg, nil, Outputs{}); err == nil {
		t.Fatal("полоса выше Найквиста должна быть отклонена")
	}
}

func TestStreamDropsOldestOnOverflow(t *testing.T) {
	p := newTestPipeline(t)
	// Воркер не запущен: буфер на 4 семпла заполняется и вытесняет старые
	s := NewStreamSession(p, 4)

	for i := 0; i < 10; i++ {
		s.Offer(models.Sample{TimeSec: float64(i), Value: 1})
	}

	if got := s.Dropped(); got != 6 {
		t.Fatalf("вытеснено %d семплов, ожидалось 6", got)
	}
	if got := s.Buffered(); got != 4 {
		t.Fatalf("в буфере %d семплов, ожидалось 4", got)
	}
}

func TestStreamMatchesBatch(t *testing.T) {
	signal := simSignal(250, 75, 20, false)

	batch, err := newTestPipeline(t).RunBatch(NewSliceSource(signal))
	if err != nil {
		t.Fatalf("батч-прогон: %v", err)
	}

	var streamPeaks []models.PeakEvent
	p, err := New(models.DefaultAnalysisConfig(), nil, Outputs{
		OnPeak: func(pe models.PeakEvent) { streamPeaks = append(streamPeaks, pe) },
	})
	if err != nil {
		t.Fatalf("создание конвейера: %v", err)
	}

	// Буфер вмещает весь сигнал: потерь нет, итог обязан совпасть с батчем
	s := NewStreamSession(p, len(signal))
	if err := s.Start(); err != nil {
		t.Fatalf("старт потока: %v", err)
	}
	for _, sample := range signal {
		s.Offer(sample)
	}
	s.Stop()

	if s.Dropped() != 0 || s.Rejected() != 0 {
		t.Fatalf("поток потерял семплы: dropped=%d rejected=%d", s.Dropped(), s.Rejected())
	}
	if !reflect.DeepEqual(batch.Peaks, streamPeaks) {
		t.Fatalf("пики потока и батча расходятся: %d против %d", len(streamPeaks), len(batch.Peaks))
	}
}

func TestSignalBufferWindowOrder(t *testing.T) {
	b := NewSignalBuffer(10, 1) // Ёмкость 10 семплов

	for i := 0; i < 25; i++ {
		if err := b.Append(models.Sample{TimeSec: float64(i), Value: float64(i)}); err != nil {
			t.Fatalf("семпл %d: %v", i, err)
		}
	}

	window := b.Window()
	if len(window) != 10 {
		t.Fatalf("окно %d семплов, ожидалось 10", len(window))
	}
	for i := 1; i < len(window); i++ {
		if window[i].TimeSec <= window[i-1].TimeSec {
			t.Fatal("окно не в хронологическом порядке")
		}
	}
	if window[len(window)-1].TimeSec != 24 {
		t.Fatalf("последний семпл окна %v, ожидался 24", window[len(window)-1].TimeSec)
	}
	if b.Total() != 25 {
		t.Fatalf("всего семплов %d, ожидалось 25", b.Total())
	}
}
