// Package detector адаптивный QRS-детектор: плавающий порог,
// рефрактерный период и search-back для пропущенных ударов.
package detector

import (
	"math"

	"github.com/ChaudhariAzam/ecg-reader/internal/models"
	"github.com/ChaudhariAzam/ecg-reader/pkg/utils"
)

const (
	// Доля оценки амплитуды, дающая рабочий порог
	thresholdFraction = 0.5
	// Во время search-back порог дополнительно опускается вдвое
	searchbackFraction = 0.5
	// Таймаут ожидания пика как доля последнего RR (приём из клинических QRS-детекторов)
	searchbackRRFactor = 1.66
	// Таймаут по умолчанию, пока ни одного RR ещё нет
	defaultTimeoutSec = 1.5
	// Оценка амплитуды затухает вдвое примерно за столько секунд
	ampHalfLifeSec = 2.5
	// Столько подряд равных значений у вершины считаем клиппингом
	clipPlateauLen = 3
)

// Detector явный конечный автомат детекции. Вся история, от которой
// зависит решение, лежит здесь, глобального состояния нет.
type Detector struct {
	refractory float64
	minAmp     float64
	ampDecay   float64

	// Текущее состояние
	threshold    float64
	lastPeakTime float64
	ampEst       float64
	lastRR       float64
	searchback   bool
	havePeak     bool

	// Короткая история для проверки локального максимума
	prev2, prev1 models.FilteredSample
	nsamples     int64
	plateau      int
}

// NewDetector создает детектор под конфигурацию сессии
func NewDetector(cfg models.AnalysisConfig) *Detector {
	return &Detector{
		refractory: cfg.RefractorySec(),
		minAmp:     cfg.MinPeakAmplitude,
		ampDecay:   math.Exp(math.Ln2 / (-ampHalfLifeSec * cfg.SamplingRateHz)),
		threshold:  cfg.MinPeakAmplitude,
	}
}

// Process принимает очередной очищенный семпл и возвращает пик, если
// предыдущий семпл оказался принятой вершиной. Задержка решения — один семпл.
func (d *Detector) Process(s models.FilteredSample) (models.PeakEvent, bool) {
	d.updateAmplitude(s.Value)
	d.updateSearchback(s.TimeSec)
	d.updateThreshold()

	d.nsamples++
	if d.nsamples < 3 {
		d.shift(s)
		return models.PeakEvent{}, false
	}

	candidate := d.prev1.Value >= d.prev2.Value &&
		d.prev1.Value > s.Value &&
		d.prev1.Value > d.threshold

	// Рефрактерный период: два пика ближе него физиологически невозможны
	if candidate && d.havePeak && d.prev1.TimeSec-d.lastPeakTime < d.refractory {
		candidate = false
	}

	var peak models.PeakEvent
	if candidate {
		// Здесь plateau — длина серии равных значений, оканчивающейся на prev1
		peak = d.accept(d.prev1)
	}

	// Плато из одинаковых значений у вершины — признак насыщения АЦП
	if s.Value == d.prev1.Value {
		d.plateau++
	} else {
		d.plateau = 0
	}

	d.shift(s)
	return peak, candidate
}

// accept фиксирует пик и обновляет состояние детектора
func (d *Detector) accept(s models.FilteredSample) models.PeakEvent {
	if d.havePeak {
		d.lastRR = s.TimeSec - d.lastPeakTime
	}
	d.lastPeakTime = s.TimeSec
	d.havePeak = true
	d.searchback = false

	conf := utils.Clamp(
		(s.Value-d.threshold)/math.Max(d.ampEst-d.threshold, 1e-9),
		0, 1,
	)
	if s.LowConfidence {
		conf *= 0.5
	}

	clipped := d.plateau >= clipPlateauLen && s.Value >= 0.95*d.ampEst
	if clipped {
		conf *= 0.5
	}

	return models.PeakEvent{
		TimeSec:    s.TimeSec,
		Amplitude:  s.Value,
		Confidence: conf,
		Clipped:    clipped,
	}
}

// updateAmplitude затухающий максимум как оценка амплитуды сигнала
func (d *Detector) updateAmplitude(v float64) {
	if v > d.ampEst {
		d.ampEst = v
	} else {
		d.ampEst *= d.ampDecay
	}
}

// updateSearchback опускает порог, если удар не найден дольше ожидаемого
func (d *Detector) updateSearchback(now float64) {
	if !d.havePeak || d.searchback {
		return
	}

	timeout := defaultTimeoutSec
	if d.lastRR > 0 {
		timeout = searchbackRRFactor * d.lastRR
	}
	if now-d.lastPeakTime > timeout {
		d.searchback = true
	}
}

func (d *Detector) updateThreshold() {
	t := thresholdFraction * d.ampEst
	if d.searchback {
		t *= searchbackFraction
	}
	d.threshold = math.Max(t, d.minAmp)
}

func (d *Detector) shift(s models.FilteredSample) {
	d.prev2 = d.prev1
	d.prev1 = s
}

// LastPeakTime время последнего принятого пика
func (d *Detector) LastPeakTime() (float64, bool) {
	return d.lastPeakTime, d.havePeak
}

// Reset сбрасывает состояние для новой сессии
func (d *Detector) Reset() {
	d.threshold = d.minAmp
	d.lastPeakTime = 0
	d.ampEst = 0
	d.lastRR = 0
	d.searchback = false
	d.havePeak = false
	d.prev2 = models.FilteredSample{}
	d.prev1 = models.FilteredSample{}
	d.nsamples = 0
	d.plateau = 0
}
