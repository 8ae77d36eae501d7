// Package dsp каузальная очистка ЭКГ сигнала: снятие дрейфа изолинии
// и подавление высокочастотного шума с постоянной задержкой на семпл.
package dsp

import (
	"math"

	"github.com/ChaudhariAzam/ecg-reader/internal/models"
)

// Пересборка скользящей суммы, чтобы накопленная ошибка float64 не росла бесконечно
const renormInterval = 1 << 16

// Filter двухкаскадный каузальный фильтр одной сессии.
// Состояние живёт между вызовами и сбрасывается при старте новой сессии.
type Filter struct {
	fs float64

	// Каскад 1: однополюсный трекер изолинии, вычитается из сигнала
	baselineAlpha float64
	baseline      float64

	// Каскад 2: скользящее среднее для подавления шума выше полосы ЭКГ
	maBuf   []float64
	maSum   float64
	maIdx   int
	maCount int

	processed int64
	warmup    int64
}

// NewFilter создает фильтр под частоту дискретизации и полосу
func NewFilter(fs, lowHz, highHz float64) *Filter {
	rc := 1.0 / (2.0 * math.Pi * lowHz)
	dt := 1.0 / fs

	maLen := int(math.Round(fs / highHz))
	if maLen < 1 {
		maLen = 1
	}

	f := &Filter{
		fs:            fs,
		baselineAlpha: dt / (rc + dt),
		maBuf:         make([]float64, maLen),
	}

	// Прогрев: длина усредняющего окна плюс постоянная времени трекера изолинии
	f.warmup = int64(maLen) + int64(fs/lowHz)
	return f
}

// Process пропускает один семпл через оба каскада.
// Выход всегда выровнен 1:1 со входом, первые семплы помечены low-confidence.
func (f *Filter) Process(s models.Sample) models.FilteredSample {
	// Снятие дрейфа изолинии
	f.baseline += f.baselineAlpha * (s.Value - f.baseline)
	hp := s.Value - f.baseline

	// Скользящее среднее
	f.maSum -= f.maBuf[f.maIdx]
	f.maBuf[f.maIdx] = hp
	f.maSum += hp
	f.maIdx = (f.maIdx + 1) % len(f.maBuf)
	if f.maCount < len(f.maBuf) {
		f.maCount++
	}

	f.processed++
	if f.processed%renormInterval == 0 {
		f.renormalize()
	}

	return models.FilteredSample{
		TimeSec:       s.TimeSec,
		Value:         f.maSum / float64(f.maCount),
		LowConfidence: f.processed <= f.warmup,
	}
}

// ProcessBatch фильтрует срез семплов, длина выхода равна длине входа
func (f *Filter) ProcessBatch(samples []models.Sample) []models.FilteredSample {
	out := make([]models.FilteredSample, len(samples))
	for i, s := range samples {
		out[i] = f.Process(s)
	}
	return out
}

// Warmed true когда состояние фильтра прогрето
func (f *Filter) Warmed() bool {
	return f.processed > f.warmup
}

// WarmupSamples сколько первых семплов считаются непрогретыми
func (f *Filter) WarmupSamples() int64 {
	return f.warmup
}

// Reset сбрасывает состояние для новой сессии
func (f *Filter) Reset() {
	f.baseline = 0
	f.maSum = 0
	f.maIdx = 0
	f.maCount = 0
	f.processed = 0
	for i := range f.maBuf {
		f.maBuf[i] = 0
	}
}

// renormalize пересчитывает скользящую сумму из буфера
func (f *Filter) renormalize() {
	sum := 0.0
	for _, v := range f.maBuf {
		sum += v
	}
	f.maSum = sum
}
