package pipeline

import (
	"errors"
	"math"

	"github.com/ChaudhariAzam/ecg-reader/internal/models"
)

var (
	// ErrNonMonotonic временные метки должны строго возрастать
	ErrNonMonotonic = errors.New("временные метки семплов должны строго возрастать")
	// ErrBadValue нечисловое значение семпла
	ErrBadValue = errors.New("значение семпла не является числом")
)

// SignalBuffer упорядоченные семплы активного окна анализа.
// Кольцевой буфер фиксированной ёмкости: старые семплы перезаписываются,
// память сессии ограничена независимо от длительности потока.
type SignalBuffer struct {
	rateHz float64

	ring  []models.Sample
	head  int // Индекс следующей записи
	count int

	lastTime float64
	total    int64
}

// NewSignalBuffer создает буфер на windowSec секунд сигнала
func NewSignalBuffer(rateHz, windowSec float64) *SignalBuffer {
	capacity := int(rateHz * windowSec)
	if capacity < 1 {
		capacity = 1
	}
	return &SignalBuffer{
		rateHz: rateHz,
		ring:   make([]models.Sample, capacity),
	}
}

// Append добавляет семпл, проверяя монотонность и числовое значение
func (b *SignalBuffer) Append(s models.Sample) error {
	if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) || math.IsNaN(s.TimeSec) {
		return ErrBadValue
	}
	if b.total > 0 && s.TimeSec <= b.lastTime {
		return ErrNonMonotonic
	}

	b.ring[b.head] = s
	b.head = (b.head + 1) % len(b.ring)
	if b.count < len(b.ring) {
		b.count++
	}

	b.lastTime = s.TimeSec
	b.total++
	return nil
}

// Window копия семплов окна в хронологическом порядке
func (b *SignalBuffer) Window() []models.Sample {
	out := make([]models.Sample, b.count)
	start := b.head - b.count
	if start < 0 {
		start += len(b.ring)
	}
	for i := 0; i < b.count; i++ {
		out[i] = b.ring[(start+i)%len(b.ring)]
	}
	return out
}

// Len количество семплов в окне
func (b *SignalBuffer) Len() int {
	return b.count
}

// Total сколько семплов прошло через буфер за сессию
func (b *SignalBuffer) Total() int64 {
	return b.total
}

// RateHz заявленная частота дискретизации
func (b *SignalBuffer) RateHz() float64 {
	return b.rateHz
}

// LastTime метка последнего принятого семпла
func (b *SignalBuffer) LastTime() float64 {
	return b.lastTime
}

// Reset очищает буфер для новой сессии
func (b *SignalBuffer) Reset() {
	b.head = 0
	b.count = 0
	b.lastTime = 0
	b.total = 0
}
