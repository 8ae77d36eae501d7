// Package simulator синтетическая генерация ЭКГ-подобного сигнала
// (не клиническая) для эмулятора устройства и тестов конвейера.
package simulator

import (
	"math"

	"github.com/ChaudhariAzam/ecg-reader/internal/models"
)

// Пер-цикловые множители длительности удара в нерегулярном режиме
var irregularPattern = [...]float64{1.0, 1.0, 1.6, 0.65, 1.0, 1.0, 1.3, 1.0}

// ECGSim генерирует форму типа ЭКГ: изолиния + гауссовы P, QRS, T + шум.
// Шум детерминированный, два генератора с одинаковыми параметрами дают
// побайтно одинаковый сигнал.
type ECGSim struct {
	fs    float64
	hrBPM float64
	noise float64

	phase     float64
	cycleLen  float64 // Длительность текущего удара, сек
	beat      int64
	n         int64
	irregular bool
	baseDrift float64 // Амплитуда дрейфа изолинии
}

// NewECGSim fs в Гц, hrBPM типично 60-120, noise ~0.0-0.05
func NewECGSim(fs, hrBPM, noise float64) *ECGSim {
	s := &ECGSim{
		fs:        fs,
		hrBPM:     hrBPM,
		noise:     noise,
		baseDrift: 0.08,
	}
	s.cycleLen = 60.0 / hrBPM
	return s
}

// SetIrregular включает детерминированную нерегулярность ритма:
// пропуски и внеочередные удары по фиксированному паттерну
func (s *ECGSim) SetIrregular(enabled bool) {
	s.irregular = enabled
}

// SetBaselineDrift амплитуда дрейфа изолинии (имитация дыхания)
func (s *ECGSim) SetBaselineDrift(amp float64) {
	s.baseDrift = amp
}

// Next возвращает следующий семпл и двигает время
func (s *ECGSim) Next() models.Sample {
	t := float64(s.n) / s.fs
	s.n++

	s.phase += 1.0 / (s.cycleLen * s.fs)
	if s.phase >= 1.0 {
		s.phase -= 1.0
		s.beat++
		s.cycleLen = 60.0 / s.hrBPM
		if s.irregular {
			s.cycleLen *= irregularPattern[s.beat%int64(len(irregularPattern))]
		}
	}

	c := s.phase // Нормализованное время внутри цикла, 0..1

	// Дрейф изолинии от дыхания, ~0.3 Гц
	baseline := s.baseDrift * math.Sin(2*math.Pi*0.3*t)

	// P, QRS, T как гауссианы
	p := 0.08 * gauss(c, 0.18, 0.03)
	q := -0.12 * gauss(c, 0.30, 0.012)
	r := 1.00 * gauss(c, 0.32, 0.015)
	sw := -0.25 * gauss(c, 0.35, 0.012)
	tw := 0.25 * gauss(c, 0.60, 0.06)

	// Детерминированный дешёвый шум
	n := s.noise * (2*fract(math.Sin(12345.678*t)*9876.543) - 1)

	return models.Sample{
		TimeSec: t,
		Value:   baseline + p + q + r + sw + tw + n,
	}
}

// Generate срез из count семплов
func (s *ECGSim) Generate(count int) []models.Sample {
	out := make([]models.Sample, count)
	for i := range out {
		out[i] = s.Next()
	}
	return out
}

func gauss(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}

func fract(x float64) float64 { return x - math.Floor(x) }
