package models

import "fmt"

// AnalysisConfig параметры конвейера анализа для одной сессии
type AnalysisConfig struct {
	SamplingRateHz     float64 `json:"sampling_rate_hz"`
	FilterBandLowHz    float64 `json:"filter_band_low_hz"`  // Срез дрейфа изолинии
	FilterBandHighHz   float64 `json:"filter_band_high_hz"` // Верх полезной полосы ЭКГ
	RefractoryPeriodMs float64 `json:"refractory_period_ms"`
	RollingWindowSize  int     `json:"rolling_window_size"`   // M интервалов для скользящего среднего
	IrregularityCV     float64 `json:"irregularity_threshold"` // Порог коэффициента вариации RR
	SuccDiffFraction   float64 `json:"succ_diff_fraction"`     // Порог относительной разности соседних интервалов
	MinBPM             float64 `json:"min_bpm"`                // Нижняя граница правдоподобного пульса
	MaxBPM             float64 `json:"max_bpm"`
	MinIntervals       int     `json:"min_intervals"`  // Минимум интервалов для классификации
	WindowSec          float64 `json:"window_sec"`     // Скользящее окно сырых семплов в памяти
	MinPeakAmplitude   float64 `json:"min_peak_amplitude"`
}

// DefaultAnalysisConfig значения по умолчанию (не клинически валидированы)
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		SamplingRateHz:     250,
		FilterBandLowHz:    0.5,
		FilterBandHighHz:   40,
		RefractoryPeriodMs: 250,
		RollingWindowSize:  8,
		IrregularityCV:     0.15,
		SuccDiffFraction:   0.4,
		MinBPM:             30,
		MaxBPM:             220,
		MinIntervals:       4,
		WindowSec:          30,
		MinPeakAmplitude:   0.05,
	}
}

// Validate проверяет параметры перед стартом сессии
func (c AnalysisConfig) Validate() error {
	if c.SamplingRateHz <= 0 {
		return fmt.Errorf("некорректная частота дискретизации: %v", c.SamplingRateHz)
	}
	if c.FilterBandLowHz <= 0 || c.FilterBandHighHz <= c.FilterBandLowHz {
		return fmt.Errorf("некорректная полоса фильтра: %v-%v Гц", c.FilterBandLowHz, c.FilterBandHighHz)
	}
	if c.FilterBandHighHz >= c.SamplingRateHz/2 {
		return fmt.Errorf("верх полосы %v Гц выше частоты Найквиста %v Гц", c.FilterBandHighHz, c.SamplingRateHz/2)
	}
	if c.RefractoryPeriodMs <= 0 {
		return fmt.Errorf("некорректный рефрактерный период: %v мс", c.RefractoryPeriodMs)
	}
	if c.RollingWindowSize < 1 {
		return fmt.Errorf("некорректный размер скользящего окна: %d", c.RollingWindowSize)
	}
	if c.MinBPM <= 0 || c.MaxBPM <= c.MinBPM {
		return fmt.Errorf("некорректный диапазон пульса: %v-%v BPM", c.MinBPM, c.MaxBPM)
	}
	if c.MinIntervals < 2 {
		return fmt.Errorf("минимум интервалов должен быть >= 2, получено %d", c.MinIntervals)
	}
	if c.WindowSec <= 0 {
		return fmt.Errorf("некорректное окно анализа: %v сек", c.WindowSec)
	}
	return nil
}

// RefractorySec рефрактерный период в секундах
func (c AnalysisConfig) RefractorySec() float64 {
	return c.RefractoryPeriodMs / 1000.0
}
