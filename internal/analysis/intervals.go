// Package analysis расчёт RR-интервалов, пульса и статистики
// вариабельности по упорядоченному потоку R-пиков.
package analysis

import (
	"github.com/ChaudhariAzam/ecg-reader/internal/models"
	"github.com/ChaudhariAzam/ecg-reader/pkg/utils"
)

const (
	// Интервал вдвое длиннее соседних — скорее всего пропущенный удар
	missedBeatFactor = 1.5
	// Слишком короткий интервал — лишний (эктопический) удар
	extraBeatFactor = 0.6
	// Минимальная ёмкость окна интервалов
	minWindowCap = 16
)

// Analyzer держит скользящее окно последних интервалов.
// Владеет своими буферами, на чужие не ссылается.
type Analyzer struct {
	cfg models.AnalysisConfig

	lastPeak models.PeakEvent
	havePeak bool

	window    []models.RRInterval // Последние интервалы, ограниченная ёмкость
	windowCap int

	suspectTotal int64
}

// NewAnalyzer создает анализатор под конфигурацию сессии
func NewAnalyzer(cfg models.AnalysisConfig) *Analyzer {
	cap := cfg.RollingWindowSize * 2
	if cap < minWindowCap {
		cap = minWindowCap
	}
	return &Analyzer{cfg: cfg, windowCap: cap}
}

// AddPeak принимает очередной пик. Возвращает новый интервал и оценку
// пульса; ok=false пока пиков меньше двух (InsufficientData).
func (a *Analyzer) AddPeak(p models.PeakEvent) (models.RRInterval, models.HeartRateEstimate, bool) {
	if !a.havePeak {
		a.lastPeak = p
		a.havePeak = true
		return models.RRInterval{}, models.HeartRateEstimate{}, false
	}

	rr := models.RRInterval{
		StartSec: a.lastPeak.TimeSec,
		EndSec:   p.TimeSec,
		Duration: p.TimeSec - a.lastPeak.TimeSec,
	}
	a.lastPeak = p

	rr.Suspect = a.isSuspect(rr)
	if rr.Suspect {
		a.suspectTotal++
	}

	// Подозрительный интервал записывается в окно, но исключается из среднего
	a.window = append(a.window, rr)
	if len(a.window) > a.windowCap {
		a.window = a.window[1:]
	}

	est := models.HeartRateEstimate{
		TimeSec:    p.TimeSec,
		InstantBPM: rr.InstBPM(),
	}
	est.RollingAvgBPM, est.Intervals = a.rollingAvg()

	return rr, est, true
}

// isSuspect проверка физиологической правдоподобности интервала
func (a *Analyzer) isSuspect(rr models.RRInterval) bool {
	if rr.Duration <= 0 {
		return true
	}

	bpm := rr.InstBPM()
	if bpm < a.cfg.MinBPM || bpm > a.cfg.MaxBPM {
		return true
	}

	// Сравнение с недавними валидными интервалами ловит пропуски и
	// экстрасистолы, которые по абсолютному BPM ещё правдоподобны
	valid := a.validDurations()
	if len(valid) == 0 {
		return false
	}
	mean := utils.Mean(valid)
	if mean <= 0 {
		return false
	}

	ratio := rr.Duration / mean
	return ratio > missedBeatFactor || ratio < extraBeatFactor
}

// rollingAvg средний пульс по последним M валидным интервалам
func (a *Analyzer) rollingAvg() (float64, int) {
	valid := a.validDurations()
	if len(valid) > a.cfg.RollingWindowSize {
		valid = valid[len(valid)-a.cfg.RollingWindowSize:]
	}
	if len(valid) == 0 {
		return 0, 0
	}
	return 60.0 / utils.Mean(valid), len(valid)
}

// validDurations длительности интервалов окна без подозрительных
func (a *Analyzer) validDurations() []float64 {
	out := make([]float64, 0, len(a.window))
	for _, rr := range a.window {
		if !rr.Suspect {
			out = append(out, rr.Duration)
		}
	}
	return out
}

// Window копия текущего окна интервалов
func (a *Analyzer) Window() []models.RRInterval {
	out := make([]models.RRInterval, len(a.window))
	copy(out, a.window)
	return out
}

// SuspectTotal сколько подозрительных интервалов накопилось за сессию
func (a *Analyzer) SuspectTotal() int64 {
	return a.suspectTotal
}

// Stats статистика вариабельности по текущему окну
func (a *Analyzer) Stats() models.IntervalStats {
	stats := models.IntervalStats{Count: len(a.window)}
	if len(a.window) == 0 {
		return stats
	}

	durations := make([]float64, len(a.window))
	for i, rr := range a.window {
		durations[i] = rr.Duration
		if rr.Suspect {
			stats.SuspectCount++
		}
	}
	stats.ValidCount = stats.Count - stats.SuspectCount

	stats.MeanRR = utils.SafeFloat(utils.Mean(durations))
	stats.MinRR = utils.SafeFloat(utils.Min(durations))
	stats.MaxRR = utils.SafeFloat(utils.Max(durations))
	stats.SDNN = utils.SafeFloat(utils.Std(durations))
	stats.RMSSD = utils.SafeFloat(utils.RMSSD(durations))
	stats.PNN50 = utils.SafeFloat(utils.PNN50(durations))

	if stats.MeanRR > 0 {
		stats.CV = stats.SDNN / stats.MeanRR
		stats.MeanBPM = 60.0 / stats.MeanRR
	}

	for i := 1; i < len(durations); i++ {
		if durations[i-1] <= 0 {
			continue
		}
		diff := utils.Abs(durations[i]-durations[i-1]) / durations[i-1]
		if diff > stats.MaxSuccDiff {
			stats.MaxSuccDiff = diff
		}
	}

	return stats
}

// Reset сбрасывает состояние для новой сессии
func (a *Analyzer) Reset() {
	a.havePeak = false
	a.lastPeak = models.PeakEvent{}
	a.window = a.window[:0]
	a.suspectTotal = 0
}
