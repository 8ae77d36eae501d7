package models

// Sample одна точка оцифрованного ЭКГ сигнала
type Sample struct {
	TimeSec float64 `json:"t"` // Время в секундах от начала сессии
	Value   float64 `json:"v"` // Напряжение, мВ
}

// FilteredSample очищенная точка сигнала, выровнена 1:1 с входной
type FilteredSample struct {
	TimeSec       float64 `json:"t"`
	Value         float64 `json:"v"`
	LowConfidence bool    `json:"low_confidence,omitempty"` // Фильтр ещё не прогрет
}

// PeakEvent обнаруженный R-пик
type PeakEvent struct {
	TimeSec    float64 `json:"t"`
	Amplitude  float64 `json:"amplitude"`
	Confidence float64 `json:"confidence"` // 0..1, насколько пик превысил порог
	Clipped    bool    `json:"clipped,omitempty"`
}

// RRInterval интервал между двумя соседними R-пиками
type RRInterval struct {
	StartSec float64 `json:"start"`
	EndSec   float64 `json:"end"`
	Duration float64 `json:"duration"` // Секунды, строго положительная
	Suspect  bool    `json:"suspect"`  // Пропущенный или лишний удар
}

// InstBPM мгновенный пульс интервала
func (rr RRInterval) InstBPM() float64 {
	if rr.Duration <= 0 {
		return 0
	}
	return 60.0 / rr.Duration
}

// HeartRateEstimate оценка пульса на момент нового интервала
type HeartRateEstimate struct {
	TimeSec       float64 `json:"t"`
	InstantBPM    float64 `json:"instant_bpm"`
	RollingAvgBPM float64 `json:"rolling_avg_bpm"`
	Intervals     int     `json:"intervals"` // Сколько валидных интервалов в скользящем окне
}

// IntervalStats статистика RR-интервалов по недавнему окну
type IntervalStats struct {
	Count        int     `json:"count"`         // Всего интервалов в окне
	ValidCount   int     `json:"valid_count"`   // Без подозрительных
	SuspectCount int     `json:"suspect_count"` // Подозрительные (пропуск/экстрасистола)
	MeanRR       float64 `json:"mean_rr"`       // Секунды
	MinRR        float64 `json:"min_rr"`
	MaxRR        float64 `json:"max_rr"`
	SDNN         float64 `json:"sdnn"`  // Стандартное отклонение RR
	RMSSD        float64 `json:"rmssd"` // Корень из среднего квадрата соседних разностей
	PNN50        float64 `json:"pnn50"` // Доля соседних разностей > 50 мс
	CV           float64 `json:"cv"`    // Коэффициент вариации SDNN/MeanRR
	MeanBPM      float64 `json:"mean_bpm"`
	MaxSuccDiff  float64 `json:"max_succ_diff"` // Максимальная относительная разность соседних интервалов
}

// RhythmLabel метка классификации ритма
type RhythmLabel string

const (
	RhythmNormal           RhythmLabel = "Normal"
	RhythmIrregular        RhythmLabel = "Irregular"
	RhythmInsufficientData RhythmLabel = "InsufficientData"
)

// RhythmAssessment итоговая оценка ритма на один аналитический тик
type RhythmAssessment struct {
	TimeSec  float64       `json:"t"`
	Label    RhythmLabel   `json:"label"`
	Source   string        `json:"source"` // "rules" или "external"
	Stats    IntervalStats `json:"stats"`
	Reasons  []string      `json:"reasons,omitempty"` // Какие правила сработали
	External string        `json:"external_label,omitempty"`
}
