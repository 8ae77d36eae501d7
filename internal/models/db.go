package models

import (
	"time"

	"github.com/google/uuid"
)

// ECGSession единая таблица для всех данных одной сессии анализа
type ECGSession struct {
	// Основные идентификаторы
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CardID   uuid.UUID `json:"card_id" gorm:"type:uuid;not null;index"`
	DeviceID string    `json:"device_id" gorm:"type:varchar(100);not null;index"`

	// Метаданные сессии
	StartTime      time.Time  `json:"start_time" gorm:"not null;index"`
	EndTime        *time.Time `json:"end_time" gorm:"index"` // null пока сессия активна
	SamplingRateHz float64    `json:"sampling_rate_hz" gorm:"not null"`

	// Результаты анализа как аппендабельные JSONB массивы
	CleanData      ECGTimeSeries    `json:"clean_data" gorm:"serializer:json;type:jsonb"` // Очищенный сигнал
	PeakData       PeakSeries       `json:"peak_data" gorm:"serializer:json;type:jsonb"`
	AssessmentData AssessmentSeries `json:"assessment_data" gorm:"serializer:json;type:jsonb"`

	// Счётчики качества потока
	DroppedSamples int64 `json:"dropped_samples" gorm:"default:0"`
	SuspectCount   int64 `json:"suspect_count" gorm:"default:0"`
}

// ECGTimeSeries оптимизированная структура для аппенда точек сигнала
type ECGTimeSeries struct {
	Points   []Sample `json:"points"`
	LastTime float64  `json:"last_time"`
	Count    int      `json:"count"`
}

// PeakSeries аппендабельный ряд R-пиков
type PeakSeries struct {
	Points   []PeakEvent `json:"points"`
	LastTime float64     `json:"last_time"`
	Count    int         `json:"count"`
}

// AssessmentSeries аппендабельный ряд оценок ритма
type AssessmentSeries struct {
	Points   []RhythmAssessment `json:"points"`
	LastTime float64            `json:"last_time"`
	Count    int                `json:"count"`
}

func (ECGSession) TableName() string {
	return "ecg_sessions"
}

// GetDurationSeconds длительность сессии в секундах
func (s *ECGSession) GetDurationSeconds() int {
	end := time.Now().UTC()
	if s.EndTime != nil {
		end = *s.EndTime
	}
	return int(end.Sub(s.StartTime).Seconds())
}
