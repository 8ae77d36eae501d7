package pipeline

import (
	"io"

	"github.com/ChaudhariAzam/ecg-reader/internal/models"
)

// SampleSource единая абстракция упорядоченного источника семплов.
// Батч и поток различаются только тем, кто дергает Next: батч читается
// до io.EOF, поток кормит конвейер через Push по одному семплу.
type SampleSource interface {
	Next() (models.Sample, error) // io.EOF — конец записи
}

// SliceSource источник поверх готового среза (батч-режим)
type SliceSource struct {
	samples []models.Sample
	pos     int
}

// NewSliceSource создает источник из среза семплов
func NewSliceSource(samples []models.Sample) *SliceSource {
	return &SliceSource{samples: samples}
}

func (s *SliceSource) Next() (models.Sample, error) {
	if s.pos >= len(s.samples) {
		return models.Sample{}, io.EOF
	}
	sample := s.samples[s.pos]
	s.pos++
	return sample, nil
}

// ValuesSource источник из голых значений с равномерным шагом по времени
type ValuesSource struct {
	values []float64
	rateHz float64
	pos    int
}

// NewValuesSource создает источник, расставляя метки времени по частоте
func NewValuesSource(values []float64, rateHz float64) *ValuesSource {
	return &ValuesSource{values: values, rateHz: rateHz}
}

func (s *ValuesSource) Next() (models.Sample, error) {
	if s.pos >= len(s.values) {
		return models.Sample{}, io.EOF
	}
	sample := models.Sample{
		TimeSec: float64(s.pos) / s.rateHz,
		Value:   s.values[s.pos],
	}
	s.pos++
	return sample, nil
}
