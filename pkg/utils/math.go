package utils

import (
	"math"
	"sort"
)

func SafeFloat(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.0
	}
	return v
}

// Mean вычисляет среднее значение
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}

	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// Std вычисляет стандартное отклонение
func Std(data []float64) float64 {
	if len(data) <= 1 {
		return math.NaN()
	}

	mean := Mean(data)
	sumSquares := 0.0

	for _, v := range data {
		diff := v - mean
		sumSquares += diff * diff
	}

	return math.Sqrt(sumSquares / float64(len(data)-1))
}

// Min находит минимальное значение
func Min(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}

	min := data[0]
	for _, v := range data[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// Max находит максимальное значение
func Max(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}

	max := data[0]
	for _, v := range data[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// Percentile вычисляет процентиль массива
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	n := float64(len(sorted) - 1)
	index := (p / 100.0) * n

	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))

	if lower == upper {
		return sorted[lower]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Median медиана массива
func Median(data []float64) float64 {
	return Percentile(data, 50)
}

// Abs возвращает абсолютное значение
func Abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// Diff вычисляет разности соседних элементов
func Diff(data []float64) []float64 {
	if len(data) <= 1 {
		return []float64{}
	}

	result := make([]float64, len(data)-1)
	for i := 1; i < len(data); i++ {
		result[i-1] = data[i] - data[i-1]
	}
	return result
}

// RMSSD корень из среднего квадрата соседних разностей
func RMSSD(data []float64) float64 {
	if len(data) <= 1 {
		return math.NaN()
	}

	diff := Diff(data)
	sumSquares := 0.0
	for _, d := range diff {
		sumSquares += d * d
	}
	return math.Sqrt(sumSquares / float64(len(diff)))
}

// PNN50 доля соседних разностей, превышающих 50 мс (аргумент в секундах)
func PNN50(data []float64) float64 {
	if len(data) <= 1 {
		return math.NaN()
	}

	diff := Diff(data)
	count := 0
	for _, d := range diff {
		if Abs(d) > 0.050 {
			count++
		}
	}
	return float64(count) / float64(len(diff))
}

// Clamp ограничивает значение диапазоном [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
