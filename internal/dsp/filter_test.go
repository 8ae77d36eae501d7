package dsp

import (
	"math"
	"reflect"
	"testing"

	"github.com/ChaudhariAzam/ecg-reader/internal/models"
)

func makeSamples(fs float64, n int, gen func(t float64) float64) []models.Sample {
	out := make([]models.Sample, n)
	for i := range out {
		t := float64(i) / fs
		out[i] = models.Sample{TimeSec: t, Value: gen(t)}
	}
	return out
}

func TestFilterOutputAlignedWithInput(t *testing.T) {
	f := NewFilter(250, 0.5, 40)
	in := makeSamples(250, 1000, func(t float64) float64 {
		return math.Sin(2 * math.Pi * 1.25 * t)
	})

	out := f.ProcessBatch(in)
	if len(out) != len(in) {
		t.Fatalf("длина выхода %d, ожидалась %d", len(out), len(in))
	}
	for i := range out {
		if out[i].TimeSec != in[i].TimeSec {
			t.Fatalf("семпл %d: метка времени %v, ожидалась %v", i, out[i].TimeSec, in[i].TimeSec)
		}
	}
}

func TestFilterRemovesConstantOffset(t *testing.T) {
	f := NewFilter(250, 0.5, 40)
	in := makeSamples(250, 5000, func(t float64) float64 { return 2.5 })

	out := f.ProcessBatch(in)
	last := out[len(out)-1].Value
	if math.Abs(last) > 0.05 {
		t.Fatalf("постоянное смещение не снято: последний выход %v", last)
	}
}

func TestFilterTracksSlowDrift(t *testing.T) {
	f := NewFilter(250, 0.5, 40)
	// Медленный дрейф изолинии 0.1 Гц должен подавляться
	in := makeSamples(250, 10000, func(t float64) float64 {
		return 0.5 * math.Sin(2*math.Pi*0.1*t)
	})

	out := f.ProcessBatch(in)
	maxTail := 0.0
	for _, s := range out[len(out)/2:] {
		if v := math.Abs(s.Value); v > maxTail {
			maxTail = v
		}
	}
	if maxTail > 0.35 {
		t.Fatalf("дрейф изолинии подавлен недостаточно: максимум на хвосте %v", maxTail)
	}
}

func TestFilterWarmupFlag(t *testing.T) {
	f := NewFilter(250, 0.5, 40)
	warmup := f.WarmupSamples()

	in := makeSamples(250, int(warmup)+100, func(t float64) float64 { return 1.0 })
	out := f.ProcessBatch(in)

	if !out[0].LowConfidence {
		t.Error("первый семпл должен быть low-confidence")
	}
	if !out[warmup-1].LowConfidence {
		t.Errorf("семпл %d внутри прогрева должен быть low-confidence", warmup-1)
	}
	if out[warmup].LowConfidence {
		t.Errorf("семпл %d после прогрева не должен быть low-confidence", warmup)
	}
	if !f.Warmed() {
		t.Error("фильтр должен быть прогрет после прохождения прогрева")
	}
}

func TestFilterDeterminism(t *testing.T) {
	in := makeSamples(250, 2000, func(t float64) float64 {
		return math.Sin(2*math.Pi*1.25*t) + 0.3*math.Sin(2*math.Pi*50*t)
	})

	a := NewFilter(250, 0.5, 40).ProcessBatch(in)
	b := NewFilter(250, 0.5, 40).ProcessBatch(in)

	if !reflect.DeepEqual(a, b) {
		t.Fatal("два прогона одинакового входа дали разный выход")
	}
}

func TestFilterResetClearsState(t *testing.T) {
	f := NewFilter(250, 0.5, 40)
	in := makeSamples(250, 1000, func(t float64) float64 {
		return math.Sin(2 * math.Pi * 1.25 * t)
	})

	first := f.ProcessBatch(in)
	f.Reset()
	second := f.ProcessBatch(in)

	if !reflect.DeepEqual(first, second) {
		t.Fatal("после Reset прогон того же входа дал другой выход")
	}
}
