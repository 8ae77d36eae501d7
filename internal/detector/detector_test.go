package detector

import (
	"math"
	"testing"

	"github.com/ChaudhariAzam/ecg-reader/internal/models"
)

const testFS = 250.0

// beatTrain плоский сигнал с треугольными пиками заданной амплитуды
func beatTrain(n int, beats map[int]float64) []models.FilteredSample {
	values := make([]float64, n)
	for idx, amp := range beats {
		if idx-1 >= 0 {
			values[idx-1] = 0.5 * amp
		}
		values[idx] = amp
		if idx+1 < n {
			values[idx+1] = 0.5 * amp
		}
	}

	out := make([]models.FilteredSample, n)
	for i := range out {
		out[i] = models.FilteredSample{TimeSec: float64(i) / testFS, Value: values[i]}
	}
	return out
}

func runDetector(d *Detector, in []models.FilteredSample) []models.PeakEvent {
	var peaks []models.PeakEvent
	for _, s := range in {
		if p, ok := d.Process(s); ok {
			peaks = append(peaks, p)
		}
	}
	return peaks
}

func TestDetectorFindsRegularBeats(t *testing.T) {
	cfg := models.DefaultAnalysisConfig()
	d := NewDetector(cfg)

	// Удары каждые 0.8 сек, 10 штук
	beats := make(map[int]float64)
	for k := 0; k < 10; k++ {
		beats[250+k*200] = 1.0
	}
	in := beatTrain(250+10*200, beats)

	peaks := runDetector(d, in)
	if len(peaks) != 10 {
		t.Fatalf("обнаружено пиков %d, ожидалось 10", len(peaks))
	}
	for k, p := range peaks {
		want := float64(250+k*200) / testFS
		if math.Abs(p.TimeSec-want) > 1.5/testFS {
			t.Errorf("пик %d: время %v, ожидалось ~%v", k, p.TimeSec, want)
		}
	}
}

func TestDetectorRefractoryPeriod(t *testing.T) {
	cfg := models.DefaultAnalysisConfig()
	d := NewDetector(cfg)

	// Два удара через 0.1 сек при рефрактерном периоде 0.25 сек
	in := beatTrain(500, map[int]float64{250: 1.0, 275: 1.0})

	peaks := runDetector(d, in)
	if len(peaks) != 1 {
		t.Fatalf("обнаружено пиков %d, ожидался 1 (второй в рефрактерном периоде)", len(peaks))
	}
	if math.Abs(peaks[0].TimeSec-1.0) > 1.5/testFS {
		t.Errorf("принят не первый пик: время %v", peaks[0].TimeSec)
	}
}

func TestDetectorFlatLineNoPeaks(t *testing.T) {
	cfg := models.DefaultAnalysisConfig()
	d := NewDetector(cfg)

	in := beatTrain(5000, nil)
	if peaks := runDetector(d, in); len(peaks) != 0 {
		t.Fatalf("на плоском сигнале обнаружено %d пиков", len(peaks))
	}
}

func TestDetectorAdaptsToAmplitudeDrift(t *testing.T) {
	cfg := models.DefaultAnalysisConfig()
	d := NewDetector(cfg)

	// Амплитуда ударов постепенно падает с 1.0 до ~0.39
	beats := make(map[int]float64)
	amp := 1.0
	for k := 0; k < 10; k++ {
		beats[250+k*200] = amp
		amp *= 0.9
	}
	in := beatTrain(250+10*200, beats)

	peaks := runDetector(d, in)
	if len(peaks) != 10 {
		t.Fatalf("при дрейфе амплитуды обнаружено %d пиков, ожидалось 10", len(peaks))
	}
}

func TestDetectorClippedPeak(t *testing.T) {
	cfg := models.DefaultAnalysisConfig()
	d := NewDetector(cfg)

	// Плато из четырёх одинаковых максимумов — насыщение АЦП
	values := make([]float64, 500)
	values[249] = 0.4
	for i := 250; i < 254; i++ {
		values[i] = 1.0
	}
	values[254] = 0.4

	in := make([]models.FilteredSample, len(values))
	for i := range in {
		in[i] = models.FilteredSample{TimeSec: float64(i) / testFS, Value: values[i]}
	}

	peaks := runDetector(d, in)
	if len(peaks) != 1 {
		t.Fatalf("обнаружено пиков %d, ожидался 1", len(peaks))
	}
	if !peaks[0].Clipped {
		t.Error("пик с плато должен быть помечен как clipped")
	}
	if peaks[0].Confidence > 0.5 {
		t.Errorf("confidence клиппированного пика %v, должен быть снижен", peaks[0].Confidence)
	}
}

func TestDetectorConfidenceWithinRange(t *testing.T) {
	cfg := models.DefaultAnalysisConfig()
	d := NewDetector(cfg)

	beats := make(map[int]float64)
	for k := 0; k < 20; k++ {
		beats[250+k*200] = 0.6 + 0.4*math.Sin(float64(k))
	}
	in := beatTrain(250+20*200, beats)

	for _, p := range runDetector(d, in) {
		if p.Confidence < 0 || p.Confidence > 1 {
			t.Fatalf("confidence %v вне диапазона [0,1]", p.Confidence)
		}
	}
}

func TestDetectorResetClearsState(t *testing.T) {
	cfg := models.DefaultAnalysisConfig()
	d := NewDetector(cfg)

	in := beatTrain(1000, map[int]float64{250: 1.0, 450: 1.0, 650: 1.0})
	first := runDetector(d, in)

	d.Reset()
	if _, ok := d.LastPeakTime(); ok {
		t.Error("после Reset не должно быть последнего пика")
	}

	second := runDetector(d, in)
	if len(first) != len(second) {
		t.Fatalf("после Reset прогон дал %d пиков вместо %d", len(second), len(first))
	}
}
