// Package pipeline оркестратор конвейера анализа ЭКГ:
// сырые семплы → фильтр → детектор пиков → интервалы → оценка ритма.
// Данные движутся строго вперёд, ни одна стадия не мутирует выход предыдущей.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ChaudhariAzam/ecg-reader/internal/analysis"
	"github.com/ChaudhariAzam/ecg-reader/internal/detector"
	"github.com/ChaudhariAzam/ecg-reader/internal/dsp"
	"github.com/ChaudhariAzam/ecg-reader/internal/models"
	"github.com/ChaudhariAzam/ecg-reader/internal/rhythm"
)

// State состояние сессии анализа
type State int

const (
	StateIdle State = iota
	StateWarming
	StateActive
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWarming:
		return "warming"
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

var (
	// ErrNotRunning конвейер не принимает семплы в текущем состоянии
	ErrNotRunning = errors.New("сессия анализа не запущена")
	// ErrAlreadyStarted повторный старт той же сессии
	ErrAlreadyStarted = errors.New("сессия анализа уже запущена")
)

// Outputs колбэки для потребителей производных потоков (визуализация,
// экспорт, персистентность). Любой из них может быть nil.
type Outputs struct {
	OnFiltered   func(models.FilteredSample)
	OnPeak       func(models.PeakEvent)
	OnEstimate   func(models.HeartRateEstimate)
	OnAssessment func(models.RhythmAssessment)
}

// Pipeline один логический конвейер на сессию. Стадии исполняются
// по порядку для каждого семпла, общих мутируемых буферов нет.
// Контракт владения: у конвейера один владелец — Push, RunBatch и
// колбэки Outputs вызываются из одной горутины (StreamSession даёт
// такую горутину для потокового режима).
type Pipeline struct {
	cfg models.AnalysisConfig
	out Outputs

	buffer   *SignalBuffer
	filter   *dsp.Filter
	detector *detector.Detector
	analyzer *analysis.Analyzer
	engine   *rhythm.Engine

	mu    sync.RWMutex
	state State
}

// New создает конвейер; некорректная конфигурация фатальна до старта сессии
func New(cfg models.AnalysisConfig, external rhythm.Classifier, out Outputs) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("конфигурация сессии: %w", err)
	}

	return &Pipeline{
		cfg:      cfg,
		out:      out,
		buffer:   NewSignalBuffer(cfg.SamplingRateHz, cfg.WindowSec),
		filter:   dsp.NewFilter(cfg.SamplingRateHz, cfg.FilterBandLowHz, cfg.FilterBandHighHz),
		detector: detector.NewDetector(cfg),
		analyzer: analysis.NewAnalyzer(cfg),
		engine:   rhythm.NewEngine(cfg, external),
		state:    StateIdle,
	}, nil
}

// Start переводит сессию Idle → Warming и сбрасывает состояние стадий
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle && p.state != StateClosed {
		return ErrAlreadyStarted
	}

	p.buffer.Reset()
	p.filter.Reset()
	p.detector.Reset()
	p.analyzer.Reset()
	p.state = StateWarming
	return nil
}

// Push прогоняет один семпл через весь конвейер.
// Может породить ноль или больше событий через колбэки.
func (p *Pipeline) Push(s models.Sample) error {
	p.mu.Lock()
	if p.state != StateWarming && p.state != StateActive {
		p.mu.Unlock()
		return ErrNotRunning
	}
	p.mu.Unlock()

	if err := p.buffer.Append(s); err != nil {
		return err
	}

	filtered := p.filter.Process(s)
	if p.out.OnFiltered != nil {
		p.out.OnFiltered(filtered)
	}

	if p.filter.Warmed() {
		p.mu.Lock()
		if p.state == StateWarming {
			p.state = StateActive
		}
		p.mu.Unlock()
	}

	peak, ok := p.detector.Process(filtered)
	if !ok {
		return nil
	}
	if p.out.OnPeak != nil {
		p.out.OnPeak(peak)
	}

	rr, est, ok := p.analyzer.AddPeak(peak)
	if !ok {
		return nil
	}
	if p.out.OnEstimate != nil {
		p.out.OnEstimate(est)
	}

	// Аналитический тик: оценка ритма на каждый новый интервал
	assessment := p.engine.Assess(p.analyzer.Window(), p.analyzer.Stats(), rr.EndSec)
	if p.out.OnAssessment != nil {
		p.out.OnAssessment(assessment)
	}
	return nil
}

// Drain завершает сессию: финальная оценка по накопленному окну,
// затем переход в Closed. Плоский сигнал без единого пика честно
// даёт InsufficientData, а не молчание.
func (p *Pipeline) Drain() models.RhythmAssessment {
	p.mu.Lock()
	p.state = StateDraining
	p.mu.Unlock()

	final := p.engine.Assess(p.analyzer.Window(), p.analyzer.Stats(), p.buffer.LastTime())
	if p.out.OnAssessment != nil {
		p.out.OnAssessment(final)
	}

	p.mu.Lock()
	p.state = StateClosed
	p.mu.Unlock()
	return final
}

// Close прерывает сессию без финального флаша
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.state = StateClosed
	p.mu.Unlock()
}

// State текущее состояние сессии
func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Stats текущая статистика интервалов
func (p *Pipeline) Stats() models.IntervalStats {
	return p.analyzer.Stats()
}

// SuspectTotal подозрительные интервалы за сессию
func (p *Pipeline) SuspectTotal() int64 {
	return p.analyzer.SuspectTotal()
}

// RecentWindow копия семплов активного окна для визуализации
func (p *Pipeline) RecentWindow() []models.Sample {
	return p.buffer.Window()
}

// Result итог батч-прогона
type Result struct {
	Peaks       []models.PeakEvent         `json:"peaks"`
	Estimates   []models.HeartRateEstimate `json:"estimates"`
	Assessments []models.RhythmAssessment  `json:"assessments"`
	Final       models.RhythmAssessment    `json:"final"`
	Filtered    []models.FilteredSample    `json:"-"`
}

// RunBatch прогоняет источник до io.EOF и возвращает полный результат.
// Повторный прогон того же входа даёт идентичный результат.
// На время прогона колбэки Outputs временно подменяются, поэтому
// конвейер нельзя одновременно кормить через Push из другой горутины.
func (p *Pipeline) RunBatch(src SampleSource) (*Result, error) {
	if err := p.Start(); err != nil {
		return nil, err
	}

	res := &Result{}
	userOut := p.out
	p.out = Outputs{
		OnFiltered: func(f models.FilteredSample) {
			res.Filtered = append(res.Filtered, f)
			if userOut.OnFiltered != nil {
				userOut.OnFiltered(f)
			}
		},
		OnPeak: func(pe models.PeakEvent) {
			res.Peaks = append(res.Peaks, pe)
			if userOut.OnPeak != nil {
				userOut.OnPeak(pe)
			}
		},
		OnEstimate: func(e models.HeartRateEstimate) {
			res.Estimates = append(res.Estimates, e)
			if userOut.OnEstimate != nil {
				userOut.OnEstimate(e)
			}
		},
		OnAssessment: func(a models.RhythmAssessment) {
			res.Assessments = append(res.Assessments, a)
			if userOut.OnAssessment != nil {
				userOut.OnAssessment(a)
			}
		},
	}
	defer func() { p.out = userOut }()

	for {
		s, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("источник семплов: %w", err)
		}
		if err := p.Push(s); err != nil {
			return nil, fmt.Errorf("семпл t=%.3f: %w", s.TimeSec, err)
		}
	}

	res.Final = p.Drain()
	// Финальная оценка уже добавлена в Assessments колбэком Drain
	return res, nil
}
