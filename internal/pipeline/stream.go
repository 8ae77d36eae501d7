package pipeline

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/ChaudhariAzam/ecg-reader/internal/models"
)

// Предупреждение в лог на каждые столько потерянных семплов
const dropWarnEvery = 100

// StreamSession потоковая обёртка конвейера с обратным давлением.
// Сырые семплы буферизуются в ограниченном канале; при переполнении
// теряется самый старый сырой семпл — с предупреждением, не молча.
// Производные результаты не теряются никогда.
type StreamSession struct {
	p  *Pipeline
	in chan models.Sample

	dropped  atomic.Int64
	rejected atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStreamSession создает потоковую сессию с буфером на bufferSize семплов
func NewStreamSession(p *Pipeline, bufferSize int) *StreamSession {
	if bufferSize < 1 {
		bufferSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &StreamSession{
		p:      p,
		in:     make(chan models.Sample, bufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start запускает конвейер и воркер потребления
func (s *StreamSession) Start() error {
	if err := s.p.Start(); err != nil {
		return err
	}

	s.wg.Add(1)
	go s.run()
	return nil
}

// Offer неблокирующая подача семпла. При переполненном буфере
// вытесняет самый старый неразобранный семпл.
func (s *StreamSession) Offer(sample models.Sample) {
	select {
	case s.in <- sample:
		return
	default:
	}

	// Буфер полон: освобождаем место за счёт самого старого семпла
	select {
	case <-s.in:
		s.noteDrop()
	default:
	}

	select {
	case s.in <- sample:
	default:
		s.noteDrop()
	}
}

func (s *StreamSession) noteDrop() {
	if d := s.dropped.Add(1); d%dropWarnEvery == 1 {
		log.Printf("⚠️ Переполнение буфера сессии, потеряно сырых семплов: %d", d)
	}
}

// run единственный потребитель канала; стадии конвейера не требуют блокировок
func (s *StreamSession) run() {
	defer s.wg.Done()

	for {
		select {
		case sample := <-s.in:
			s.push(sample)

		case <-s.ctx.Done():
			// Draining: добиваем уже буферизованное — время ограничено
			// ёмкостью канала, бесконечно ничего не блокируется
			for {
				select {
				case sample := <-s.in:
					s.push(sample)
				default:
					s.p.Drain()
					return
				}
			}
		}
	}
}

// push ошибки отдельного семпла не валят поток: считаем и продолжаем
func (s *StreamSession) push(sample models.Sample) {
	if err := s.p.Push(sample); err != nil {
		if r := s.rejected.Add(1); r%dropWarnEvery == 1 {
			log.Printf("⚠️ Семпл отклонён (%v), всего отклонено: %d", err, r)
		}
	}
}

// Stop завершает сессию: отмена, дренаж остатка, ожидание воркера
func (s *StreamSession) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Dropped сколько сырых семплов вытеснено из буфера
func (s *StreamSession) Dropped() int64 {
	return s.dropped.Load()
}

// Rejected сколько семплов отклонено валидацией
func (s *StreamSession) Rejected() int64 {
	return s.rejected.Load()
}

// Pipeline доступ к конвейеру сессии (для статистики и визуализации)
func (s *StreamSession) Pipeline() *Pipeline {
	return s.p
}

// Buffered сколько семплов ждёт обработки
func (s *StreamSession) Buffered() int {
	return len(s.in)
}
