// internal/handlers/data_buffer.go
package handlers

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ChaudhariAzam/ecg-reader/internal/models"
)

// DataBuffer управляет буферизацией результатов анализа для записи в БД
type DataBuffer struct {
	db             *gorm.DB
	sessionBuffers map[uuid.UUID]*SessionDataBuffer
	mu             sync.RWMutex
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup

	writeFn func(sessionID uuid.UUID, clean []models.Sample, peaks []models.PeakEvent, assessments []models.RhythmAssessment) error
}

// SessionDataBuffer буфер для одной сессии
type SessionDataBuffer struct {
	SessionID        uuid.UUID
	CleanBuffer      []models.Sample
	PeakBuffer       []models.PeakEvent
	AssessmentBuffer []models.RhythmAssessment
	LastFlush        time.Time
	mu               sync.Mutex
}

// NewDataBuffer создает новый буфер данных
func NewDataBuffer(db *gorm.DB) *DataBuffer {
	ctx, cancel := context.WithCancel(context.Background())

	buffer := &DataBuffer{
		db:             db,
		sessionBuffers: make(map[uuid.UUID]*SessionDataBuffer),
		ctx:            ctx,
		cancel:         cancel,
	}
	buffer.writeFn = buffer.writeToDatabase

	buffer.wg.Add(1)
	go buffer.autoFlushWorker()

	log.Println("Data Buffer инициализирован")
	return buffer
}

// getOrCreate возвращает буфер сессии, создавая при необходимости
func (db *DataBuffer) getOrCreate(sessionID uuid.UUID) *SessionDataBuffer {
	db.mu.RLock()
	sessionBuffer, exists := db.sessionBuffers[sessionID]
	db.mu.RUnlock()

	if exists {
		return sessionBuffer
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if sessionBuffer, exists = db.sessionBuffers[sessionID]; !exists {
		sessionBuffer = &SessionDataBuffer{
			SessionID:   sessionID,
			CleanBuffer: make([]models.Sample, 0, 500),
			LastFlush:   time.Now(),
		}
		db.sessionBuffers[sessionID] = sessionBuffer
	}
	return sessionBuffer
}

// AddCleanPoint добавляет точку очищенного сигнала в буфер
func (db *DataBuffer) AddCleanPoint(sessionID uuid.UUID, f models.FilteredSample) {
	sessionBuffer := db.getOrCreate(sessionID)

	sessionBuffer.mu.Lock()
	sessionBuffer.CleanBuffer = append(sessionBuffer.CleanBuffer, models.Sample{
		TimeSec: f.TimeSec,
		Value:   f.Value,
	})
	shouldFlush := db.shouldFlushLocked(sessionBuffer)
	sessionBuffer.mu.Unlock()

	if shouldFlush {
		go db.flushSession(sessionID)
	}
}

// AddPeak добавляет обнаруженный пик в буфер
func (db *DataBuffer) AddPeak(sessionID uuid.UUID, p models.PeakEvent) {
	sessionBuffer := db.getOrCreate(sessionID)

	sessionBuffer.mu.Lock()
	sessionBuffer.PeakBuffer = append(sessionBuffer.PeakBuffer, p)
	sessionBuffer.mu.Unlock()
}

// AddAssessment добавляет оценку ритма в буфер
func (db *DataBuffer) AddAssessment(sessionID uuid.UUID, a models.RhythmAssessment) {
	sessionBuffer := db.getOrCreate(sessionID)

	sessionBuffer.mu.Lock()
	sessionBuffer.AssessmentBuffer = append(sessionBuffer.AssessmentBuffer, a)
	sessionBuffer.mu.Unlock()
}

// shouldFlushLocked вызывается под мьютексом буфера сессии
func (db *DataBuffer) shouldFlushLocked(sb *SessionDataBuffer) bool {
	totalPoints := len(sb.CleanBuffer) + len(sb.PeakBuffer) + len(sb.AssessmentBuffer)
	return totalPoints >= 500 || time.Since(sb.LastFlush) > 30*time.Second
}

// FlushAll синхронно флашит все буферы
func (db *DataBuffer) FlushAll() {
	db.mu.RLock()
	var sessionIDs []uuid.UUID
	for sessionID := range db.sessionBuffers {
		sessionIDs = append(sessionIDs, sessionID)
	}
	db.mu.RUnlock()

	for _, sessionID := range sessionIDs {
		db.flushSession(sessionID)
	}
}

// flushSession флашит буфер сессии по ID
func (db *DataBuffer) flushSession(sessionID uuid.UUID) {
	db.mu.RLock()
	sessionBuffer, exists := db.sessionBuffers[sessionID]
	db.mu.RUnlock()

	if exists {
		db.flushBuffer(sessionBuffer)
	}
}

// flushBuffer копирует и очищает буфер, затем пишет копию в БД
func (db *DataBuffer) flushBuffer(sessionBuffer *SessionDataBuffer) {
	sessionBuffer.mu.Lock()

	// Копируем данные для флаша
	cleanPoints := make([]models.Sample, len(sessionBuffer.CleanBuffer))
	copy(cleanPoints, sessionBuffer.CleanBuffer)
	peakPoints := make([]models.PeakEvent, len(sessionBuffer.PeakBuffer))
	copy(peakPoints, sessionBuffer.PeakBuffer)
	assessmentPoints := make([]models.RhythmAssessment, len(sessionBuffer.AssessmentBuffer))
	copy(assessmentPoints, sessionBuffer.AssessmentBuffer)

	// Очищаем буферы
	sessionBuffer.CleanBuffer = sessionBuffer.CleanBuffer[:0]
	sessionBuffer.PeakBuffer = sessionBuffer.PeakBuffer[:0]
	sessionBuffer.AssessmentBuffer = sessionBuffer.AssessmentBuffer[:0]
	sessionBuffer.LastFlush = time.Now()

	sessionBuffer.mu.Unlock()

	if len(cleanPoints) == 0 && len(peakPoints) == 0 && len(assessmentPoints) == 0 {
		return
	}

	sessionID := sessionBuffer.SessionID
	if err := db.writeFn(sessionID, cleanPoints, peakPoints, assessmentPoints); err != nil {
		log.Printf("❌ Ошибка записи в БД для сессии %s: %v", sessionID, err)
	} else {
		log.Printf("💾 Записано в БД: сессия %s, clean=%d, peaks=%d, assessments=%d",
			sessionID, len(cleanPoints), len(peakPoints), len(assessmentPoints))
	}
}

// appendExpr jsonb-аппенд точек в колонку series
func appendExpr(column string, pointsJSON string, count int, lastTime float64) interface{} {
	lastTimeStr := strconv.FormatFloat(lastTime, 'f', -1, 64)
	return gorm.Expr(
		`jsonb_set(
       jsonb_set(
         jsonb_set(`+column+`,
           '{points}', COALESCE(`+column+`->'points','[]'::jsonb)||?::jsonb),
         '{count}', (COALESCE((`+column+`->>'count')::int,0)+?)::text::jsonb),
       '{last_time}', ?::text::jsonb)`,
		pointsJSON,
		count,
		lastTimeStr,
	)
}

// writeToDatabase записывает данные в БД пакетно
func (db *DataBuffer) writeToDatabase(
	sessionID uuid.UUID,
	cleanPoints []models.Sample,
	peakPoints []models.PeakEvent,
	assessmentPoints []models.RhythmAssessment,
) error {
	updates := make(map[string]interface{})

	if len(cleanPoints) > 0 {
		cleanJSON, _ := json.Marshal(cleanPoints)
		updates["clean_data"] = appendExpr("clean_data", string(cleanJSON),
			len(cleanPoints), cleanPoints[len(cleanPoints)-1].TimeSec)
	}

	if len(peakPoints) > 0 {
		peakJSON, _ := json.Marshal(peakPoints)
		updates["peak_data"] = appendExpr("peak_data", string(peakJSON),
			len(peakPoints), peakPoints[len(peakPoints)-1].TimeSec)
	}

	if len(assessmentPoints) > 0 {
		assessmentJSON, _ := json.Marshal(assessmentPoints)
		updates["assessment_data"] = appendExpr("assessment_data", string(assessmentJSON),
			len(assessmentPoints), assessmentPoints[len(assessmentPoints)-1].TimeSec)
	}

	return db.db.Model(&models.ECGSession{}).
		Where("id = ?", sessionID).
		Updates(updates).Error
}

// RemoveSessionBuffer удаляет буфер завершенной сессии.
// Финальный флаш выполняется синхронно до возврата: хвост данных сессии,
// включая оценку дренажа, не может потеряться.
func (db *DataBuffer) RemoveSessionBuffer(sessionID uuid.UUID) {
	db.mu.Lock()
	sessionBuffer, exists := db.sessionBuffers[sessionID]
	if exists {
		delete(db.sessionBuffers, sessionID)
	}
	db.mu.Unlock()

	if !exists {
		return
	}

	db.flushBuffer(sessionBuffer)
	log.Printf("Удален буфер сессии: %s", sessionID)
}

// autoFlushWorker периодически флашит старые буферы
func (db *DataBuffer) autoFlushWorker() {
	defer db.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			db.flushOldBuffers()
		case <-db.ctx.Done():
			db.FlushAll()
			log.Println("Auto flush worker остановлен")
			return
		}
	}
}

// flushOldBuffers флашит буферы, которые давно не флашились
func (db *DataBuffer) flushOldBuffers() {
	db.mu.RLock()
	var sessionsToFlush []uuid.UUID

	for sessionID, sessionBuffer := range db.sessionBuffers {
		if time.Since(sessionBuffer.LastFlush) > 15*time.Second {
			sessionsToFlush = append(sessionsToFlush, sessionID)
		}
	}
	db.mu.RUnlock()

	for _, sessionID := range sessionsToFlush {
		db.flushSession(sessionID)
	}
}

// Stop останавливает буфер с финальным флашем
func (db *DataBuffer) Stop() {
	log.Println("Остановка Data Buffer...")
	db.cancel()
	db.wg.Wait()
	log.Println("Data Buffer остановлен")
}
