// internal/handlers/session_manager.go
package handlers

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ChaudhariAzam/ecg-reader/configs"
	"github.com/ChaudhariAzam/ecg-reader/internal/models"
	"github.com/ChaudhariAzam/ecg-reader/internal/pipeline"
	"github.com/ChaudhariAzam/ecg-reader/internal/rhythm"
	"github.com/ChaudhariAzam/ecg-reader/internal/ws"
)

// AnalysisSession активная сессия: запись в БД плюс работающий конвейер
type AnalysisSession struct {
	Record *models.ECGSession
	Stream *pipeline.StreamSession
}

// SessionManager управляет жизненным циклом сессий анализа ЭКГ
type SessionManager struct {
	db         *gorm.DB
	cfg        *configs.Config
	dataBuffer *DataBuffer
	hub        *ws.Hub
	external   rhythm.Classifier

	activeSessions map[string]*AnalysisSession // По устройству
	sessionsLock   sync.RWMutex

	createRecord func(*models.ECGSession) error
}

// NewSessionManager создает новый менеджер сессий
func NewSessionManager(
	db *gorm.DB,
	cfg *configs.Config,
	dataBuffer *DataBuffer,
	hub *ws.Hub,
	external rhythm.Classifier,
) *SessionManager {
	manager := &SessionManager{
		db:             db,
		cfg:            cfg,
		dataBuffer:     dataBuffer,
		hub:            hub,
		external:       external,
		activeSessions: make(map[string]*AnalysisSession),
	}
	manager.createRecord = func(record *models.ECGSession) error {
		return db.Create(record).Error
	}

	log.Println("Session Manager инициализирован")
	return manager
}

// StartSession создает и запускает новую сессию анализа
func (sm *SessionManager) StartSession(cardID uuid.UUID, deviceID string) (*models.ECGSession, error) {
	sm.sessionsLock.Lock()
	defer sm.sessionsLock.Unlock()
	return sm.startSessionLocked(cardID, deviceID)
}

// startSessionLocked вызывается под sessionsLock: проверка и создание
// сессии атомарны, две гонящиеся первые подачи не создадут двух сессий
func (sm *SessionManager) startSessionLocked(cardID uuid.UUID, deviceID string) (*models.ECGSession, error) {
	if existing := sm.activeSessions[deviceID]; existing != nil {
		return nil, fmt.Errorf("активная сессия уже существует для устройства %s", deviceID)
	}

	record := &models.ECGSession{
		ID:             uuid.New(),
		CardID:         cardID,
		DeviceID:       deviceID,
		StartTime:      time.Now().UTC(),
		SamplingRateHz: sm.cfg.Analysis.SamplingRateHz,
		CleanData:      models.ECGTimeSeries{Points: []models.Sample{}},
		PeakData:       models.PeakSeries{Points: []models.PeakEvent{}},
		AssessmentData: models.AssessmentSeries{Points: []models.RhythmAssessment{}},
	}

	if err := sm.createRecord(record); err != nil {
		return nil, fmt.Errorf("не удалось создать сессию в БД: %w", err)
	}

	stream, err := sm.buildStream(record)
	if err != nil {
		return nil, err
	}
	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("не удалось запустить конвейер: %w", err)
	}

	sm.activeSessions[deviceID] = &AnalysisSession{Record: record, Stream: stream}

	log.Printf("Запущена сессия %s для устройства %s, карта %s",
		record.ID.String(), deviceID, cardID.String())

	return record, nil
}

// buildStream собирает конвейер сессии и подключает потребителей:
// буфер БД и WebSocket трансляцию
func (sm *SessionManager) buildStream(record *models.ECGSession) (*pipeline.StreamSession, error) {
	sessionID := record.ID
	deviceID := record.DeviceID

	outputs := pipeline.Outputs{
		OnFiltered: func(f models.FilteredSample) {
			sm.dataBuffer.AddCleanPoint(sessionID, f)
		},
		OnPeak: func(p models.PeakEvent) {
			sm.dataBuffer.AddPeak(sessionID, p)
			sm.hub.Broadcast("peak", map[string]interface{}{
				"device_id": deviceID,
				"peak":      p,
			})
		},
		OnEstimate: func(e models.HeartRateEstimate) {
			sm.hub.Broadcast("heart_rate", map[string]interface{}{
				"device_id": deviceID,
				"estimate":  e,
			})
		},
		OnAssessment: func(a models.RhythmAssessment) {
			sm.dataBuffer.AddAssessment(sessionID, a)
			sm.hub.Broadcast("assessment", map[string]interface{}{
				"device_id":   deviceID,
				"assessment":  a,
				"explanation": rhythm.Explain(a.Label),
			})
		},
	}

	p, err := pipeline.New(sm.cfg.Analysis, sm.external, outputs)
	if err != nil {
		return nil, fmt.Errorf("конвейер сессии %s: %w", sessionID, err)
	}

	return pipeline.NewStreamSession(p, sm.cfg.App.StreamBuffer), nil
}

// HandleSample подает семпл устройства в его активную сессию.
// Если сессии нет, она создается автоматически с новой картой:
// проверка и создание идут под одной блокировкой, параллельные первые
// семплы одного устройства не плодят дублей и не теряются.
func (sm *SessionManager) HandleSample(deviceID string, sample models.Sample) error {
	sm.sessionsLock.Lock()
	session := sm.activeSessions[deviceID]
	if session == nil {
		if _, err := sm.startSessionLocked(uuid.New(), deviceID); err != nil {
			sm.sessionsLock.Unlock()
			return err
		}
		session = sm.activeSessions[deviceID]
		log.Printf("✅ Автоматически создана сессия для устройства: %s", deviceID)
	}
	sm.sessionsLock.Unlock()

	session.Stream.Offer(sample)
	return nil
}

// StopSession завершает активную сессию с дренажем конвейера
func (sm *SessionManager) StopSession(sessionID uuid.UUID) (*models.ECGSession, error) {
	sm.sessionsLock.Lock()

	var targetDeviceID string
	var target *AnalysisSession

	for deviceID, session := range sm.activeSessions {
		if session.Record.ID == sessionID {
			targetDeviceID = deviceID
			target = session
			break
		}
	}

	if target == nil {
		sm.sessionsLock.Unlock()
		return nil, fmt.Errorf("активная сессия %s не найдена", sessionID.String())
	}
	delete(sm.activeSessions, targetDeviceID)
	sm.sessionsLock.Unlock()

	// Draining: конвейер добивает буферизованное и выдает финальную оценку
	target.Stream.Stop()

	now := time.Now().UTC()
	target.Record.EndTime = &now

	updates := map[string]interface{}{
		"end_time":        now,
		"dropped_samples": target.Stream.Dropped(),
		"suspect_count":   target.Stream.Pipeline().SuspectTotal(),
	}
	if err := sm.db.Model(target.Record).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("не удалось обновить сессию в БД: %w", err)
	}

	sm.dataBuffer.RemoveSessionBuffer(sessionID)

	log.Printf("✅ Завершена сессия %s для устройства %s", sessionID.String(), targetDeviceID)
	return target.Record, nil
}

// GetActiveSession возвращает активную сессию для устройства
func (sm *SessionManager) GetActiveSession(deviceID string) *AnalysisSession {
	sm.sessionsLock.RLock()
	defer sm.sessionsLock.RUnlock()
	return sm.activeSessions[deviceID]
}

// GetAllActiveSessions возвращает все активные сессии
func (sm *SessionManager) GetAllActiveSessions() []*AnalysisSession {
	sm.sessionsLock.RLock()
	defer sm.sessionsLock.RUnlock()

	sessions := make([]*AnalysisSession, 0, len(sm.activeSessions))
	for _, session := range sm.activeSessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// GetActiveSessionCount возвращает количество активных сессий
func (sm *SessionManager) GetActiveSessionCount() int {
	sm.sessionsLock.RLock()
	defer sm.sessionsLock.RUnlock()
	return len(sm.activeSessions)
}

// GetSession получает сессию из БД по ID
func (sm *SessionManager) GetSession(sessionID uuid.UUID) (*models.ECGSession, error) {
	var session models.ECGSession
	if err := sm.db.First(&session, "id = ?", sessionID).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSessionsByCardID получает все сессии для медицинской карты
func (sm *SessionManager) GetSessionsByCardID(cardID uuid.UUID) ([]*models.ECGSession, error) {
	var sessions []*models.ECGSession
	if err := sm.db.Where("card_id = ?", cardID).
		Order("start_time DESC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// CleanupInactiveSessions принудительно завершает зависшие сессии
func (sm *SessionManager) CleanupInactiveSessions() {
	threshold := time.Now().Add(-24 * time.Hour)

	sm.sessionsLock.RLock()
	var stale []uuid.UUID
	for _, session := range sm.activeSessions {
		if session.Record.StartTime.Before(threshold) {
			stale = append(stale, session.Record.ID)
		}
	}
	sm.sessionsLock.RUnlock()

	for _, sessionID := range stale {
		if _, err := sm.StopSession(sessionID); err != nil {
			log.Printf("⚠️ Не удалось завершить зависшую сессию %s: %v", sessionID, err)
			continue
		}
		log.Printf("Принудительно завершена зависшая сессия: %s", sessionID)
	}

	if len(stale) > 0 {
		log.Printf("Очищено %d зависших сессий", len(stale))
	}
}

// StopAll завершает все активные сессии (graceful shutdown)
func (sm *SessionManager) StopAll() {
	for _, session := range sm.GetAllActiveSessions() {
		if _, err := sm.StopSession(session.Record.ID); err != nil {
			log.Printf("⚠️ Ошибка остановки сессии %s: %v", session.Record.ID, err)
		}
	}
}
