// internal/handlers/rest.go
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ChaudhariAzam/ecg-reader/configs"
	"github.com/ChaudhariAzam/ecg-reader/internal/database"
	"github.com/ChaudhariAzam/ecg-reader/internal/models"
	"github.com/ChaudhariAzam/ecg-reader/internal/pipeline"
	"github.com/ChaudhariAzam/ecg-reader/internal/rhythm"
	"github.com/ChaudhariAzam/ecg-reader/internal/ws"
)

// RESTAPIServer обрабатывает REST API запросы
type RESTAPIServer struct {
	cfg            *configs.Config
	sessionManager *SessionManager
	hub            *ws.Hub
	external       rhythm.Classifier
}

// SessionRequest запрос для создания сессии
type SessionRequest struct {
	CardID   string `json:"card_id" binding:"required"`
	DeviceID string `json:"device_id" binding:"required"`
}

// SessionResponse ответ с информацией о сессии
type SessionResponse struct {
	SessionID string     `json:"session_id"`
	CardID    string     `json:"card_id"`
	DeviceID  string     `json:"device_id"`
	Status    string     `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Duration  int        `json:"duration"`
}

// AnalyzeRequest батч-анализ готовой записи сигнала
type AnalyzeRequest struct {
	SamplingRateHz float64         `json:"sampling_rate_hz" binding:"required"`
	Values         []float64       `json:"values,omitempty"`  // Равномерные отсчёты
	Samples        []models.Sample `json:"samples,omitempty"` // Либо явные пары {t,v}
}

// AnalyzeResponse полный результат батч-анализа
type AnalyzeResponse struct {
	Peaks       []models.PeakEvent         `json:"peaks"`
	Estimates   []models.HeartRateEstimate `json:"estimates"`
	Assessments []models.RhythmAssessment  `json:"assessments"`
	Final       models.RhythmAssessment    `json:"final"`
	Explanation rhythm.Explanation         `json:"explanation"`
}

// ErrorResponse стандартный ответ об ошибке
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse стандартный ответ об успехе
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// HealthResponse состояние сервиса
type HealthResponse struct {
	Status         string    `json:"status"`
	Service        string    `json:"service"`
	Timestamp      time.Time `json:"timestamp"`
	ActiveSessions int       `json:"active_sessions"`
	WSClients      int       `json:"ws_clients"`
}

// NewRESTAPIServer создает новый REST API сервер
func NewRESTAPIServer(
	cfg *configs.Config,
	sessionManager *SessionManager,
	hub *ws.Hub,
	external rhythm.Classifier,
) *RESTAPIServer {
	return &RESTAPIServer{
		cfg:            cfg,
		sessionManager: sessionManager,
		hub:            hub,
		external:       external,
	}
}

// SetupRoutes настраивает маршруты REST API
func (api *RESTAPIServer) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Middleware
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:80", "*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Живая трансляция результатов
	r.GET("/ws", func(c *gin.Context) {
		ws.ServeWS(api.hub, c.Writer, c.Request)
	})

	apiGroup := r.Group("/api/v1")

	// === УПРАВЛЕНИЕ СЕССИЯМИ ===
	sessions := apiGroup.Group("/sessions")
	{
		sessions.POST("/start", api.StartSession)
		sessions.POST("/stop/:session_id", api.StopSession)
		sessions.GET("/active", api.GetActiveSessions)
		sessions.GET("/:session_id", api.GetSession)
		sessions.GET("/:session_id/data", api.GetSessionData)
	}

	// === МЕДИЦИНСКИЕ КАРТЫ ===
	cards := apiGroup.Group("/cards")
	{
		cards.GET("/:card_id/sessions", api.GetCardSessions)
	}

	// === БАТЧ-АНАЛИЗ ===
	apiGroup.POST("/analyze", api.Analyze)

	// === МОНИТОРИНГ СЕРВИСА ===
	monitoring := apiGroup.Group("/monitoring")
	{
		monitoring.GET("/health", api.HealthCheck)
		monitoring.POST("/cleanup", api.CleanupSessions)
	}

	return r
}

// StartSession запускает новую сессию анализа
func (api *RESTAPIServer) StartSession(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Неверный формат данных",
			Details: err.Error(),
		})
		return
	}

	cardID, err := uuid.Parse(req.CardID)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Неверный ID медицинской карты",
		})
		return
	}

	if active := api.sessionManager.GetActiveSession(req.DeviceID); active != nil {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "Сессия для устройства уже активна",
			Details: "active_session_id: " + active.Record.ID.String(),
		})
		return
	}

	session, err := api.sessionManager.StartSession(cardID, req.DeviceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Не удалось создать сессию",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Сессия запущена",
		Data:    sessionResponse(session),
	})
}

// StopSession завершает активную сессию
func (api *RESTAPIServer) StopSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Неверный ID сессии"})
		return
	}

	session, err := api.sessionManager.StopSession(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Не удалось завершить сессию",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Сессия завершена",
		Data:    sessionResponse(session),
	})
}

// GetActiveSessions список активных сессий
func (api *RESTAPIServer) GetActiveSessions(c *gin.Context) {
	active := api.sessionManager.GetAllActiveSessions()

	responses := make([]SessionResponse, 0, len(active))
	for _, session := range active {
		responses = append(responses, sessionResponse(session.Record))
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": responses,
		"count":    len(responses),
	})
}

// GetSession информация о сессии из БД
func (api *RESTAPIServer) GetSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Неверный ID сессии"})
		return
	}

	session, err := api.sessionManager.GetSession(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Сессия не найдена"})
		return
	}

	c.JSON(http.StatusOK, sessionResponse(session))
}

// GetSessionData результаты анализа сессии
func (api *RESTAPIServer) GetSessionData(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Неверный ID сессии"})
		return
	}

	session, err := api.sessionManager.GetSession(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Сессия не найдена"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":      session.ID.String(),
		"clean_data":      session.CleanData,
		"peak_data":       session.PeakData,
		"assessment_data": session.AssessmentData,
		"dropped_samples": session.DroppedSamples,
		"suspect_count":   session.SuspectCount,
	})
}

// GetCardSessions все сессии медицинской карты
func (api *RESTAPIServer) GetCardSessions(c *gin.Context) {
	cardID, err := uuid.Parse(c.Param("card_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Неверный ID медицинской карты"})
		return
	}

	sessions, err := api.sessionManager.GetSessionsByCardID(cardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Ошибка получения сессий",
			Details: err.Error(),
		})
		return
	}

	responses := make([]SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, sessionResponse(session))
	}

	c.JSON(http.StatusOK, gin.H{
		"card_id":  cardID.String(),
		"sessions": responses,
		"count":    len(responses),
	})
}

// Analyze прогоняет готовую запись через конвейер за один запрос
func (api *RESTAPIServer) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Неверный формат данных",
			Details: err.Error(),
		})
		return
	}

	if len(req.Values) == 0 && len(req.Samples) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Пустая запись сигнала"})
		return
	}

	cfg := api.cfg.Analysis
	cfg.SamplingRateHz = req.SamplingRateHz

	p, err := pipeline.New(cfg, api.external, pipeline.Outputs{})
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Некорректная конфигурация анализа",
			Details: err.Error(),
		})
		return
	}

	var src pipeline.SampleSource
	if len(req.Samples) > 0 {
		src = pipeline.NewSliceSource(req.Samples)
	} else {
		src = pipeline.NewValuesSource(req.Values, req.SamplingRateHz)
	}

	result, err := p.RunBatch(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Ошибка анализа записи",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, AnalyzeResponse{
		Peaks:       result.Peaks,
		Estimates:   result.Estimates,
		Assessments: result.Assessments,
		Final:       result.Final,
		Explanation: rhythm.Explain(result.Final.Label),
	})
}

// HealthCheck состояние сервиса и БД
func (api *RESTAPIServer) HealthCheck(c *gin.Context) {
	status := "healthy"
	if err := database.HealthCheck(); err != nil {
		status = "degraded"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:         status,
		Service:        "ECG Reader",
		Timestamp:      time.Now().UTC(),
		ActiveSessions: api.sessionManager.GetActiveSessionCount(),
		WSClients:      api.hub.ClientCount(),
	})
}

// CleanupSessions принудительная очистка зависших сессий
func (api *RESTAPIServer) CleanupSessions(c *gin.Context) {
	api.sessionManager.CleanupInactiveSessions()

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Очистка сессий выполнена",
		Data: gin.H{
			"active_sessions": api.sessionManager.GetActiveSessionCount(),
		},
	})
}

// sessionResponse преобразование модели в ответ API
func sessionResponse(s *models.ECGSession) SessionResponse {
	status := "active"
	if s.EndTime != nil {
		status = "stopped"
	}
	return SessionResponse{
		SessionID: s.ID.String(),
		CardID:    s.CardID.String(),
		DeviceID:  s.DeviceID,
		Status:    status,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Duration:  s.GetDurationSeconds(),
	}
}
