package rhythm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ChaudhariAzam/ecg-reader/internal/models"
)

// RemoteClassifier отправляет статистику интервалов внешнему ML сервису
type RemoteClassifier struct {
	url        string
	httpClient *http.Client
}

// NewRemoteClassifier создает клиент внешнего классификатора
func NewRemoteClassifier(url string) *RemoteClassifier {
	return &RemoteClassifier{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// classifyRequest тело запроса к ML сервису
type classifyRequest struct {
	Intervals []models.RRInterval  `json:"intervals"`
	Stats     models.IntervalStats `json:"stats"`
}

// classifyResponse ответ ML сервиса
type classifyResponse struct {
	Label string `json:"label"`
}

// Classify выполняет запрос к внешнему сервису
func (rc *RemoteClassifier) Classify(window []models.RRInterval, stats models.IntervalStats) (models.RhythmLabel, error) {
	requestBody, err := json.Marshal(classifyRequest{
		Intervals: window,
		Stats:     stats,
	})
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	url := fmt.Sprintf("%s/classify", rc.url)
	httpReq, err := http.NewRequest("POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("ошибка создания запроса: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := rc.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ML сервис вернул ошибку %d: %s", resp.StatusCode, string(body))
	}

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	var cr classifyResponse
	if err := json.Unmarshal(responseBody, &cr); err != nil {
		return "", fmt.Errorf("ошибка десериализации ответа: %w", err)
	}

	return models.RhythmLabel(cr.Label), nil
}
