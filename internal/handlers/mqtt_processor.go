// internal/handlers/mqtt_processor.go
package handlers

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/ChaudhariAzam/ecg-reader/internal/models"
)

// MQTTStreamProcessor обрабатывает потоковые данные от MQTT
type MQTTStreamProcessor struct {
	sessionManager *SessionManager

	dataChannel chan *models.ECGData

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMQTTStreamProcessor создает новый процессор потоковых данных
func NewMQTTStreamProcessor(sessionManager *SessionManager) *MQTTStreamProcessor {
	ctx, cancel := context.WithCancel(context.Background())

	processor := &MQTTStreamProcessor{
		sessionManager: sessionManager,
		dataChannel:    make(chan *models.ECGData, 1000),
		ctx:            ctx,
		cancel:         cancel,
	}

	processor.wg.Add(1)
	go processor.dataWorker()

	log.Println("🚀 MQTT Stream Processor запущен")
	return processor
}

// HandleIncomingMQTT главный обработчик MQTT сообщений.
// Формат топика: medical/ecg/{datatype}/{deviceID}
func (p *MQTTStreamProcessor) HandleIncomingMQTT(topic string, payload []byte) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 {
		log.Printf("⚠️ Неверный формат топика: %s", topic)
		return
	}

	var data models.ECGData
	if err := json.Unmarshal(payload, &data); err != nil {
		log.Printf("❌ Ошибка парсинга MQTT payload: %v", err)
		return
	}

	// Заполнение из топика, если не указано в payload
	if data.DeviceID == "" {
		data.DeviceID = parts[3]
	}
	if data.DataType == "" {
		data.DataType = parts[2]
	}

	select {
	case p.dataChannel <- &data:
	default:
		log.Printf("⚠️ Канал данных переполнен, пропускаем сообщение")
	}
}

// dataWorker обрабатывает входящие данные
func (p *MQTTStreamProcessor) dataWorker() {
	defer p.wg.Done()

	for {
		select {
		case data := <-p.dataChannel:
			p.processData(data)
		case <-p.ctx.Done():
			log.Println("🛑 Data worker остановлен")
			return
		}
	}
}

// processData подает одну точку данных в сессию устройства
func (p *MQTTStreamProcessor) processData(data *models.ECGData) {
	if data.DataType != "ecg_waveform" {
		return
	}

	sample := models.Sample{TimeSec: data.TimeSec, Value: data.Value}
	if err := p.sessionManager.HandleSample(data.DeviceID, sample); err != nil {
		log.Printf("❌ Ошибка обработки семпла от %s: %v", data.DeviceID, err)
	}
}

// Stop останавливает процессор
func (p *MQTTStreamProcessor) Stop() {
	log.Println("🛑 Остановка MQTT Stream Processor...")
	p.cancel()
	p.wg.Wait()
	log.Println("✅ MQTT Stream Processor остановлен")
}
