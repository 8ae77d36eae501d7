package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ChaudhariAzam/ecg-reader/internal/models"
	"github.com/ChaudhariAzam/ecg-reader/internal/simulator"
)

var mqttClient mqtt.Client

var connectHandler mqtt.OnConnectHandler = func(client mqtt.Client) {
	fmt.Println("✓ Подключение к MQTT брокеру установлено")
}

var connectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	fmt.Printf("Соединение с MQTT брокером потеряно: %v\n", err)
}

func initMQTTClient(broker string) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(fmt.Sprintf("ecg-device-%d", time.Now().Unix()))
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.OnConnect = connectHandler
	opts.OnConnectionLost = connectLostHandler
	mqttClient = mqtt.NewClient(opts)
	if token := mqttClient.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("ошибка подключения к MQTT: %v", token.Error())
	}
	return nil
}

func publishMQTT(topic string, data models.ECGData) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("ошибка сериализации JSON: %v", err)
	}
	token := mqttClient.Publish(topic, 1, false, jsonData)
	if !token.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("таймаут отправки MQTT")
	}
	return token.Error()
}

// emulateSession проигрывает запись в реальном времени семплов
func emulateSession(samples []models.Sample, deviceID string, speedMultiplier float64) {
	topic := fmt.Sprintf("medical/ecg/ecg_waveform/%s", deviceID)
	fmt.Printf("✅ Сеанс начат. Семплов для отправки: %d\n", len(samples))

	for i, s := range samples {
		data := models.ECGData{
			DeviceID: deviceID,
			DataType: "ecg_waveform",
			Value:    s.Value,
			Units:    "mV",
			TimeSec:  s.TimeSec,
		}
		if err := publishMQTT(topic, data); err != nil {
			log.Printf("Ошибка отправки семпла: %v", err)
		}

		if i < len(samples)-1 {
			sleepSeconds := (samples[i+1].TimeSec - s.TimeSec) / speedMultiplier
			if sleepSeconds > 0 {
				time.Sleep(time.Duration(sleepSeconds * float64(time.Second)))
			}
		}
	}
}

func main() {
	broker := flag.String("broker", "tcp://localhost:1883", "Адрес MQTT брокера")
	deviceID := flag.String("device", "", "ID устройства (по умолчанию генерируется)")
	fs := flag.Float64("fs", 250, "Частота дискретизации, Гц")
	hr := flag.Float64("hr", 75, "Частота сердцебиения, уд/мин")
	noise := flag.Float64("noise", 0.02, "Амплитуда шума")
	irregular := flag.Bool("irregular", false, "Нерегулярный ритм")
	durationSec := flag.Float64("duration", 60, "Длительность сеанса, сек")
	speed := flag.Float64("speed", 1.0, "Множитель скорости проигрывания")
	csvFile := flag.String("csv", "", "Проигрывать запись из CSV вместо генерации")
	saveCSV := flag.String("save", "", "Сохранить сгенерированный сигнал в CSV")
	flag.Parse()

	log.SetFlags(log.LstdFlags)
	fmt.Println("=== ЭМУЛЯТОР ЭКГ УСТРОЙСТВА ===")

	if *deviceID == "" {
		*deviceID = fmt.Sprintf("ECG-MONITOR-%04d", 1+time.Now().Unix()%9998)
	}

	var samples []models.Sample
	if *csvFile != "" {
		var err error
		samples, err = simulator.ReadCSV(*csvFile)
		if err != nil {
			log.Fatalf("Не удалось прочитать запись: %v", err)
		}
		fmt.Printf("📂 Загружена запись %s: %d семплов\n", *csvFile, len(samples))
	} else {
		sim := simulator.NewECGSim(*fs, *hr, *noise)
		sim.SetIrregular(*irregular)
		samples = sim.Generate(int(*durationSec * *fs))
		fmt.Printf("Сгенерирован сигнал: %.0f Гц, %.0f уд/мин, %.0f сек, нерегулярность=%v\n",
			*fs, *hr, *durationSec, *irregular)
	}

	if *saveCSV != "" {
		if err := simulator.WriteCSV(*saveCSV, samples); err != nil {
			log.Fatalf("Не удалось сохранить запись: %v", err)
		}
		fmt.Printf("💾 Сигнал сохранён в %s\n", *saveCSV)
	}

	if err := initMQTTClient(*broker); err != nil {
		log.Fatalf("Не удалось инициализировать MQTT клиент: %v", err)
	}
	defer mqttClient.Disconnect(250)

	for {
		fmt.Printf("\n==================== НАЧАЛО СЕАНСА ЭКГ (%s) ====================\n", *deviceID)
		emulateSession(samples, *deviceID, *speed)
		fmt.Printf("==================== СЕАНС ЭКГ %s ЗАВЕРШЕН ====================\n", *deviceID)
		fmt.Println("⏸️  Пауза 5 секунд перед следующим сеансом...")
		time.Sleep(5 * time.Second)
	}
}
