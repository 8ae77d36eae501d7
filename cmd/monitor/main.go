package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ChaudhariAzam/ecg-reader/configs"
	"github.com/ChaudhariAzam/ecg-reader/internal/database"
	"github.com/ChaudhariAzam/ecg-reader/internal/handlers"
	"github.com/ChaudhariAzam/ecg-reader/internal/mqtt_client"
	"github.com/ChaudhariAzam/ecg-reader/internal/rhythm"
	"github.com/ChaudhariAzam/ecg-reader/internal/ws"
)

func main() {
	log.Println(" === ECG READER (Stream Processing Architecture) ===")

	// 1. Загрузка конфигурации
	cfg := configs.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Некорректная конфигурация: %v", err)
	}
	log.Printf("Конфигурация загружена: DB=%s:%s, MQTT=%s, fs=%.0f Гц",
		cfg.Database.Host, cfg.Database.Port, cfg.MQTT.Broker, cfg.Analysis.SamplingRateHz)

	// 2. Инициализация базы данных
	db, err := database.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Ошибка инициализации БД: %v", err)
	}
	defer database.CloseDatabase()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Ошибка миграций: %v", err)
	}

	// 3. Внешний классификатор опционален: без URL работают только правила
	var external rhythm.Classifier
	if cfg.App.ClassifierURL != "" {
		external = rhythm.NewRemoteClassifier(cfg.App.ClassifierURL)
		log.Printf("Внешний классификатор ритма: %s", cfg.App.ClassifierURL)
	}

	// 4. Создание основных компонентов
	dataBuffer := handlers.NewDataBuffer(db)
	hub := ws.NewHub()
	go hub.Run()

	sessionManager := handlers.NewSessionManager(db, cfg, dataBuffer, hub, external)
	mqttProcessor := handlers.NewMQTTStreamProcessor(sessionManager)

	// 5. Инициализация MQTT клиента
	mqttClient, err := mqtt_client.InitClient(cfg.MQTT)
	if err != nil {
		log.Fatalf("Ошибка MQTT: %v", err)
	}
	defer mqttClient.Disconnect(250)

	// 6. Подписка: все устройства и типы данных
	messageHandler := func(client mqtt.Client, msg mqtt.Message) {
		mqttProcessor.HandleIncomingMQTT(msg.Topic(), msg.Payload())
	}

	topic := "medical/ecg/+/+"
	if err := mqtt_client.Subscribe(mqttClient, topic, byte(cfg.MQTT.QoS), messageHandler); err != nil {
		log.Fatalf("Ошибка подписки MQTT: %v", err)
	}

	// 7. Запуск REST API сервера
	restAPI := handlers.NewRESTAPIServer(cfg, sessionManager, hub, external)
	router := restAPI.SetupRoutes()

	go func() {
		log.Printf("REST API Server запущен на :%s", cfg.App.Port)
		if err := http.ListenAndServe(":"+cfg.App.Port, router); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Ошибка HTTP сервера: %v", err)
		}
	}()

	log.Println("Сервис запущен → Ctrl+C для остановки")
	log.Println("Архитектура потокового процессинга:")
	log.Println("MQTT → Stream Processor → Конвейер анализа → Data Buffer → Database")
	log.Println("Конвейер анализа → WebSocket Hub → клиенты визуализации")
	log.Println("REST API → Session Manager")

	// 8. Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Graceful shutdown...")

	// Остановка компонентов в обратном порядке
	mqttProcessor.Stop()
	sessionManager.StopAll()
	dataBuffer.Stop()

	log.Println("Сервис полностью остановлен")
}
