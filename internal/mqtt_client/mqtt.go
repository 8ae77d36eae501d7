package mqtt_client

import (
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ChaudhariAzam/ecg-reader/configs"
)

// InitClient подключает MQTT клиент с аутентификацией
func InitClient(cfg configs.MQTTConfig) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" && cfg.Password != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
		log.Printf("MQTT аутентификация: пользователь %s", cfg.Username)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.OnConnect = func(c mqtt.Client) {
		log.Println("MQTT подключен")
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		log.Printf("⚠️ MQTT соединение потеряно: %v", err)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT подключение не удалось: %w", token.Error())
	}

	return client, nil
}

// Subscribe подписывает обработчик на топик с ожиданием подтверждения
func Subscribe(client mqtt.Client, topic string, qos byte, handler mqtt.MessageHandler) error {
	token := client.Subscribe(topic, qos, handler)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("подписка на %s не удалась: %w", topic, token.Error())
	}
	log.Printf("Подписан на топик: %s", topic)
	return nil
}
