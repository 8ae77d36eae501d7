// configs/config.go
package configs

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/ChaudhariAzam/ecg-reader/internal/models"
)

type Config struct {
	Database DatabaseConfig
	App      AppConfig
	MQTT     MQTTConfig
	Analysis models.AnalysisConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	TimeZone string
}

type AppConfig struct {
	Port          string // HTTP_PORT из .env
	LogLevel      string
	ClassifierURL string // URL внешнего ML классификатора, пусто — только правила
	StreamBuffer  int    // Ёмкость буфера сырых семплов потоковой сессии
}

type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      int
}

// LoadConfig загружает конфигурацию из окружения и .env файла
func LoadConfig() *Config {
	// .env опционален: в контейнере всё приходит из окружения
	if err := godotenv.Load(); err == nil {
		log.Println("Конфигурация дополнена из .env")
	}

	return &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "ecg_user"),
			Password: getEnv("DB_PASSWORD", "ecg_password"),
			DBName:   getEnv("DB_NAME", "ecg_reader"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			TimeZone: getEnv("DB_TIMEZONE", "Europe/Moscow"),
		},
		App: AppConfig{
			Port:          getEnv("HTTP_PORT", "8080"),
			LogLevel:      getEnv("LOG_LEVEL", "info"),
			ClassifierURL: getEnv("ML_CLASSIFIER_URL", ""),
			StreamBuffer:  getEnvAsInt("STREAM_BUFFER_SAMPLES", 2048),
		},
		MQTT: MQTTConfig{
			Broker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
			ClientID: getEnv("MQTT_CLIENT_ID", "ecg_reader_service"),
			Username: getEnv("MQTT_USERNAME", ""),
			Password: getEnv("MQTT_PASSWORD", ""),
			QoS:      getEnvAsInt("MQTT_QOS", 1),
		},
		Analysis: loadAnalysisConfig(),
	}
}

// loadAnalysisConfig параметры конвейера с дефолтами из ядра
func loadAnalysisConfig() models.AnalysisConfig {
	cfg := models.DefaultAnalysisConfig()
	cfg.SamplingRateHz = getEnvAsFloat("SAMPLING_RATE_HZ", cfg.SamplingRateHz)
	cfg.FilterBandLowHz = getEnvAsFloat("FILTER_BAND_LOW_HZ", cfg.FilterBandLowHz)
	cfg.FilterBandHighHz = getEnvAsFloat("FILTER_BAND_HIGH_HZ", cfg.FilterBandHighHz)
	cfg.RefractoryPeriodMs = getEnvAsFloat("REFRACTORY_PERIOD_MS", cfg.RefractoryPeriodMs)
	cfg.RollingWindowSize = getEnvAsInt("ROLLING_WINDOW_SIZE", cfg.RollingWindowSize)
	cfg.IrregularityCV = getEnvAsFloat("IRREGULARITY_THRESHOLD", cfg.IrregularityCV)
	cfg.MinBPM = getEnvAsFloat("PLAUSIBLE_BPM_MIN", cfg.MinBPM)
	cfg.MaxBPM = getEnvAsFloat("PLAUSIBLE_BPM_MAX", cfg.MaxBPM)
	cfg.WindowSec = getEnvAsFloat("ANALYSIS_WINDOW_SEC", cfg.WindowSec)
	return cfg
}

// Validate проверяет конфигурацию перед стартом сервиса
func (c *Config) Validate() error {
	if err := c.Analysis.Validate(); err != nil {
		return err
	}
	if c.App.StreamBuffer < 1 {
		return fmt.Errorf("некорректный буфер потока: %d", c.App.StreamBuffer)
	}
	return nil
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt получает переменную окружения как int
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat получает переменную окружения как float64
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
