// internal/database/migrations.go
package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/ChaudhariAzam/ecg-reader/internal/models"
)

// RunMigrations выполняет миграции базы данных
func RunMigrations(db *gorm.DB) error {
	log.Println("🔄 Запуск миграций базы данных...")

	err := db.AutoMigrate(
		&models.ECGSession{},
	)

	if err != nil {
		return fmt.Errorf("ошибка миграции: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("ошибка создания индексов: %w", err)
	}

	log.Println("✅ Миграции выполнены успешно")
	return nil
}

// createIndexes создает дополнительные индексы
func createIndexes(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_ecg_sessions_device_active ON ecg_sessions(device_id, end_time) WHERE end_time IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_ecg_sessions_start_time_desc ON ecg_sessions(start_time DESC)",
		"CREATE INDEX IF NOT EXISTS idx_ecg_sessions_card_device ON ecg_sessions(card_id, device_id)",

		// GIN индексы для JSONB полей
		"CREATE INDEX IF NOT EXISTS idx_ecg_sessions_peaks_gin ON ecg_sessions USING GIN (peak_data)",
		"CREATE INDEX IF NOT EXISTS idx_ecg_sessions_assessments_gin ON ecg_sessions USING GIN (assessment_data)",
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Не удалось создать индекс: %s, ошибка: %v", indexSQL, err)
		}
	}

	return nil
}
