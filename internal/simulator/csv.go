package simulator

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/ChaudhariAzam/ecg-reader/internal/models"
)

// ReadCSV читает запись сигнала из файла формата time_sec,value
func ReadCSV(filename string) ([]models.Sample, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения CSV файла %s: %w", filename, err)
	}

	var samples []models.Sample
	for i, record := range records {
		// Пропускаем заголовок и некорректные строки
		if i == 0 || len(record) < 2 {
			continue
		}
		timeSec, errT := strconv.ParseFloat(record[0], 64)
		value, errV := strconv.ParseFloat(record[1], 64)
		if errT != nil || errV != nil {
			continue
		}
		samples = append(samples, models.Sample{TimeSec: timeSec, Value: value})
	}
	return samples, nil
}

// WriteCSV записывает сигнал в файл формата time_sec,value
func WriteCSV(filename string, samples []models.Sample) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("не удалось создать файл %s: %w", filename, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"time_sec", "value"}); err != nil {
		return fmt.Errorf("не удалось записать заголовок в %s: %w", filename, err)
	}

	for _, s := range samples {
		row := []string{
			strconv.FormatFloat(s.TimeSec, 'f', -1, 64),
			strconv.FormatFloat(s.Value, 'f', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("не удалось записать строку в %s: %w", filename, err)
		}
	}
	return nil
}
