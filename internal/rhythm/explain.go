package rhythm

import "github.com/ChaudhariAzam/ecg-reader/internal/models"

// Explanation человекочитаемая расшифровка метки для фронтенда
type Explanation struct {
	Title          string   `json:"title"`
	Severity       string   `json:"severity"` // normal, warning, monitor
	Findings       []string `json:"findings"`
	Recommendation string   `json:"recommendation"`
}

var explanations = map[models.RhythmLabel]Explanation{
	models.RhythmNormal: {
		Title:    "Ритм регулярный",
		Severity: "normal",
		Findings: []string{
			"Стабильные RR-интервалы в пределах нормы",
			"Вариабельность ниже порога нерегулярности",
			"Подозрительных интервалов в окне нет",
		},
		Recommendation: "Продолжайте регулярные обследования и здоровый образ жизни.",
	},
	models.RhythmIrregular: {
		Title:    "Обнаружена нерегулярность ритма",
		Severity: "warning",
		Findings: []string{
			"Повышенная дисперсия RR-интервалов",
			"Резкие скачки между соседними интервалами",
			"Возможны пропущенные или внеочередные удары",
		},
		Recommendation: "Рекомендуется консультация кардиолога и холтеровское мониторирование.",
	},
	models.RhythmInsufficientData: {
		Title:    "Недостаточно данных",
		Severity: "monitor",
		Findings: []string{
			"Слишком мало обнаруженных ударов для оценки",
			"Сигнал может быть плоским или сильно зашумлённым",
		},
		Recommendation: "Проверьте контакт электродов и продолжите запись.",
	},
}

// Explain возвращает расшифровку для метки
func Explain(label models.RhythmLabel) Explanation {
	if e, ok := explanations[label]; ok {
		return e
	}
	return explanations[models.RhythmInsufficientData]
}
