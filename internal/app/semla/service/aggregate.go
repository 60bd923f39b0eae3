package service

import (
	"math"

	"semelfinder/internal/app/semla/entity"
)

// NewAverage возвращает невзвешенное среднее по всем выборкам, включая новую.
// Пересчёт идёт по полному набору прежних оценок, а не по инкрементной
// паре (sum, count); деление не усекается до финального округления.
func NewAverage(prior []float64, newScore float64) float64 {
	sum := newScore
	for _, s := range prior {
		sum += s
	}
	return sum / float64(len(prior)+1)
}

// Round2 округляет до двух знаков - точность хранения агрегата
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// effectiveScores собирает эффективные оценки набора строк
func effectiveScores(ratings []entity.Rating) []float64 {
	scores := make([]float64, 0, len(ratings))
	for i := range ratings {
		scores = append(scores, ratings[i].EffectiveScore())
	}
	return scores
}
