package entity

// CategoryScores - пять именованных оценок категорий, каждая 1-5
type CategoryScores struct {
	Gradde      int `json:"gradde"`
	Mandelmassa int `json:"mandelmassa"`
	Lock        int `json:"lock"`
	Bulle       int `json:"bulle"`
	Helhet      int `json:"helhet"`
}

// Score - размеченное объединение двух представлений оценки:
// легаси-скаляр или пять категорий. Вместо проверки типов в рантайме
// вариант фиксируется при разборе запроса.
type Score struct {
	categories *CategoryScores
	legacy     int
}

// LegacyScore создаёт оценку из легаси-скаляра 1-5
func LegacyScore(value int) Score {
	return Score{legacy: value}
}

// CategoryScore создаёт оценку из пяти категорий
func CategoryScore(cs CategoryScores) Score {
	return Score{categories: &cs}
}

// IsCategories сообщает, какое представление несёт оценка
func (s Score) IsCategories() bool {
	return s.categories != nil
}

// Legacy возвращает легаси-скаляр (0 для категорийной оценки)
func (s Score) Legacy() int {
	if s.categories != nil {
		return 0
	}
	return s.legacy
}

// Categories возвращает категории, если оценка категорийная
func (s Score) Categories() (CategoryScores, bool) {
	if s.categories == nil {
		return CategoryScores{}, false
	}
	return *s.categories, true
}

// Effective возвращает скалярную эффективную оценку:
// среднее пяти категорий либо сам легаси-скаляр
func (s Score) Effective() float64 {
	if s.categories != nil {
		c := s.categories
		return float64(c.Gradde+c.Mandelmassa+c.Lock+c.Bulle+c.Helhet) / 5
	}
	return float64(s.legacy)
}
