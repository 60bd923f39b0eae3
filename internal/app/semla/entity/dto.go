package entity

import "time"

// CreateSemlaRequest - запрос на создание семлы (multipart form)
// Поле rating намеренно отсутствует: агрегат всегда стартует с 0.00,
// значение из тела запроса игнорируется
type CreateSemlaRequest struct {
	Bakery string  `form:"bakery" json:"bakery" validate:"required,min=1,max=255"`
	City   string  `form:"city" json:"city" validate:"required,min=1,max=255"`
	Price  float64 `form:"price" json:"price" validate:"required,gt=0"`
	Kind   string  `form:"kind" json:"kind" validate:"required,min=1,max=255"`
	Vegan  bool    `form:"vegan" json:"vegan"`
}

// RateSemlaRequest - запрос на оценку семлы
// Либо легаси rating, либо все пять категорий - ровно одно представление
type RateSemlaRequest struct {
	Rating      *int   `form:"rating" json:"rating" validate:"omitempty,min=1,max=5"`
	Gradde      *int   `form:"gradde" json:"gradde" validate:"omitempty,min=1,max=5"`
	Mandelmassa *int   `form:"mandelmassa" json:"mandelmassa" validate:"omitempty,min=1,max=5"`
	Lock        *int   `form:"lock" json:"lock" validate:"omitempty,min=1,max=5"`
	Bulle       *int   `form:"bulle" json:"bulle" validate:"omitempty,min=1,max=5"`
	Helhet      *int   `form:"helhet" json:"helhet" validate:"omitempty,min=1,max=5"`
	Comment     string `form:"comment" json:"comment" validate:"omitempty,max=2000"`
	Name        string `form:"name" json:"name" validate:"omitempty,max=255"`
}

// ParseScore выбирает представление оценки из запроса.
// Возвращает ошибки по полям, если представления смешаны,
// заполнены частично или отсутствуют вовсе.
func (r *RateSemlaRequest) ParseScore() (Score, map[string]string) {
	cats := map[string]*int{
		"gradde":      r.Gradde,
		"mandelmassa": r.Mandelmassa,
		"lock":        r.Lock,
		"bulle":       r.Bulle,
		"helhet":      r.Helhet,
	}

	present := 0
	for _, v := range cats {
		if v != nil {
			present++
		}
	}

	switch {
	case present == 0 && r.Rating == nil:
		return Score{}, map[string]string{"rating": "either rating or all five category scores are required"}
	case present > 0 && r.Rating != nil:
		return Score{}, map[string]string{"rating": "rating and category scores are mutually exclusive"}
	case present > 0 && present < len(cats):
		fields := make(map[string]string)
		for name, v := range cats {
			if v == nil {
				fields[name] = "all five category scores are required"
			}
		}
		return Score{}, fields
	case present == len(cats):
		return CategoryScore(CategoryScores{
			Gradde:      *r.Gradde,
			Mandelmassa: *r.Mandelmassa,
			Lock:        *r.Lock,
			Bulle:       *r.Bulle,
			Helhet:      *r.Helhet,
		}), nil
	default:
		return LegacyScore(*r.Rating), nil
	}
}

// ImageUpload - содержимое одного прикреплённого файла из multipart формы
type ImageUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// SemlaWithImages содержит семлу вместе с её картинками
type SemlaWithImages struct {
	Semla
	Images []SemlaImage `json:"images"`
}

// CreateSemlaResult - результат создания: сама семла, сохранённые картинки
// и предупреждения о несохранённых (загрузка картинок - best effort)
type CreateSemlaResult struct {
	SemlaWithImages
	UploadWarnings []string `json:"upload_warnings,omitempty"`
}

// RateSemlaResult - результат оценки
type RateSemlaResult struct {
	SemlaID        string   `json:"semla_id"`
	NewRating      float64  `json:"new_rating"`
	UploadWarnings []string `json:"upload_warnings,omitempty"`
}

// CommentResponse - одна оценка с комментарием для GET /api/comments/:id
type CommentResponse struct {
	Comment string    `json:"comment"`
	Rating  float64   `json:"rating"`
	Name    string    `json:"name,omitempty"`
	Date    time.Time `json:"date"`
}

// ErrorResponse - стандартный ответ об ошибке
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// SuccessResponse - стандартный ответ об успехе
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SemlaListResponse - ответ со списком семлор
type SemlaListResponse struct {
	Semlor []SemlaWithImages `json:"semlor"`
	Total  int               `json:"total"`
}

// CommentListResponse - ответ со списком комментариев
type CommentListResponse struct {
	Comments []CommentResponse `json:"comments"`
	Total    int               `json:"total"`
}
