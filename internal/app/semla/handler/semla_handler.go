package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"semelfinder/internal/app/semla/entity"
	"semelfinder/internal/app/semla/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Лимиты на загружаемые картинки. Проверяются до вызова сервиса:
// до загрузчика доходят только типы из allow-list.
const maxImageSize = 5 << 20 // 5MB

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// SemlaHandler обрабатывает HTTP запросы Semel Finder
type SemlaHandler struct {
	semlaService service.SemlaServiceInterface
	validator    *validator.Validate
}

// NewSemlaHandler создает новый обработчик
func NewSemlaHandler(semlaService service.SemlaServiceInterface) *SemlaHandler {
	return &SemlaHandler{
		semlaService: semlaService,
		validator:    validator.New(),
	}
}

// CreateSemla обрабатывает POST /api/semlor (multipart form)
func (h *SemlaHandler) CreateSemla(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		respondError(c, http.StatusBadRequest, "Could not determine client identity")
		return
	}

	var req entity.CreateSemlaRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		respondFieldErrors(c, formatValidationErrors(err))
		return
	}

	files, fieldErrs := h.collectImages(c, "pictures")
	if fieldErrs != nil {
		respondFieldErrors(c, fieldErrs)
		return
	}

	result, err := h.semlaService.CreateSemla(c.Request.Context(), identity, &req, files)
	if err != nil {
		h.respondServiceError(c, err, "Failed to create semla")
		return
	}

	c.JSON(http.StatusCreated, result)
}

// RateSemla обрабатывает POST /api/rate/:id (JSON или multipart form)
func (h *SemlaHandler) RateSemla(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		respondError(c, http.StatusBadRequest, "Could not determine client identity")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid semla ID")
		return
	}

	var req entity.RateSemlaRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		respondFieldErrors(c, formatValidationErrors(err))
		return
	}

	score, fieldErrs := req.ParseScore()
	if fieldErrs != nil {
		respondFieldErrors(c, fieldErrs)
		return
	}

	var image *entity.ImageUpload
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if header, err := c.FormFile("picture"); err == nil {
			upload, fieldErrs := readImage(header, "picture")
			if fieldErrs != nil {
				respondFieldErrors(c, fieldErrs)
				return
			}
			image = upload
		}
	}

	result, err := h.semlaService.RateSemla(c.Request.Context(), identity, id, score, req.Comment, req.Name, image)
	if err != nil {
		h.respondServiceError(c, err, "Failed to submit rating")
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Message: "Rating saved successfully!",
		Data:    result,
	})
}

// GetAllSemlor обрабатывает GET /api/semlor (с кешированием)
func (h *SemlaHandler) GetAllSemlor(c *gin.Context) {
	semlor, err := h.semlaService.GetAllSemlor(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to get semlor")
		return
	}

	c.JSON(http.StatusOK, entity.SemlaListResponse{
		Semlor: semlor,
		Total:  len(semlor),
	})
}

// GetComments обрабатывает GET /api/comments/:id
func (h *SemlaHandler) GetComments(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid semla ID")
		return
	}

	comments, err := h.semlaService.GetComments(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSemlaNotFound) {
			respondError(c, http.StatusNotFound, "Semla not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to get comments")
		return
	}

	c.JSON(http.StatusOK, entity.CommentListResponse{
		Comments: comments,
		Total:    len(comments),
	})
}

// === HELPER FUNCTIONS ===

// collectImages читает все файлы поля field из multipart формы
func (h *SemlaHandler) collectImages(c *gin.Context, field string) ([]entity.ImageUpload, map[string]string) {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil, nil
	}

	var uploads []entity.ImageUpload
	for _, header := range form.File[field] {
		upload, fieldErrs := readImage(header, field)
		if fieldErrs != nil {
			return nil, fieldErrs
		}
		uploads = append(uploads, *upload)
	}

	return uploads, nil
}

// readImage валидирует один файл (тип из allow-list, размер до 5MB) и читает его
func readImage(header *multipart.FileHeader, field string) (*entity.ImageUpload, map[string]string) {
	if header.Size > maxImageSize {
		return nil, map[string]string{field: "file size must be less than 5MB"}
	}

	contentType := header.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		return nil, map[string]string{field: "only JPEG, PNG, and WebP images are allowed"}
	}

	file, err := header.Open()
	if err != nil {
		return nil, map[string]string{field: "failed to read uploaded file"}
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, map[string]string{field: "failed to read uploaded file"}
	}

	return &entity.ImageUpload{
		Filename:    header.Filename,
		ContentType: contentType,
		Content:     content,
	}, nil
}

// respondServiceError переводит ошибки бизнес-логики в HTTP статусы
func (h *SemlaHandler) respondServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrLimitExceeded):
		respondError(c, http.StatusTooManyRequests, "Daily limit reached, try again tomorrow")
	case errors.Is(err, service.ErrIdentityUndetermined):
		respondError(c, http.StatusBadRequest, "Could not determine client identity")
	case errors.Is(err, service.ErrSemlaNotFound):
		respondError(c, http.StatusNotFound, "Semla not found")
	default:
		respondError(c, http.StatusInternalServerError, fallback)
	}
}

// respondError отправляет ответ об ошибке
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, entity.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

// respondFieldErrors отправляет 400 с ошибками по полям
func respondFieldErrors(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusBadRequest, entity.ErrorResponse{
		Error:   http.StatusText(http.StatusBadRequest),
		Message: "Validation failed",
		Fields:  fields,
	})
}

// formatValidationErrors переводит ошибки валидатора в карту поле -> причина
func formatValidationErrors(err error) map[string]string {
	fields := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldError := range validationErrors {
			fields[strings.ToLower(fieldError.Field())] = fieldError.Field() + " is " + fieldError.Tag()
		}
	}
	if len(fields) == 0 {
		fields["request"] = "validation failed"
	}
	return fields
}
