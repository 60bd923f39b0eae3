package seed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"semelfinder/internal/app/semla/entity"
	"semelfinder/internal/app/semla/repository"
	"semelfinder/pkg/logger"

	"github.com/google/uuid"
)

// ImportCSV загружает семлы из файла формата
// Bakery;City;Picture;Vegan;Price;Kind (с заголовком в первой строке).
// Повторный запуск не создаёт дубликатов: строка пропускается, если
// семла с такой пекарней, городом и видом уже есть.
func ImportCSV(ctx context.Context, semlor repository.SemlaRepository, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = ';'
	reader.FieldsPerRecord = 6

	// Заголовок
	if _, err := reader.Read(); err != nil {
		return fmt.Errorf("failed to read seed header: %w", err)
	}

	imported, skipped := 0, 0
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read seed line %d: %w", line, err)
		}

		semla, err := parseRecord(record)
		if err != nil {
			return fmt.Errorf("invalid seed line %d: %w", line, err)
		}

		exists, err := semlor.Exists(ctx, semla.Bakery, semla.City, semla.Kind)
		if err != nil {
			return err
		}
		if exists {
			skipped++
			continue
		}

		if err := semlor.Create(ctx, semla); err != nil {
			return err
		}
		imported++
	}

	logger.Info().
		Int("imported", imported).
		Int("skipped", skipped).
		Str("path", path).
		Msg("seed import completed")

	return nil
}

func parseRecord(record []string) (*entity.Semla, error) {
	bakery := strings.TrimSpace(record[0])
	city := strings.TrimSpace(record[1])
	if bakery == "" || city == "" {
		return nil, fmt.Errorf("bakery and city are required")
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", record[4], err)
	}

	return &entity.Semla{
		ID:      uuid.New(),
		Bakery:  bakery,
		City:    city,
		Picture: strings.TrimSpace(record[2]),
		Vegan:   !strings.EqualFold(strings.TrimSpace(record[3]), "false"),
		Price:   price,
		Kind:    strings.TrimSpace(record[5]),
	}, nil
}
