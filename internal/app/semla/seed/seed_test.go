package seed

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"semelfinder/internal/app/semla/entity"
	"semelfinder/internal/app/semla/repository/mocks"
	"semelfinder/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitWithWriter("seed-test", "error", io.Discard)
	os.Exit(m.Run())
}

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "semlor.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const seedHeader = "Bakery;City;Picture;Vegan;Price;Kind\n"

func TestImportCSV_CreatesSemlor(t *testing.T) {
	repo := new(mocks.MockSemlaRepository)
	path := writeSeedFile(t, seedHeader+
		"Vete-Katten;Stockholm;/images/vetekatten.jpg;false;45;classic\n"+
		"Tossebageriet;Malmö;/images/tosse.jpg;true;39;vegan\n")

	repo.On("Exists", mock.Anything, "Vete-Katten", "Stockholm", "classic").Return(false, nil)
	repo.On("Exists", mock.Anything, "Tossebageriet", "Malmö", "vegan").Return(false, nil)

	var created []*entity.Semla
	repo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Semla")).Return(nil).
		Run(func(args mock.Arguments) {
			created = append(created, args.Get(1).(*entity.Semla))
		})

	err := ImportCSV(context.Background(), repo, path)

	assert.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "Vete-Katten", created[0].Bakery)
	assert.False(t, created[0].Vegan)
	assert.Equal(t, 45.0, created[0].Price)
	assert.Equal(t, "/images/vetekatten.jpg", created[0].Picture)
	assert.True(t, created[1].Vegan)
}

func TestImportCSV_SkipsExistingRows(t *testing.T) {
	repo := new(mocks.MockSemlaRepository)
	path := writeSeedFile(t, seedHeader+
		"Vete-Katten;Stockholm;/images/vetekatten.jpg;false;45;classic\n")

	repo.On("Exists", mock.Anything, "Vete-Katten", "Stockholm", "classic").Return(true, nil)

	err := ImportCSV(context.Background(), repo, path)

	assert.NoError(t, err)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestImportCSV_InvalidPriceFailsWithLineNumber(t *testing.T) {
	repo := new(mocks.MockSemlaRepository)
	path := writeSeedFile(t, seedHeader+
		"Vete-Katten;Stockholm;/images/vetekatten.jpg;false;dyr;classic\n")

	err := ImportCSV(context.Background(), repo, path)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestImportCSV_MissingFileFails(t *testing.T) {
	repo := new(mocks.MockSemlaRepository)

	err := ImportCSV(context.Background(), repo, filepath.Join(t.TempDir(), "absent.csv"))

	assert.Error(t, err)
}
