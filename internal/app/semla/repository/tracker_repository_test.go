package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"semelfinder/internal/app/semla/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// TrackerRepositoryTestSuite тестовый suite для PostgreSQL repository
type TrackerRepositoryTestSuite struct {
	suite.Suite
	db    *gorm.DB
	mock  sqlmock.Sqlmock
	repo  TrackerRepository
	sqlDB *sql.DB
}

func TestTrackerRepositorySuite(t *testing.T) {
	suite.Run(t, new(TrackerRepositoryTestSuite))
}

func (s *TrackerRepositoryTestSuite) SetupTest() {
	var err error
	s.sqlDB, s.mock, err = sqlmock.New()
	require.NoError(s.T(), err)

	dialector := postgres.New(postgres.Config{
		Conn:       s.sqlDB,
		DriverName: "postgres",
	})

	s.db, err = gorm.Open(dialector, &gorm.Config{})
	require.NoError(s.T(), err)

	s.repo = NewTrackerRepository(s.db)
}

func (s *TrackerRepositoryTestSuite) TearDownTest() {
	s.sqlDB.Close()
}

func (s *TrackerRepositoryTestSuite) identity() entity.IdentityKey {
	return entity.IdentityKey{
		IPAddress: "203.0.113.7",
		UserAgent: "tracker-test",
		Day:       "2026-08-29",
	}
}

// ===================== CountToday Tests =====================

func (s *TrackerRepositoryTestSuite) TestCountToday_ExistingRow() {
	key := s.identity()

	rows := sqlmock.NewRows([]string{"count"}).AddRow(3)
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT count FROM "action_trackers" WHERE ip_address = $1 AND user_agent = $2 AND date = $3 AND action = $4`)).
		WithArgs(key.IPAddress, key.UserAgent, key.Day, string(entity.ActionRating), 1).
		WillReturnRows(rows)

	count, err := s.repo.CountToday(context.Background(), key, entity.ActionRating)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 3, count)
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

func (s *TrackerRepositoryTestSuite) TestCountToday_NoRowMeansZero() {
	key := s.identity()

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT count FROM "action_trackers"`)).
		WithArgs(key.IPAddress, key.UserAgent, key.Day, string(entity.ActionSemlaCreation), 1).
		WillReturnError(gorm.ErrRecordNotFound)

	count, err := s.repo.CountToday(context.Background(), key, entity.ActionSemlaCreation)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 0, count)
}

// ===================== IncrementToday Tests =====================

func (s *TrackerRepositoryTestSuite) TestIncrementToday_FirstActionCreatesRow() {
	key := s.identity()

	rows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	s.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO action_trackers`)).
		WithArgs(key.IPAddress, key.UserAgent, key.Day, string(entity.ActionSemlaCreation)).
		WillReturnRows(rows)

	count, err := s.repo.IncrementToday(context.Background(), key, entity.ActionSemlaCreation)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 1, count)
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

func (s *TrackerRepositoryTestSuite) TestIncrementToday_ConflictIncrementsExisting() {
	key := s.identity()

	rows := sqlmock.NewRows([]string{"count"}).AddRow(6)
	s.mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (ip_address, user_agent, date, action)`)).
		WithArgs(key.IPAddress, key.UserAgent, key.Day, string(entity.ActionRating)).
		WillReturnRows(rows)

	count, err := s.repo.IncrementToday(context.Background(), key, entity.ActionRating)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 6, count)
}

// ===================== DeleteOlderThan Tests =====================

func (s *TrackerRepositoryTestSuite) TestDeleteOlderThan_ReturnsDeletedCount() {
	cutoff := time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC)

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "action_trackers" WHERE date < $1`)).
		WithArgs("2026-08-22").
		WillReturnResult(sqlmock.NewResult(0, 3))
	s.mock.ExpectCommit()

	deleted, err := s.repo.DeleteOlderThan(context.Background(), cutoff)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), int64(3), deleted)
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}
