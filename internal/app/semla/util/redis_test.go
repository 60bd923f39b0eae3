package util

import (
	"context"
	"testing"
	"time"

	"semelfinder/internal/app/semla/entity"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// SemlaCacheTestSuite тестовый suite для Redis кеша
type SemlaCacheTestSuite struct {
	suite.Suite
	miniRedis *miniredis.Miniredis
	cache     *RedisClient
}

func TestSemlaCacheSuite(t *testing.T) {
	suite.Run(t, new(SemlaCacheTestSuite))
}

func (s *SemlaCacheTestSuite) SetupSuite() {
	var err error
	s.miniRedis, err = miniredis.Run()
	require.NoError(s.T(), err)

	s.cache, err = NewRedisClient(s.miniRedis.Addr(), "", 0)
	require.NoError(s.T(), err)
}

func (s *SemlaCacheTestSuite) SetupTest() {
	s.miniRedis.FlushAll()
}

func (s *SemlaCacheTestSuite) TearDownSuite() {
	s.cache.Close()
	s.miniRedis.Close()
}

func (s *SemlaCacheTestSuite) sampleSemlor() []entity.SemlaWithImages {
	return []entity.SemlaWithImages{
		{
			Semla:  entity.Semla{ID: uuid.New(), Bakery: "Vete-Katten", City: "Stockholm", Price: 45, Kind: "classic", Rating: 4.33},
			Images: []entity.SemlaImage{},
		},
		{
			Semla:  entity.Semla{ID: uuid.New(), Bakery: "Tossebageriet", City: "Malmö", Vegan: true, Price: 39, Kind: "vegan"},
			Images: []entity.SemlaImage{},
		},
	}
}

func (s *SemlaCacheTestSuite) TestSetAndGetSemlor() {
	ctx := context.Background()
	semlor := s.sampleSemlor()

	err := s.cache.SetSemlor(ctx, semlor, time.Hour)
	require.NoError(s.T(), err)

	cached, err := s.cache.GetSemlor(ctx)
	assert.NoError(s.T(), err)
	require.Len(s.T(), cached, 2)
	assert.Equal(s.T(), semlor[0].ID, cached[0].ID)
	assert.Equal(s.T(), "Vete-Katten", cached[0].Bakery)
	assert.Equal(s.T(), 4.33, cached[0].Rating)
	assert.True(s.T(), cached[1].Vegan)
}

func (s *SemlaCacheTestSuite) TestGetSemlor_EmptyCacheIsMiss() {
	cached, err := s.cache.GetSemlor(context.Background())

	assert.NoError(s.T(), err)
	assert.Nil(s.T(), cached)
}

func (s *SemlaCacheTestSuite) TestDeleteSemlor_InvalidatesCache() {
	ctx := context.Background()

	require.NoError(s.T(), s.cache.SetSemlor(ctx, s.sampleSemlor(), time.Hour))
	require.NoError(s.T(), s.cache.DeleteSemlor(ctx))

	cached, err := s.cache.GetSemlor(ctx)
	assert.NoError(s.T(), err)
	assert.Nil(s.T(), cached)
}

func (s *SemlaCacheTestSuite) TestSetSemlor_TTLExpires() {
	ctx := context.Background()

	require.NoError(s.T(), s.cache.SetSemlor(ctx, s.sampleSemlor(), time.Minute))

	// miniredis позволяет промотать время вперёд
	s.miniRedis.FastForward(2 * time.Minute)

	cached, err := s.cache.GetSemlor(ctx)
	assert.NoError(s.T(), err)
	assert.Nil(s.T(), cached)
}
