package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"
)

func TestLoaderTestSuite(t *testing.T) {
	suite.Run(t, new(LoaderTestSuite))
}

type LoaderTestSuite struct {
	suite.Suite

	loader *Loader
}

func (s *LoaderTestSuite) SetupTest() {
	s.loader = NewLoader(NewStore(100))
}

func (s *LoaderTestSuite) TestConcurrentCallsShareOneFetch() {
	var fetches atomic.Int64
	release := make(chan struct{})

	fetch := func(ctx context.Context) (string, error) {
		fetches.Inc()
		<-release
		return "result", nil
	}

	const callers = 10
	results := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value, err := GetOrLoad(context.Background(), s.loader, "items:x", time.Minute, fetch)
			assert.NoError(s.T(), err)
			results[i] = value
		}(i)
	}

	// Give all callers time to join the in-flight fetch
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(s.T(), int64(1), fetches.Load())
	for _, result := range results {
		assert.Equal(s.T(), "result", result)
	}
}

func (s *LoaderTestSuite) TestErrorIsNotCached() {
	var fetches atomic.Int64

	failing := func(ctx context.Context) (string, error) {
		fetches.Inc()
		return "", errors.New("remote read failed")
	}

	_, err := GetOrLoad(context.Background(), s.loader, "items:x", time.Minute, failing)
	assert.Error(s.T(), err)

	// The registry entry settled, a new call fetches again
	_, err = GetOrLoad(context.Background(), s.loader, "items:x", time.Minute, failing)
	assert.Error(s.T(), err)
	assert.Equal(s.T(), int64(2), fetches.Load())
}

func (s *LoaderTestSuite) TestCacheHitSkipsFetch() {
	var fetches atomic.Int64

	fetch := func(ctx context.Context) (int, error) {
		fetches.Inc()
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		value, err := GetOrLoad(context.Background(), s.loader, "stats:u=1", time.Minute, fetch)
		assert.NoError(s.T(), err)
		assert.Equal(s.T(), 42, value)
	}

	assert.Equal(s.T(), int64(1), fetches.Load())
}
