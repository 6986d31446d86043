package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openpantry/pantry/src/utils/config"

	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"
)

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

type ClientTestSuite struct {
	suite.Suite

	upstream      *httptest.Server
	upstreamCalls atomic.Int64
	payload       string
}

func (s *ClientTestSuite) SetupTest() {
	s.upstreamCalls.Store(0)
	s.payload = `[{"lat":"52.2297","lon":"21.0122","display_name":"Warsaw, Poland"}]`
	s.upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.upstreamCalls.Inc()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(s.payload))
	}))
}

func (s *ClientTestSuite) TearDownTest() {
	s.upstream.Close()
}

func (s *ClientTestSuite) newClient() *Client {
	conf := config.Default()
	conf.Geocode.Url = s.upstream.URL
	conf.Geocode.RatePerSecond = 1000
	return NewClient(conf)
}

func (s *ClientTestSuite) TestLookup() {
	client := s.newClient()

	result, err := client.Lookup(context.Background(), "Warsaw", "pl")
	s.Require().NoError(err)
	s.InDelta(52.2297, result.Latitude, 0.0001)
	s.InDelta(21.0122, result.Longitude, 0.0001)
	s.Equal("Warsaw, Poland", result.DisplayName)
	s.Equal("nominatim", result.Source)
}

func (s *ClientTestSuite) TestRepeatedLookupServedFromCache() {
	client := s.newClient()

	_, err := client.Lookup(context.Background(), "Warsaw", "pl")
	s.Require().NoError(err)
	_, err = client.Lookup(context.Background(), "Warsaw", "pl")
	s.Require().NoError(err)

	s.Equal(int64(1), s.upstreamCalls.Load())
}

func (s *ClientTestSuite) TestDifferentCountryMissesCache() {
	client := s.newClient()

	_, err := client.Lookup(context.Background(), "Warsaw", "pl")
	s.Require().NoError(err)
	_, err = client.Lookup(context.Background(), "Warsaw", "de")
	s.Require().NoError(err)

	s.Equal(int64(2), s.upstreamCalls.Load())
}

func (s *ClientTestSuite) TestNoResult() {
	s.payload = `[]`
	client := s.newClient()

	_, err := client.Lookup(context.Background(), "Nowhere", "")
	s.ErrorIs(err, ErrNoResult)
}
