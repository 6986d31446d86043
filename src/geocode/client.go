package geocode

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/openpantry/pantry/src/utils/config"
	"github.com/openpantry/pantry/src/utils/logger"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

var ErrNoResult = errors.New("no geocoding result")

// Result is one resolved location.
type Result struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"display_name"`
	Source      string  `json:"source"`
}

type nominatimRow struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Client proxies a Nominatim-style upstream with a 24h result cache
// keyed by (query, country), independent of the core cache layer.
// Upstream calls are rate limited to stay inside the usage policy.
type Client struct {
	log    *logrus.Entry
	config *config.Config

	http    *resty.Client
	cache   *cache.Cache
	limiter ratelimit.Limiter
}

func NewClient(conf *config.Config) (self *Client) {
	self = new(Client)
	self.log = logger.NewSublogger("geocode")
	self.config = conf

	self.http = resty.New().
		SetBaseURL(conf.Geocode.Url).
		SetTimeout(conf.Geocode.RequestTimeout).
		SetHeader("User-Agent", "pantry")

	self.cache = cache.New(conf.Geocode.CacheTtl, 2*conf.Geocode.CacheTtl)
	self.limiter = ratelimit.New(conf.Geocode.RatePerSecond)

	return
}

func cacheKey(query, country string) string {
	return query + "\x00" + country
}

// Lookup resolves a free-text query, serving repeats from the cache.
func (self *Client) Lookup(ctx context.Context, query, country string) (result *Result, err error) {
	if cached, ok := self.cache.Get(cacheKey(query, country)); ok {
		result = cached.(*Result)
		return
	}

	self.limiter.Take()

	var rows []nominatimRow
	resp, err := self.http.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetQueryParam("countrycodes", country).
		SetQueryParam("format", "json").
		SetQueryParam("limit", "1").
		SetResult(&rows).
		Get("/search")
	if err != nil {
		return nil, fmt.Errorf("geocode upstream: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("geocode upstream: status %d", resp.StatusCode())
	}
	if len(rows) == 0 {
		return nil, ErrNoResult
	}

	latitude, err := strconv.ParseFloat(rows[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode upstream: bad latitude: %w", err)
	}
	longitude, err := strconv.ParseFloat(rows[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode upstream: bad longitude: %w", err)
	}

	result = &Result{
		Latitude:    latitude,
		Longitude:   longitude,
		DisplayName: rows[0].DisplayName,
		Source:      "nominatim",
	}

	self.cache.Set(cacheKey(query, country), result, cache.DefaultExpiration)
	return
}
