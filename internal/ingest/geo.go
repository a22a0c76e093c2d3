package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fastjson"
)

// Location is a resolved building position.
type Location struct {
	Lat float64
	Lon float64
}

// Geolocator resolves a street address to coordinates.
type Geolocator interface {
	Locate(ctx context.Context, address string) (Location, error)
}

// GeolocatorFunc adapts a function to the Geolocator interface.
type GeolocatorFunc func(ctx context.Context, address string) (Location, error)

// Locate calls f.
func (f GeolocatorFunc) Locate(ctx context.Context, address string) (Location, error) {
	return f(ctx, address)
}

// ErrGeolocationUnavailable is returned when no geolocation service is configured.
var ErrGeolocationUnavailable = errors.New("geolocation service not configured")

type unavailableGeolocator struct{}

func (unavailableGeolocator) Locate(context.Context, string) (Location, error) {
	return Location{}, ErrGeolocationUnavailable
}

// HTTPGeolocator queries a geolocation service at BaseURL/<escaped address>.
// The service answers {"lat": n, "lon": n} or {"error": "..."}.
type HTTPGeolocator struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPGeolocator creates a geolocator for the service at baseURL.
func NewHTTPGeolocator(baseURL string, timeout time.Duration) *HTTPGeolocator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGeolocator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

// Locate implements Geolocator.
func (g *HTTPGeolocator) Locate(ctx context.Context, address string) (Location, error) {
	endpoint := g.BaseURL + "/" + url.PathEscape(address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Location{}, fmt.Errorf("failed to build geolocation request: %w", err)
	}

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Location{}, fmt.Errorf("failed to read geolocation response: %w", err)
	}
	return parseLocation(body)
}

func parseLocation(body []byte) (Location, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(body)
	if err != nil {
		return Location{}, fmt.Errorf("invalid geolocation response: %w", err)
	}
	if msg := v.Get("error"); msg != nil {
		return Location{}, fmt.Errorf("geolocation error: %s", strings.Trim(msg.String(), `"`))
	}

	lat, lon := v.Get("lat"), v.Get("lon")
	if lat == nil || lon == nil || lat.Type() != fastjson.TypeNumber || lon.Type() != fastjson.TypeNumber {
		return Location{}, errors.New("geolocation response missing lat/lon")
	}
	return Location{Lat: lat.GetFloat64(), Lon: lon.GetFloat64()}, nil
}
