package ingest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/leapstack-labs/insightql/internal/testutil"
)

func buildZip(t *testing.T, files ...testutil.File) []byte {
	t.Helper()
	return testutil.BuildZip(t, files...)
}

func file(name, content string) testutil.File { return testutil.File{Name: name, Content: content} }

// fakeGeolocator resolves addresses from a fixed table and counts lookups.
type fakeGeolocator struct {
	mu      sync.Mutex
	known   map[string]Location
	lookups int
}

func (g *fakeGeolocator) Locate(_ context.Context, address string) (Location, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lookups++
	loc, ok := g.known[address]
	if !ok {
		return Location{}, fmt.Errorf("unknown address %q", address)
	}
	return loc, nil
}
