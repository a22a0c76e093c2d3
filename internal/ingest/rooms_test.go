package ingest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/leapstack-labs/insightql/internal/testutil"
	"github.com/leapstack-labs/insightql/pkg/core"
)

const roomsIndex = `<html><body>
<table class="views-table cols-5">
<thead><tr><th class="views-field views-field-title">Building</th></tr></thead>
<tbody>
<tr>
  <td class="views-field views-field-field-building-code">ACU</td>
  <td class="views-field views-field-title"><a href="./campus/discover/buildings-and-classrooms/ACU.htm">Acute Care Unit</a></td>
  <td class="views-field views-field-field-building-address">2211 Wesbrook Mall</td>
</tr>
<tr>
  <td class="views-field views-field-field-building-code">DMP</td>
  <td class="views-field views-field-title"><a href="./campus/discover/buildings-and-classrooms/DMP.htm">Hugh Dempster Pavilion</a></td>
  <td class="views-field views-field-field-building-address">6245 Agronomy Road V6T 1Z4</td>
</tr>
<tr>
  <td class="views-field views-field-field-building-code">NOWHERE</td>
  <td class="views-field views-field-title"><a href="./campus/discover/buildings-and-classrooms/NOWHERE.htm">Lost Hall</a></td>
  <td class="views-field views-field-field-building-address">1 Unknown Street</td>
</tr>
<tr>
  <td class="views-field views-field-field-building-code">MISSING</td>
  <td class="views-field views-field-title"><a href="./campus/discover/buildings-and-classrooms/MISSING.htm">Not In Archive</a></td>
  <td class="views-field views-field-field-building-address">2 Elsewhere Road</td>
</tr>
</tbody></table></body></html>`

const dmpPage = `<html><body>
<table class="views-table cols-5">
<thead><tr>
  <th class="views-field views-field-field-room-number">Room</th>
  <th class="views-field views-field-field-room-capacity">Capacity</th>
</tr></thead>
<tbody>
<tr>
  <td class="views-field views-field-field-room-number"><a href="http://example.com/room/DMP-110">110</a></td>
  <td class="views-field views-field-field-room-capacity"> 120 </td>
  <td class="views-field views-field-field-room-furniture">Classroom-Fixed Tables/Movable Chairs</td>
  <td class="views-field views-field-field-room-type">Tiered Large Group</td>
</tr>
<tr>
  <td class="views-field views-field-field-room-number"><a href="http://example.com/room/DMP-201">201</a></td>
  <td class="views-field views-field-field-room-capacity">40</td>
  <td class="views-field views-field-field-room-furniture">Classroom-Movable Tables &amp; Chairs</td>
  <td class="views-field views-field-field-room-type">Small Group</td>
</tr>
</tbody></table></body></html>`

const noRoomsPage = `<html><body><p>No rooms here.</p></body></html>`

func roomsArchive(t *testing.T) []byte {
	return buildZip(t,
		file("index.htm", roomsIndex),
		file("campus/discover/buildings-and-classrooms/ACU.htm", noRoomsPage),
		file("campus/discover/buildings-and-classrooms/DMP.htm", dmpPage),
		file("campus/discover/buildings-and-classrooms/NOWHERE.htm", dmpPage),
	)
}

func TestRooms_Ingest(t *testing.T) {
	geo := &fakeGeolocator{known: map[string]Location{
		"6245 Agronomy Road V6T 1Z4": {Lat: 49.26125, Lon: -123.24807},
		"2211 Wesbrook Mall":         {Lat: 49.26408, Lon: -123.24605},
	}}

	ing := NewRooms(Config{Geolocator: geo, Logger: testutil.NewTestLogger(t)})
	records, err := ing.Ingest(context.Background(), roomsArchive(t))
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, core.NewString("Hugh Dempster Pavilion"), first["fullname"])
	assert.Equal(t, core.NewString("DMP"), first["shortname"])
	assert.Equal(t, core.NewString("110"), first["number"])
	assert.Equal(t, core.NewString("DMP_110"), first["name"])
	assert.Equal(t, core.NewString("6245 Agronomy Road V6T 1Z4"), first["address"])
	assert.Equal(t, core.NewNumber(49.26125), first["lat"])
	assert.Equal(t, core.NewNumber(-123.24807), first["lon"])
	assert.Equal(t, core.NewNumber(120), first["seats"])
	assert.Equal(t, core.NewString("Tiered Large Group"), first["type"])
	assert.Equal(t, core.NewString("Classroom-Fixed Tables/Movable Chairs"), first["furniture"])
	assert.Equal(t, core.NewString("http://example.com/room/DMP-110"), first["href"])
	for _, f := range core.RoomsFields {
		assert.True(t, first.Has(f), "missing field %s", f)
	}

	assert.Equal(t, core.NewString("DMP_201"), records[1]["name"])
	assert.Equal(t, core.NewString("Classroom-Movable Tables & Chairs"), records[1]["furniture"])

	// ACU has no room table so it is never located; NOWHERE fails geolocation
	assert.Equal(t, 2, geo.lookups)
}

func TestRooms_IngestErrors(t *testing.T) {
	geo := &fakeGeolocator{}

	_, err := NewRooms(Config{Geolocator: geo}).Ingest(context.Background(), buildZip(t, file("other.htm", "<html></html>")))
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
	assert.Contains(t, err.Error(), "index.htm is missing")

	_, err = NewRooms(Config{Geolocator: geo}).Ingest(context.Background(), roomsArchive(t))
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
	assert.Contains(t, err.Error(), "no valid rooms")

	_, err = NewRooms(Config{}).Ingest(context.Background(), roomsArchive(t))
	assert.True(t, core.IsValidation(err), "no geolocator means no located buildings")
}

func TestParseBuildingIndex(t *testing.T) {
	zr, err := openArchive(buildZip(t, file("index.htm", roomsIndex)))
	require.NoError(t, err)
	idx := findFile(zr, "index.htm")
	require.NotNil(t, idx)

	data, err := readFile(idx)
	require.NoError(t, err)
	doc, err := html.Parse(bytes.NewReader(data))
	require.NoError(t, err)

	buildings := parseBuildingIndex(doc)
	require.Len(t, buildings, 4)
	assert.Equal(t, building{
		fullname:  "Acute Care Unit",
		shortname: "ACU",
		address:   "2211 Wesbrook Mall",
		href:      "campus/discover/buildings-and-classrooms/ACU.htm",
	}, buildings[0])
	assert.Equal(t, "MISSING", buildings[3].shortname)
}

func TestHTTPGeolocator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/6245%20Agronomy%20Road%20V6T%201Z4"),
			r.URL.Path == "/api/v1/team/6245 Agronomy Road V6T 1Z4":
			_, _ = w.Write([]byte(`{"lat":49.26125,"lon":-123.24807}`))
		case strings.Contains(r.URL.Path, "garbled"):
			_, _ = w.Write([]byte(`not json`))
		default:
			_, _ = w.Write([]byte(`{"error":"address not found"}`))
		}
	}))
	defer srv.Close()

	geo := NewHTTPGeolocator(srv.URL+"/api/v1/team/", 0)

	loc, err := geo.Locate(context.Background(), "6245 Agronomy Road V6T 1Z4")
	require.NoError(t, err)
	assert.Equal(t, Location{Lat: 49.26125, Lon: -123.24807}, loc)

	_, err = geo.Locate(context.Background(), "nowhere")
	assert.ErrorContains(t, err, "address not found")

	_, err = geo.Locate(context.Background(), "garbled")
	assert.ErrorContains(t, err, "invalid geolocation response")
}

func TestParseLocation(t *testing.T) {
	_, err := parseLocation([]byte(`{"lat": "49"}`))
	assert.ErrorContains(t, err, "missing lat/lon")
}
