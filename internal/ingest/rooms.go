package ingest

import (
	"bytes"
	"context"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/insightql/pkg/core"
)

const indexFile = "index.htm"

// HTML class markers of the campus pages.
const (
	classBuildingAddress = "views-field-field-building-address"
	classBuildingTitle   = "views-field-title"
	classRoomTable       = "views-table"
	classRoomNumber      = "views-field-field-room-number"
	classRoomCapacity    = "views-field-field-room-capacity"
	classRoomFurniture   = "views-field-field-room-furniture"
	classRoomType        = "views-field-field-room-type"
)

func init() {
	Register(core.KindRooms, func(cfg Config) core.Ingestor { return NewRooms(cfg) })
}

// Rooms ingests campus rooms from a zip holding index.htm plus one page per
// building. Buildings without a room table, a page in the archive or a
// resolvable address contribute no rooms.
type Rooms struct {
	geo     Geolocator
	workers int
	logger  *slog.Logger
}

// NewRooms creates a rooms ingestor.
func NewRooms(cfg Config) *Rooms {
	cfg = cfg.withDefaults()
	return &Rooms{geo: cfg.Geolocator, workers: cfg.Workers, logger: cfg.Logger}
}

// Kind implements core.Ingestor.
func (r *Rooms) Kind() core.DatasetKind { return core.KindRooms }

type building struct {
	fullname  string
	shortname string
	address   string
	href      string
}

// Ingest implements core.Ingestor.
func (r *Rooms) Ingest(ctx context.Context, content []byte) ([]core.Record, error) {
	zr, err := openArchive(content)
	if err != nil {
		return nil, err
	}

	idx := findFile(zr, indexFile)
	if idx == nil {
		return nil, core.NewValidationError("index.htm is missing")
	}
	data, err := readFile(idx)
	if err != nil {
		return nil, core.NewValidationErrorf("cannot read index.htm: %v", err)
	}
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, core.NewValidationErrorf("cannot parse index.htm: %v", err)
	}

	buildings := parseBuildingIndex(doc)

	// one slot per building keeps the output in index order
	perBuilding := make([][]core.Record, len(buildings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, b := range buildings {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perBuilding[i] = r.buildingRooms(gctx, zr, b)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []core.Record
	for _, recs := range perBuilding {
		records = append(records, recs...)
	}
	if len(records) == 0 {
		return nil, core.NewValidationError("no valid rooms found in dataset")
	}

	r.logger.Debug("rooms ingested", slog.Int("buildings", len(buildings)), slog.Int("rooms", len(records)))
	return records, nil
}

// parseBuildingIndex extracts every complete building row of index.htm.
func parseBuildingIndex(doc *html.Node) []building {
	var out []building
	seen := make(map[*html.Node]bool)

	for _, td := range findAll(doc, "td") {
		if !hasClass(td, classBuildingAddress) {
			continue
		}
		row := parentRow(td)
		if row == nil || seen[row] {
			continue
		}
		seen[row] = true

		b := parseBuildingRow(row)
		if b.shortname != "" && b.href != "" && b.address != "" {
			out = append(out, b)
		}
	}
	return out
}

func parseBuildingRow(row *html.Node) building {
	var b building
	for _, cell := range findAll(row, "td") {
		switch {
		case hasClass(cell, classBuildingTitle):
			b.fullname = textContent(cell)
			if link := findChild(cell, "a"); link != nil {
				if raw := attr(link, "href"); raw != "" {
					b.href = strings.TrimPrefix(strings.Replace(raw, "./", "", 1), "/")
					b.shortname = strings.TrimSuffix(path.Base(raw), ".htm")
				}
			}
		case hasClass(cell, classBuildingAddress):
			b.address = textContent(cell)
		}
	}
	return b
}

func (r *Rooms) buildingRooms(ctx context.Context, zr *zip.Reader, b building) []core.Record {
	logger := r.logger.With(slog.String("building", b.shortname))

	f := findFile(zr, b.href)
	if f == nil {
		logger.Debug("building page missing", slog.String("href", b.href))
		return nil
	}
	data, err := readFile(f)
	if err != nil {
		logger.Debug("building page unreadable", slog.String("error", err.Error()))
		return nil
	}
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		logger.Debug("building page unparsable", slog.String("error", err.Error()))
		return nil
	}

	table := findRoomTable(doc)
	if table == nil {
		return nil
	}
	rows := findAll(table, "tr")
	if len(rows) <= 1 {
		return nil
	}

	loc, err := r.geo.Locate(ctx, b.address)
	if err != nil {
		logger.Warn("skipping building, geolocation failed", slog.String("address", b.address), slog.String("error", err.Error()))
		return nil
	}

	var out []core.Record
	for _, row := range rows[1:] {
		if rec := roomRecord(row, b, loc); rec != nil {
			out = append(out, rec)
		}
	}
	return out
}

// findRoomTable returns the first views-table holding a room number cell.
func findRoomTable(doc *html.Node) *html.Node {
	for _, table := range findAll(doc, "table") {
		if !hasClass(table, classRoomTable) {
			continue
		}
		cells := append(findAll(table, "td"), findAll(table, "th")...)
		for _, c := range cells {
			if hasClass(c, classRoomNumber) {
				return table
			}
		}
	}
	return nil
}

func roomRecord(row *html.Node, b building, loc Location) core.Record {
	rec := core.Record{
		"fullname":  core.NewString(b.fullname),
		"shortname": core.NewString(b.shortname),
		"address":   core.NewString(b.address),
		"lat":       core.NewNumber(loc.Lat),
		"lon":       core.NewNumber(loc.Lon),
	}

	for _, cell := range findAll(row, "td") {
		switch {
		case hasClass(cell, classRoomNumber):
			number := textContent(cell)
			rec["number"] = core.NewString(number)
			rec["name"] = core.NewString(b.shortname + "_" + number)
			if link := findChild(cell, "a"); link != nil {
				rec["href"] = core.NewString(attr(link, "href"))
			}
		case hasClass(cell, classRoomCapacity):
			seats, err := strconv.ParseFloat(textContent(cell), 64)
			if err != nil {
				rec["seats"] = core.Null
			} else {
				rec["seats"] = core.NewNumber(seats)
			}
		case hasClass(cell, classRoomFurniture):
			rec["furniture"] = core.NewString(textContent(cell))
		case hasClass(cell, classRoomType):
			rec["type"] = core.NewString(textContent(cell))
		}
	}

	if name, ok := rec["name"]; !ok || name.Str == "" {
		return nil
	}
	return rec
}
