package ingest

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/insightql/pkg/core"
)

const coursesDir = "courses/"

// Source keys every section must carry.
var requiredSectionKeys = []string{"Subject", "Course", "Avg", "Professor", "Title", "Pass", "Fail", "Audit", "id", "Year"}

func init() {
	Register(core.KindSections, func(cfg Config) core.Ingestor { return NewSections(cfg) })
}

// Sections ingests course sections from a zip of courses/ JSON files. Each
// file holds {"result": [section, ...]}; unreadable files and incomplete
// sections are skipped.
type Sections struct {
	workers int
	logger  *slog.Logger
	parsers fastjson.ParserPool
}

// NewSections creates a sections ingestor.
func NewSections(cfg Config) *Sections {
	cfg = cfg.withDefaults()
	return &Sections{workers: cfg.Workers, logger: cfg.Logger}
}

// Kind implements core.Ingestor.
func (s *Sections) Kind() core.DatasetKind { return core.KindSections }

// Ingest implements core.Ingestor.
func (s *Sections) Ingest(ctx context.Context, content []byte) ([]core.Record, error) {
	zr, err := openArchive(content)
	if err != nil {
		return nil, err
	}

	var files []int
	for i, f := range zr.File {
		if strings.HasPrefix(f.Name, coursesDir) && !f.FileInfo().IsDir() {
			files = append(files, i)
		}
	}
	if len(files) == 0 {
		return nil, core.NewValidationError("no course files found under courses/")
	}

	// one slot per file keeps the output in archive order
	perFile := make([][]core.Record, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for slot, idx := range files {
		f := zr.File[idx]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := readFile(f)
			if err != nil {
				s.logger.Debug("skipping unreadable course file", slog.String("file", f.Name), slog.String("error", err.Error()))
				return nil
			}
			perFile[slot] = s.parseCourseFile(f.Name, data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []core.Record
	for _, recs := range perFile {
		records = append(records, recs...)
	}
	if len(records) == 0 {
		return nil, core.NewValidationError("no valid sections found in dataset")
	}

	s.logger.Debug("sections ingested", slog.Int("files", len(files)), slog.Int("sections", len(records)))
	return records, nil
}

func (s *Sections) parseCourseFile(name string, data []byte) []core.Record {
	p := s.parsers.Get()
	defer s.parsers.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		s.logger.Debug("skipping invalid course file", slog.String("file", name), slog.String("error", err.Error()))
		return nil
	}
	result := v.Get("result")
	if result == nil || result.Type() != fastjson.TypeArray {
		return nil
	}

	items, _ := result.Array()
	out := make([]core.Record, 0, len(items))
	for _, sec := range items {
		if rec, ok := sectionRecord(sec); ok {
			out = append(out, rec)
		}
	}
	return out
}

// sectionRecord maps a source section onto the sections field set.
func sectionRecord(sec *fastjson.Value) (core.Record, bool) {
	if sec.Type() != fastjson.TypeObject {
		return nil, false
	}
	for _, k := range requiredSectionKeys {
		if !sec.Exists(k) {
			return nil, false
		}
	}

	year := toNumber(sec.Get("Year"))
	if section := sec.Get("Section"); section != nil && section.Type() == fastjson.TypeString {
		if b, _ := section.StringBytes(); string(b) == "overall" {
			year = core.NewNumber(1900)
		}
	}

	return core.Record{
		"dept":       scalar(sec.Get("Subject")),
		"id":         scalar(sec.Get("Course")),
		"avg":        scalar(sec.Get("Avg")),
		"instructor": scalar(sec.Get("Professor")),
		"title":      scalar(sec.Get("Title")),
		"pass":       scalar(sec.Get("Pass")),
		"fail":       scalar(sec.Get("Fail")),
		"audit":      scalar(sec.Get("Audit")),
		"uuid":       core.NewString(scalar(sec.Get("id")).String()),
		"year":       year,
	}, true
}

// scalar converts a JSON value to a record value. Non-scalar JSON becomes
// null since records only hold numbers and strings.
func scalar(v *fastjson.Value) core.Value {
	if v == nil {
		return core.Null
	}
	switch v.Type() {
	case fastjson.TypeNumber:
		return core.NewNumber(v.GetFloat64())
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		return core.NewString(string(b))
	}
	return core.Null
}

// toNumber coerces numbers and numeric strings; anything else is null.
func toNumber(v *fastjson.Value) core.Value {
	val := scalar(v)
	if val.IsString() {
		f, err := strconv.ParseFloat(strings.TrimSpace(val.Str), 64)
		if err != nil {
			return core.Null
		}
		return core.NewNumber(f)
	}
	if val.IsNumber() {
		return val
	}
	return core.Null
}
