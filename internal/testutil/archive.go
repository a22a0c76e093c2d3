package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// File is one member of a test archive.
type File struct {
	Name    string
	Content string
}

// BuildZip writes files, in order, into an in-memory zip archive.
func BuildZip(t testing.TB, files ...File) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		require.NoError(t, err)
		_, err = w.Write([]byte(f.Content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// Section is a source course section as found in courses/ files.
type Section struct {
	Dept       string
	Course     string
	Avg        float64
	Instructor string
	Title      string
	Pass       int
	Fail       int
	Audit      int
	ID         int
	Year       int
	Overall    bool
}

func (s Section) source() map[string]any {
	section := "001"
	if s.Overall {
		section = "overall"
	}
	return map[string]any{
		"Subject":   s.Dept,
		"Course":    s.Course,
		"Avg":       s.Avg,
		"Professor": s.Instructor,
		"Title":     s.Title,
		"Pass":      s.Pass,
		"Fail":      s.Fail,
		"Audit":     s.Audit,
		"id":        s.ID,
		"Year":      fmt.Sprint(s.Year),
		"Section":   section,
	}
}

// CourseFile renders sections as a {"result": [...]} course file.
func CourseFile(t testing.TB, sections ...Section) string {
	t.Helper()
	result := make([]map[string]any, len(sections))
	for i, s := range sections {
		result[i] = s.source()
	}
	data, err := json.Marshal(map[string]any{"result": result})
	require.NoError(t, err)
	return string(data)
}

// SectionsArchive builds a sections zip with one course file per
// dept+course pair, in first-seen order.
func SectionsArchive(t testing.TB, sections ...Section) []byte {
	t.Helper()
	var (
		order  []string
		byFile = make(map[string][]Section)
	)
	for _, s := range sections {
		name := "courses/" + s.Dept + s.Course
		if _, ok := byFile[name]; !ok {
			order = append(order, name)
		}
		byFile[name] = append(byFile[name], s)
	}

	files := make([]File, 0, len(order))
	for _, name := range order {
		files = append(files, File{Name: name, Content: CourseFile(t, byFile[name]...)})
	}
	return BuildZip(t, files...)
}
