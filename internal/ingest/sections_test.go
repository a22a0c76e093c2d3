package ingest

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/insightql/internal/testutil"
	"github.com/leapstack-labs/insightql/pkg/core"
)

const cpscCourse = `{"result":[
	{"Subject":"cpsc","Course":"310","Avg":78.5,"Professor":"smith, jane","Title":"intro sw eng",
	 "Pass":100,"Fail":5,"Audit":1,"id":1234,"Year":"2015","Section":"101"},
	{"Subject":"cpsc","Course":"310","Avg":80,"Professor":"","Title":"intro sw eng",
	 "Pass":200,"Fail":3,"Audit":0,"id":"1235","Year":"2015","Section":"overall"},
	{"Subject":"cpsc","Course":"310","Avg":70,"Title":"missing professor",
	 "Pass":1,"Fail":1,"Audit":0,"id":1236,"Year":"2016"}
]}`

const mathCourse = `{"result":[
	{"Subject":"math","Course":"100","Avg":65,"Professor":"lee","Title":"calculus",
	 "Pass":50,"Fail":10,"Audit":0,"id":42,"Year":2014,"Section":"001"}
]}`

func TestSections_Ingest(t *testing.T) {
	content := buildZip(t,
		file("courses/", ""),
		file("courses/CPSC310", cpscCourse),
		file("courses/MATH100", mathCourse),
		file("courses/BROKEN", `{"result": [`),
		file("courses/NORESULT", `{"other": []}`),
		file("README", `ignored`),
	)

	ing := NewSections(Config{Logger: testutil.NewTestLogger(t), Workers: 2})
	records, err := ing.Ingest(context.Background(), content)
	require.NoError(t, err)
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, core.NewString("cpsc"), first["dept"])
	assert.Equal(t, core.NewString("310"), first["id"])
	assert.Equal(t, core.NewNumber(78.5), first["avg"])
	assert.Equal(t, core.NewString("smith, jane"), first["instructor"])
	assert.Equal(t, core.NewString("1234"), first["uuid"], "numeric ids become strings")
	assert.Equal(t, core.NewNumber(2015), first["year"], "string years become numbers")
	assert.Len(t, first, len(core.SectionsFields))
	for _, f := range core.SectionsFields {
		assert.True(t, first.Has(f), "missing field %s", f)
	}

	assert.Equal(t, core.NewNumber(1900), records[1]["year"], "overall sections are dated 1900")
	assert.Equal(t, core.NewString("1235"), records[1]["uuid"])

	assert.Equal(t, core.NewString("math"), records[2]["dept"])
	assert.Equal(t, core.NewNumber(2014), records[2]["year"])
}

func TestSections_IngestBase64(t *testing.T) {
	raw := buildZip(t, file("courses/MATH100", mathCourse))
	encoded := []byte(base64.StdEncoding.EncodeToString(raw))

	records, err := NewSections(Config{}).Ingest(context.Background(), encoded)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSections_IngestErrors(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		wantErr string
	}{
		{"not a zip", []byte("definitely not a zip!"), "neither a zip"},
		{"base64 of garbage", []byte(base64.StdEncoding.EncodeToString([]byte("garbage"))), "invalid zip"},
		{"no courses dir", buildZip(t, file("other/CPSC310", cpscCourse)), "no course files"},
		{"no valid sections", buildZip(t, file("courses/EMPTY", `{"result": []}`)), "no valid sections"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSections(Config{}).Ingest(context.Background(), tt.content)
			require.Error(t, err)
			assert.True(t, core.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []core.DatasetKind{core.KindRooms, core.KindSections}, Kinds())

	ing, err := New(core.KindSections, Config{})
	require.NoError(t, err)
	assert.Equal(t, core.KindSections, ing.Kind())

	ing, err = New(core.KindRooms, Config{})
	require.NoError(t, err)
	assert.Equal(t, core.KindRooms, ing.Kind())

	_, err = New("courses", Config{})
	var unknown *UnknownKindError
	require.ErrorAs(t, err, &unknown)
	assert.True(t, core.IsValidation(err))
}
