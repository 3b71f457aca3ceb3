package student

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    ParseResult
	}{
		{name: "empty", content: "", want: ParseResult{}},
		{name: "headers only", content: "name,email\n", want: ParseResult{}},
		{
			name:    "all known headers",
			content: "name,email,gender,campus_id,grade_id,language_id,campus,meet_link,local_id,student_code\nJohn Smith,john@example.com,Male,101,9,1,Main Campus,https://meet.google.com/abc,JS001,ST001",
			want: ParseResult{Records: []NewStudent{{
				Name: "John Smith", Email: "john@example.com", Gender: "Male", CampusID: "101", GradeID: "9",
				LanguageID: "1", Campus: "Main Campus", MeetLink: "https://meet.google.com/abc", LocalID: "JS001", StudentCode: "ST001",
			}}},
		},
		{
			name:    "headers are case insensitive and trimmed, spaced variants accepted",
			content: " Name , EMAIL,Campus ID,grade id,Language Id\nAda, ada@b.co ,101,10,2",
			want:    ParseResult{Records: []NewStudent{{Name: "Ada", Email: "ada@b.co", CampusID: "101", GradeID: "10", LanguageID: "2"}}},
		},
		{
			name:    "unknown headers ignored",
			content: "name,favourite_colour,campus_id,grade_id\nAda,blue,101,10",
			want:    ParseResult{Records: []NewStudent{{Name: "Ada", CampusID: "101", GradeID: "10"}}},
		},
		{
			name:    "CRLF line endings",
			content: "name,campus_id,grade_id\r\nAda,101,10\r\nBob,102,11\r\n",
			want: ParseResult{Records: []NewStudent{
				{Name: "Ada", CampusID: "101", GradeID: "10"},
				{Name: "Bob", CampusID: "102", GradeID: "11"},
			}},
		},
		{
			name:    "mismatched rows skipped with their line numbers",
			content: "name,campus_id,grade_id\nAda,101,10\nBob,102\n\"Smith, Jr\",103,11\nCid,103,12",
			want: ParseResult{
				Records: []NewStudent{
					{Name: "Ada", CampusID: "101", GradeID: "10"},
					{Name: "Cid", CampusID: "103", GradeID: "12"},
				},
				Skipped: []int{3, 4},
			},
		},
		{
			name:    "leading blank lines keep file line numbers",
			content: "\r\n\nname,campus_id,grade_id\r\nAda,101,10\r\nBob,x\r\n",
			want: ParseResult{
				Records: []NewStudent{{Name: "Ada", CampusID: "101", GradeID: "10"}},
				Skipped: []int{5},
			},
		},
		{
			name:    "blank lines are not rows",
			content: "name,campus_id,grade_id\nAda,101,10\n\n   \nBob,102,11",
			want: ParseResult{Records: []NewStudent{
				{Name: "Ada", CampusID: "101", GradeID: "10"},
				{Name: "Bob", CampusID: "102", GradeID: "11"},
			}},
		},
		{
			name:    "invalid rows still produce records",
			content: "name,email,campus_id,grade_id\n,not-an-email,,",
			want:    ParseResult{Records: []NewStudent{{Email: "not-an-email"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCSV(tt.content))
		})
	}
}

func TestParseCSV_OneRecordPerRow(t *testing.T) {
	var b strings.Builder
	b.WriteString("name,email,campus_id,grade_id\n")
	for i := 0; i < 50; i++ {
		b.WriteString("Student,s@school.org,101,9\n")
	}
	res := ParseCSV(b.String())
	assert.Len(t, res.Records, 50)
	assert.Empty(t, res.Skipped)
}

func newWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseXLSX(t *testing.T) {
	buf := newWorkbook(t, [][]interface{}{
		{"Name", "Email", "Campus_ID", "Grade_ID", "Language_ID"},
		{"Emily Johnson", "emily.johnson@example.com", "102", "10", "1"},
		{"Michael Brown", "michael.brown@example.com", "101", "11"}, // trailing empty cell
	})

	res, err := ParseXLSX(buf)
	require.NoError(t, err)
	assert.Equal(t, []NewStudent{
		{Name: "Emily Johnson", Email: "emily.johnson@example.com", CampusID: "102", GradeID: "10", LanguageID: "1"},
		{Name: "Michael Brown", Email: "michael.brown@example.com", CampusID: "101", GradeID: "11"},
	}, res.Records)
	assert.Empty(t, res.Skipped)
}

func TestParseXLSX_LeadingEmptyRows(t *testing.T) {
	buf := newWorkbook(t, [][]interface{}{
		{},
		{"Name", "Campus_ID", "Grade_ID"},
		{"Ada", "101"}, // trailing empty cell
		{"Bob", "102", "11", "extra"},
	})

	res, err := ParseXLSX(buf)
	require.NoError(t, err)
	assert.Equal(t, []NewStudent{{Name: "Ada", CampusID: "101"}}, res.Records)
	assert.Equal(t, []int{4}, res.Skipped)
}

func TestParseXLSX_NotAWorkbook(t *testing.T) {
	_, err := ParseXLSX(strings.NewReader("name,email\nAda,ada@b.co"))
	assert.Error(t, err)
}

func TestParseFile(t *testing.T) {
	content := "name,campus_id,grade_id\nAda,101,10"
	res, preview, err := ParseFile("students.csv", strings.NewReader(content))
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
	assert.Equal(t, content, preview)

	buf := newWorkbook(t, [][]interface{}{{"name", "campus_id", "grade_id"}, {"Ada", "101", "10"}})
	res, preview, err = ParseFile("Students.XLSX", buf)
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
	assert.Contains(t, preview, "Ada,,101,10,")
}

func TestPreview(t *testing.T) {
	short := "name\nAda"
	assert.Equal(t, short, Preview(short))

	long := strings.Repeat("a", 600)
	got := Preview(long)
	assert.Equal(t, strings.Repeat("a", 500)+"...", got)
}
