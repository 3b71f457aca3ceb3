package student

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const previewLimit = 500

var ErrEmptyFile = errors.New("the file contains no student rows")

type fieldSetter func(ns *NewStudent, value string)

// columns maps a lower-cased header to the field it fills. Unknown headers are ignored.
var columns = map[string]fieldSetter{
	"name":         func(ns *NewStudent, v string) { ns.Name = v },
	"email":        func(ns *NewStudent, v string) { ns.Email = v },
	"gender":       func(ns *NewStudent, v string) { ns.Gender = v },
	"campus_id":    func(ns *NewStudent, v string) { ns.CampusID = v },
	"campus id":    func(ns *NewStudent, v string) { ns.CampusID = v },
	"grade_id":     func(ns *NewStudent, v string) { ns.GradeID = v },
	"grade id":     func(ns *NewStudent, v string) { ns.GradeID = v },
	"language_id":  func(ns *NewStudent, v string) { ns.LanguageID = v },
	"language id":  func(ns *NewStudent, v string) { ns.LanguageID = v },
	"campus":       func(ns *NewStudent, v string) { ns.Campus = v },
	"meet_link":    func(ns *NewStudent, v string) { ns.MeetLink = v },
	"meet link":    func(ns *NewStudent, v string) { ns.MeetLink = v },
	"local_id":     func(ns *NewStudent, v string) { ns.LocalID = v },
	"local id":     func(ns *NewStudent, v string) { ns.LocalID = v },
	"student_code": func(ns *NewStudent, v string) { ns.StudentCode = v },
	"student code": func(ns *NewStudent, v string) { ns.StudentCode = v },
}

// ParseResult holds the candidate records of an import, valid or not.
type ParseResult struct {
	Records []NewStudent `json:"records"`
	// Skipped lists the 1-based file line numbers of rows whose value count did not match the header count.
	Skipped []int `json:"skipped,omitempty"`
}

// ParseCSV reads comma separated text whose first line holds the headers.
// Quoting is not supported: a comma inside a value shifts the columns, and such rows are skipped.
func ParseCSV(content string) ParseResult {
	if strings.TrimSpace(content) == "" {
		return ParseResult{}
	}
	content = strings.TrimRight(content, " \t\r\n")

	lines := strings.Split(content, "\n")
	rows := make([][]string, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue // blank lines are not rows
		}
		rows[i] = strings.Split(line, ",")
	}
	return ParseRows(rows)
}

// ParseRows maps the rows following the first non-empty one onto records, using that first row as headers.
// Empty rows are ignored; rows whose length differs from the header row are skipped.
// Skipped rows are reported by their 1-based index in rows, which is their line in the file.
func ParseRows(rows [][]string) ParseResult {
	var res ParseResult

	hdr := 0
	for hdr < len(rows) && len(rows[hdr]) == 0 {
		hdr++
	}
	if hdr == len(rows) {
		return res
	}

	setters := make([]fieldSetter, len(rows[hdr]))
	for i, header := range rows[hdr] {
		setters[i] = columns[strings.ToLower(strings.TrimSpace(header))]
	}

	for i := hdr + 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 {
			continue
		}
		if len(row) != len(setters) {
			res.Skipped = append(res.Skipped, i+1)
			continue
		}

		var ns NewStudent
		for j, value := range row {
			if set := setters[j]; set != nil {
				set(&ns, strings.TrimSpace(value))
			}
		}
		res.Records = append(res.Records, ns)
	}
	return res
}

// ParseXLSX reads the first sheet of an Excel workbook.
func ParseXLSX(r io.Reader) (ParseResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return ParseResult{}, errors.Wrap(err, "opening workbook")
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ParseResult{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return ParseResult{}, errors.Wrap(err, "reading rows")
	}
	hdr := 0
	for hdr < len(rows) && len(rows[hdr]) == 0 {
		hdr++
	}
	if hdr == len(rows) {
		return ParseResult{}, nil
	}

	// excelize drops trailing empty cells: they are empty values, not missing columns
	width := len(rows[hdr])
	for i := hdr + 1; i < len(rows); i++ {
		if n := len(rows[i]); n > 0 && n < width {
			rows[i] = append(rows[i], make([]string, width-n)...)
		}
	}
	return ParseRows(rows), nil
}

// IsXLSX reports whether filename names an Excel workbook.
func IsXLSX(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".xlsx")
}

// ParseFile parses r as a workbook when filename ends with ".xlsx" and as CSV text otherwise.
// The returned preview holds the beginning of the CSV text (or of its rows for workbooks).
func ParseFile(filename string, r io.Reader) (res ParseResult, preview string, err error) {
	if IsXLSX(filename) {
		res, err = ParseXLSX(r)
		if err != nil {
			return ParseResult{}, "", err
		}
		return res, Preview(previewRecords(res.Records)), nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return ParseResult{}, "", errors.Wrap(err, "reading file")
	}
	content := string(data)
	return ParseCSV(content), Preview(content), nil
}

// Preview returns the first 500 characters of content, followed by "..." when it was cut.
func Preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit]) + "..."
}

func previewRecords(records []NewStudent) string {
	var b strings.Builder
	b.WriteString("name,email,campus_id,grade_id,language_id\n")
	for _, ns := range records {
		b.WriteString(strings.Join([]string{ns.Name, ns.Email, ns.CampusID, ns.GradeID, ns.LanguageID}, ","))
		b.WriteString("\n")
		if b.Len() > previewLimit {
			break
		}
	}
	return b.String()
}
