package reference

import "strings"

type (
	District struct {
		ID       string `json:"district_id"`
		Name     string `json:"name"`
		RegionID string `json:"region_id,omitempty"`
	}

	Campus struct {
		ID       string `json:"campus_id"`
		Name     string `json:"name"`
		SchoolID string `json:"school_id,omitempty"`
	}

	Grade struct {
		ID     string `json:"grade_id"`
		Name   string `json:"name"`
		Code   string `json:"code,omitempty"`
		Number string `json:"number,omitempty"`
	}

	Language struct {
		ID   string `json:"language_id"`
		Name string `json:"name"`
		Code string `json:"code,omitempty"`
	}

	Contract struct {
		ID         string `json:"contract_id"`
		Name       string `json:"name"`
		Type       string `json:"type,omitempty"`
		Date       string `json:"date,omitempty"`
		TotalHours string `json:"total_hours,omitempty"`
		FullValue  string `json:"full_value,omitempty"`
		Discount   string `json:"discount,omitempty"`
		PDFLink    string `json:"pdf_link,omitempty"`
		BuyerID    string `json:"buyer_id,omitempty"`
	}

	// FormOptions feeds the dropdowns of the student form.
	FormOptions struct {
		Campuses  []Campus   `json:"campuses"`
		Grades    []Grade    `json:"grades"`
		Languages []Language `json:"languages"`
	}
)

// Kind names a reference list.
type Kind string

const (
	KindDistricts Kind = "districts"
	KindCampuses  Kind = "campuses"
	KindGrades    Kind = "grades"
	KindLanguages Kind = "languages"
	KindContracts Kind = "contracts"
)

var Kinds = []Kind{KindDistricts, KindCampuses, KindGrades, KindLanguages, KindContracts}

func (k Kind) Valid() bool {
	for _, kind := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Title is the display name of the list.
func (k Kind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}
