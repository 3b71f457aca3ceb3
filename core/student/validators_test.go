package student

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/compass/core"
)

func newValidate() *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())
	return validate
}

func TestValidateRecords(t *testing.T) {
	validate := newValidate()
	valid := NewStudent{Name: "Ada", Email: "a@b.co", CampusID: "101", GradeID: "9"}

	tests := []struct {
		name    string
		records []NewStudent
		want    ValidationResult
	}{
		{name: "no records", want: ValidationResult{Valid: true, Errors: []string{}}},
		{name: "valid", records: []NewStudent{valid}, want: ValidationResult{Valid: true, Errors: []string{}}},
		{
			name: "bad email",
			records: []NewStudent{
				{Name: "Ada", Email: "not-an-email", CampusID: "101", GradeID: "9"},
			},
			want: ValidationResult{Errors: []string{"Row 1: Email must be a valid email address"}},
		},
		{
			name: "emails with whitespace or several @ are rejected",
			records: []NewStudent{
				valid,
				{Name: "Ada", Email: "a b@c.co", CampusID: "101", GradeID: "9"},
				{Name: "Ada", Email: "a@b@c.co", CampusID: "101", GradeID: "9"},
				{Name: "Ada", Email: "a@bco", CampusID: "101", GradeID: "9"},
			},
			want: ValidationResult{Errors: []string{
				"Row 2: Email must be a valid email address",
				"Row 3: Email must be a valid email address",
				"Row 4: Email must be a valid email address",
			}},
		},
		{
			name:    "all violations of a row are collected",
			records: []NewStudent{valid, {}},
			want: ValidationResult{Errors: []string{
				"Row 2: Name is required",
				"Row 2: Email is required",
				"Row 2: Campus ID is required",
				"Row 2: Grade ID is required",
			}},
		},
		{
			name: "all rows are checked",
			records: []NewStudent{
				{Email: "a@b.co", CampusID: "101", GradeID: "9"},
				valid,
				{Name: "Bob", Email: "b@c.co", GradeID: "9"},
				{Name: "Cid", Email: "c@d.co", CampusID: "101"},
			},
			want: ValidationResult{Errors: []string{
				"Row 1: Name is required",
				"Row 3: Campus ID is required",
				"Row 4: Grade ID is required",
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateRecords(validate, tt.records))
		})
	}
}

func TestValidationResult_Summary(t *testing.T) {
	vr := ValidationResult{Errors: []string{"1", "2", "3", "4", "5", "6", "7"}}
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "...and 2 more errors"}, vr.Summary())

	vr = ValidationResult{Errors: []string{"1", "2"}}
	assert.Equal(t, []string{"1", "2"}, vr.Summary())
}

func TestValidationResult_Err(t *testing.T) {
	assert.NoError(t, ValidationResult{Valid: true}.Err())

	err := ValidationResult{Errors: []string{"Row 1: Name is required"}}.Err()
	vErr, ok := err.(*core.ValidationError)
	if assert.True(t, ok) {
		assert.Equal(t, []core.FieldError{{Field: "records", Error: "Row 1: Name is required"}}, vErr.Fields)
	}
}
