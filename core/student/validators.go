package student

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/compass/core"
)

const maxReportedErrors = 5

var labels = map[string]string{
	"Name":     "Name",
	"Email":    "Email",
	"CampusID": "Campus ID",
	"GradeID":  "Grade ID",
}

// ValidationResult is the verdict on a batch of candidate records.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Summary returns at most the first 5 errors, plus a line counting the others.
func (vr ValidationResult) Summary() []string {
	if len(vr.Errors) <= maxReportedErrors {
		return vr.Errors
	}
	summary := make([]string, 0, maxReportedErrors+1)
	summary = append(summary, vr.Errors[:maxReportedErrors]...)
	return append(summary, fmt.Sprintf("...and %d more errors", len(vr.Errors)-maxReportedErrors))
}

// Err returns nil for a valid batch and a *core.ValidationError carrying the summary otherwise.
func (vr ValidationResult) Err() error {
	if vr.Valid {
		return nil
	}
	fields := make([]core.FieldError, 0, len(vr.Errors))
	for _, msg := range vr.Summary() {
		fields = append(fields, core.FieldError{Field: "records", Error: msg})
	}
	return core.NewValidationError(fmt.Errorf("%d invalid student records", len(vr.Errors)), fields...)
}

// ValidateRecords checks every record and collects every violation.
// Row numbers in the messages are 1-based positions in records.
func ValidateRecords(validate *validator.Validate, records []NewStudent) ValidationResult {
	errs := make([]string, 0)
	for i := range records {
		ns := records[i]
		if err := validate.Struct(&ns); err != nil {
			vErrs, ok := err.(validator.ValidationErrors)
			if !ok {
				errs = append(errs, fmt.Sprintf("Row %d: %v", i+1, err))
				continue
			}
			for _, fe := range vErrs {
				errs = append(errs, fmt.Sprintf("Row %d: %s", i+1, recordErrorText(fe)))
			}
		}
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func recordErrorText(fe validator.FieldError) string {
	label, ok := labels[fe.StructField()]
	if !ok {
		label = fe.StructField()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case core.LooseEmailTag:
		return label + " must be a valid email address"
	default:
		return label + " is invalid"
	}
}
