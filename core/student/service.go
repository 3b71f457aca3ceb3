package student

import (
	"context"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/compass/core"
)

// ErrNotFound is returned when no student matches the requested identifier.
var ErrNotFound = errors.New("student not found")

type (
	// Repository is the remote backend holding student rows.
	Repository interface {
		QueryAllStudents(ctx context.Context) ([]Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		CreateStudent(ctx context.Context, ns NewStudent) (Student, error)
		UpdateStudent(ctx context.Context, id string, ns NewStudent) (Student, error)
		DeleteStudent(ctx context.Context, id string) error
		// CreateStudents inserts every record or none; results keep the input order.
		CreateStudents(ctx context.Context, nss []NewStudent) ([]Student, error)
	}

	Service struct {
		repo     Repository
		retrier  core.Retrier
		validate *validator.Validate
		logger   core.Logger
	}

	// ImportReport describes an uploaded file: what was read, what is wrong with it and what was created.
	ImportReport struct {
		Filename   string           `json:"filename"`
		Preview    string           `json:"preview"`
		Parsed     ParseResult      `json:"parsed"`
		Validation ValidationResult `json:"validation"`
		Created    []Student        `json:"created,omitempty"`
	}
)

func NewService(repo Repository, retrier core.Retrier, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{
		repo:     repo,
		retrier:  retrier,
		validate: validate,
		logger:   logger,
	}
}

// stopOnNotFound keeps Retry from insisting on a missing student.
func stopOnNotFound(err error) error {
	if errors.Cause(err) == ErrNotFound {
		return core.Permanent(ErrNotFound)
	}
	return err
}

// List returns all students. A backend failure degrades to an empty list and a *core.DegradedError.
func (svc *Service) List(ctx context.Context) ([]Student, error) {
	students, err := core.Retry(ctx, svc.retrier, "fetching students", svc.repo.QueryAllStudents)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("fetching students: %v", err), err)
		core.Notify(ctx, core.ErrorToast("Failed to fetch students", err.Error()))
		return []Student{}, core.NewDegradedError("fetching students", err)
	}
	if students == nil {
		students = []Student{}
	}
	return students, nil
}

// GetByID returns ErrNotFound for unknown ids; any other failure degrades to a *core.DegradedError.
func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	std, err := core.Retry(ctx, svc.retrier, "fetching student", func(ctx context.Context) (Student, error) {
		std, err := svc.repo.GetStudentByID(ctx, id)
		return std, stopOnNotFound(err)
	})
	if err != nil {
		if err == ErrNotFound {
			return Student{}, ErrNotFound
		}
		svc.logger.Error(fmt.Sprintf("fetching student %s: %v", id, err), err)
		core.Notify(ctx, core.ErrorToast("Failed to fetch student details", err.Error()))
		return Student{}, core.NewDegradedError("fetching student", err)
	}
	return std, nil
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Student{}, err
	}
	std, err := core.Retry(ctx, svc.retrier, "adding student", func(ctx context.Context) (Student, error) {
		return svc.repo.CreateStudent(ctx, ns)
	})
	if err != nil {
		core.Notify(ctx, core.ErrorToast("Error", "Failed to add student. Please try again."))
		return Student{}, errors.Wrap(err, "adding student")
	}
	core.Notify(ctx, core.SuccessToast("Success", "Student added successfully."))
	return std, nil
}

func (svc *Service) Update(ctx context.Context, id string, ns NewStudent) (Student, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Student{}, err
	}
	std, err := core.Retry(ctx, svc.retrier, "updating student", func(ctx context.Context) (Student, error) {
		std, err := svc.repo.UpdateStudent(ctx, id, ns)
		return std, stopOnNotFound(err)
	})
	if err != nil {
		if err == ErrNotFound {
			return Student{}, ErrNotFound
		}
		core.Notify(ctx, core.ErrorToast("Error", "Failed to update student. Please try again."))
		return Student{}, errors.Wrap(err, "updating student")
	}
	core.Notify(ctx, core.SuccessToast("Success", "Student updated successfully."))
	return std, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	err := core.RetryDo(ctx, svc.retrier, "deleting student", func(ctx context.Context) error {
		return stopOnNotFound(svc.repo.DeleteStudent(ctx, id))
	})
	if err != nil {
		if err == ErrNotFound {
			return ErrNotFound
		}
		core.Notify(ctx, core.ErrorToast("Error", "Failed to delete student. Please try again."))
		return errors.Wrap(err, "deleting student")
	}
	core.Notify(ctx, core.SuccessToast("Success", "Student deleted successfully."))
	return nil
}

// CreateMany validates the whole batch first and inserts nothing unless every record passes.
func (svc *Service) CreateMany(ctx context.Context, nss []NewStudent) ([]Student, error) {
	if len(nss) == 0 {
		return []Student{}, nil
	}
	for i := range nss {
		nss[i].Clean()
	}
	if vr := ValidateRecords(svc.validate, nss); !vr.Valid {
		return nil, vr.Err()
	}

	students, err := core.Retry(ctx, svc.retrier, "adding students", func(ctx context.Context) ([]Student, error) {
		return svc.repo.CreateStudents(ctx, nss)
	})
	if err != nil {
		core.Notify(ctx, core.ErrorToast("Error", "Failed to import students. Please try again."))
		return nil, errors.Wrap(err, "adding students")
	}
	core.Notify(ctx, core.SuccessToast("Upload successful", fmt.Sprintf("%d students have been uploaded.", len(students))))
	return students, nil
}

// PreviewImport parses and validates an uploaded file without writing anything.
func (svc *Service) PreviewImport(ctx context.Context, filename string, r io.Reader) (ImportReport, error) {
	parsed, preview, err := ParseFile(filename, r)
	if err != nil {
		core.Notify(ctx, core.ErrorToast("Error parsing file", "The file format is not valid. Please check your file."))
		return ImportReport{}, core.NewValidationError(err, core.FieldError{Field: "file", Error: err.Error()})
	}
	for i := range parsed.Records {
		parsed.Records[i].Clean()
	}

	report := ImportReport{
		Filename:   filename,
		Preview:    preview,
		Parsed:     parsed,
		Validation: ValidateRecords(svc.validate, parsed.Records),
	}
	if !report.Validation.Valid {
		core.Notify(ctx, core.ErrorToast("Validation errors", fmt.Sprintf("%d errors found.", len(report.Validation.Errors))))
	} else {
		core.Notify(ctx, core.SuccessToast("File parsed successfully", fmt.Sprintf("Found %d valid student records.", len(parsed.Records))))
	}
	return report, nil
}

// Import parses an uploaded CSV or XLSX file and bulk creates its students.
// Nothing is written when the file is empty or when any record is invalid.
func (svc *Service) Import(ctx context.Context, filename string, r io.Reader) (ImportReport, error) {
	report, err := svc.PreviewImport(core.WithNotifier(ctx, nil), filename, r)
	if err != nil {
		return report, err
	}
	if len(report.Parsed.Records) == 0 {
		core.Notify(ctx, core.ErrorToast("No file selected", "Please select a file with student rows to upload."))
		return report, core.NewValidationError(ErrEmptyFile, core.FieldError{Field: "file", Error: ErrEmptyFile.Error()})
	}
	if !report.Validation.Valid {
		core.Notify(ctx, core.ErrorToast("Validation errors", "Please fix the validation errors before uploading."))
		return report, report.Validation.Err()
	}

	report.Created, err = svc.CreateMany(ctx, report.Parsed.Records)
	if err != nil {
		return report, err
	}
	svc.logger.Info(fmt.Sprintf("imported %d students from %s", len(report.Created), filename))
	return report, nil
}
