package student

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/compass/core"
)

// Student is a tutored student as the dashboard presents it.
type Student struct {
	ID          string `json:"student_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Gender      string `json:"gender"`
	CampusID    string `json:"campus_id"`
	GradeID     string `json:"grade_id"`
	LanguageID  string `json:"language_id"`
	MeetLink    string `json:"meet_link,omitempty"`
	LocalID     string `json:"local_id,omitempty"`
	StudentCode string `json:"student_code,omitempty"`
	Campus      string `json:"campus,omitempty"` // campus display name
}

// NewStudent contains information needed to create or update a Student.
type NewStudent struct {
	Name        string `json:"name" form:"name" validate:"required"`
	Email       string `json:"email" form:"email" validate:"required,looseemail"`
	Gender      string `json:"gender" form:"gender"`
	CampusID    string `json:"campus_id" form:"campus_id" validate:"required"`
	GradeID     string `json:"grade_id" form:"grade_id" validate:"required"`
	LanguageID  string `json:"language_id" form:"language_id"`
	MeetLink    string `json:"meet_link,omitempty" form:"meet_link"`
	LocalID     string `json:"local_id,omitempty" form:"local_id"`
	StudentCode string `json:"student_code,omitempty" form:"student_code"`
	Campus      string `json:"campus,omitempty" form:"-"`
}

// Clean trims every field and lowers the email.
func (ns *NewStudent) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Gender = core.CleanString(ns.Gender)
	ns.CampusID = core.CleanString(ns.CampusID)
	ns.GradeID = core.CleanString(ns.GradeID)
	ns.LanguageID = core.CleanString(ns.LanguageID)
	ns.MeetLink = core.CleanString(ns.MeetLink)
	ns.LocalID = core.CleanString(ns.LocalID)
	ns.StudentCode = core.CleanString(ns.StudentCode)
	ns.Campus = core.CleanString(ns.Campus)
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Clean()
	return validate.Struct(ns)
}

// Student returns the record ns describes under the given identifier.
func (ns NewStudent) Student(id string) Student {
	return Student{
		ID:          id,
		Name:        ns.Name,
		Email:       ns.Email,
		Gender:      ns.Gender,
		CampusID:    ns.CampusID,
		GradeID:     ns.GradeID,
		LanguageID:  ns.LanguageID,
		MeetLink:    ns.MeetLink,
		LocalID:     ns.LocalID,
		StudentCode: ns.StudentCode,
		Campus:      ns.Campus,
	}
}

// NewStudent returns the editable fields of s.
func (s Student) NewStudent() NewStudent {
	return NewStudent{
		Name:        s.Name,
		Email:       s.Email,
		Gender:      s.Gender,
		CampusID:    s.CampusID,
		GradeID:     s.GradeID,
		LanguageID:  s.LanguageID,
		MeetLink:    s.MeetLink,
		LocalID:     s.LocalID,
		StudentCode: s.StudentCode,
		Campus:      s.Campus,
	}
}
