package sqlxrepos

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/compass/core/reference"
	"github.com/trezcool/compass/core/school"
	"github.com/trezcool/compass/core/student"
	"github.com/trezcool/compass/core/user"
)

// Row DTOs mirror the tables. Joined display names come back as nullable columns.
type (
	studentRow struct {
		ID          int         `db:"id"`
		Name        string      `db:"name"`
		Email       null.String `db:"email"`
		Gender      null.String `db:"gender"`
		CampusID    null.String `db:"campus_id"`
		GradeID     null.String `db:"grade_id"`
		LanguageID  null.String `db:"language_id"`
		MeetLink    null.String `db:"meet_link"`
		LocalID     null.String `db:"local_id"`
		StudentCode null.String `db:"student_code"`
		CampusName  null.String `db:"campus_name"`
	}

	schoolRow struct {
		ID           string      `db:"school_id"`
		Name         string      `db:"name"`
		DistrictID   null.String `db:"district_id"`
		DistrictName null.String `db:"district_name"`
	}

	districtRow struct {
		ID       string      `db:"district_id"`
		Name     null.String `db:"name"`
		RegionID null.String `db:"region_id"`
	}

	campusRow struct {
		ID       string      `db:"campus_id"`
		Name     null.String `db:"name"`
		SchoolID null.String `db:"school_id"`
	}

	gradeRow struct {
		ID     string      `db:"grade_id"`
		Name   null.String `db:"name"`
		Code   null.String `db:"code"`
		Number null.String `db:"number"`
	}

	languageRow struct {
		ID   string      `db:"language_id"`
		Name null.String `db:"name"`
		Code null.String `db:"code"`
	}

	contractRow struct {
		ID         string      `db:"contract_id"`
		Name       null.String `db:"name"`
		Type       null.String `db:"type"`
		Date       null.String `db:"date"`
		TotalHours null.String `db:"total_hours"`
		FullValue  null.String `db:"full_value"`
		Discount   null.String `db:"discount"`
		PDFLink    null.String `db:"pdf_link"`
		BuyerID    null.String `db:"buyer_id"`
	}

	operatorRow struct {
		ID           string    `db:"id"`
		Name         string    `db:"name"`
		Email        string    `db:"email"`
		IsActive     bool      `db:"is_active"`
		IsAdmin      bool      `db:"is_admin"`
		PasswordHash []byte    `db:"password_hash"`
		CreatedAt    time.Time `db:"created_at"`
		UpdatedAt    time.Time `db:"updated_at"`
		LastLogin    null.Time `db:"last_login"`
	}
)

// nullString stores empty strings as NULL.
func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func nullTime(t time.Time) null.Time {
	return null.NewTime(t, !t.IsZero())
}

func (r studentRow) toStudent() student.Student {
	return student.Student{
		ID:          itoa(r.ID),
		Name:        r.Name,
		Email:       r.Email.String,
		Gender:      r.Gender.String,
		CampusID:    r.CampusID.String,
		GradeID:     r.GradeID.String,
		LanguageID:  r.LanguageID.String,
		MeetLink:    r.MeetLink.String,
		LocalID:     r.LocalID.String,
		StudentCode: r.StudentCode.String,
		Campus:      r.CampusName.String,
	}
}

func newStudentRow(ns student.NewStudent) studentRow {
	return studentRow{
		Name:        ns.Name,
		Email:       nullString(ns.Email),
		Gender:      nullString(ns.Gender),
		CampusID:    nullString(ns.CampusID),
		GradeID:     nullString(ns.GradeID),
		LanguageID:  nullString(ns.LanguageID),
		MeetLink:    nullString(ns.MeetLink),
		LocalID:     nullString(ns.LocalID),
		StudentCode: nullString(ns.StudentCode),
	}
}

func (r schoolRow) toSchool() school.School {
	return school.School{
		ID:         r.ID,
		Name:       r.Name,
		DistrictID: r.DistrictID.String,
		District:   r.DistrictName.String,
	}
}

func newSchoolRow(sch school.School) schoolRow {
	return schoolRow{
		ID:         sch.ID,
		Name:       sch.Name,
		DistrictID: nullString(sch.DistrictID),
	}
}

func (r districtRow) toDistrict() reference.District {
	return reference.District{ID: r.ID, Name: r.Name.String, RegionID: r.RegionID.String}
}

func (r campusRow) toCampus() reference.Campus {
	return reference.Campus{ID: r.ID, Name: r.Name.String, SchoolID: r.SchoolID.String}
}

func (r gradeRow) toGrade() reference.Grade {
	return reference.Grade{ID: r.ID, Name: r.Name.String, Code: r.Code.String, Number: r.Number.String}
}

func (r languageRow) toLanguage() reference.Language {
	return reference.Language{ID: r.ID, Name: r.Name.String, Code: r.Code.String}
}

func (r contractRow) toContract() reference.Contract {
	return reference.Contract{
		ID:         r.ID,
		Name:       r.Name.String,
		Type:       r.Type.String,
		Date:       r.Date.String,
		TotalHours: r.TotalHours.String,
		FullValue:  r.FullValue.String,
		Discount:   r.Discount.String,
		PDFLink:    r.PDFLink.String,
		BuyerID:    r.BuyerID.String,
	}
}

func (r operatorRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		IsActive:     r.IsActive,
		IsAdmin:      r.IsAdmin,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

func newOperatorRow(usr user.User) operatorRow {
	return operatorRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		IsActive:     usr.IsActive,
		IsAdmin:      usr.IsAdmin,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
		LastLogin:    nullTime(usr.LastLogin),
	}
}
