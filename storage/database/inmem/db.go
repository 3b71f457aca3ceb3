package inmemdb

import (
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/compass/core/reference"
	"github.com/trezcool/compass/core/school"
	"github.com/trezcool/compass/core/student"
	"github.com/trezcool/compass/core/user"
)

type (
	// DB keeps every table in memory. It backs the tests and the demo mode.
	DB struct {
		student   *studentTable
		school    *schoolTable
		reference *referenceTables
		user      *userTable
	}

	studentTable struct {
		sync.RWMutex
		pkCount int
		table   map[string]*student.Student
	}

	schoolTable struct {
		sync.RWMutex
		table map[string]*school.School
	}

	referenceTables struct {
		sync.RWMutex
		districts []reference.District
		campuses  []reference.Campus
		grades    []reference.Grade
		languages []reference.Language
		contracts []reference.Contract
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}
)

// Open returns an empty database.
func Open() *DB {
	return &DB{
		student:   &studentTable{table: make(map[string]*student.Student)},
		school:    &schoolTable{table: make(map[string]*school.School)},
		reference: &referenceTables{},
		user:      &userTable{table: make(map[string]*user.User)},
	}
}

// Demo operator credentials.
const (
	DemoOperatorID       = "00000000-0000-4000-8000-000000000001"
	DemoOperatorEmail    = "admin@example.com"
	DemoOperatorPassword = "password"
)

// OpenDemo returns a database seeded with the demo students, reference data and operator.
func OpenDemo() *DB {
	db := Open()

	db.reference.campuses = []reference.Campus{
		{ID: "101", Name: "Main Campus"},
		{ID: "102", Name: "North Campus"},
		{ID: "103", Name: "South Campus"},
	}
	db.reference.grades = []reference.Grade{
		{ID: "9", Name: "9th Grade", Number: "9"},
		{ID: "10", Name: "10th Grade", Number: "10"},
		{ID: "11", Name: "11th Grade", Number: "11"},
		{ID: "12", Name: "12th Grade", Number: "12"},
	}
	db.reference.languages = []reference.Language{
		{ID: "1", Name: "English", Code: "en"},
		{ID: "2", Name: "Spanish", Code: "es"},
		{ID: "3", Name: "French", Code: "fr"},
	}

	for _, std := range []student.Student{
		{
			Name: "John Smith", Gender: "Male", Email: "john.smith@example.com",
			CampusID: "101", GradeID: "9", LanguageID: "1",
			MeetLink: "https://meet.google.com/abc-defg-hij", LocalID: "JS001", StudentCode: "ST001",
		},
		{
			Name: "Emily Johnson", Gender: "Female", Email: "emily.johnson@example.com",
			CampusID: "102", GradeID: "10", LanguageID: "1",
			MeetLink: "https://meet.google.com/jkl-mnop-qrs", LocalID: "EJ002", StudentCode: "ST002",
		},
		{
			Name: "Michael Brown", Gender: "Male", Email: "michael.brown@example.com",
			CampusID: "101", GradeID: "11", LanguageID: "2",
			MeetLink: "https://meet.google.com/tuv-wxyz-123", LocalID: "MB003", StudentCode: "ST003",
		},
	} {
		db.student.insert(std.NewStudent())
	}

	now := time.Now().UTC()
	hash, _ := bcrypt.GenerateFromPassword([]byte(DemoOperatorPassword), bcrypt.DefaultCost)
	db.user.table[DemoOperatorID] = &user.User{
		ID:           DemoOperatorID,
		Name:         "Admin",
		Email:        DemoOperatorEmail,
		IsActive:     true,
		IsAdmin:      true,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return db
}

// SetReference replaces the reference lists. Nil slices are left untouched.
func (db *DB) SetReference(districts []reference.District, campuses []reference.Campus, grades []reference.Grade, languages []reference.Language, contracts []reference.Contract) {
	db.reference.Lock()
	defer db.reference.Unlock()

	if districts != nil {
		db.reference.districts = districts
	}
	if campuses != nil {
		db.reference.campuses = campuses
	}
	if grades != nil {
		db.reference.grades = grades
	}
	if languages != nil {
		db.reference.languages = languages
	}
	if contracts != nil {
		db.reference.contracts = contracts
	}
}
