package inmemdb

import (
	"context"
	"sort"
	"strconv"

	"github.com/trezcool/compass/core/student"
)

type studentRepository struct {
	db  *studentTable
	ref *referenceTables
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student, ref: db.reference}
}

// insert must be called with the table locked (or before it is shared).
func (t *studentTable) insert(ns student.NewStudent) student.Student {
	t.pkCount++
	std := ns.Student(strconv.Itoa(t.pkCount))
	std.Campus = ""
	t.table[std.ID] = &std
	return std
}

// withCampus fills the campus display name like a join would.
func (repo *studentRepository) withCampus(std student.Student) student.Student {
	repo.ref.RLock()
	defer repo.ref.RUnlock()

	std.Campus = ""
	for _, c := range repo.ref.campuses {
		if c.ID == std.CampusID {
			std.Campus = c.Name
			break
		}
	}
	return std
}

func (repo *studentRepository) QueryAllStudents(context.Context) ([]student.Student, error) {
	repo.db.RLock()
	students := make([]student.Student, 0, len(repo.db.table))
	for _, std := range repo.db.table {
		students = append(students, *std)
	}
	repo.db.RUnlock()

	sort.Slice(students, func(i, j int) bool {
		a, _ := strconv.Atoi(students[i].ID)
		b, _ := strconv.Atoi(students[j].ID)
		return a < b
	})
	for i := range students {
		students[i] = repo.withCampus(students[i])
	}
	return students, nil
}

func (repo *studentRepository) GetStudentByID(_ context.Context, id string) (student.Student, error) {
	repo.db.RLock()
	std, ok := repo.db.table[id]
	repo.db.RUnlock()

	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	return repo.withCampus(*std), nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, ns student.NewStudent) (student.Student, error) {
	repo.db.Lock()
	std := repo.db.insert(ns)
	repo.db.Unlock()
	return repo.withCampus(std), nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, id string, ns student.NewStudent) (student.Student, error) {
	repo.db.Lock()
	if _, ok := repo.db.table[id]; !ok {
		repo.db.Unlock()
		return student.Student{}, student.ErrNotFound
	}
	std := ns.Student(id)
	repo.db.table[id] = &std
	repo.db.Unlock()
	return repo.withCampus(std), nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return student.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *studentRepository) CreateStudents(_ context.Context, nss []student.NewStudent) ([]student.Student, error) {
	repo.db.Lock()
	students := make([]student.Student, 0, len(nss))
	for _, ns := range nss {
		students = append(students, repo.db.insert(ns))
	}
	repo.db.Unlock()

	for i := range students {
		students[i] = repo.withCampus(students[i])
	}
	return students, nil
}
