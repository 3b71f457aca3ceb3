package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/compass/core/school"
)

type schoolRepository struct {
	db  *schoolTable
	ref *referenceTables
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db.school, ref: db.reference}
}

func (repo *schoolRepository) withDistrict(sch school.School) school.School {
	repo.ref.RLock()
	defer repo.ref.RUnlock()

	sch.District = ""
	for _, d := range repo.ref.districts {
		if d.ID == sch.DistrictID {
			sch.District = d.Name
			break
		}
	}
	return sch
}

func (repo *schoolRepository) QueryAllSchools(context.Context) ([]school.School, error) {
	repo.db.RLock()
	schools := make([]school.School, 0, len(repo.db.table))
	for _, sch := range repo.db.table {
		schools = append(schools, *sch)
	}
	repo.db.RUnlock()

	sort.Slice(schools, func(i, j int) bool { return schools[i].Name < schools[j].Name })
	for i := range schools {
		schools[i] = repo.withDistrict(schools[i])
	}
	return schools, nil
}

func (repo *schoolRepository) GetSchoolByID(_ context.Context, id string) (school.School, error) {
	repo.db.RLock()
	sch, ok := repo.db.table[id]
	repo.db.RUnlock()

	if !ok {
		return school.School{}, school.ErrNotFound
	}
	return repo.withDistrict(*sch), nil
}

func (repo *schoolRepository) CreateSchool(_ context.Context, sch school.School) (school.School, error) {
	sch.District = ""
	repo.db.Lock()
	repo.db.table[sch.ID] = &sch
	repo.db.Unlock()
	return repo.withDistrict(sch), nil
}

func (repo *schoolRepository) UpdateSchool(_ context.Context, sch school.School) (school.School, error) {
	sch.District = ""
	repo.db.Lock()
	if _, ok := repo.db.table[sch.ID]; !ok {
		repo.db.Unlock()
		return school.School{}, school.ErrNotFound
	}
	repo.db.table[sch.ID] = &sch
	repo.db.Unlock()
	return repo.withDistrict(sch), nil
}

func (repo *schoolRepository) DeleteSchool(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return school.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
