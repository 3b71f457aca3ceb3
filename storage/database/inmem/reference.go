package inmemdb

import (
	"context"

	"github.com/trezcool/compass/core/reference"
)

type referenceRepository struct {
	db *referenceTables
}

var _ reference.Repository = (*referenceRepository)(nil)

func NewReferenceRepository(db *DB) reference.Repository {
	return &referenceRepository{db: db.reference}
}

func clone[T any](items []T) []T {
	return append(make([]T, 0, len(items)), items...)
}

func (repo *referenceRepository) QueryDistricts(context.Context) ([]reference.District, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return clone(repo.db.districts), nil
}

func (repo *referenceRepository) QueryCampuses(context.Context) ([]reference.Campus, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return clone(repo.db.campuses), nil
}

func (repo *referenceRepository) QueryGrades(context.Context) ([]reference.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return clone(repo.db.grades), nil
}

func (repo *referenceRepository) QueryLanguages(context.Context) ([]reference.Language, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return clone(repo.db.languages), nil
}

func (repo *referenceRepository) QueryContracts(context.Context) ([]reference.Contract, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return clone(repo.db.contracts), nil
}
