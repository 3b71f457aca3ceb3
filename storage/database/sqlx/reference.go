package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/compass/core/reference"
)

type referenceRepository struct {
	db *sqlx.DB
}

var _ reference.Repository = (*referenceRepository)(nil)

func NewReferenceRepository(db *sqlx.DB) reference.Repository {
	return &referenceRepository{db: db}
}

// selectAll runs query into a slice of rows and maps every row with conv.
func selectAll[R, T any](ctx context.Context, db *sqlx.DB, what, query string, conv func(R) T) ([]T, error) {
	var rows []R
	if err := db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrapf(err, "selecting %s", what)
	}
	items := make([]T, 0, len(rows))
	for _, row := range rows {
		items = append(items, conv(row))
	}
	return items, nil
}

func (repo *referenceRepository) QueryDistricts(ctx context.Context) ([]reference.District, error) {
	return selectAll(ctx, repo.db, "districts",
		"SELECT district_id, name, region_id FROM district ORDER BY name",
		districtRow.toDistrict)
}

func (repo *referenceRepository) QueryCampuses(ctx context.Context) ([]reference.Campus, error) {
	return selectAll(ctx, repo.db, "campuses",
		"SELECT campus_id, name, school_id FROM campus ORDER BY name",
		campusRow.toCampus)
}

func (repo *referenceRepository) QueryGrades(ctx context.Context) ([]reference.Grade, error) {
	// grades sort by their number, "10" after "9"
	return selectAll(ctx, repo.db, "grades",
		"SELECT grade_id, name, code, number FROM grade ORDER BY length(grade_id), grade_id",
		gradeRow.toGrade)
}

func (repo *referenceRepository) QueryLanguages(ctx context.Context) ([]reference.Language, error) {
	return selectAll(ctx, repo.db, "languages",
		"SELECT language_id, name, code FROM language ORDER BY name",
		languageRow.toLanguage)
}

func (repo *referenceRepository) QueryContracts(ctx context.Context) ([]reference.Contract, error) {
	return selectAll(ctx, repo.db, "contracts",
		`SELECT contract_id, name, type, date, "total hours" AS total_hours, "full value" AS full_value,
			discount, "pdf link" AS pdf_link, buyer_id
		FROM contract ORDER BY name`,
		contractRow.toContract)
}
