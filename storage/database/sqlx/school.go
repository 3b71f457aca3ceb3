package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/compass/core/school"
)

const schoolSelect = `SELECT s.school_id, s.name, s.district_id, d.name AS district_name
	FROM school s LEFT JOIN district d ON d.district_id = s.district_id`

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(db *sqlx.DB) school.Repository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) QueryAllSchools(ctx context.Context) ([]school.School, error) {
	var rows []schoolRow
	if err := repo.db.SelectContext(ctx, &rows, schoolSelect+" ORDER BY s.name"); err != nil {
		return nil, errors.Wrap(err, "selecting schools")
	}
	schools := make([]school.School, 0, len(rows))
	for _, row := range rows {
		schools = append(schools, row.toSchool())
	}
	return schools, nil
}

func (repo *schoolRepository) GetSchoolByID(ctx context.Context, id string) (school.School, error) {
	// school_id is a UUID column: anything else cannot match
	if _, err := uuid.Parse(id); err != nil {
		return school.School{}, school.ErrNotFound
	}
	var row schoolRow
	if err := repo.db.GetContext(ctx, &row, schoolSelect+" WHERE s.school_id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return school.School{}, school.ErrNotFound
		}
		return school.School{}, errors.Wrap(err, "selecting school")
	}
	return row.toSchool(), nil
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO school (school_id, name, district_id) VALUES (:school_id, :name, :district_id)",
		newSchoolRow(sch))
	if err != nil {
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	return repo.GetSchoolByID(ctx, sch.ID)
}

func (repo *schoolRepository) UpdateSchool(ctx context.Context, sch school.School) (school.School, error) {
	if _, err := uuid.Parse(sch.ID); err != nil {
		return school.School{}, school.ErrNotFound
	}
	res, err := repo.db.NamedExecContext(ctx,
		"UPDATE school SET name = :name, district_id = :district_id WHERE school_id = :school_id",
		newSchoolRow(sch))
	if err != nil {
		return school.School{}, errors.Wrap(err, "updating school")
	}
	if err := checkAffected(res, school.ErrNotFound); err != nil {
		return school.School{}, err
	}
	return repo.GetSchoolByID(ctx, sch.ID)
}

func (repo *schoolRepository) DeleteSchool(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return school.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM school WHERE school_id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting school")
	}
	return checkAffected(res, school.ErrNotFound)
}
