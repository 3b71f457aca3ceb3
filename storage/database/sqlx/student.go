package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/compass/core/student"
)

const (
	studentColumns = `s.id, s.name, s.email, s.gender, s.campus_id, s.grade_id, s.language_id,
		s.meet_link, s.local_id, s.student_code, c.name AS campus_name`
	studentFrom = `student s LEFT JOIN campus c ON c.campus_id = s.campus_id`

	insertStudent = `INSERT INTO student
		(name, email, gender, campus_id, grade_id, language_id, meet_link, local_id, student_code)
		VALUES (:name, :email, :gender, :campus_id, :grade_id, :language_id, :meet_link, :local_id, :student_code)
		RETURNING id`
)

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func itoa(id int) string { return strconv.Itoa(id) }

// parseStudentID maps identifiers that cannot exist in the table to student.ErrNotFound.
func parseStudentID(id string) (int, error) {
	n, err := strconv.Atoi(id)
	if err != nil || n <= 0 {
		return 0, student.ErrNotFound
	}
	return n, nil
}

func (repo *studentRepository) get(ctx context.Context, q sqlx.QueryerContext, id int) (student.Student, error) {
	var row studentRow
	err := sqlx.GetContext(ctx, q, &row, "SELECT "+studentColumns+" FROM "+studentFrom+" WHERE s.id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "selecting student")
	}
	return row.toStudent(), nil
}

func (repo *studentRepository) QueryAllStudents(ctx context.Context) ([]student.Student, error) {
	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT "+studentColumns+" FROM "+studentFrom+" ORDER BY s.id"); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toStudent())
	}
	return students, nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	n, err := parseStudentID(id)
	if err != nil {
		return student.Student{}, err
	}
	return repo.get(ctx, repo.db, n)
}

func insertStudentRow(ctx context.Context, ext sqlx.ExtContext, ns student.NewStudent) (int, error) {
	query, args, err := ext.BindNamed(insertStudent, newStudentRow(ns))
	if err != nil {
		return 0, errors.Wrap(err, "binding student")
	}
	var id int
	if err := sqlx.GetContext(ctx, ext, &id, query, args...); err != nil {
		return 0, errors.Wrap(err, "inserting student")
	}
	return id, nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, ns student.NewStudent) (student.Student, error) {
	id, err := insertStudentRow(ctx, repo.db, ns)
	if err != nil {
		return student.Student{}, err
	}
	return repo.get(ctx, repo.db, id)
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, id string, ns student.NewStudent) (student.Student, error) {
	n, err := parseStudentID(id)
	if err != nil {
		return student.Student{}, err
	}
	row := newStudentRow(ns)
	row.ID = n

	res, err := repo.db.NamedExecContext(ctx, `UPDATE student SET
		name = :name, email = :email, gender = :gender, campus_id = :campus_id, grade_id = :grade_id,
		language_id = :language_id, meet_link = :meet_link, local_id = :local_id, student_code = :student_code
		WHERE id = :id`, row)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if err := checkAffected(res, student.ErrNotFound); err != nil {
		return student.Student{}, err
	}
	return repo.get(ctx, repo.db, n)
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id string) error {
	n, err := parseStudentID(id)
	if err != nil {
		return err
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM student WHERE id = $1", n)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return checkAffected(res, student.ErrNotFound)
}

// CreateStudents inserts the whole batch in one transaction.
func (repo *studentRepository) CreateStudents(ctx context.Context, nss []student.NewStudent) ([]student.Student, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	students := make([]student.Student, 0, len(nss))
	for _, ns := range nss {
		id, err := insertStudentRow(ctx, tx, ns)
		if err != nil {
			return nil, err
		}
		std, err := repo.get(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		students = append(students, std)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing students")
	}
	return students, nil
}

// checkAffected returns notFound when res touched no row.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}
