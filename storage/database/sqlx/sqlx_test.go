package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/compass/core/school"
	"github.com/trezcool/compass/core/student"
	"github.com/trezcool/compass/core/user"
	testutil "github.com/trezcool/compass/tests"
)

func TestStudentRepository(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewStudentRepository(db)
	ctx := context.Background()

	std, err := repo.CreateStudent(ctx, student.NewStudent{
		Name: "Ada", Email: "ada@example.com", CampusID: "101", GradeID: "9", LanguageID: "1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, std.ID)
	assert.Equal(t, "Main Campus", std.Campus)
	assert.Empty(t, std.MeetLink)

	got, err := repo.GetStudentByID(ctx, std.ID)
	require.NoError(t, err)
	assert.Equal(t, std, got)

	_, err = repo.GetStudentByID(ctx, "not-a-number")
	assert.Equal(t, student.ErrNotFound, err)

	upd, err := repo.UpdateStudent(ctx, std.ID, student.NewStudent{
		Name: "Ada L.", Email: "ada@example.com", CampusID: "102", GradeID: "10",
	})
	require.NoError(t, err)
	assert.Equal(t, "North Campus", upd.Campus)
	assert.Empty(t, upd.LanguageID)

	created, err := repo.CreateStudents(ctx, []student.NewStudent{
		{Name: "B", Email: "b@example.com", CampusID: "101", GradeID: "9"},
		{Name: "C", Email: "c@example.com", CampusID: "103", GradeID: "11"},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "South Campus", created[1].Campus)

	// an unknown campus breaks the foreign key: nothing of the batch is kept
	_, err = repo.CreateStudents(ctx, []student.NewStudent{
		{Name: "D", Email: "d@example.com", CampusID: "101", GradeID: "9"},
		{Name: "E", Email: "e@example.com", CampusID: "999", GradeID: "9"},
	})
	require.Error(t, err)

	all, err := repo.QueryAllStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, repo.DeleteStudent(ctx, std.ID))
	assert.Equal(t, student.ErrNotFound, repo.DeleteStudent(ctx, std.ID))
}

func TestSchoolRepository(t *testing.T) {
	db := testutil.OpenDB(t)
	_, err := db.Exec("INSERT INTO district (district_id, name) VALUES ('d1', 'North District')")
	require.NoError(t, err)

	repo := NewSchoolRepository(db)
	ctx := context.Background()

	id := uuid.NewString()
	sch, err := repo.CreateSchool(ctx, school.School{ID: id, Name: "Lincoln High", DistrictID: "d1"})
	require.NoError(t, err)
	assert.Equal(t, school.School{ID: id, Name: "Lincoln High", DistrictID: "d1", District: "North District"}, sch)

	upd, err := repo.UpdateSchool(ctx, school.School{ID: id, Name: "Lincoln"})
	require.NoError(t, err)
	assert.Empty(t, upd.District)

	_, err = repo.UpdateSchool(ctx, school.School{ID: uuid.NewString(), Name: "x"})
	assert.Equal(t, school.ErrNotFound, err)
	_, err = repo.GetSchoolByID(ctx, "s1")
	assert.Equal(t, school.ErrNotFound, err)

	schools, err := repo.QueryAllSchools(ctx)
	require.NoError(t, err)
	assert.Len(t, schools, 1)

	require.NoError(t, repo.DeleteSchool(ctx, id))
	assert.Equal(t, school.ErrNotFound, repo.DeleteSchool(ctx, id))
}

func TestReferenceRepository(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewReferenceRepository(db)
	ctx := context.Background()

	grades, err := repo.QueryGrades(ctx)
	require.NoError(t, err)
	require.Len(t, grades, 4)
	assert.Equal(t, "9", grades[0].ID)
	assert.Equal(t, "12", grades[3].ID)

	languages, err := repo.QueryLanguages(ctx)
	require.NoError(t, err)
	assert.Len(t, languages, 3)

	contracts, err := repo.QueryContracts(ctx)
	require.NoError(t, err)
	assert.Empty(t, contracts)
}

func TestUserRepository(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	usr := testutil.CreateUser(t, repo, uuid.NewString(), "Op", "op@example.com", "Str0ng!Pass", true, created)
	assert.Equal(t, created, usr.CreatedAt)
	assert.True(t, usr.LastLogin.IsZero())

	assert.Equal(t, user.ErrEmailExists, repo.CheckEmailUniqueness(ctx, "op@example.com"))
	assert.NoError(t, repo.CheckEmailUniqueness(ctx, "op@example.com", usr))

	usr.LastLogin = created.Add(time.Hour)
	upd, err := repo.UpdateUser(ctx, usr)
	require.NoError(t, err)
	assert.Equal(t, usr.LastLogin, upd.LastLogin)

	got, err := repo.GetUserByEmail(ctx, "op@example.com")
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("Str0ng!Pass"))

	_, err = repo.GetUserByID(ctx, "42")
	assert.Equal(t, user.ErrNotFound, err)
}
