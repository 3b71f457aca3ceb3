package reference

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/compass/core"
)

type stubRepository struct {
	failGrades bool
	calls      map[string]int
}

func (r *stubRepository) hit(name string) {
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[name]++
}

func (r *stubRepository) QueryDistricts(context.Context) ([]District, error) {
	r.hit("districts")
	return []District{{ID: "d1", Name: "North"}}, nil
}

func (r *stubRepository) QueryCampuses(context.Context) ([]Campus, error) {
	r.hit("campuses")
	return []Campus{{ID: "101", Name: "Main Campus"}}, nil
}

func (r *stubRepository) QueryGrades(context.Context) ([]Grade, error) {
	r.hit("grades")
	if r.failGrades {
		return nil, errors.New("timeout")
	}
	return []Grade{{ID: "9", Name: "9th Grade"}}, nil
}

func (r *stubRepository) QueryLanguages(context.Context) ([]Language, error) {
	r.hit("languages")
	return []Language{{ID: "1", Name: "English"}}, nil
}

func (r *stubRepository) QueryContracts(context.Context) ([]Contract, error) {
	r.hit("contracts")
	return nil, nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, core.Retrier{MaxAttempts: 3, BaseDelay: time.Microsecond}, core.NopLogger{})
}

func TestService_List(t *testing.T) {
	svc := newTestService(&stubRepository{})
	ctx := context.Background()

	tests := []struct {
		kind    Kind
		want    interface{}
		wantErr error
	}{
		{kind: KindDistricts, want: []District{{ID: "d1", Name: "North"}}},
		{kind: KindCampuses, want: []Campus{{ID: "101", Name: "Main Campus"}}},
		{kind: KindGrades, want: []Grade{{ID: "9", Name: "9th Grade"}}},
		{kind: KindLanguages, want: []Language{{ID: "1", Name: "English"}}},
		{kind: KindContracts, want: []Contract{}},
		{kind: "tutors", wantErr: ErrUnknownKind},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got, err := svc.List(ctx, tt.kind)
			assert.Equal(t, tt.wantErr, err)
			if tt.wantErr == nil {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestService_FormOptions_Degrades(t *testing.T) {
	repo := &stubRepository{failGrades: true}
	svc := newTestService(repo)
	toasts := new(core.Toasts)
	ctx := core.WithNotifier(context.Background(), toasts)

	opts, err := svc.FormOptions(ctx)
	require.Error(t, err)
	assert.True(t, core.IsDegraded(err))
	assert.Equal(t, []Grade{}, opts.Grades)
	assert.Len(t, opts.Campuses, 1)
	assert.Len(t, opts.Languages, 1)
	assert.Equal(t, 3, repo.calls["grades"])
	assert.Equal(t, []core.Toast{core.ErrorToast("Error", "Failed to load reference data. Please refresh the page.")}, toasts.Drain())
}

func TestKind(t *testing.T) {
	assert.True(t, KindCampuses.Valid())
	assert.False(t, Kind("tutors").Valid())
	assert.Equal(t, "Languages", KindLanguages.Title())
}
