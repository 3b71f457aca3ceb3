package reference

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/compass/core"
)

var ErrUnknownKind = errors.New("unknown reference list")

type (
	// Repository exposes the read-only lookup tables.
	Repository interface {
		QueryDistricts(ctx context.Context) ([]District, error)
		QueryCampuses(ctx context.Context) ([]Campus, error)
		QueryGrades(ctx context.Context) ([]Grade, error)
		QueryLanguages(ctx context.Context) ([]Language, error)
		QueryContracts(ctx context.Context) ([]Contract, error)
	}

	Service struct {
		repo    Repository
		retrier core.Retrier
		logger  core.Logger
	}
)

func NewService(repo Repository, retrier core.Retrier, logger core.Logger) *Service {
	return &Service{repo: repo, retrier: retrier, logger: logger}
}

// list runs fn under the retrier. On failure the result is an empty slice and a *core.DegradedError.
func list[T any](ctx context.Context, svc *Service, what string, fn func(context.Context) ([]T, error)) ([]T, error) {
	op := "fetching " + what
	items, err := core.Retry(ctx, svc.retrier, op, fn)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("%s: %v", op, err), err)
		core.Notify(ctx, core.ErrorToast("Failed to fetch "+what, err.Error()))
		return []T{}, core.NewDegradedError(op, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (svc *Service) Districts(ctx context.Context) ([]District, error) {
	return list(ctx, svc, "districts", svc.repo.QueryDistricts)
}

func (svc *Service) Campuses(ctx context.Context) ([]Campus, error) {
	return list(ctx, svc, "campuses", svc.repo.QueryCampuses)
}

func (svc *Service) Grades(ctx context.Context) ([]Grade, error) {
	return list(ctx, svc, "grades", svc.repo.QueryGrades)
}

func (svc *Service) Languages(ctx context.Context) ([]Language, error) {
	return list(ctx, svc, "languages", svc.repo.QueryLanguages)
}

func (svc *Service) Contracts(ctx context.Context) ([]Contract, error) {
	return list(ctx, svc, "contracts", svc.repo.QueryContracts)
}

// List returns the reference list named by kind.
func (svc *Service) List(ctx context.Context, kind Kind) (interface{}, error) {
	switch kind {
	case KindDistricts:
		return svc.Districts(ctx)
	case KindCampuses:
		return svc.Campuses(ctx)
	case KindGrades:
		return svc.Grades(ctx)
	case KindLanguages:
		return svc.Languages(ctx)
	case KindContracts:
		return svc.Contracts(ctx)
	default:
		return nil, ErrUnknownKind
	}
}

// FormOptions loads campuses, grades and languages.
// Whatever failed is left empty and a single toast asks the operator to refresh.
func (svc *Service) FormOptions(ctx context.Context) (FormOptions, error) {
	quiet := core.WithNotifier(ctx, nil)

	var opts FormOptions
	var errs []error
	var err error
	if opts.Campuses, err = svc.Campuses(quiet); err != nil {
		errs = append(errs, err)
	}
	if opts.Grades, err = svc.Grades(quiet); err != nil {
		errs = append(errs, err)
	}
	if opts.Languages, err = svc.Languages(quiet); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		core.Notify(ctx, core.ErrorToast("Error", "Failed to load reference data. Please refresh the page."))
		return opts, errs[0]
	}
	return opts, nil
}
