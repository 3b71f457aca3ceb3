package school

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/compass/core"
)

var (
	ErrNotFound = errors.New("school not found")

	newID = uuid.NewString // mockable
)

type (
	Repository interface {
		QueryAllSchools(ctx context.Context) ([]School, error)
		GetSchoolByID(ctx context.Context, id string) (School, error)
		// CreateSchool inserts sch under its pre-assigned ID.
		CreateSchool(ctx context.Context, sch School) (School, error)
		UpdateSchool(ctx context.Context, sch School) (School, error)
		DeleteSchool(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		retrier  core.Retrier
		validate *validator.Validate
		logger   core.Logger
	}
)

func NewService(repo Repository, retrier core.Retrier, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{
		repo:     repo,
		retrier:  retrier,
		validate: validate,
		logger:   logger,
	}
}

func stopOnNotFound(err error) error {
	if errors.Cause(err) == ErrNotFound {
		return core.Permanent(ErrNotFound)
	}
	return err
}

// List returns all schools with their district names. Failures degrade to an empty list.
func (svc *Service) List(ctx context.Context) ([]School, error) {
	schools, err := core.Retry(ctx, svc.retrier, "fetching schools", svc.repo.QueryAllSchools)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("fetching schools: %v", err), err)
		core.Notify(ctx, core.ErrorToast("Failed to fetch schools", err.Error()))
		return []School{}, core.NewDegradedError("fetching schools", err)
	}
	if schools == nil {
		schools = []School{}
	}
	return schools, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (School, error) {
	sch, err := core.Retry(ctx, svc.retrier, "fetching school", func(ctx context.Context) (School, error) {
		sch, err := svc.repo.GetSchoolByID(ctx, id)
		return sch, stopOnNotFound(err)
	})
	if err != nil {
		if err == ErrNotFound {
			return School{}, ErrNotFound
		}
		svc.logger.Error(fmt.Sprintf("fetching school %s: %v", id, err), err)
		core.Notify(ctx, core.ErrorToast("Failed to fetch school details", err.Error()))
		return School{}, core.NewDegradedError("fetching school", err)
	}
	return sch, nil
}

// Create assigns a fresh UUID to the school before inserting it.
func (svc *Service) Create(ctx context.Context, ns NewSchool) (School, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return School{}, err
	}
	sch := School{ID: newID(), Name: ns.Name, DistrictID: ns.DistrictID}
	sch, err := core.Retry(ctx, svc.retrier, "adding school", func(ctx context.Context) (School, error) {
		return svc.repo.CreateSchool(ctx, sch)
	})
	if err != nil {
		core.Notify(ctx, core.ErrorToast("Failed to add school", err.Error()))
		return School{}, errors.Wrap(err, "adding school")
	}
	core.Notify(ctx, core.SuccessToast("School added successfully", ""))
	return sch, nil
}

func (svc *Service) Update(ctx context.Context, id string, ns NewSchool) (School, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return School{}, err
	}
	sch := School{ID: id, Name: ns.Name, DistrictID: ns.DistrictID}
	sch, err := core.Retry(ctx, svc.retrier, "updating school", func(ctx context.Context) (School, error) {
		updated, err := svc.repo.UpdateSchool(ctx, sch)
		return updated, stopOnNotFound(err)
	})
	if err != nil {
		if err == ErrNotFound {
			return School{}, ErrNotFound
		}
		core.Notify(ctx, core.ErrorToast("Failed to update school", err.Error()))
		return School{}, errors.Wrap(err, "updating school")
	}
	core.Notify(ctx, core.SuccessToast("School updated successfully", ""))
	return sch, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	err := core.RetryDo(ctx, svc.retrier, "deleting school", func(ctx context.Context) error {
		return stopOnNotFound(svc.repo.DeleteSchool(ctx, id))
	})
	if err != nil {
		if err == ErrNotFound {
			return ErrNotFound
		}
		core.Notify(ctx, core.ErrorToast("Failed to delete school", err.Error()))
		return errors.Wrap(err, "deleting school")
	}
	core.Notify(ctx, core.SuccessToast("School deleted successfully", ""))
	return nil
}
