package school

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/compass/core"
)

type School struct {
	ID         string `json:"school_id"`
	Name       string `json:"name"`
	DistrictID string `json:"district_id,omitempty"`
	District   string `json:"district,omitempty"` // district display name, never stored
}

// NewSchool contains information needed to create or update a School.
type NewSchool struct {
	Name       string `json:"name" form:"name" validate:"required"`
	DistrictID string `json:"district_id" form:"district_id"`
}

func (ns *NewSchool) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.DistrictID = core.CleanString(ns.DistrictID)
	return validate.Struct(ns)
}
