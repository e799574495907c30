// Package catalog holds the entities the school records only reference:
// schools, subjects, groups and the academic periods with their weights.
package catalog

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/sigcolegio/backend/core"
)

// Ref kinds
const (
	KindSchool  = "school"
	KindSubject = "subject"
	KindGroup   = "group"
	KindPeriod  = "period"
	KindPerson  = "person"
)

var RefKinds = []string{KindSchool, KindSubject, KindGroup}

// Ref is a named entity referenced by school records.
type Ref struct {
	ID        string      `json:"id"`
	Kind      string      `json:"kind"`
	Name      string      `json:"name"`
	SchoolID  null.String `json:"school_id"`
	CreatedAt time.Time   `json:"created_at"`
}

// Period is an academic period of a school year, weighted by Percentage (0-100).
type Period struct {
	ID         string    `json:"id"`
	SchoolID   string    `json:"school_id"`
	Year       int       `json:"year"`
	Name       string    `json:"name"`
	Order      int       `json:"order"`
	Percentage float64   `json:"percentage"`
	CreatedAt  time.Time `json:"created_at"`
}

// Key identifies an entity to resolve.
type Key struct {
	Kind string
	ID   string
}

// Refs holds resolved references by kind then id.
type Refs map[string]map[string]Ref

func (r Refs) Get(kind, id string) (Ref, bool) {
	ref, ok := r[kind][id]
	return ref, ok
}

func (r Refs) put(ref Ref) {
	if r[ref.Kind] == nil {
		r[ref.Kind] = make(map[string]Ref)
	}
	r[ref.Kind][ref.ID] = ref
}

type NewRef struct {
	Kind     string      `json:"-"`
	Name     string      `json:"name" validate:"required,max=256"`
	SchoolID null.String `json:"school_id" validate:"omitempty,ref"`
}

func (nr *NewRef) Validate(validate *validator.Validate) error {
	nr.Name = core.CleanString(nr.Name)
	if err := validate.Struct(nr); err != nil {
		return err
	}
	if nr.Kind == KindGroup && !nr.SchoolID.Valid {
		return core.NewValidationError(nil, core.FieldError{Field: "school_id", Error: "a group belongs to a school"})
	}
	return nil
}

type NewPeriod struct {
	SchoolID   string  `json:"school_id" validate:"required,ref"`
	Year       int     `json:"year" validate:"required,gte=2000,lte=2100"`
	Name       string  `json:"name" validate:"required,max=128"`
	Order      int     `json:"order" validate:"gte=0"`
	Percentage float64 `json:"percentage" validate:"gte=0,lte=100"`
}

func (np *NewPeriod) Validate(validate *validator.Validate) error {
	np.Name = core.CleanString(np.Name)
	np.SchoolID = core.CleanString(np.SchoolID)
	return validate.Struct(np)
}

type PeriodFilter struct {
	SchoolID string `query:"school_id"`
	Year     int    `query:"year"`
}

func nullRef(id string) null.String {
	return null.NewString(id, id != "")
}
