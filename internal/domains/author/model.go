package author

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// Author is the domain entity backing the authors collection. Name is the
// unique key used by every lookup; BookCount is derived at read time and
// never stored.
type Author struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
	Born *int      `json:"born,omitempty" db:"born"`
}

// Validate enforces the field rules the store layer owns. Violations come
// back as validation.Errors keyed by field name.
func (a Author) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name,
			validation.Required.Error("name is required"),
			validation.Length(1, 255),
		),
		validation.Field(&a.Born,
			validation.Min(0).Error("born must be a positive year"),
		),
	)
}
