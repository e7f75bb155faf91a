package class

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vishusingh1/classroom/core"
	"github.com/vishusingh1/classroom/core/media"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Class struct {
	ID          int                   `json:"id"`
	Name        string                `json:"name"`
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	TeacherID   int                   `json:"teacher_id"`
	Capacity    int                   `json:"capacity"`
	Status      string                `json:"status"`
	Banner      *media.AssetReference `json:"banner"`
	CreatedAt   time.Time             `json:"created_at"` // UTC
	UpdatedAt   time.Time             `json:"updated_at"` // UTC
}

func (c Class) IsActive() bool { return c.Status == StatusActive }

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name        string                `json:"name" validate:"required"`
	Subject     string                `json:"subject" validate:"required"`
	Description string                `json:"description"`
	TeacherID   int                   `json:"teacher_id" validate:"required"`
	Capacity    int                   `json:"capacity" validate:"required,min=1,max=500"`
	Status      string                `json:"status" validate:"omitempty,oneof=active inactive"`
	Banner      *media.AssetReference `json:"banner"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Subject = core.CleanString(nc.Subject)
	nc.Description = core.CleanString(nc.Description)
	nc.Status = core.CleanString(nc.Status, true /* lower */)
	if nc.Status == "" {
		nc.Status = StatusActive
	}
	return validate.Struct(nc)
}
