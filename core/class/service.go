package class

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/vishusingh1/classroom/core/media"
)

var ErrNotFound = errors.New("class not found")

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClassByID(ctx context.Context, id int) (Class, error)
		QueryClassesByTeacher(ctx context.Context, teacherID int) ([]Class, error)
		SetClassBanner(ctx context.Context, id int, banner *media.AssetReference, updatedAt time.Time) (Class, error)
		DeleteClassesByID(ctx context.Context, ids ...int) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Create(ctx context.Context, nc NewClass) (Class, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Class{}, err
	}
	now := time.Now().UTC()
	cls, err := svc.repo.CreateClass(ctx, Class{
		Name:        nc.Name,
		Subject:     nc.Subject,
		Description: nc.Description,
		TeacherID:   nc.TeacherID,
		Capacity:    nc.Capacity,
		Status:      nc.Status,
		Banner:      nc.Banner,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	return cls, errors.Wrap(err, "creating class")
}

func (svc *Service) GetByID(ctx context.Context, id int) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *Service) QueryByTeacher(ctx context.Context, teacherID int) ([]Class, error) {
	return svc.repo.QueryClassesByTeacher(ctx, teacherID)
}

// SetBanner stores the class banner; nil removes it.
func (svc *Service) SetBanner(ctx context.Context, id int, banner *media.AssetReference) (Class, error) {
	cls, err := svc.repo.GetClassByID(ctx, id)
	if err != nil {
		return Class{}, err
	}
	if media.SameAsset(cls.Banner, banner) {
		return cls, nil
	}
	cls, err = svc.repo.SetClassBanner(ctx, id, banner, time.Now().UTC())
	return cls, errors.Wrap(err, "setting banner")
}

func (svc *Service) Delete(ctx context.Context, ids ...int) error {
	return svc.repo.DeleteClassesByID(ctx, ids...)
}
