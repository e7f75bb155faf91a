package class_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishusingh1/classroom/core"
	"github.com/vishusingh1/classroom/core/class"
	"github.com/vishusingh1/classroom/core/media"
	inmemdb "github.com/vishusingh1/classroom/storage/database/inmem"
)

func newService() *class.Service {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())
	return class.NewService(inmemdb.NewClassRepository(inmemdb.Open()), validate)
}

func TestService_Create(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	tests := []struct {
		name    string
		nc      class.NewClass
		wantErr bool
	}{
		{name: "ok", nc: class.NewClass{Name: " Algebra I ", Subject: "Maths", TeacherID: 2, Capacity: 30}},
		{name: "no capacity", nc: class.NewClass{Name: "Algebra", Subject: "Maths", TeacherID: 2}, wantErr: true},
		{name: "bad status", nc: class.NewClass{Name: "Algebra", Subject: "Maths", TeacherID: 2, Capacity: 3, Status: "paused"}, wantErr: true},
		{name: "no teacher", nc: class.NewClass{Name: "Algebra", Subject: "Maths", Capacity: 3}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls, err := svc.Create(ctx, tt.nc)
			if tt.wantErr {
				_, ok := errors.Cause(err).(validator.ValidationErrors)
				assert.True(t, ok, "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Algebra I", cls.Name)
			assert.True(t, cls.IsActive())
		})
	}
}

func TestService_SetBanner(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	cls, err := svc.Create(ctx, class.NewClass{Name: "Biology", Subject: "Science", TeacherID: 3, Capacity: 25, Status: "inactive"})
	require.NoError(t, err)
	assert.False(t, cls.IsActive())

	banner := &media.AssetReference{URL: "https://x/banner.png", PublicID: "banner"}
	cls, err = svc.SetBanner(ctx, cls.ID, banner)
	require.NoError(t, err)
	assert.Equal(t, banner, cls.Banner)

	got, err := svc.GetByID(ctx, cls.ID)
	require.NoError(t, err)
	assert.Equal(t, banner, got.Banner)

	cls, err = svc.SetBanner(ctx, cls.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, cls.Banner)

	_, err = svc.SetBanner(ctx, 404, banner)
	assert.Equal(t, class.ErrNotFound, errors.Cause(err))

	classes, err := svc.QueryByTeacher(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, classes, 1)
}
