package sqlxrepos

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/vishusingh1/classroom/core"
	"github.com/vishusingh1/classroom/core/class"
	"github.com/vishusingh1/classroom/core/media"
	"github.com/vishusingh1/classroom/core/user"
	"github.com/vishusingh1/classroom/storage/database"
)

func TestAssetColumns(t *testing.T) {
	tests := []struct {
		name string
		ref  *media.AssetReference
		url  null.String
		id   null.String
	}{
		{name: "none"},
		{
			name: "asset",
			ref:  &media.AssetReference{URL: "https://x/y.png", PublicID: "abc123"},
			url:  null.StringFrom("https://x/y.png"),
			id:   null.StringFrom("abc123"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, id := assetColumns(tt.ref)
			assert.Equal(t, tt.url, url)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.ref, assetFromColumns(url, id))
		})
	}
	assert.Nil(t, assetFromColumns(null.StringFrom(""), null.StringFrom("abc")), "an empty url is no asset")
}

// openTestDB needs a postgres server; set CLASSROOM_TEST_DB=1 and the TEST_DATABASE_* env vars.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if os.Getenv("CLASSROOM_TEST_DB") == "" {
		t.Skip("CLASSROOM_TEST_DB not set")
	}
	conf := core.NewConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, database.CreateIfNotExist(ctx, conf))
	db, err := database.Open(ctx, conf)
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db.DB, "reset"))
	require.NoError(t, database.Migrate(db.DB))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRepositories(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	classes := NewClassRepository(db)
	now := time.Now().UTC().Truncate(time.Millisecond)

	teacher, err := users.CreateUser(ctx, user.User{Name: "Jane", Username: "jdoe", Email: "jane@test.cd", IsActive: true, Roles: []string{user.RoleTeacher}, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	assert.Nil(t, teacher.Avatar)

	assert.Equal(t, user.ErrUsernameExists, users.CheckUsernameUniqueness(ctx, "jdoe", ""))
	assert.Equal(t, user.ErrEmailExists, users.CheckUsernameUniqueness(ctx, "other", "jane@test.cd"))
	assert.NoError(t, users.CheckUsernameUniqueness(ctx, "jdoe", "jane@test.cd", teacher))

	ref := &media.AssetReference{URL: "https://x/y.png", PublicID: "abc123"}
	teacher, err = users.SetUserAvatar(ctx, teacher.ID, ref, now)
	require.NoError(t, err)
	assert.Equal(t, ref, teacher.Avatar)

	found, err := users.FilterUsers(ctx, user.QueryFilter{Search: "JA", Roles: []string{user.RoleTeacher}})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, teacher.ID, found[0].ID)

	cls, err := classes.CreateClass(ctx, class.Class{Name: "Algebra", Subject: "Maths", TeacherID: teacher.ID, Capacity: 30, Status: class.StatusActive, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	cls, err = classes.SetClassBanner(ctx, cls.ID, ref, now)
	require.NoError(t, err)
	assert.Equal(t, ref, cls.Banner)
	cls, err = classes.SetClassBanner(ctx, cls.ID, nil, now)
	require.NoError(t, err)
	assert.Nil(t, cls.Banner)

	_, err = classes.GetClassByID(ctx, cls.ID+1)
	assert.Equal(t, class.ErrNotFound, err)

	require.NoError(t, users.DeleteUsersByID(ctx, teacher.ID))
	_, err = users.GetUserByID(ctx, teacher.ID)
	assert.Equal(t, user.ErrNotFound, err)
	_, err = classes.GetClassByID(ctx, cls.ID)
	assert.Equal(t, class.ErrNotFound, err, "classes are deleted with their teacher")
}
