package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/vishusingh1/classroom/core/media"
	"github.com/vishusingh1/classroom/core/user"
)

const userColumns = "id, name, username, email, is_active, roles, avatar_url, avatar_public_id, created_at, updated_at"

type userRow struct {
	ID             int            `db:"id"`
	Name           string         `db:"name"`
	Username       string         `db:"username"`
	Email          string         `db:"email"`
	IsActive       bool           `db:"is_active"`
	Roles          pq.StringArray `db:"roles"`
	AvatarURL      null.String    `db:"avatar_url"`
	AvatarPublicID null.String    `db:"avatar_public_id"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r userRow) toUser() user.User {
	usr := user.User{
		ID:        r.ID,
		Name:      r.Name,
		Username:  r.Username,
		Email:     r.Email,
		IsActive:  r.IsActive,
		Roles:     []string(r.Roles),
		Avatar:    assetFromColumns(r.AvatarURL, r.AvatarPublicID),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	return usr
}

// assetFromColumns maps a nullable (url, public_id) column pair to an asset reference.
func assetFromColumns(url, publicID null.String) *media.AssetReference {
	if !url.Valid || url.String == "" {
		return nil
	}
	return &media.AssetReference{URL: url.String, PublicID: publicID.String}
}

// assetColumns is the reverse of assetFromColumns.
func assetColumns(ref *media.AssetReference) (null.String, null.String) {
	if ref == nil {
		return null.String{}, null.String{}
	}
	return null.StringFrom(ref.URL), null.StringFrom(ref.PublicID)
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	excluded := make([]int64, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded = append(excluded, int64(u.ID))
	}

	var rows []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT username, email FROM users WHERE (username = $1 OR ($2 <> '' AND email = $2)) AND NOT (id = ANY($3))`,
		username, email, pq.Int64Array(excluded),
	)
	if err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	for _, r := range rows {
		if r.Username == username {
			return user.ErrUsernameExists
		}
	}
	if len(rows) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	avatarURL, avatarID := assetColumns(usr.Avatar)
	roles := pq.StringArray(usr.Roles)
	if roles == nil {
		roles = pq.StringArray{}
	}
	row := repo.db.QueryRowxContext(ctx,
		`INSERT INTO users (name, username, email, is_active, roles, avatar_url, avatar_public_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING `+userColumns,
		usr.Name, usr.Username, usr.Email, usr.IsActive, roles, avatarURL, avatarID, usr.CreatedAt, usr.UpdatedAt,
	)
	return scanUser(row)
}

func scanUser(row *sqlx.Row) (user.User, error) {
	var r userRow
	if err := row.StructScan(&r); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "scanning user")
	}
	return r.toUser(), nil
}

func (repo *userRepository) selectUsers(ctx context.Context, where string, args ...interface{}) ([]user.User, error) {
	q := "SELECT " + userColumns + " FROM users"
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY id"

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	return repo.selectUsers(ctx, "")
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	return scanUser(repo.db.QueryRowxContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	conds := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conds = append(conds, "(LOWER(name) LIKE $1 OR LOWER(username) LIKE $1 OR LOWER(email) LIKE $1)")
	}
	if len(filter.Roles) > 0 {
		args = append(args, pq.StringArray(filter.Roles))
		conds = append(conds, "roles && $"+strconv.Itoa(len(args)))
	}
	return repo.selectUsers(ctx, strings.Join(conds, " AND "), args...)
}

func (repo *userRepository) SetUserAvatar(ctx context.Context, id int, avatar *media.AssetReference, updatedAt time.Time) (user.User, error) {
	avatarURL, avatarID := assetColumns(avatar)
	return scanUser(repo.db.QueryRowxContext(ctx,
		"UPDATE users SET avatar_url = $2, avatar_public_id = $3, updated_at = $4 WHERE id = $1 RETURNING "+userColumns,
		id, avatarURL, avatarID, updatedAt,
	))
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM users WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	_, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	return errors.Wrap(err, "deleting users")
}
