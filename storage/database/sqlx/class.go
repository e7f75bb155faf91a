package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/vishusingh1/classroom/core/class"
	"github.com/vishusingh1/classroom/core/media"
)

const classColumns = "id, name, subject, description, teacher_id, capacity, status, banner_url, banner_public_id, created_at, updated_at"

type classRow struct {
	ID             int         `db:"id"`
	Name           string      `db:"name"`
	Subject        string      `db:"subject"`
	Description    string      `db:"description"`
	TeacherID      int         `db:"teacher_id"`
	Capacity       int         `db:"capacity"`
	Status         string      `db:"status"`
	BannerURL      null.String `db:"banner_url"`
	BannerPublicID null.String `db:"banner_public_id"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func (r classRow) toClass() class.Class {
	return class.Class{
		ID:          r.ID,
		Name:        r.Name,
		Subject:     r.Subject,
		Description: r.Description,
		TeacherID:   r.TeacherID,
		Capacity:    r.Capacity,
		Status:      r.Status,
		Banner:      assetFromColumns(r.BannerURL, r.BannerPublicID),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type classRepository struct {
	db *sqlx.DB
}

var _ class.Repository = (*classRepository)(nil)

func NewClassRepository(db *sqlx.DB) class.Repository {
	return &classRepository{db: db}
}

func scanClass(row *sqlx.Row) (class.Class, error) {
	var r classRow
	if err := row.StructScan(&r); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return class.Class{}, class.ErrNotFound
		}
		return class.Class{}, errors.Wrap(err, "scanning class")
	}
	return r.toClass(), nil
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	bannerURL, bannerID := assetColumns(cls.Banner)
	return scanClass(repo.db.QueryRowxContext(ctx,
		`INSERT INTO classes (name, subject, description, teacher_id, capacity, status, banner_url, banner_public_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING `+classColumns,
		cls.Name, cls.Subject, cls.Description, cls.TeacherID, cls.Capacity, cls.Status, bannerURL, bannerID, cls.CreatedAt, cls.UpdatedAt,
	))
}

func (repo *classRepository) GetClassByID(ctx context.Context, id int) (class.Class, error) {
	return scanClass(repo.db.QueryRowxContext(ctx, "SELECT "+classColumns+" FROM classes WHERE id = $1", id))
}

func (repo *classRepository) QueryClassesByTeacher(ctx context.Context, teacherID int) ([]class.Class, error) {
	var rows []classRow
	err := repo.db.SelectContext(ctx, &rows, "SELECT "+classColumns+" FROM classes WHERE teacher_id = $1 ORDER BY id", teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting classes")
	}
	classes := make([]class.Class, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, r.toClass())
	}
	return classes, nil
}

func (repo *classRepository) SetClassBanner(ctx context.Context, id int, banner *media.AssetReference, updatedAt time.Time) (class.Class, error) {
	bannerURL, bannerID := assetColumns(banner)
	return scanClass(repo.db.QueryRowxContext(ctx,
		"UPDATE classes SET banner_url = $2, banner_public_id = $3, updated_at = $4 WHERE id = $1 RETURNING "+classColumns,
		id, bannerURL, bannerID, updatedAt,
	))
}

func (repo *classRepository) DeleteClassesByID(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM classes WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	_, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	return errors.Wrap(err, "deleting classes")
}
