package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/vishusingh1/classroom/core/class"
	"github.com/vishusingh1/classroom/core/media"
)

type classRepository struct {
	db *classTable
}

var _ class.Repository = (*classRepository)(nil)

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db.class}
}

func copyClass(c class.Class) class.Class {
	if c.Banner != nil {
		banner := *c.Banner
		c.Banner = &banner
	}
	return c
}

func (repo *classRepository) CreateClass(_ context.Context, cls class.Class) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.pk++
	cls.ID = repo.db.pk
	stored := copyClass(cls)
	repo.db.table[cls.ID] = &stored
	return cls, nil
}

func (repo *classRepository) GetClassByID(_ context.Context, id int) (class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cls, ok := repo.db.table[id]; ok {
		return copyClass(*cls), nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) QueryClassesByTeacher(_ context.Context, teacherID int) ([]class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := make([]class.Class, 0)
	for _, cls := range repo.db.table {
		if cls.TeacherID == teacherID {
			classes = append(classes, copyClass(*cls))
		}
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].ID < classes[j].ID })
	return classes, nil
}

func (repo *classRepository) SetClassBanner(_ context.Context, id int, banner *media.AssetReference, updatedAt time.Time) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cls, ok := repo.db.table[id]
	if !ok {
		return class.Class{}, class.ErrNotFound
	}
	cls.Banner = nil
	if banner != nil {
		b := *banner
		cls.Banner = &b
	}
	cls.UpdatedAt = updatedAt
	return copyClass(*cls), nil
}

func (repo *classRepository) DeleteClassesByID(_ context.Context, ids ...int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
