// Package routines implements persistence for user-curated exercise
// sequences.
package routines

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/domain"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/dbctx"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

type RoutineRepo interface {
	Create(dbc dbctx.Context, row *domain.Routine) (*domain.Routine, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*domain.Routine, error)
	List(dbc dbctx.Context, limit, offset int) ([]*domain.Routine, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type routineRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoutineRepo(db *gorm.DB, baseLog *logger.Logger) RoutineRepo {
	return &routineRepo{db: db, log: baseLog.With("repo", "RoutineRepo")}
}

func (r *routineRepo) Create(dbc dbctx.Context, row *domain.Routine) (*domain.Routine, error) {
	t := dbc.DB(r.db)
	if err := t.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *routineRepo) Get(dbc dbctx.Context, id uuid.UUID) (*domain.Routine, error) {
	t := dbc.DB(r.db)
	var row domain.Routine
	err := t.WithContext(dbc.Ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *routineRepo) List(dbc dbctx.Context, limit, offset int) ([]*domain.Routine, error) {
	t := dbc.DB(r.db).WithContext(dbc.Ctx).Order("created_at DESC")
	if limit > 0 {
		t = t.Limit(limit)
	}
	if offset > 0 {
		t = t.Offset(offset)
	}
	var out []*domain.Routine
	if err := t.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *routineRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.DB(r.db)
	return t.WithContext(dbc.Ctx).Unscoped().Where("id = ?", id).Delete(&domain.Routine{}).Error
}
