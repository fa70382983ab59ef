// Package exercises implements the Exercise Store against Postgres via GORM.
package exercises

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/domain"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/dbctx"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

// DuplicateError reports a fingerprint uniqueness conflict on Insert.
type DuplicateError struct {
	Fingerprint domain.Fingerprint
}

func (e *DuplicateError) Error() string {
	return "exercise already exists for fingerprint " +
		e.Fingerprint.NormalizedURL + "/" + e.Fingerprint.Name
}

type ExerciseRepo interface {
	Insert(dbc dbctx.Context, row *domain.Exercise) (*domain.Exercise, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*domain.Exercise, error)
	GetMany(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Exercise, error)
	List(dbc dbctx.Context, filter domain.ExerciseFilter) ([]*domain.Exercise, error)
	SearchByURL(dbc dbctx.Context, normalizedURL string) ([]*domain.Exercise, error)
	FindByFingerprint(dbc dbctx.Context, fp domain.Fingerprint) (*domain.Exercise, error)
	SetVectorID(dbc dbctx.Context, id uuid.UUID, vectorID uuid.UUID) error
	Delete(dbc dbctx.Context, id uuid.UUID) (*domain.Exercise, error)
}

type exerciseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExerciseRepo(db *gorm.DB, baseLog *logger.Logger) ExerciseRepo {
	return &exerciseRepo{db: db, log: baseLog.With("repo", "ExerciseRepo")}
}

func (r *exerciseRepo) Insert(dbc dbctx.Context, row *domain.Exercise) (*domain.Exercise, error) {
	t := dbc.DB(r.db)
	if existing, err := r.findByFingerprint(t, dbc, domain.Fingerprint{
		NormalizedURL: row.NormalizedURL,
		CarouselIndex: row.CarouselIndex,
		Name:          row.Name,
	}); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, &DuplicateError{Fingerprint: domain.Fingerprint{
			NormalizedURL: row.NormalizedURL,
			CarouselIndex: row.CarouselIndex,
			Name:          row.Name,
		}}
	}

	if err := t.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &DuplicateError{Fingerprint: domain.Fingerprint{
				NormalizedURL: row.NormalizedURL,
				CarouselIndex: row.CarouselIndex,
				Name:          row.Name,
			}}
		}
		return nil, err
	}
	return row, nil
}

func (r *exerciseRepo) findByFingerprint(t *gorm.DB, dbc dbctx.Context, fp domain.Fingerprint) (*domain.Exercise, error) {
	var row domain.Exercise
	err := t.WithContext(dbc.Ctx).
		Where("normalized_url = ? AND carousel_index = ? AND name = ?", fp.NormalizedURL, fp.CarouselIndex, fp.Name).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *exerciseRepo) FindByFingerprint(dbc dbctx.Context, fp domain.Fingerprint) (*domain.Exercise, error) {
	return r.findByFingerprint(dbc.DB(r.db), dbc, fp)
}

func (r *exerciseRepo) Get(dbc dbctx.Context, id uuid.UUID) (*domain.Exercise, error) {
	rows, err := r.GetMany(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *exerciseRepo) GetMany(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Exercise, error) {
	t := dbc.DB(r.db)
	var out []*domain.Exercise
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return reorderByIDs(out, ids), nil
}

func (r *exerciseRepo) List(dbc dbctx.Context, filter domain.ExerciseFilter) ([]*domain.Exercise, error) {
	t := dbc.DB(r.db).WithContext(dbc.Ctx).Model(&domain.Exercise{})

	if filter.FitnessLevelMin != nil {
		t = t.Where("fitness_level >= ?", *filter.FitnessLevelMin)
	}
	if filter.FitnessLevelMax != nil {
		t = t.Where("fitness_level <= ?", *filter.FitnessLevelMax)
	}
	if filter.IntensityMin != nil {
		t = t.Where("intensity >= ?", *filter.IntensityMin)
	}
	if filter.IntensityMax != nil {
		t = t.Where("intensity <= ?", *filter.IntensityMax)
	}
	if filter.NameContains != "" {
		t = t.Where("name ILIKE ?", "%"+escapeLike(filter.NameContains)+"%")
	}
	if filter.CreatedAfter != nil {
		t = t.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		t = t.Where("created_at <= ?", *filter.CreatedBefore)
	}

	t = t.Order("created_at DESC")
	if filter.Limit > 0 {
		t = t.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		t = t.Offset(filter.Offset)
	}

	var out []*domain.Exercise
	if err := t.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *exerciseRepo) SearchByURL(dbc dbctx.Context, normalizedURL string) ([]*domain.Exercise, error) {
	t := dbc.DB(r.db)
	var out []*domain.Exercise
	if err := t.WithContext(dbc.Ctx).
		Where("normalized_url = ?", normalizedURL).
		Order("carousel_index ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *exerciseRepo) SetVectorID(dbc dbctx.Context, id uuid.UUID, vectorID uuid.UUID) error {
	t := dbc.DB(r.db)
	return t.WithContext(dbc.Ctx).
		Model(&domain.Exercise{}).
		Where("id = ?", id).
		Update("vector_id", vectorID).Error
}

func (r *exerciseRepo) Delete(dbc dbctx.Context, id uuid.UUID) (*domain.Exercise, error) {
	t := dbc.DB(r.db)
	row, err := r.Get(dbctx.Context{Ctx: dbc.Ctx, Tx: t}, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	if err := t.WithContext(dbc.Ctx).Unscoped().Where("id = ?", id).Delete(&domain.Exercise{}).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// reorderByIDs restores the input id order GetMany/bulk_get_exercises must
// preserve; GORM's IN-clause result order is not guaranteed.
func reorderByIDs(rows []*domain.Exercise, ids []uuid.UUID) []*domain.Exercise {
	byID := make(map[uuid.UUID]*domain.Exercise, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]*domain.Exercise, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row)
		}
	}
	return out
}

// escapeLike escapes the wildcard characters of SQL LIKE/ILIKE so a
// user-supplied substring cannot act as a pattern.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}
