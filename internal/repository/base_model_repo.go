package repository

import (
	"context"
	"errors"

	"github.com/wowjjang83/ai-style-synthesis/internal/models"

	"gorm.io/gorm"
)

var ErrBaseModelNotFound = errors.New("base model not found")

// BaseModelPatch lists the fields of an update; nil means "leave unchanged".
// An empty Prompt clears it.
type BaseModelPatch struct {
	Name     *string
	ImageURL *string
	Prompt   *string
	IsActive *bool
}

func (p BaseModelPatch) Empty() bool {
	return p.Name == nil && p.ImageURL == nil && p.Prompt == nil && p.IsActive == nil
}

type BaseModelRepository struct {
	db *gorm.DB
}

func NewBaseModelRepository(db *gorm.DB) *BaseModelRepository {
	return &BaseModelRepository{db: db}
}

// GetActive returns the active row. If several rows are flagged active the
// highest id wins.
func (r *BaseModelRepository) GetActive(ctx context.Context) (*models.BaseModel, error) {
	var m models.BaseModel
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("id DESC").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBaseModelNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *BaseModelRepository) GetByID(ctx context.Context, id uint) (*models.BaseModel, error) {
	return getBaseModel(r.db.WithContext(ctx), id)
}

func (r *BaseModelRepository) List(ctx context.Context) ([]models.BaseModel, error) {
	var list []models.BaseModel
	err := r.db.WithContext(ctx).Order("id ASC").Find(&list).Error
	return list, err
}

// Create inserts m. When m.IsActive is set, every other row is deactivated in
// the same transaction.
func (r *BaseModelRepository) Create(ctx context.Context, m *models.BaseModel) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if m.IsActive {
			if err := deactivateAll(tx); err != nil {
				return err
			}
		}
		return tx.Create(m).Error
	})
}

// Activate flags id as the only active row.
func (r *BaseModelRepository) Activate(ctx context.Context, id uint) (*models.BaseModel, error) {
	var out *models.BaseModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := getBaseModel(tx, id)
		if err != nil {
			return err
		}
		if err := deactivateOthers(tx, id); err != nil {
			return err
		}
		if err := tx.Model(m).Update("is_active", true).Error; err != nil {
			return err
		}
		m.IsActive = true
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies only the supplied fields of p. Setting IsActive to true
// deactivates every other row in the same transaction.
func (r *BaseModelRepository) Update(ctx context.Context, id uint, p BaseModelPatch) (*models.BaseModel, error) {
	var out *models.BaseModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := getBaseModel(tx, id)
		if err != nil {
			return err
		}
		if p.Empty() {
			out = m
			return nil
		}
		fields := map[string]interface{}{}
		if p.Name != nil {
			fields["name"] = *p.Name
		}
		if p.ImageURL != nil {
			fields["image_url"] = *p.ImageURL
		}
		if p.Prompt != nil {
			if *p.Prompt == "" {
				fields["prompt"] = nil
			} else {
				fields["prompt"] = *p.Prompt
			}
		}
		if p.IsActive != nil {
			if *p.IsActive {
				if err := deactivateOthers(tx, id); err != nil {
					return err
				}
			}
			fields["is_active"] = *p.IsActive
		}
		if err := tx.Model(m).Updates(fields).Error; err != nil {
			return err
		}
		out, err = getBaseModel(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete reports whether a row was removed.
func (r *BaseModelRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.BaseModel{}, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func getBaseModel(db *gorm.DB, id uint) (*models.BaseModel, error) {
	var m models.BaseModel
	err := db.First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBaseModelNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// deactivateOthers touches every other row, not only the active ones, so a
// concurrent activation blocks on the same row locks.
func deactivateOthers(tx *gorm.DB, keep uint) error {
	return tx.Model(&models.BaseModel{}).Where("id <> ?", keep).Update("is_active", false).Error
}

func deactivateAll(tx *gorm.DB) error {
	return tx.Model(&models.BaseModel{}).Where("1 = 1").Update("is_active", false).Error
}
