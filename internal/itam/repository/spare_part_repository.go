package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-itam/internal/itam/entity"
	"gorm.io/gorm"
)

// SparePartRepository 备件库存仓储
type SparePartRepository struct {
	db *gorm.DB
}

// NewSparePartRepository 创建备件库存仓储
func NewSparePartRepository(db *gorm.DB) *SparePartRepository {
	return &SparePartRepository{db: db}
}

// FindByID 根据ID查找备件
func (r *SparePartRepository) FindByID(ctx context.Context, id string) (*entity.SparePart, error) {
	var part entity.SparePart
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&part).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &part, nil
}

// FindByPartNumber 根据件号查找备件
func (r *SparePartRepository) FindByPartNumber(ctx context.Context, partNumber string) (*entity.SparePart, error) {
	var part entity.SparePart
	err := r.db.WithContext(ctx).
		Where("part_number = ?", partNumber).
		First(&part).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &part, nil
}

// Inbound 备件入库
// 同一事务内完成库存累加（或新建库存行）和流水追加，保证两者恰好各发生一次
func (r *SparePartRepository) Inbound(ctx context.Context, part *entity.SparePart, tx *entity.SparePartTransaction) error {
	return r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		var existing entity.SparePart
		err := dbtx.Where("part_number = ?", part.PartNumber).First(&existing).Error
		switch {
		case err == nil:
			now := time.Now()
			if err := dbtx.Model(&entity.SparePart{}).
				Where("id = ?", existing.ID).
				Updates(map[string]interface{}{
					"quantity":      gorm.Expr("quantity + ?", tx.Quantity),
					"condition":     part.Condition,
					"last_moved_at": now,
					"updated_at":    now,
				}).Error; err != nil {
				return err
			}
			tx.SparePartID = existing.ID
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := dbtx.Create(part).Error; err != nil {
				return err
			}
			tx.SparePartID = part.ID
		default:
			return err
		}
		return dbtx.Create(tx).Error
	})
}

// List 获取备件列表
func (r *SparePartRepository) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.SparePart, int64, error) {
	var parts []entity.SparePart
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.SparePart{})

	if keyword := filters["keyword"]; keyword != "" {
		query = query.Where("name ILIKE ? OR part_number ILIKE ?", "%"+keyword+"%", "%"+keyword+"%")
	}
	if category := filters["category"]; category != "" {
		query = query.Where("category = ?", category)
	}
	if provenanceID := filters["provenance_asset_id"]; provenanceID != "" {
		query = query.Where("provenance_asset_id = ?", provenanceID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("part_number ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&parts).Error
	if err != nil {
		return nil, 0, err
	}

	return parts, total, nil
}

// ListTransactions 获取备件流水
func (r *SparePartRepository) ListTransactions(ctx context.Context, sparePartID string, page, pageSize int) ([]entity.SparePartTransaction, int64, error) {
	var txs []entity.SparePartTransaction
	var total int64

	query := r.db.WithContext(ctx).
		Model(&entity.SparePartTransaction{}).
		Where("spare_part_id = ?", sparePartID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&txs).Error
	if err != nil {
		return nil, 0, err
	}

	return txs, total, nil
}
