package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-itam/internal/itam/entity"
	"gorm.io/gorm"
)

// AssetRepository 资产仓储
type AssetRepository struct {
	db *gorm.DB
}

// NewAssetRepository 创建资产仓储
func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// FindByID 根据ID查找资产
func (r *AssetRepository) FindByID(ctx context.Context, id string) (*entity.Asset, error) {
	var asset entity.Asset
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &asset, nil
}

// Create 创建资产
func (r *AssetRepository) Create(ctx context.Context, asset *entity.Asset) error {
	return r.db.WithContext(ctx).Create(asset).Error
}

// List 获取资产列表
func (r *AssetRepository) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Asset, int64, error) {
	var assets []entity.Asset
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Asset{})

	if keyword := filters["keyword"]; keyword != "" {
		query = query.Where("name ILIKE ? OR code ILIKE ? OR serial_number ILIKE ?",
			"%"+keyword+"%", "%"+keyword+"%", "%"+keyword+"%")
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if category := filters["category"]; category != "" {
		query = query.Where("category = ?", category)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("code ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&assets).Error
	if err != nil {
		return nil, 0, err
	}

	return assets, total, nil
}

// UpdateStatus 更新资产状态
// 条件更新：资产行必须仍然存在，返回false表示资产已被删除
func (r *AssetRepository) UpdateStatus(ctx context.Context, id, status string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.Asset{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindCandidates 查询可接收部件转移的候选资产
// 条件：同类目、非源资产自身、状态AVAILABLE、且不是其他未终结计划中Transfer项的
// 待定或待重试目标。COMPLETED_WITH_ERRORS的计划允许重试，其FAILED转移项仍占用目标，
// 终结状态只有COMPLETED和CANCELLED
// 按code排序保证同一次查询结果稳定
func (r *AssetRepository) FindCandidates(ctx context.Context, sourceAssetID, category string) ([]entity.Asset, error) {
	var assets []entity.Asset
	err := r.db.WithContext(ctx).
		Where("category = ?", category).
		Where("id != ?", sourceAssetID).
		Where("status = ?", entity.AssetStatusAvailable).
		Where(`NOT EXISTS (
			SELECT 1 FROM decomposition_items di
			JOIN decomposition_plans dp ON dp.id = di.plan_id
			WHERE di.target_asset_id = assets.id
			  AND di.action = ?
			  AND di.execution_status IN ?
			  AND dp.status NOT IN ?
		)`, entity.ItemActionTransfer,
			[]string{entity.ItemStatusPending, entity.ItemStatusFailed},
			[]string{entity.PlanStatusCompleted, entity.PlanStatusCancelled}).
		Order("code ASC").
		Find(&assets).Error
	if err != nil {
		return nil, err
	}
	return assets, nil
}
