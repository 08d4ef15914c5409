package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-itam/internal/itam/entity"
	"gorm.io/gorm"
)

// TransferRepository 转移记录仓储
// 转移记录只追加，不提供更新和删除
type TransferRepository struct {
	db *gorm.DB
}

// NewTransferRepository 创建转移记录仓储
func NewTransferRepository(db *gorm.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// RecordWithReservation 预占转移目标并追加转移记录
// 条件更新仅当目标此刻仍为AVAILABLE时置为TRANSFERRED，返回false表示目标
// 已被并发占用或状态已变化。预占和记录在同一事务内完成：记录写入失败时
// 预占一并回滚，目标保持可用，部件项可重试
func (r *TransferRepository) RecordWithReservation(ctx context.Context, record *entity.TransferRecord) (bool, error) {
	reserved := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entity.Asset{}).
			Where("id = ? AND status = ?", record.TargetAssetID, entity.AssetStatusAvailable).
			Updates(map[string]interface{}{
				"status":     entity.AssetStatusTransferred,
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		reserved = true
		return tx.Create(record).Error
	})
	if err != nil {
		return false, err
	}
	return reserved, nil
}

// ListByPlan 获取计划产生的转移记录
func (r *TransferRepository) ListByPlan(ctx context.Context, planID string) ([]entity.TransferRecord, error) {
	var records []entity.TransferRecord
	err := r.db.WithContext(ctx).
		Where("origin_plan_id = ?", planID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListByAsset 获取资产相关的转移记录（作为来源或目标）
func (r *TransferRepository) ListByAsset(ctx context.Context, assetID string) ([]entity.TransferRecord, error) {
	var records []entity.TransferRecord
	err := r.db.WithContext(ctx).
		Where("source_asset_id = ? OR target_asset_id = ?", assetID, assetID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
