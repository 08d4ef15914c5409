package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-itam/internal/itam/entity"
	"gorm.io/gorm"
)

// PlanRepository 拆解计划仓储
// 计划与部件项作为一个聚合持久化，部件项按sort_order排序加载
type PlanRepository struct {
	db *gorm.DB
}

// NewPlanRepository 创建拆解计划仓储
func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// FindByID 根据ID查找计划（含部件项）
func (r *PlanRepository) FindByID(ctx context.Context, id string) (*entity.DecompositionPlan, error) {
	var plan entity.DecompositionPlan
	err := r.db.WithContext(ctx).
		Preload("SourceAsset").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, created_at ASC")
		}).
		Preload("Items.TargetAsset").
		Where("id = ?", id).
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// Create 创建计划及其部件项
func (r *PlanRepository) Create(ctx context.Context, plan *entity.DecompositionPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

// Update 更新计划
func (r *PlanRepository) Update(ctx context.Context, plan *entity.DecompositionPlan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

// ReplaceItems 重建计划的部件项（仅编辑期使用，执行开始后部件项不可变）
func (r *PlanRepository) ReplaceItems(ctx context.Context, planID string, items []entity.DecompositionItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plan_id = ?", planID).Delete(&entity.DecompositionItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

// UpdateStatus 更新计划状态
func (r *PlanRepository) UpdateStatus(ctx context.Context, id, status string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if entity.PlanFinalized(status) && status != entity.PlanStatusCancelled {
		updates["completed_at"] = time.Now()
	}
	return r.db.WithContext(ctx).
		Model(&entity.DecompositionPlan{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// TransitionStatus 条件状态迁移
// 仅当计划当前处于fromStatuses之一时迁移到toStatus，返回false表示前置状态不满足
func (r *PlanRepository) TransitionStatus(ctx context.Context, id string, fromStatuses []string, toStatus string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.DecompositionPlan{}).
		Where("id = ? AND status IN ?", id, fromStatuses).
		Updates(map[string]interface{}{
			"status":     toStatus,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkItemApplied 标记部件项执行成功
func (r *PlanRepository) MarkItemApplied(ctx context.Context, itemID string) error {
	return r.db.WithContext(ctx).
		Model(&entity.DecompositionItem{}).
		Where("id = ?", itemID).
		Updates(map[string]interface{}{
			"execution_status": entity.ItemStatusApplied,
			"failure_reason":   nil,
			"updated_at":       time.Now(),
		}).Error
}

// MarkItemFailed 标记部件项执行失败并记录原因
func (r *PlanRepository) MarkItemFailed(ctx context.Context, itemID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&entity.DecompositionItem{}).
		Where("id = ?", itemID).
		Updates(map[string]interface{}{
			"execution_status": entity.ItemStatusFailed,
			"failure_reason":   reason,
			"updated_at":       time.Now(),
		}).Error
}

// CountItemsByStatus 统计计划内各执行状态的部件项数量
func (r *PlanRepository) CountItemsByStatus(ctx context.Context, planID string) (map[string]int64, error) {
	type row struct {
		ExecutionStatus string
		Count           int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&entity.DecompositionItem{}).
		Select("execution_status, COUNT(*) as count").
		Where("plan_id = ?", planID).
		Group("execution_status").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.ExecutionStatus] = r.Count
	}
	return counts, nil
}

// HasAppliedItems 计划是否存在已执行成功的部件项
func (r *PlanRepository) HasAppliedItems(ctx context.Context, planID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.DecompositionItem{}).
		Where("plan_id = ? AND execution_status = ?", planID, entity.ItemStatusApplied).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Delete 删除计划及其部件项
func (r *PlanRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plan_id = ?", id).Delete(&entity.DecompositionItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.DecompositionPlan{}, "id = ?", id).Error
	})
}

// List 获取计划列表
func (r *PlanRepository) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.DecompositionPlan, int64, error) {
	var plans []entity.DecompositionPlan
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.DecompositionPlan{})

	if keyword := filters["keyword"]; keyword != "" {
		query = query.Where("title ILIKE ? OR code ILIKE ?", "%"+keyword+"%", "%"+keyword+"%")
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if sourceAssetID := filters["source_asset_id"]; sourceAssetID != "" {
		query = query.Where("source_asset_id = ?", sourceAssetID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("SourceAsset").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, created_at ASC")
		}).
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&plans).Error
	if err != nil {
		return nil, 0, err
	}

	return plans, total, nil
}

// GenerateCode 生成计划编码
func (r *PlanRepository) GenerateCode(ctx context.Context) (string, error) {
	var seq int
	err := r.db.WithContext(ctx).Raw("SELECT nextval('decomposition_code_seq')").Scan(&seq).Error
	if err != nil {
		return "", err
	}
	year := time.Now().Year()
	return fmt.Sprintf("DCP-%d-%04d", year, seq), nil
}
