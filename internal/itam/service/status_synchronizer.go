package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/nimo-itam/internal/itam/entity"
	"github.com/bitfantasy/nimo-itam/internal/itam/repository"
)

// StatusSynchronizer 源资产状态同步器
// 计划到达终态后对源资产状态做单次写入，是源资产状态的唯一写入方
type StatusSynchronizer struct {
	assetRepo *repository.AssetRepository
}

// NewStatusSynchronizer 创建状态同步器
func NewStatusSynchronizer(assetRepo *repository.AssetRepository) *StatusSynchronizer {
	return &StatusSynchronizer{assetRepo: assetRepo}
}

// Finalize 将postStatus写回源资产
// 资产行已不存在（被并发删除）按Conflict返回；
// 该失败只向调用方报告，不回滚已执行成功的部件项
func (s *StatusSynchronizer) Finalize(ctx context.Context, plan *entity.DecompositionPlan, postStatus string) error {
	ok, err := s.assetRepo.UpdateStatus(ctx, plan.SourceAssetID, postStatus)
	if err != nil {
		return fmt.Errorf("sync source asset status: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: source asset %s no longer exists", ErrConflict, plan.SourceAssetID)
	}
	return nil
}
