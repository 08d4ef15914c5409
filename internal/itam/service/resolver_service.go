package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/nimo-itam/internal/itam/entity"
	"github.com/bitfantasy/nimo-itam/internal/itam/repository"
)

// ResolverService 兼容目标解析服务
// 给定源资产，找出可接收其部件转移的候选资产
type ResolverService struct {
	assetRepo *repository.AssetRepository
}

// NewResolverService 创建兼容目标解析服务
func NewResolverService(assetRepo *repository.AssetRepository) *ResolverService {
	return &ResolverService{assetRepo: assetRepo}
}

// ResolveCandidates 解析候选转移目标
// 候选条件：类目与源资产一致、非源资产自身、状态AVAILABLE、
// 且未被其他未终结计划的Transfer项预定，避免一个目标被两个计划同时占用
func (s *ResolverService) ResolveCandidates(ctx context.Context, sourceAssetID string) ([]entity.Asset, error) {
	source, err := s.assetRepo.FindByID(ctx, sourceAssetID)
	if err != nil {
		return nil, fmt.Errorf("source asset: %w", err)
	}
	candidates, err := s.assetRepo.FindCandidates(ctx, source.ID, source.Category)
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}
	return candidates, nil
}
