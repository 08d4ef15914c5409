package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/nimo-itam/internal/itam/entity"
	"github.com/bitfantasy/nimo-itam/internal/itam/repository"
)

// SparePartService 备件库存查询服务
// 入库由执行引擎的STORE处理器完成，这里只提供读取面
type SparePartService struct {
	repo *repository.SparePartRepository
}

// NewSparePartService 创建备件库存查询服务
func NewSparePartService(repo *repository.SparePartRepository) *SparePartService {
	return &SparePartService{repo: repo}
}

// SparePartListResult 备件列表结果
type SparePartListResult struct {
	Items      []entity.SparePart `json:"items"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}

// List 获取备件列表
func (s *SparePartService) List(ctx context.Context, page, pageSize int, filters map[string]string) (*SparePartListResult, error) {
	parts, total, err := s.repo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("list spare parts: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &SparePartListResult{
		Items:      parts,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Get 获取备件详情
func (s *SparePartService) Get(ctx context.Context, id string) (*entity.SparePart, error) {
	return s.repo.FindByID(ctx, id)
}

// ListTransactions 获取备件流水
func (s *SparePartService) ListTransactions(ctx context.Context, sparePartID string, page, pageSize int) ([]entity.SparePartTransaction, int64, error) {
	if _, err := s.repo.FindByID(ctx, sparePartID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListTransactions(ctx, sparePartID, page, pageSize)
}
