package handler

import (
	"github.com/bitfantasy/nimo-itam/internal/itam/repository"
	"github.com/gin-gonic/gin"
)

// AssetHandler 资产目录只读处理器
// 资产的主数据管理在外部资产目录服务，这里只暴露拆解工作台需要的读取面
type AssetHandler struct {
	assetRepo    *repository.AssetRepository
	transferRepo *repository.TransferRepository
}

// NewAssetHandler 创建资产处理器
func NewAssetHandler(assetRepo *repository.AssetRepository, transferRepo *repository.TransferRepository) *AssetHandler {
	return &AssetHandler{
		assetRepo:    assetRepo,
		transferRepo: transferRepo,
	}
}

// List 获取资产列表
// GET /api/v1/assets?search=&status=&category=&page=&limit=
func (h *AssetHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"keyword":  c.Query("search"),
		"status":   c.Query("status"),
		"category": c.Query("category"),
	}
	assets, total, err := h.assetRepo.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"items":     assets,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Get 获取资产详情
// GET /api/v1/assets/:id
func (h *AssetHandler) Get(c *gin.Context) {
	asset, err := h.assetRepo.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, asset)
}

// ListTransfers 获取资产的部件转移记录
// GET /api/v1/assets/:id/transfers
func (h *AssetHandler) ListTransfers(c *gin.Context) {
	if _, err := h.assetRepo.FindByID(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	records, err := h.transferRepo.ListByAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"items": records})
}
