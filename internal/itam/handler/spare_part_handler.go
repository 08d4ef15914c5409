package handler

import (
	"github.com/bitfantasy/nimo-itam/internal/itam/service"
	"github.com/gin-gonic/gin"
)

// SparePartHandler 备件库存处理器
type SparePartHandler struct {
	svc *service.SparePartService
}

// NewSparePartHandler 创建备件库存处理器
func NewSparePartHandler(svc *service.SparePartService) *SparePartHandler {
	return &SparePartHandler{svc: svc}
}

// List 获取备件列表
// GET /api/v1/spare-parts?search=&category=&provenance_asset_id=&page=&limit=
func (h *SparePartHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"keyword":             c.Query("search"),
		"category":            c.Query("category"),
		"provenance_asset_id": c.Query("provenance_asset_id"),
	}
	result, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, result)
}

// Get 获取备件详情
// GET /api/v1/spare-parts/:id
func (h *SparePartHandler) Get(c *gin.Context) {
	part, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, part)
}

// ListTransactions 获取备件出入库流水
// GET /api/v1/spare-parts/:id/transactions
func (h *SparePartHandler) ListTransactions(c *gin.Context) {
	page, pageSize := GetPagination(c)
	txs, total, err := h.svc.ListTransactions(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"items":     txs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
