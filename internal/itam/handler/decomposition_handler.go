package handler

import (
	"github.com/bitfantasy/nimo-itam/internal/itam/service"
	"github.com/gin-gonic/gin"
)

// DecompositionHandler 拆解计划处理器
type DecompositionHandler struct {
	planSvc     *service.PlanService
	resolverSvc *service.ResolverService
	execSvc     *service.ExecutionService
}

// NewDecompositionHandler 创建拆解计划处理器
func NewDecompositionHandler(planSvc *service.PlanService, resolverSvc *service.ResolverService, execSvc *service.ExecutionService) *DecompositionHandler {
	return &DecompositionHandler{
		planSvc:     planSvc,
		resolverSvc: resolverSvc,
		execSvc:     execSvc,
	}
}

// List 获取拆解计划列表
// GET /api/v1/decompositions?search=&status=&source_asset_id=&page=&limit=
func (h *DecompositionHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"keyword":         c.Query("search"),
		"status":          c.Query("status"),
		"source_asset_id": c.Query("source_asset_id"),
	}
	result, err := h.planSvc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, result)
}

// Get 获取拆解计划详情（含部件项）
// GET /api/v1/decompositions/:id
func (h *DecompositionHandler) Get(c *gin.Context) {
	plan, err := h.planSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, plan)
}

// Create 创建拆解计划
// POST /api/v1/decompositions
func (h *DecompositionHandler) Create(c *gin.Context) {
	var req service.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	plan, err := h.planSvc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, plan)
}

// Update 更新拆解计划（仅PENDING/APPROVED）
// PUT /api/v1/decompositions/:id
func (h *DecompositionHandler) Update(c *gin.Context) {
	var req service.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	plan, err := h.planSvc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, plan)
}

// Delete 删除拆解计划
// DELETE /api/v1/decompositions/:id — 已执行的计划返回409
func (h *DecompositionHandler) Delete(c *gin.Context) {
	if err := h.planSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"deleted": true})
}

// Approve 审批通过拆解计划
// POST /api/v1/decompositions/:id/approve
func (h *DecompositionHandler) Approve(c *gin.Context) {
	plan, err := h.planSvc.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, plan)
}

// Cancel 取消拆解计划
// POST /api/v1/decompositions/:id/cancel
func (h *DecompositionHandler) Cancel(c *gin.Context) {
	plan, err := h.planSvc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, plan)
}

// ExecuteRequest 执行请求体
type ExecuteRequest struct {
	PostStatus string `json:"post_status"`
}

// Execute 执行拆解计划
// POST /api/v1/decompositions/:id/execute
// 部件项级失败不算请求失败，始终返回200和逐项结果；
// 计划级冲突（执行在途/已终结/未审批）返回409
func (h *DecompositionHandler) Execute(c *gin.Context) {
	var req ExecuteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}
	result, err := h.execSvc.Execute(c.Request.Context(), c.Param("id"), req.PostStatus)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, result)
}

// CompatibleAssets 获取兼容的转移目标候选
// GET /api/v1/decompositions/compatible-assets?source_asset_id=
func (h *DecompositionHandler) CompatibleAssets(c *gin.Context) {
	sourceAssetID := c.Query("source_asset_id")
	if sourceAssetID == "" {
		BadRequest(c, "source_asset_id is required")
		return
	}
	assets, err := h.resolverSvc.ResolveCandidates(c.Request.Context(), sourceAssetID)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"items": assets})
}
