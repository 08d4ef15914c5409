package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-itam/internal/itam/entity"
	"github.com/bitfantasy/nimo-itam/internal/itam/repository"
	"github.com/google/uuid"
)

// PlanService 拆解计划服务
// 负责计划的编辑期生命周期：创建、修改、审批、取消、删除
// 执行期的状态写入全部归ExecutionService
type PlanService struct {
	planRepo  *repository.PlanRepository
	assetRepo *repository.AssetRepository
}

// NewPlanService 创建拆解计划服务
func NewPlanService(planRepo *repository.PlanRepository, assetRepo *repository.AssetRepository) *PlanService {
	return &PlanService{
		planRepo:  planRepo,
		assetRepo: assetRepo,
	}
}

// PlanItemInput 部件项输入
type PlanItemInput struct {
	Name             string                 `json:"name" binding:"required"`
	Details          map[string]interface{} `json:"details"`
	Quantity         int                    `json:"quantity"` // 缺省(0)按1处理，负数拒绝
	Condition        string                 `json:"condition"`
	Category         string                 `json:"category"`
	Action           string                 `json:"action" binding:"required"`
	TargetAssetID    *string                `json:"target_asset_id"`
	TargetLocationID *string                `json:"target_location_id"`
	Notes            string                 `json:"notes"`
}

// CreatePlanRequest 创建拆解计划请求
type CreatePlanRequest struct {
	SourceAssetID string          `json:"source_asset_id" binding:"required"`
	TargetAssetID *string         `json:"target_asset_id"`
	Title         string          `json:"title" binding:"required"`
	Description   string          `json:"description"`
	PlannedDate   *time.Time      `json:"planned_date"`
	Notes         string          `json:"notes"`
	Items         []PlanItemInput `json:"items" binding:"required,min=1"`
}

// UpdatePlanRequest 更新拆解计划请求
type UpdatePlanRequest struct {
	TargetAssetID *string         `json:"target_asset_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	PlannedDate   *time.Time      `json:"planned_date"`
	Notes         string          `json:"notes"`
	Items         []PlanItemInput `json:"items"`
}

// PlanListResult 计划列表结果
type PlanListResult struct {
	Items      []entity.DecompositionPlan `json:"items"`
	Total      int64                      `json:"total"`
	Page       int                        `json:"page"`
	PageSize   int                        `json:"page_size"`
	TotalPages int                        `json:"total_pages"`
}

// validateItems 校验部件项输入
// TRANSFER项必须有目标资产（逐项指定或计划级单目标简写）
func validateItems(items []PlanItemInput, planTarget *string) error {
	for i, item := range items {
		if !entity.ValidItemAction(item.Action) {
			return fmt.Errorf("%w: item %d has unknown action %q", ErrValidation, i, item.Action)
		}
		if item.Quantity < 0 {
			return fmt.Errorf("%w: item %d quantity cannot be negative", ErrValidation, i)
		}
		if item.Action == entity.ItemActionTransfer && item.TargetAssetID == nil && planTarget == nil {
			return fmt.Errorf("%w: transfer item %d requires target_asset_id", ErrValidation, i)
		}
	}
	return nil
}

// buildItems 构建部件项实体，sort_order取输入顺序
func buildItems(planID string, inputs []PlanItemInput, now time.Time) []entity.DecompositionItem {
	items := make([]entity.DecompositionItem, 0, len(inputs))
	for i, in := range inputs {
		quantity := in.Quantity
		if quantity == 0 {
			quantity = 1
		}
		items = append(items, entity.DecompositionItem{
			ID:               uuid.New().String()[:32],
			PlanID:           planID,
			ComponentName:    in.Name,
			ComponentDetails: entity.JSONB(in.Details),
			Quantity:         quantity,
			Condition:        in.Condition,
			Category:         in.Category,
			Action:           in.Action,
			TargetAssetID:    in.TargetAssetID,
			TargetLocationID: in.TargetLocationID,
			Notes:            in.Notes,
			ExecutionStatus:  entity.ItemStatusPending,
			SortOrder:        i,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	return items
}

// Create 创建拆解计划
func (s *PlanService) Create(ctx context.Context, userID string, req *CreatePlanRequest) (*entity.DecompositionPlan, error) {
	// 源资产必须存在
	if _, err := s.assetRepo.FindByID(ctx, req.SourceAssetID); err != nil {
		return nil, fmt.Errorf("source asset: %w", err)
	}
	if req.TargetAssetID != nil {
		if _, err := s.assetRepo.FindByID(ctx, *req.TargetAssetID); err != nil {
			return nil, fmt.Errorf("target asset: %w", err)
		}
	}
	if err := validateItems(req.Items, req.TargetAssetID); err != nil {
		return nil, err
	}

	code, err := s.planRepo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	now := time.Now()
	plan := &entity.DecompositionPlan{
		ID:            uuid.New().String()[:32],
		Code:          code,
		SourceAssetID: req.SourceAssetID,
		TargetAssetID: req.TargetAssetID,
		Title:         req.Title,
		Description:   req.Description,
		Status:        entity.PlanStatusPending,
		PlannedDate:   req.PlannedDate,
		Notes:         req.Notes,
		PerformedBy:   userID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	plan.Items = buildItems(plan.ID, req.Items, now)

	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	return plan, nil
}

// Get 获取计划详情
func (s *PlanService) Get(ctx context.Context, id string) (*entity.DecompositionPlan, error) {
	return s.planRepo.FindByID(ctx, id)
}

// List 获取计划列表
func (s *PlanService) List(ctx context.Context, page, pageSize int, filters map[string]string) (*PlanListResult, error) {
	plans, total, err := s.planRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &PlanListResult{
		Items:      plans,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Update 更新拆解计划
// 仅PENDING/APPROVED状态可编辑，执行开始后计划与部件项只读
func (s *PlanService) Update(ctx context.Context, id string, req *UpdatePlanRequest) (*entity.DecompositionPlan, error) {
	plan, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.Status != entity.PlanStatusPending && plan.Status != entity.PlanStatusApproved {
		return nil, fmt.Errorf("%w: plan %s is %s and can no longer be edited", ErrConflict, plan.Code, plan.Status)
	}

	if req.Title != "" {
		plan.Title = req.Title
	}
	if req.Description != "" {
		plan.Description = req.Description
	}
	if req.PlannedDate != nil {
		plan.PlannedDate = req.PlannedDate
	}
	if req.Notes != "" {
		plan.Notes = req.Notes
	}
	if req.TargetAssetID != nil {
		if _, err := s.assetRepo.FindByID(ctx, *req.TargetAssetID); err != nil {
			return nil, fmt.Errorf("target asset: %w", err)
		}
		plan.TargetAssetID = req.TargetAssetID
	}
	plan.UpdatedAt = time.Now()

	if req.Items != nil {
		if len(req.Items) == 0 {
			return nil, fmt.Errorf("%w: plan requires at least one item", ErrValidation)
		}
		if err := validateItems(req.Items, plan.TargetAssetID); err != nil {
			return nil, err
		}
		if err := s.planRepo.ReplaceItems(ctx, plan.ID, buildItems(plan.ID, req.Items, time.Now())); err != nil {
			return nil, fmt.Errorf("replace items: %w", err)
		}
	}

	plan.Items = nil // Save时不级联写部件项
	if err := s.planRepo.Update(ctx, plan); err != nil {
		return nil, fmt.Errorf("update plan: %w", err)
	}
	return s.planRepo.FindByID(ctx, plan.ID)
}

// Approve 审批通过拆解计划
func (s *PlanService) Approve(ctx context.Context, id string) (*entity.DecompositionPlan, error) {
	ok, err := s.planRepo.TransitionStatus(ctx, id, []string{entity.PlanStatusPending}, entity.PlanStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("approve plan: %w", err)
	}
	if !ok {
		plan, err := s.planRepo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: plan %s is %s, only PENDING plans can be approved", ErrConflict, plan.Code, plan.Status)
	}
	return s.planRepo.FindByID(ctx, id)
}

// Cancel 取消拆解计划
// 仅PENDING/APPROVED可取消；IN_PROGRESS的执行必须跑完，不支持中途取消
func (s *PlanService) Cancel(ctx context.Context, id string) (*entity.DecompositionPlan, error) {
	ok, err := s.planRepo.TransitionStatus(ctx, id,
		[]string{entity.PlanStatusPending, entity.PlanStatusApproved}, entity.PlanStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("cancel plan: %w", err)
	}
	if !ok {
		plan, err := s.planRepo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: plan %s is %s and cannot be cancelled", ErrConflict, plan.Code, plan.Status)
	}
	return s.planRepo.FindByID(ctx, id)
}

// Delete 删除拆解计划
// 仅PENDING/APPROVED且从未有部件项执行成功时允许删除，已执行的计划是只读历史
func (s *PlanService) Delete(ctx context.Context, id string) error {
	plan, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if plan.Status != entity.PlanStatusPending && plan.Status != entity.PlanStatusApproved {
		return fmt.Errorf("%w: plan %s is %s and cannot be deleted", ErrConflict, plan.Code, plan.Status)
	}
	applied, err := s.planRepo.HasAppliedItems(ctx, id)
	if err != nil {
		return fmt.Errorf("check applied items: %w", err)
	}
	if applied {
		return fmt.Errorf("%w: plan %s has applied items and cannot be deleted", ErrConflict, plan.Code)
	}
	return s.planRepo.Delete(ctx, id)
}
