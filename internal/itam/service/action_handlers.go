package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-itam/internal/itam/entity"
	"github.com/bitfantasy/nimo-itam/internal/itam/repository"
	"github.com/bitfantasy/nimo-itam/internal/shared/maintenance"
	"github.com/google/uuid"
)

// actionHandler 处置动作处理器
// 每个处置动作一个实现，由执行引擎按item.Action分发。
// 引擎保证同一部件项至多调用一次apply（已APPLIED的项不会再分发），
// 处理器内部无需自行去重
type actionHandler interface {
	apply(ctx context.Context, plan *entity.DecompositionPlan, item *entity.DecompositionItem) error
}

// =============================================================================
// transferHandler — 部件转移到目标资产
// =============================================================================

type transferHandler struct {
	assetRepo    *repository.AssetRepository
	transferRepo *repository.TransferRepository
}

// resolveTarget 目标资产取逐项指定值，缺省回退计划级单目标简写
func (h *transferHandler) resolveTarget(plan *entity.DecompositionPlan, item *entity.DecompositionItem) (string, error) {
	if item.TargetAssetID != nil {
		return *item.TargetAssetID, nil
	}
	if plan.TargetAssetID != nil {
		return *plan.TargetAssetID, nil
	}
	return "", fmt.Errorf("transfer item missing target asset")
}

func (h *transferHandler) apply(ctx context.Context, plan *entity.DecompositionPlan, item *entity.DecompositionItem) error {
	targetID, err := h.resolveTarget(plan, item)
	if err != nil {
		return err
	}

	if _, err := h.assetRepo.FindByID(ctx, targetID); err != nil {
		if err == repository.ErrNotFound {
			return fmt.Errorf("target asset not found")
		}
		return err
	}

	now := time.Now()
	record := &entity.TransferRecord{
		ID:                   uuid.New().String()[:32],
		SourceAssetID:        plan.SourceAssetID,
		TargetAssetID:        targetID,
		ComponentDescription: fmt.Sprintf("%s x%d", item.ComponentName, item.Quantity),
		OriginPlanID:         plan.ID,
		OriginItemID:         item.ID,
		TransferDate:         now,
		CreatedAt:            now,
	}

	// 预占目标和写入记录在同一事务内，防止两个计划并发转移到同一资产，
	// 也防止记录写入失败后目标被永久占用
	reserved, err := h.transferRepo.RecordWithReservation(ctx, record)
	if err != nil {
		return fmt.Errorf("record transfer: %w", err)
	}
	if !reserved {
		return fmt.Errorf("target asset unavailable")
	}
	return nil
}

// =============================================================================
// disposeHandler — 部件报废，仅标记不产生额外记录
// =============================================================================

type disposeHandler struct{}

func (h *disposeHandler) apply(_ context.Context, _ *entity.DecompositionPlan, _ *entity.DecompositionItem) error {
	return nil
}

// =============================================================================
// storeHandler — 部件入备件库
// =============================================================================

type storeHandler struct {
	sparePartRepo *repository.SparePartRepository
}

var partNumberSanitizer = regexp.MustCompile(`[^A-Z0-9]+`)

// derivePartNumber 从类目和部件名派生件号
// 派生必须是确定性的：同名同类部件多次入库累加到同一库存行
func derivePartNumber(item *entity.DecompositionItem) string {
	category := item.Category
	if category == "" {
		category = "GEN"
	}
	normalize := func(s string) string {
		s = partNumberSanitizer.ReplaceAllString(strings.ToUpper(s), "-")
		return strings.Trim(s, "-")
	}
	return fmt.Sprintf("SP-%s-%s", normalize(category), normalize(item.ComponentName))
}

func (h *storeHandler) apply(ctx context.Context, plan *entity.DecompositionPlan, item *entity.DecompositionItem) error {
	now := time.Now()
	part := &entity.SparePart{
		ID:                uuid.New().String()[:32],
		PartNumber:        derivePartNumber(item),
		Name:              item.ComponentName,
		Category:          item.Category,
		Condition:         item.Condition,
		Quantity:          item.Quantity,
		LocationID:        item.TargetLocationID,
		ProvenanceAssetID: plan.SourceAssetID,
		LastMovedAt:       &now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	tx := &entity.SparePartTransaction{
		ID:         uuid.New().String()[:32],
		PartNumber: part.PartNumber,
		Type:       entity.SpareTxTypeDecompositionIn,
		Quantity:   item.Quantity,
		PlanID:     &plan.ID,
		ItemID:     &item.ID,
		Notes:      item.Notes,
		CreatedBy:  plan.PerformedBy,
		CreatedAt:  now,
	}
	if err := h.sparePartRepo.Inbound(ctx, part, tx); err != nil {
		return fmt.Errorf("spare part inbound: %w", err)
	}
	return nil
}

// =============================================================================
// repairHandler — 在外部维保系统创建维修工单
// =============================================================================

type repairHandler struct {
	client  *maintenance.Client
	timeout time.Duration
}

func (h *repairHandler) apply(ctx context.Context, plan *entity.DecompositionPlan, item *entity.DecompositionItem) error {
	if h.client == nil {
		return fmt.Errorf("maintenance collaborator not configured")
	}

	// 外部调用限时，超时按部件项失败处理，不影响后续项执行
	callCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	req := &maintenance.CreateTicketRequest{
		AssetID:       plan.SourceAssetID,
		ComponentName: item.ComponentName,
		Description:   fmt.Sprintf("Component flagged for repair during decomposition %s", plan.Code),
		Condition:     item.Condition,
		ReferenceID:   item.ID,
		RequestedBy:   plan.PerformedBy,
	}
	if _, err := h.client.CreateTicket(callCtx, req); err != nil {
		return fmt.Errorf("create maintenance ticket: %w", err)
	}
	return nil
}
