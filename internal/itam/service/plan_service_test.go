package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bitfantasy/nimo-itam/internal/itam/entity"
	"github.com/bitfantasy/nimo-itam/internal/itam/repository"
	"github.com/bitfantasy/nimo-itam/internal/itam/testutil"
)

func TestCreatePlan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, svcs := newTestServices(t, db, nil, 0)
	ctx := context.Background()

	source := testutil.SeedAsset(t, db, "AST-200", "Server", "server", entity.AssetStatusAvailable)
	target := testutil.SeedAsset(t, db, "AST-201", "Server B", "server", entity.AssetStatusAvailable)

	plan, err := svcs.Plan.Create(ctx, "user-001", &CreatePlanRequest{
		SourceAssetID: source.ID,
		Title:         "拆解旧服务器",
		Items: []PlanItemInput{
			{Name: "RAM", Action: entity.ItemActionTransfer, TargetAssetID: &target.ID},
			{Name: "Bezel", Action: entity.ItemActionDispose},
		},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if plan.Status != entity.PlanStatusPending {
		t.Errorf("Expected PENDING, got %s", plan.Status)
	}
	if !strings.HasPrefix(plan.Code, "DCP-") {
		t.Errorf("Expected DCP- code prefix, got %s", plan.Code)
	}
	if plan.PerformedBy != "user-001" {
		t.Errorf("Expected performed_by user-001, got %s", plan.PerformedBy)
	}
	if len(plan.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(plan.Items))
	}
	if plan.Items[0].SortOrder != 0 || plan.Items[1].SortOrder != 1 {
		t.Error("Expected sort_order to follow input order")
	}
	if plan.Items[0].Quantity != 1 {
		t.Errorf("Expected quantity default 1, got %d", plan.Items[0].Quantity)
	}
}

func TestCreatePlanValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, svcs := newTestServices(t, db, nil, 0)
	ctx := context.Background()

	source := testutil.SeedAsset(t, db, "AST-210", "Server", "server", entity.AssetStatusAvailable)

	// 源资产不存在
	_, err := svcs.Plan.Create(ctx, "user-001", &CreatePlanRequest{
		SourceAssetID: "no-such-asset",
		Title:         "t",
		Items:         []PlanItemInput{{Name: "X", Action: entity.ItemActionDispose}},
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing source, got %v", err)
	}

	// 未知动作
	_, err = svcs.Plan.Create(ctx, "user-001", &CreatePlanRequest{
		SourceAssetID: source.ID,
		Title:         "t",
		Items:         []PlanItemInput{{Name: "X", Action: "SHRED"}},
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for unknown action, got %v", err)
	}

	// 转移项缺目标（且无计划级单目标）
	_, err = svcs.Plan.Create(ctx, "user-001", &CreatePlanRequest{
		SourceAssetID: source.ID,
		Title:         "t",
		Items:         []PlanItemInput{{Name: "X", Action: entity.ItemActionTransfer}},
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for transfer without target, got %v", err)
	}

	// 负数数量拒绝；数量0按缺省1处理（TestCreatePlan已覆盖缺省）
	_, err = svcs.Plan.Create(ctx, "user-001", &CreatePlanRequest{
		SourceAssetID: source.ID,
		Title:         "t",
		Items:         []PlanItemInput{{Name: "X", Action: entity.ItemActionDispose, Quantity: -1}},
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for negative quantity, got %v", err)
	}
}

func TestPlanApproveAndCancelTransitions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, svcs := newTestServices(t, db, nil, 0)
	ctx := context.Background()

	source := testutil.SeedAsset(t, db, "AST-220", "Server", "server", entity.AssetStatusAvailable)

	plan := testutil.SeedPlan(t, db, source.ID, entity.PlanStatusPending, []entity.DecompositionItem{
		{ComponentName: "X", Action: entity.ItemActionDispose},
	})

	approved, err := svcs.Plan.Approve(ctx, plan.ID)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if approved.Status != entity.PlanStatusApproved {
		t.Errorf("Expected APPROVED, got %s", approved.Status)
	}

	// 重复审批报Conflict
	if _, err := svcs.Plan.Approve(ctx, plan.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict on double approve, got %v", err)
	}

	// APPROVED可取消
	cancelled, err := svcs.Plan.Cancel(ctx, plan.ID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.Status != entity.PlanStatusCancelled {
		t.Errorf("Expected CANCELLED, got %s", cancelled.Status)
	}

	// 已取消不可再取消
	if _, err := svcs.Plan.Cancel(ctx, plan.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict on double cancel, got %v", err)
	}

	// 执行中不可取消
	running := testutil.SeedPlan(t, db, source.ID, entity.PlanStatusInProgress, []entity.DecompositionItem{
		{ComponentName: "X", Action: entity.ItemActionDispose},
	})
	if _, err := svcs.Plan.Cancel(ctx, running.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict cancelling IN_PROGRESS plan, got %v", err)
	}
}

func TestPlanUpdate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, svcs := newTestServices(t, db, nil, 0)
	ctx := context.Background()

	source := testutil.SeedAsset(t, db, "AST-230", "Server", "server", entity.AssetStatusAvailable)
	plan := testutil.SeedPlan(t, db, source.ID, entity.PlanStatusPending, []entity.DecompositionItem{
		{ComponentName: "Old Item", Action: entity.ItemActionDispose},
	})

	updated, err := svcs.Plan.Update(ctx, plan.ID, &UpdatePlanRequest{
		Title: "新标题",
		Items: []PlanItemInput{
			{Name: "CPU", Action: entity.ItemActionStore, Category: "cpu"},
			{Name: "Fan", Action: entity.ItemActionDispose},
		},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Title != "新标题" {
		t.Errorf("Expected updated title, got %s", updated.Title)
	}
	if len(updated.Items) != 2 {
		t.Fatalf("Expected items replaced, got %d", len(updated.Items))
	}
	if updated.Items[0].ComponentName != "CPU" {
		t.Errorf("Expected first item CPU, got %s", updated.Items[0].ComponentName)
	}

	// 空部件项列表不允许
	if _, err := svcs.Plan.Update(ctx, plan.ID, &UpdatePlanRequest{Items: []PlanItemInput{}}); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for empty items, got %v", err)
	}

	// 执行开始后只读
	running := testutil.SeedPlan(t, db, source.ID, entity.PlanStatusInProgress, []entity.DecompositionItem{
		{ComponentName: "X", Action: entity.ItemActionDispose},
	})
	if _, err := svcs.Plan.Update(ctx, running.ID, &UpdatePlanRequest{Title: "nope"}); !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict updating IN_PROGRESS plan, got %v", err)
	}
}

func TestPlanDeleteGuards(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, svcs := newTestServices(t, db, nil, 0)
	ctx := context.Background()

	source := testutil.SeedAsset(t, db, "AST-240", "Server", "server", entity.AssetStatusAvailable)

	// PENDING且无已执行项可删除
	plan := testutil.SeedPlan(t, db, source.ID, entity.PlanStatusPending, []entity.DecompositionItem{
		{ComponentName: "X", Action: entity.ItemActionDispose},
	})
	if err := svcs.Plan.Delete(ctx, plan.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := svcs.Plan.Get(ctx, plan.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected plan gone, got %v", err)
	}

	// 终结的计划是只读历史
	done := testutil.SeedPlan(t, db, source.ID, entity.PlanStatusCompleted, []entity.DecompositionItem{
		{ComponentName: "X", Action: entity.ItemActionDispose, ExecutionStatus: entity.ItemStatusApplied},
	})
	if err := svcs.Plan.Delete(ctx, done.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict deleting completed plan, got %v", err)
	}
}
