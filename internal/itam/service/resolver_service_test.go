package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/nimo-itam/internal/itam/entity"
	"github.com/bitfantasy/nimo-itam/internal/itam/repository"
	"github.com/bitfantasy/nimo-itam/internal/itam/testutil"
)

func TestResolveCandidates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, svcs := newTestServices(t, db, nil, 0)
	ctx := context.Background()

	source := testutil.SeedAsset(t, db, "AST-100", "Server A", "server", entity.AssetStatusAvailable)
	eligible := testutil.SeedAsset(t, db, "AST-101", "Server B", "server", entity.AssetStatusAvailable)
	// 类目不符、状态不可用的资产都不是候选
	testutil.SeedAsset(t, db, "AST-102", "Switch", "network", entity.AssetStatusAvailable)
	testutil.SeedAsset(t, db, "AST-103", "Server C", "server", entity.AssetStatusAssigned)
	reserved := testutil.SeedAsset(t, db, "AST-104", "Server D", "server", entity.AssetStatusAvailable)

	// reserved已是另一未终结计划的待定转移目标，不应出现在候选里
	other := testutil.SeedAsset(t, db, "AST-105", "Server E", "server", entity.AssetStatusAvailable)
	testutil.SeedPlan(t, db, other.ID, entity.PlanStatusApproved, []entity.DecompositionItem{
		{ComponentName: "NIC", Action: entity.ItemActionTransfer, TargetAssetID: &reserved.ID},
	})

	candidates, err := svcs.Resolver.ResolveCandidates(ctx, source.ID)
	if err != nil {
		t.Fatalf("ResolveCandidates failed: %v", err)
	}

	ids := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		ids[c.ID] = true
	}
	if !ids[eligible.ID] {
		t.Errorf("Expected %s in candidates", eligible.Code)
	}
	if ids[source.ID] {
		t.Error("Source asset must not be its own candidate")
	}
	if ids[reserved.ID] {
		t.Error("Pending transfer target must be excluded from candidates")
	}
	// AST-105是候选（同类目可用且未被预定）
	if !ids[other.ID] {
		t.Errorf("Expected %s in candidates", other.Code)
	}
	if len(candidates) != 2 {
		t.Errorf("Expected 2 candidates, got %d", len(candidates))
	}

	// 候选按code稳定排序
	if len(candidates) == 2 && candidates[0].Code > candidates[1].Code {
		t.Errorf("Expected candidates ordered by code, got %s before %s", candidates[0].Code, candidates[1].Code)
	}
}

func TestResolveCandidatesAfterPlanFinalized(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, svcs := newTestServices(t, db, nil, 0)
	ctx := context.Background()

	source := testutil.SeedAsset(t, db, "AST-110", "Server A", "server", entity.AssetStatusAvailable)
	target := testutil.SeedAsset(t, db, "AST-111", "Server B", "server", entity.AssetStatusAvailable)

	// 取消的计划不再占用其转移目标
	plan := testutil.SeedPlan(t, db, source.ID, entity.PlanStatusCancelled, []entity.DecompositionItem{
		{ComponentName: "NIC", Action: entity.ItemActionTransfer, TargetAssetID: &target.ID},
	})
	_ = plan

	candidates, err := svcs.Resolver.ResolveCandidates(ctx, source.ID)
	if err != nil {
		t.Fatalf("ResolveCandidates failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != target.ID {
		t.Errorf("Expected target released as candidate after cancellation, got %d candidates", len(candidates))
	}
}

func TestResolveCandidatesExcludesRetryableFailedTarget(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, svcs := newTestServices(t, db, nil, 0)
	ctx := context.Background()

	source := testutil.SeedAsset(t, db, "AST-120", "Server A", "server", entity.AssetStatusAvailable)
	target := testutil.SeedAsset(t, db, "AST-121", "Server B", "server", entity.AssetStatusAvailable)
	other := testutil.SeedAsset(t, db, "AST-122", "Server C", "server", entity.AssetStatusAvailable)

	// COMPLETED_WITH_ERRORS的计划允许重试，其FAILED转移项仍占用目标
	testutil.SeedPlan(t, db, other.ID, entity.PlanStatusCompletedWithErrors, []entity.DecompositionItem{
		{ComponentName: "NIC", Action: entity.ItemActionTransfer, TargetAssetID: &target.ID, ExecutionStatus: entity.ItemStatusFailed},
	})

	candidates, err := svcs.Resolver.ResolveCandidates(ctx, source.ID)
	if err != nil {
		t.Fatalf("ResolveCandidates failed: %v", err)
	}
	ids := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		ids[c.ID] = true
	}
	if ids[target.ID] {
		t.Error("Failed transfer target of a retryable plan must be excluded from candidates")
	}
	if !ids[other.ID] {
		t.Errorf("Expected %s in candidates", other.Code)
	}
}

func TestResolveCandidatesUnknownSource(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, svcs := newTestServices(t, db, nil, 0)

	_, err := svcs.Resolver.ResolveCandidates(context.Background(), "no-such-asset")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}
