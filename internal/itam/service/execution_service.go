package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-itam/internal/itam/entity"
	"github.com/bitfantasy/nimo-itam/internal/itam/repository"
	"github.com/bitfantasy/nimo-itam/internal/shared/maintenance"
	"go.uber.org/zap"
)

// ExecutionService 拆解执行引擎
// 持有计划执行锁后按存储顺序逐项应用处置动作，逐项记录结果。
// 部件项失败不中断执行也不回滚已成功项（best-effort语义），
// 失败项在下一次Execute时重试，已APPLIED的项永不重复应用
type ExecutionService struct {
	planRepo  *repository.PlanRepository
	assetRepo *repository.AssetRepository
	handlers  map[string]actionHandler
	locker    PlanLocker
	syncer    *StatusSynchronizer
	logger    *zap.Logger
}

// NewExecutionService 创建拆解执行引擎
func NewExecutionService(repos *repository.Repositories, locker PlanLocker, syncer *StatusSynchronizer,
	maintClient *maintenance.Client, repairTimeout time.Duration, logger *zap.Logger) *ExecutionService {
	// 处置动作到处理器的封闭映射，新增动作必须在这里补处理器
	handlers := map[string]actionHandler{
		entity.ItemActionTransfer: &transferHandler{assetRepo: repos.Asset, transferRepo: repos.Transfer},
		entity.ItemActionDispose:  &disposeHandler{},
		entity.ItemActionStore:    &storeHandler{sparePartRepo: repos.SparePart},
		entity.ItemActionRepair:   &repairHandler{client: maintClient, timeout: repairTimeout},
	}
	return &ExecutionService{
		planRepo:  repos.Plan,
		assetRepo: repos.Asset,
		handlers:  handlers,
		locker:    locker,
		syncer:    syncer,
		logger:    logger,
	}
}

// ItemOutcome 单个部件项的执行结果
type ItemOutcome struct {
	ItemID        string `json:"item_id"`
	ComponentName string `json:"component_name"`
	Action        string `json:"action"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// ExecuteResult 一次执行的汇总结果
// 部件项级失败不作为请求级错误返回，由调用方根据结果决定是否重试
type ExecuteResult struct {
	PlanID     string        `json:"plan_id"`
	PlanCode   string        `json:"plan_code"`
	PlanStatus string        `json:"plan_status"`
	PostStatus string        `json:"post_status"`
	Synced     bool          `json:"source_status_synced"`
	SyncError  string        `json:"sync_error,omitempty"`
	Applied    int           `json:"applied"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Items      []ItemOutcome `json:"items"`
}

// Execute 执行拆解计划
// postStatus为空时默认RETIRED；已终结的计划、未审批的计划、
// 以及已有执行在途的计划均返回Conflict
func (s *ExecutionService) Execute(ctx context.Context, planID, postStatus string) (*ExecuteResult, error) {
	if postStatus == "" {
		postStatus = entity.AssetStatusRetired
	}
	if !entity.ValidPostStatus(postStatus) {
		return nil, fmt.Errorf("%w: invalid post status %q", ErrValidation, postStatus)
	}

	// 计划级互斥：同一计划同时只允许一次执行，抢不到锁立即报Conflict
	release, acquired, err := s.locker.TryLock(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("acquire execution lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: execution already in progress for plan %s", ErrConflict, planID)
	}
	defer release()

	plan, err := s.planRepo.FindByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	// COMPLETED_WITH_ERRORS不算终结：失败项允许再次执行重试
	if plan.Status == entity.PlanStatusCompleted || plan.Status == entity.PlanStatusCancelled {
		return nil, fmt.Errorf("%w: plan %s already finalized (%s)", ErrConflict, plan.Code, plan.Status)
	}
	if plan.Status == entity.PlanStatusPending {
		return nil, fmt.Errorf("%w: plan %s must be approved before execution", ErrConflict, plan.Code)
	}

	// 幂等进入IN_PROGRESS：上次执行中断的计划直接续跑
	if plan.Status != entity.PlanStatusInProgress {
		ok, err := s.planRepo.TransitionStatus(ctx, plan.ID,
			[]string{entity.PlanStatusApproved, entity.PlanStatusCompletedWithErrors}, entity.PlanStatusInProgress)
		if err != nil {
			return nil, fmt.Errorf("transition to in_progress: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: plan %s is not executable", ErrConflict, plan.Code)
		}
	}

	s.logger.Info("Decomposition execution started",
		zap.String("plan_id", plan.ID),
		zap.String("plan_code", plan.Code),
		zap.Int("items", len(plan.Items)),
	)

	result := &ExecuteResult{
		PlanID:     plan.ID,
		PlanCode:   plan.Code,
		PostStatus: postStatus,
		Items:      make([]ItemOutcome, 0, len(plan.Items)),
	}

	// 严格按存储顺序串行执行，保证转移/入库记录的生成顺序确定
	for i := range plan.Items {
		item := &plan.Items[i]
		outcome := ItemOutcome{
			ItemID:        item.ID,
			ComponentName: item.ComponentName,
			Action:        item.Action,
		}

		// 已成功的项不重复应用（幂等续跑）
		if item.ExecutionStatus == entity.ItemStatusApplied {
			outcome.Status = entity.ItemStatusSkipped
			result.Skipped++
			result.Items = append(result.Items, outcome)
			continue
		}

		handler, ok := s.handlers[item.Action]
		if !ok {
			// 创建期已校验动作合法性，这里只可能是历史脏数据
			reason := fmt.Sprintf("unknown action %q", item.Action)
			if err := s.planRepo.MarkItemFailed(ctx, item.ID, reason); err != nil {
				return nil, fmt.Errorf("mark item failed: %w", err)
			}
			outcome.Status = entity.ItemStatusFailed
			outcome.FailureReason = reason
			result.Failed++
			result.Items = append(result.Items, outcome)
			continue
		}

		if err := handler.apply(ctx, plan, item); err != nil {
			reason := err.Error()
			if markErr := s.planRepo.MarkItemFailed(ctx, item.ID, reason); markErr != nil {
				return nil, fmt.Errorf("mark item failed: %w", markErr)
			}
			s.logger.Warn("Decomposition item failed",
				zap.String("plan_id", plan.ID),
				zap.String("item_id", item.ID),
				zap.String("action", item.Action),
				zap.String("reason", reason),
			)
			outcome.Status = entity.ItemStatusFailed
			outcome.FailureReason = reason
			result.Failed++
			result.Items = append(result.Items, outcome)
			continue
		}

		if err := s.planRepo.MarkItemApplied(ctx, item.ID); err != nil {
			return nil, fmt.Errorf("mark item applied: %w", err)
		}
		outcome.Status = entity.ItemStatusApplied
		result.Applied++
		result.Items = append(result.Items, outcome)
	}

	// 以库中计数定终态，不依赖本次循环的内存状态
	counts, err := s.planRepo.CountItemsByStatus(ctx, plan.ID)
	if err != nil {
		return nil, fmt.Errorf("count item status: %w", err)
	}
	finalStatus := entity.PlanStatusCompleted
	if counts[entity.ItemStatusFailed] > 0 || counts[entity.ItemStatusPending] > 0 {
		finalStatus = entity.PlanStatusCompletedWithErrors
	}
	if err := s.planRepo.UpdateStatus(ctx, plan.ID, finalStatus); err != nil {
		return nil, fmt.Errorf("finalize plan status: %w", err)
	}
	result.PlanStatus = finalStatus

	// 终态后同步源资产状态；同步失败只记录上报，不影响已执行的部件项
	if err := s.syncer.Finalize(ctx, plan, postStatus); err != nil {
		result.SyncError = err.Error()
		s.logger.Warn("Source asset status sync failed",
			zap.String("plan_id", plan.ID),
			zap.String("source_asset_id", plan.SourceAssetID),
			zap.Error(err),
		)
	} else {
		result.Synced = true
	}

	s.logger.Info("Decomposition execution finished",
		zap.String("plan_id", plan.ID),
		zap.String("plan_status", finalStatus),
		zap.Int("applied", result.Applied),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
	)

	return result, nil
}
