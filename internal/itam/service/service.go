package service

import (
	"errors"
	"time"

	"github.com/bitfantasy/nimo-itam/internal/config"
	"github.com/bitfantasy/nimo-itam/internal/itam/repository"
	"github.com/bitfantasy/nimo-itam/internal/shared/maintenance"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 错误定义
// 处理器按错误类别映射HTTP状态码：ErrValidation→400，ErrConflict→409，
// repository.ErrNotFound→404，其余→500
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
)

// Services 服务集合
type Services struct {
	Plan      *PlanService
	Resolver  *ResolverService
	Execution *ExecutionService
	SparePart *SparePartService
}

// NewServices 创建服务集合
// rdb和maintClient允许为nil：无redis时执行锁退化为进程内锁，
// 无维保客户端时REPAIR项按失败处理
func NewServices(repos *repository.Repositories, rdb *redis.Client, maintClient *maintenance.Client, cfg *config.Config, logger *zap.Logger) *Services {
	var locker PlanLocker
	if rdb != nil {
		locker = NewRedisLocker(rdb)
	} else {
		locker = NewMemoryLocker()
	}

	repairTimeout := cfg.Maintenance.Timeout
	if repairTimeout <= 0 {
		repairTimeout = 10 * time.Second
	}

	syncer := NewStatusSynchronizer(repos.Asset)

	return &Services{
		Plan:      NewPlanService(repos.Plan, repos.Asset),
		Resolver:  NewResolverService(repos.Asset),
		Execution: NewExecutionService(repos, locker, syncer, maintClient, repairTimeout, logger),
		SparePart: NewSparePartService(repos.SparePart),
	}
}
