package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓库集合
type Repositories struct {
	Asset     *AssetRepository
	Plan      *PlanRepository
	Transfer  *TransferRepository
	SparePart *SparePartRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Asset:     NewAssetRepository(db),
		Plan:      NewPlanRepository(db),
		Transfer:  NewTransferRepository(db),
		SparePart: NewSparePartRepository(db),
	}
}
