package entity

import (
	"time"
)

// DecompositionPlan 资产拆解计划
// 一个源资产拆解为若干部件，每个部件独立处置（转移/报废/入库/送修）
type DecompositionPlan struct {
	ID            string     `json:"id" gorm:"primaryKey;size:32"`
	Code          string     `json:"code" gorm:"size:64;not null;uniqueIndex"`
	SourceAssetID string     `json:"source_asset_id" gorm:"size:32;not null;index"`
	TargetAssetID *string    `json:"target_asset_id" gorm:"size:32"` // 单目标简写，逐项指定目标时为空
	Title         string     `json:"title" gorm:"size:256;not null"`
	Description   string     `json:"description" gorm:"type:text"`
	Status        string     `json:"status" gorm:"size:32;not null;default:PENDING;index"`
	PlannedDate   *time.Time `json:"planned_date"`
	Notes         string     `json:"notes" gorm:"type:text"`
	PerformedBy   string     `json:"performed_by" gorm:"size:32;not null"`
	CompletedAt   *time.Time `json:"completed_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// 关联
	SourceAsset *Asset              `json:"source_asset,omitempty" gorm:"foreignKey:SourceAssetID"`
	Items       []DecompositionItem `json:"items,omitempty" gorm:"foreignKey:PlanID"`
}

func (DecompositionPlan) TableName() string {
	return "decomposition_plans"
}

// DecompositionItem 拆解部件项
// SortOrder决定执行顺序；ExecutionStatus由执行引擎独占写入
type DecompositionItem struct {
	ID               string    `json:"id" gorm:"primaryKey;size:32"`
	PlanID           string    `json:"plan_id" gorm:"size:32;not null;index"`
	ComponentName    string    `json:"component_name" gorm:"size:256;not null"`
	ComponentDetails JSONB     `json:"component_details" gorm:"type:jsonb"`
	Quantity         int       `json:"quantity" gorm:"not null;default:1"`
	Condition        string    `json:"condition" gorm:"size:32"`
	Category         string    `json:"category" gorm:"size:64"`
	Action           string    `json:"action" gorm:"size:16;not null"`
	TargetAssetID    *string   `json:"target_asset_id" gorm:"size:32"` // Transfer必填
	TargetLocationID *string   `json:"target_location_id" gorm:"size:32"`
	Notes            string    `json:"notes" gorm:"type:text"`
	ExecutionStatus  string    `json:"execution_status" gorm:"size:16;not null;default:PENDING"`
	FailureReason    *string   `json:"failure_reason" gorm:"type:text"`
	SortOrder        int       `json:"sort_order" gorm:"not null;default:0"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// 关联
	Plan        *DecompositionPlan `json:"plan,omitempty" gorm:"foreignKey:PlanID"`
	TargetAsset *Asset             `json:"target_asset,omitempty" gorm:"foreignKey:TargetAssetID"`
}

func (DecompositionItem) TableName() string {
	return "decomposition_items"
}

// TransferRecord 部件转移记录（只增不改）
type TransferRecord struct {
	ID                   string    `json:"id" gorm:"primaryKey;size:32"`
	SourceAssetID        string    `json:"source_asset_id" gorm:"size:32;not null;index"`
	TargetAssetID        string    `json:"target_asset_id" gorm:"size:32;not null;index"`
	ComponentDescription string    `json:"component_description" gorm:"size:512;not null"`
	OriginPlanID         string    `json:"origin_plan_id" gorm:"size:32;not null;index"`
	OriginItemID         string    `json:"origin_item_id" gorm:"size:32;not null"`
	TransferDate         time.Time `json:"transfer_date" gorm:"not null"`
	CreatedAt            time.Time `json:"created_at"`
}

func (TransferRecord) TableName() string {
	return "transfer_records"
}

// 拆解计划状态
const (
	PlanStatusPending             = "PENDING"
	PlanStatusApproved            = "APPROVED"
	PlanStatusInProgress          = "IN_PROGRESS"
	PlanStatusCompleted           = "COMPLETED"
	PlanStatusCompletedWithErrors = "COMPLETED_WITH_ERRORS"
	PlanStatusCancelled           = "CANCELLED"
)

// PlanFinalized 判断计划是否已终结（不可再执行）
func PlanFinalized(status string) bool {
	switch status {
	case PlanStatusCompleted, PlanStatusCompletedWithErrors, PlanStatusCancelled:
		return true
	}
	return false
}

// 部件处置动作
const (
	ItemActionTransfer = "TRANSFER"
	ItemActionDispose  = "DISPOSE"
	ItemActionStore    = "STORE"
	ItemActionRepair   = "REPAIR"
)

// ValidItemAction 判断处置动作是否合法
func ValidItemAction(action string) bool {
	switch action {
	case ItemActionTransfer, ItemActionDispose, ItemActionStore, ItemActionRepair:
		return true
	}
	return false
}

// 部件项执行状态
// PENDING→APPLIED为终态；PENDING→FAILED可在下次执行时重试
const (
	ItemStatusPending = "PENDING"
	ItemStatusApplied = "APPLIED"
	ItemStatusFailed  = "FAILED"
	ItemStatusSkipped = "SKIPPED"
)
