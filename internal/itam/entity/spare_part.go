package entity

import (
	"time"
)

// SparePart 备件库存
// 部件入库(STORE)时按part_number累加库存
type SparePart struct {
	ID                string     `json:"id" gorm:"primaryKey;size:32"`
	PartNumber        string     `json:"part_number" gorm:"size:64;not null;uniqueIndex"`
	Name              string     `json:"name" gorm:"size:256;not null"`
	Category          string     `json:"category" gorm:"size:64;index"`
	Condition         string     `json:"condition" gorm:"size:32"`
	Quantity          int        `json:"quantity" gorm:"not null;default:0"`
	LocationID        *string    `json:"location_id" gorm:"size:32"`
	ProvenanceAssetID string     `json:"provenance_asset_id" gorm:"size:32;index"`
	LastMovedAt       *time.Time `json:"last_moved_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (SparePart) TableName() string {
	return "spare_parts"
}

// SparePartTransaction 备件库存流水（只增不改）
type SparePartTransaction struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	SparePartID string    `json:"spare_part_id" gorm:"size:32;not null;index"`
	PartNumber  string    `json:"part_number" gorm:"size:64;not null"`
	Type        string    `json:"type" gorm:"size:24;not null"`
	Quantity    int       `json:"quantity" gorm:"not null"` // 负数表示出库
	PlanID      *string   `json:"plan_id" gorm:"size:32;index"`
	ItemID      *string   `json:"item_id" gorm:"size:32"`
	Notes       string    `json:"notes" gorm:"type:text"`
	CreatedBy   string    `json:"created_by" gorm:"size:32"`
	CreatedAt   time.Time `json:"created_at"`
}

func (SparePartTransaction) TableName() string {
	return "spare_part_transactions"
}

// 备件流水类型
const (
	SpareTxTypeDecompositionIn = "DECOMP_IN"
	SpareTxTypeManualAdjust    = "ADJUST"
	SpareTxTypeIssueOut        = "ISSUE_OUT"
)
