package entity

import (
	"time"
)

// Asset 资产（资产目录的记录，本服务只读取并同步状态字段）
type Asset struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	Code         string     `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name         string     `json:"name" gorm:"size:256;not null"`
	Category     string     `json:"category" gorm:"size:64;not null;index"`
	Status       string     `json:"status" gorm:"size:24;not null;default:AVAILABLE;index"`
	SerialNumber string     `json:"serial_number" gorm:"size:128"`
	LocationID   *string    `json:"location_id" gorm:"size:32"`
	DepartmentID *string    `json:"department_id" gorm:"size:32"`
	AssignedTo   *string    `json:"assigned_to" gorm:"size:32"`
	PurchaseDate *time.Time `json:"purchase_date"`
	Notes        string     `json:"notes" gorm:"type:text"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Asset) TableName() string {
	return "assets"
}

// 资产状态
const (
	AssetStatusAvailable      = "AVAILABLE"
	AssetStatusAssigned       = "ASSIGNED"
	AssetStatusReserved       = "RESERVED"
	AssetStatusInRepair       = "IN_REPAIR"
	AssetStatusTransferred    = "TRANSFERRED"
	AssetStatusRetired        = "RETIRED"
	AssetStatusDecommissioned = "DECOMMISSIONED"
)

// ValidPostStatus 判断拆解完成后允许写回源资产的终态
// 拆解后的源资产只能退役或报废，不接受任意调用方自定义状态
func ValidPostStatus(status string) bool {
	switch status {
	case AssetStatusRetired, AssetStatusDecommissioned:
		return true
	}
	return false
}
