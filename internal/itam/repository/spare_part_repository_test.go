package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-itam/internal/itam/entity"
	"github.com/bitfantasy/nimo-itam/internal/itam/testutil"
	"github.com/google/uuid"
)

func inboundFixture(partNumber string, quantity int) (*entity.SparePart, *entity.SparePartTransaction) {
	now := time.Now()
	part := &entity.SparePart{
		ID:         uuid.New().String()[:32],
		PartNumber: partNumber,
		Name:       "PSU 750W",
		Category:   "power",
		Quantity:   quantity,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	tx := &entity.SparePartTransaction{
		ID:         uuid.New().String()[:32],
		PartNumber: partNumber,
		Type:       entity.SpareTxTypeDecompositionIn,
		Quantity:   quantity,
		CreatedAt:  now,
	}
	return part, tx
}

func TestSparePartInbound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewSparePartRepository(db)
	ctx := context.Background()

	// 首次入库新建库存行
	part, tx := inboundFixture("SP-POWER-PSU-750W", 2)
	if err := repo.Inbound(ctx, part, tx); err != nil {
		t.Fatalf("Inbound failed: %v", err)
	}
	if tx.SparePartID != part.ID {
		t.Errorf("Expected ledger row linked to new part %s, got %s", part.ID, tx.SparePartID)
	}

	// 同件号再次入库累加，不新建行
	part2, tx2 := inboundFixture("SP-POWER-PSU-750W", 3)
	if err := repo.Inbound(ctx, part2, tx2); err != nil {
		t.Fatalf("Second inbound failed: %v", err)
	}
	if tx2.SparePartID != part.ID {
		t.Errorf("Expected ledger row linked to existing part %s, got %s", part.ID, tx2.SparePartID)
	}

	got, err := repo.FindByPartNumber(ctx, "SP-POWER-PSU-750W")
	if err != nil {
		t.Fatalf("FindByPartNumber failed: %v", err)
	}
	if got.Quantity != 5 {
		t.Errorf("Expected accumulated quantity 5, got %d", got.Quantity)
	}

	parts, total, err := repo.List(ctx, 1, 20, nil)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(parts) != 1 {
		t.Errorf("Expected single stock row, got %d", total)
	}

	txs, txTotal, err := repo.ListTransactions(ctx, got.ID, 1, 20)
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if txTotal != 2 || len(txs) != 2 {
		t.Errorf("Expected 2 ledger rows, got %d", txTotal)
	}
}

func TestSparePartNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewSparePartRepository(db)

	if _, err := repo.FindByID(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := repo.FindByPartNumber(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
