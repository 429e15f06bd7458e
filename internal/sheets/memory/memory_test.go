package memory

import (
	"context"
	"errors"
	"testing"

	"bearbudget/internal/core"

	"github.com/shopspring/decimal"
)

func TestMemoryStoreAppend(t *testing.T) {
	s := New()
	tx := core.Transaction{Date: "2025-03-01", Amount: decimal.NewFromInt(5), Description: "t", Card: "Checking"}.WithID(3)

	ref, err := s.AppendTransaction(context.Background(), tx)
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	rows := s.Rows()
	if len(rows) != 1 || rows[0][0] != "3" || rows[0][3] != "5.00" {
		t.Fatalf("unexpected rows %v", rows)
	}

	if _, err := s.AppendTransaction(context.Background(), core.Transaction{Date: "1/3/2025"}); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if len(s.Rows()) != 1 {
		t.Fatal("invalid rows must not be stored")
	}
}
