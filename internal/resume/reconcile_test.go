package resume

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	"phFolio/internal/database"
)

func workItem(id uint, company string) *database.WorkExperience {
	return &database.WorkExperience{
		Model:       gorm.Model{ID: id},
		CompanyName: company,
	}
}

func TestReconcile_OrderFromPosition(t *testing.T) {
	desired := []*database.WorkExperience{
		workItem(3, "c"),
		workItem(1, "a"),
		workItem(0, "new"),
	}

	plan, err := Reconcile(42, desired, []uint{1, 2, 3})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	for i, item := range plan.Upserts {
		if item.DisplayOrder != i {
			t.Errorf("item %d: display_order = %d, want %d", i, item.DisplayOrder, i)
		}
		if item.PortfolioID != 42 {
			t.Errorf("item %d: portfolio_id = %d, want 42", i, item.PortfolioID)
		}
	}
}

func TestReconcile_DeleteSet(t *testing.T) {
	// 存量 A=1 B=2 C=3（顺序 0,1,2），提交 [C, A]：
	// 期望删除集 {B}，C/A 的 display_order 变为 0/1。
	desired := []*database.WorkExperience{
		workItem(3, "c"),
		workItem(1, "a"),
	}

	plan, err := Reconcile(7, desired, []uint{1, 2, 3})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if len(plan.DeleteIDs) != 1 || plan.DeleteIDs[0] != 2 {
		t.Fatalf("delete ids = %v, want [2]", plan.DeleteIDs)
	}
	if plan.Upserts[0].RowID() != 3 || plan.Upserts[0].DisplayOrder != 0 {
		t.Errorf("first upsert = id %d order %d, want id 3 order 0",
			plan.Upserts[0].RowID(), plan.Upserts[0].DisplayOrder)
	}
	if plan.Upserts[1].RowID() != 1 || plan.Upserts[1].DisplayOrder != 1 {
		t.Errorf("second upsert = id %d order %d, want id 1 order 1",
			plan.Upserts[1].RowID(), plan.Upserts[1].DisplayOrder)
	}
}

func TestReconcile_FullReplacement(t *testing.T) {
	// 期望列表不含任何已有 ID 时，删除集等于全部存量行。
	desired := []*database.WorkExperience{
		workItem(0, "x"),
		workItem(0, "y"),
	}

	plan, err := Reconcile(7, desired, []uint{10, 11, 12})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(plan.DeleteIDs) != 3 {
		t.Fatalf("delete ids = %v, want all three stored ids", plan.DeleteIDs)
	}
}

func TestReconcile_EmptyDesired(t *testing.T) {
	plan, err := Reconcile[*database.WorkExperience](7, nil, []uint{5, 6})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(plan.DeleteIDs) != 2 || len(plan.Upserts) != 0 {
		t.Fatalf("plan = %+v, want delete all and no upserts", plan)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	desired := []*database.WorkExperience{
		workItem(1, "a"),
		workItem(2, "b"),
	}

	first, err := Reconcile(7, desired, []uint{1, 2})
	if err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	if len(first.DeleteIDs) != 0 {
		t.Fatalf("first delete ids = %v, want empty", first.DeleteIDs)
	}

	// 第二次提交同样的序列：依旧没有删除，order 不变。
	second, err := Reconcile(7, desired, []uint{1, 2})
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if len(second.DeleteIDs) != 0 {
		t.Fatalf("second delete ids = %v, want empty", second.DeleteIDs)
	}
	for i, item := range second.Upserts {
		if item.DisplayOrder != i {
			t.Errorf("item %d: display_order = %d after second run", i, item.DisplayOrder)
		}
	}
}

func TestReconcile_DuplicateIDRejected(t *testing.T) {
	desired := []*database.WorkExperience{
		workItem(1, "a"),
		workItem(1, "a again"),
	}

	_, err := Reconcile(7, desired, []uint{1})
	if !errors.Is(err, ErrDuplicateItem) {
		t.Fatalf("err = %v, want ErrDuplicateItem", err)
	}
}

func TestReconcile_ForeignIDRejected(t *testing.T) {
	desired := []*database.WorkExperience{
		workItem(99, "not mine"),
	}

	_, err := Reconcile(7, desired, []uint{1, 2})
	if !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("err = %v, want ErrUnknownItem", err)
	}
}
