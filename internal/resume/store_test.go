package resume

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"phFolio/internal/database"
)

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(db), db
}

func seedPortfolio(t *testing.T, db *gorm.DB, userID uint) uint {
	t.Helper()
	user := database.User{Model: gorm.Model{ID: userID}, Username: fmt.Sprintf("user-%d", userID)}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	portfolio := database.Portfolio{UserID: userID, Slug: fmt.Sprintf("slug-%d", userID)}
	if err := db.Create(&portfolio).Error; err != nil {
		t.Fatalf("seed portfolio: %v", err)
	}
	return portfolio.ID
}

func storedWork(t *testing.T, db *gorm.DB, portfolioID uint) []database.WorkExperience {
	t.Helper()
	var rows []database.WorkExperience
	if err := db.Where("portfolio_id = ?", portfolioID).
		Order("display_order ASC").Find(&rows).Error; err != nil {
		t.Fatalf("load rows: %v", err)
	}
	return rows
}

func TestSyncWork_RemoveAndReorder(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	portfolioID := seedPortfolio(t, db, 1)

	seed := []*database.WorkExperience{
		{CompanyName: "a"},
		{CompanyName: "b"},
		{CompanyName: "c"},
	}
	if err := store.SyncWork(ctx, 1, portfolioID, seed); err != nil {
		t.Fatalf("seed sync: %v", err)
	}

	rows := storedWork(t, db, portfolioID)
	if len(rows) != 3 {
		t.Fatalf("seeded %d rows, want 3", len(rows))
	}
	idA, idB, idC := rows[0].ID, rows[1].ID, rows[2].ID

	// B 移除，C 与 A 交换顺序。
	desired := []*database.WorkExperience{
		{Model: gorm.Model{ID: idC}, CompanyName: "c"},
		{Model: gorm.Model{ID: idA}, CompanyName: "a"},
	}
	if err := store.SyncWork(ctx, 1, portfolioID, desired); err != nil {
		t.Fatalf("sync: %v", err)
	}

	rows = storedWork(t, db, portfolioID)
	if len(rows) != 2 {
		t.Fatalf("stored %d rows, want 2", len(rows))
	}
	if rows[0].ID != idC || rows[0].DisplayOrder != 0 {
		t.Errorf("row 0 = id %d order %d, want id %d order 0", rows[0].ID, rows[0].DisplayOrder, idC)
	}
	if rows[1].ID != idA || rows[1].DisplayOrder != 1 {
		t.Errorf("row 1 = id %d order %d, want id %d order 1", rows[1].ID, rows[1].DisplayOrder, idA)
	}

	var gone int64
	if err := db.Model(&database.WorkExperience{}).Where("id = ?", idB).Count(&gone).Error; err != nil {
		t.Fatalf("count removed: %v", err)
	}
	if gone != 0 {
		t.Error("removed row still visible")
	}
}

func TestSyncWork_FullReplacement(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	portfolioID := seedPortfolio(t, db, 1)

	if err := store.SyncWork(ctx, 1, portfolioID, []*database.WorkExperience{
		{CompanyName: "old-1"},
		{CompanyName: "old-2"},
	}); err != nil {
		t.Fatalf("seed sync: %v", err)
	}

	// 所有条目都不带 ID：整表替换。
	if err := store.SyncWork(ctx, 1, portfolioID, []*database.WorkExperience{
		{CompanyName: "new-1"},
	}); err != nil {
		t.Fatalf("replace sync: %v", err)
	}

	rows := storedWork(t, db, portfolioID)
	if len(rows) != 1 || rows[0].CompanyName != "new-1" {
		t.Fatalf("rows = %+v, want single new-1", rows)
	}
}

func TestSyncWork_IdempotentSecondSave(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	portfolioID := seedPortfolio(t, db, 1)

	desired := []*database.WorkExperience{
		{CompanyName: "a"},
		{CompanyName: "b"},
	}
	if err := store.SyncWork(ctx, 1, portfolioID, desired); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	before := storedWork(t, db, portfolioID)
	if len(before) != 2 {
		t.Fatalf("stored %d rows after first save, want 2", len(before))
	}
	created := make(map[uint]time.Time, len(before))
	for _, row := range before {
		if row.CreatedAt.IsZero() {
			t.Fatalf("row %d created_at is zero after insert", row.ID)
		}
		created[row.ID] = row.CreatedAt
	}

	// 客户端回传的条目只带 ID，其余 gorm.Model 字段全是零值；
	// 重复提交应是无操作，不能把零值时间写回库里。
	resubmit := make([]*database.WorkExperience, 0, len(before))
	for _, row := range before {
		resubmit = append(resubmit, &database.WorkExperience{
			Model:       gorm.Model{ID: row.ID},
			CompanyName: row.CompanyName,
		})
	}
	if err := store.SyncWork(ctx, 1, portfolioID, resubmit); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	rows := storedWork(t, db, portfolioID)
	if len(rows) != 2 {
		t.Fatalf("stored %d rows after idempotent save, want 2", len(rows))
	}
	for i, row := range rows {
		if row.DisplayOrder != i {
			t.Errorf("row %d order = %d, want %d", i, row.DisplayOrder, i)
		}
		if !row.CreatedAt.Equal(created[row.ID]) {
			t.Errorf("row %d created_at = %v, want %v", row.ID, row.CreatedAt, created[row.ID])
		}
	}
}

func TestSyncWork_OwnershipEnforced(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	portfolioID := seedPortfolio(t, db, 1)
	seedPortfolio(t, db, 2)

	err := store.SyncWork(ctx, 2, portfolioID, []*database.WorkExperience{
		{CompanyName: "intruder"},
	})
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}

	if rows := storedWork(t, db, portfolioID); len(rows) != 0 {
		t.Fatal("mutation happened despite ownership failure")
	}
}

func TestSyncWork_AtomicOnUpsertFailure(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	portfolioID := seedPortfolio(t, db, 1)

	if err := store.SyncWork(ctx, 1, portfolioID, []*database.WorkExperience{
		{CompanyName: "a"},
		{CompanyName: "b"},
		{CompanyName: "c"},
	}); err != nil {
		t.Fatalf("seed sync: %v", err)
	}
	before := storedWork(t, db, portfolioID)

	// 借唯一索引强制让第二个 upsert 失败，验证事务整体回滚：
	// 删除集（b、c）不得生效，已写入的第一行也要消失。
	if err := db.Exec(
		"CREATE UNIQUE INDEX idx_work_unique_company ON work_experiences(portfolio_id, company_name)",
	).Error; err != nil {
		t.Fatalf("create unique index: %v", err)
	}

	err := store.SyncWork(ctx, 1, portfolioID, []*database.WorkExperience{
		{Model: gorm.Model{ID: before[0].ID}, CompanyName: "a"},
		{CompanyName: "dup"},
		{CompanyName: "dup"},
	})
	if err == nil {
		t.Fatal("sync succeeded, want constraint failure")
	}

	after := storedWork(t, db, portfolioID)
	if len(after) != len(before) {
		t.Fatalf("stored %d rows after failed sync, want %d untouched", len(after), len(before))
	}
	for i := range before {
		if after[i].ID != before[i].ID || after[i].CompanyName != before[i].CompanyName {
			t.Errorf("row %d changed after failed sync: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestReorderProjects(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	portfolioID := seedPortfolio(t, db, 1)

	projects := []database.Project{
		{PortfolioID: portfolioID, Name: "p0", DisplayOrder: 0},
		{PortfolioID: portfolioID, Name: "p1", DisplayOrder: 1},
		{PortfolioID: portfolioID, Name: "p2", DisplayOrder: 2},
	}
	for i := range projects {
		if err := db.Create(&projects[i]).Error; err != nil {
			t.Fatalf("seed project: %v", err)
		}
	}

	ordered := []uint{projects[2].ID, projects[0].ID, projects[1].ID}
	if err := store.ReorderProjects(ctx, 1, portfolioID, ordered); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	var rows []database.Project
	if err := db.Where("portfolio_id = ?", portfolioID).
		Order("display_order ASC").Find(&rows).Error; err != nil {
		t.Fatalf("load projects: %v", err)
	}
	want := []string{"p2", "p0", "p1"}
	for i, row := range rows {
		if row.Name != want[i] {
			t.Errorf("position %d = %q, want %q", i, row.Name, want[i])
		}
	}
}

func TestReorderProjects_ForeignProjectRejected(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	mine := seedPortfolio(t, db, 1)
	theirs := seedPortfolio(t, db, 2)

	foreign := database.Project{PortfolioID: theirs, Name: "not-mine"}
	if err := db.Create(&foreign).Error; err != nil {
		t.Fatalf("seed foreign project: %v", err)
	}

	err := store.ReorderProjects(ctx, 1, mine, []uint{foreign.ID})
	if !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("err = %v, want ErrUnknownItem", err)
	}
}

func TestLoad_OrderedByDisplayOrder(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	portfolioID := seedPortfolio(t, db, 1)

	if err := store.SyncAwards(ctx, 1, portfolioID, []*database.Award{
		{Title: "gold"},
		{Title: "silver"},
	}); err != nil {
		t.Fatalf("sync awards: %v", err)
	}

	data, err := store.Load(ctx, portfolioID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(data.Awards) != 2 || data.Awards[0].Title != "gold" {
		t.Fatalf("awards = %+v, want gold first", data.Awards)
	}
	if data.Work == nil || data.Languages == nil {
		t.Error("empty categories must be non-nil slices")
	}
}
