package api

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"phFolio/internal/database"
	"phFolio/internal/resume"
)

func newResumeTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	store := resume.NewStore(db)
	handler := NewResumeHandler(db, store, nil)

	router := gin.New()
	router.Use(identityFromHeader())
	group := router.Group("/v1/resume")
	group.GET("", handler.GetResume)
	group.PUT("/work", handler.UpdateWork)
	group.PUT("/awards", handler.UpdateAwards)
	return router
}

func seedWorkRows(t *testing.T, db *gorm.DB, portfolioID uint, companies ...string) []database.WorkExperience {
	t.Helper()
	rows := make([]database.WorkExperience, 0, len(companies))
	for i, company := range companies {
		row := database.WorkExperience{
			PortfolioID:  portfolioID,
			CompanyName:  company,
			Role:         "Engineer",
			DisplayOrder: i,
		}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("seed work row %s: %v", company, err)
		}
		rows = append(rows, row)
	}
	return rows
}

func TestUpdateWork_FullSyncReplacesStoredRows(t *testing.T) {
	db := newHandlerDB(t)
	user := seedUser(t, db, "alice", database.VisibilityPublic)
	portfolio := seedUserPortfolio(t, db, user)
	stored := seedWorkRows(t, db, portfolio.ID, "Acme", "Beta", "Corp")

	router := newResumeTestRouter(db)

	// 提交 [Corp, Acme]：Beta 缺席应被删除，顺序重排。
	body := gin.H{"items": []gin.H{
		{"id": stored[2].ID, "company_name": "Corp", "role": "Engineer"},
		{"id": stored[0].ID, "company_name": "Acme", "role": "Staff Engineer"},
	}}
	w := doJSON(t, router, http.MethodPut, "/v1/resume/work", user.ID, body)
	requireStatus(t, w, http.StatusOK)

	var resp struct {
		Items []workItemResponse `json:"items"`
	}
	decodeBody(t, w, &resp)

	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 items got %d", len(resp.Items))
	}
	if resp.Items[0].CompanyName != "Corp" || resp.Items[0].DisplayOrder != 0 {
		t.Fatalf("unexpected first item: %+v", resp.Items[0])
	}
	if resp.Items[1].CompanyName != "Acme" || resp.Items[1].DisplayOrder != 1 {
		t.Fatalf("unexpected second item: %+v", resp.Items[1])
	}
	if resp.Items[1].Role != "Staff Engineer" {
		t.Fatalf("expected role update to persist, got %q", resp.Items[1].Role)
	}

	var count int64
	if err := db.Model(&database.WorkExperience{}).Where("portfolio_id = ?", portfolio.ID).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 stored rows got %d", count)
	}
	var gone database.WorkExperience
	if err := db.First(&gone, stored[1].ID).Error; err == nil {
		t.Fatalf("expected row %d to be deleted", stored[1].ID)
	}
}

func TestUpdateWork_TrimsAndNullsOptionalFields(t *testing.T) {
	db := newHandlerDB(t)
	user := seedUser(t, db, "bob", database.VisibilityPublic)
	seedUserPortfolio(t, db, user)

	router := newResumeTestRouter(db)

	body := gin.H{"items": []gin.H{
		{"company_name": "  Acme  ", "role": "Engineer", "start_date": "   ", "description": " shipped things "},
	}}
	w := doJSON(t, router, http.MethodPut, "/v1/resume/work", user.ID, body)
	requireStatus(t, w, http.StatusOK)

	var resp struct {
		Items []workItemResponse `json:"items"`
	}
	decodeBody(t, w, &resp)
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 item got %d", len(resp.Items))
	}
	item := resp.Items[0]
	if item.CompanyName != "Acme" {
		t.Fatalf("expected trimmed company name, got %q", item.CompanyName)
	}
	if item.StartDate != nil {
		t.Fatalf("expected blank start_date to become null, got %q", *item.StartDate)
	}
	if item.Description == nil || *item.Description != "shipped things" {
		t.Fatalf("unexpected description: %v", item.Description)
	}
}

func TestUpdateWork_RejectsDuplicateAndForeignIDs(t *testing.T) {
	db := newHandlerDB(t)
	user := seedUser(t, db, "carol", database.VisibilityPublic)
	portfolio := seedUserPortfolio(t, db, user)
	stored := seedWorkRows(t, db, portfolio.ID, "Acme")

	router := newResumeTestRouter(db)

	dup := gin.H{"items": []gin.H{
		{"id": stored[0].ID, "company_name": "Acme", "role": "Engineer"},
		{"id": stored[0].ID, "company_name": "Acme Again", "role": "Engineer"},
	}}
	w := doJSON(t, router, http.MethodPut, "/v1/resume/work", user.ID, dup)
	requireStatus(t, w, http.StatusBadRequest)

	foreign := gin.H{"items": []gin.H{
		{"id": stored[0].ID + 999, "company_name": "Ghost", "role": "Engineer"},
	}}
	w = doJSON(t, router, http.MethodPut, "/v1/resume/work", user.ID, foreign)
	requireStatus(t, w, http.StatusBadRequest)

	// 两次被拒后原数据保持不变。
	var count int64
	if err := db.Model(&database.WorkExperience{}).Where("portfolio_id = ?", portfolio.ID).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected stored rows untouched, got %d", count)
	}
}

func TestUpdateAwards_LazilyCreatesPortfolio(t *testing.T) {
	db := newHandlerDB(t)
	user := seedUser(t, db, "dave", database.VisibilityPublic)

	router := newResumeTestRouter(db)

	body := gin.H{"items": []gin.H{
		{"title": "Best Hack", "issuer": "Hackathon"},
	}}
	w := doJSON(t, router, http.MethodPut, "/v1/resume/awards", user.ID, body)
	requireStatus(t, w, http.StatusOK)

	var portfolio database.Portfolio
	if err := db.Where("user_id = ?", user.ID).First(&portfolio).Error; err != nil {
		t.Fatalf("expected portfolio to be created: %v", err)
	}
	if portfolio.Slug != "dave" {
		t.Fatalf("expected username slug, got %q", portfolio.Slug)
	}
}

func TestGetResume_EmptyWithoutPortfolio(t *testing.T) {
	db := newHandlerDB(t)
	user := seedUser(t, db, "erin", database.VisibilityPublic)

	router := newResumeTestRouter(db)

	w := doJSON(t, router, http.MethodGet, "/v1/resume", user.ID, nil)
	requireStatus(t, w, http.StatusOK)

	var resp resumeDataResponse
	decodeBody(t, w, &resp)
	if len(resp.Work) != 0 || len(resp.Education) != 0 || len(resp.Awards) != 0 ||
		len(resp.Certifications) != 0 || len(resp.Languages) != 0 {
		t.Fatalf("expected all categories empty: %+v", resp)
	}
}

func TestUpdateWork_Unauthenticated(t *testing.T) {
	db := newHandlerDB(t)
	router := newResumeTestRouter(db)

	w := doJSON(t, router, http.MethodPut, "/v1/resume/work", 0, gin.H{"items": []gin.H{}})
	requireStatus(t, w, http.StatusUnauthorized)
}
