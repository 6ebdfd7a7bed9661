package api

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"phFolio/internal/database"
	"phFolio/internal/resume"
)

func newProjectTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	store := resume.NewStore(db)
	handler := NewProjectHandler(db, store, nil)

	router := gin.New()
	router.Use(identityFromHeader())
	group := router.Group("/v1/projects")
	group.GET("", handler.ListProjects)
	group.POST("", handler.CreateProject)
	group.PUT("/reorder", handler.ReorderProjects)
	return router
}

func seedProjects(t *testing.T, db *gorm.DB, portfolioID uint, names ...string) []database.Project {
	t.Helper()
	rows := make([]database.Project, 0, len(names))
	for i, name := range names {
		row := database.Project{
			PortfolioID:  portfolioID,
			Name:         name,
			ProjectType:  database.ProjectTypeToy,
			DisplayOrder: i,
		}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("seed project %s: %v", name, err)
		}
		rows = append(rows, row)
	}
	return rows
}

func TestReorderProjects_RewritesDisplayOrder(t *testing.T) {
	db := newHandlerDB(t)
	user := seedUser(t, db, "frank", database.VisibilityPublic)
	portfolio := seedUserPortfolio(t, db, user)
	projects := seedProjects(t, db, portfolio.ID, "one", "two", "three")

	router := newProjectTestRouter(db)

	body := gin.H{"ordered_ids": []uint{projects[2].ID, projects[0].ID, projects[1].ID}}
	w := doJSON(t, router, http.MethodPut, "/v1/projects/reorder", user.ID, body)
	requireStatus(t, w, http.StatusOK)

	w = doJSON(t, router, http.MethodGet, "/v1/projects", user.ID, nil)
	requireStatus(t, w, http.StatusOK)

	var listed []projectResponse
	decodeBody(t, w, &listed)
	if len(listed) != 3 {
		t.Fatalf("expected 3 projects got %d", len(listed))
	}
	wantNames := []string{"three", "one", "two"}
	for i, want := range wantNames {
		if listed[i].Name != want {
			t.Fatalf("position %d: expected %q got %q", i, want, listed[i].Name)
		}
		if listed[i].DisplayOrder != i {
			t.Fatalf("position %d: expected display_order %d got %d", i, i, listed[i].DisplayOrder)
		}
	}
}

func TestReorderProjects_RejectsForeignProject(t *testing.T) {
	db := newHandlerDB(t)
	owner := seedUser(t, db, "gina", database.VisibilityPublic)
	other := seedUser(t, db, "hank", database.VisibilityPublic)
	ownerPortfolio := seedUserPortfolio(t, db, owner)
	otherPortfolio := seedUserPortfolio(t, db, other)
	mine := seedProjects(t, db, ownerPortfolio.ID, "mine")
	theirs := seedProjects(t, db, otherPortfolio.ID, "theirs")

	router := newProjectTestRouter(db)

	body := gin.H{"ordered_ids": []uint{mine[0].ID, theirs[0].ID}}
	w := doJSON(t, router, http.MethodPut, "/v1/projects/reorder", owner.ID, body)
	requireStatus(t, w, http.StatusBadRequest)

	var unchanged database.Project
	if err := db.First(&unchanged, theirs[0].ID).Error; err != nil {
		t.Fatalf("load foreign project: %v", err)
	}
	if unchanged.DisplayOrder != 0 {
		t.Fatalf("foreign project order must not change, got %d", unchanged.DisplayOrder)
	}
}

func TestCreateProject_SanitizesCaseStudyHTML(t *testing.T) {
	db := newHandlerDB(t)
	user := seedUser(t, db, "iris", database.VisibilityPublic)
	seedUserPortfolio(t, db, user)

	router := newProjectTestRouter(db)

	body := gin.H{
		"name":             "phishing demo",
		"long_description": `<p>fine</p><script>alert(1)</script>`,
	}
	w := doJSON(t, router, http.MethodPost, "/v1/projects", user.ID, body)
	requireStatus(t, w, http.StatusCreated)

	var resp projectResponse
	decodeBody(t, w, &resp)
	if resp.LongDescription != "<p>fine</p>" {
		t.Fatalf("expected script stripped, got %q", resp.LongDescription)
	}
}
