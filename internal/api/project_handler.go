package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"phFolio/internal/api/middleware"
	"phFolio/internal/database"
	"phFolio/internal/resume"
)

// ProjectHandler 负责项目的增删改查与排序。
// 案例详情字段（长描述/挑战/方案/排错）允许富文本，入库前统一过滤。
type ProjectHandler struct {
	db     *gorm.DB
	store  *resume.Store
	logger *slog.Logger
	html   *bluemonday.Policy
}

// NewProjectHandler 构造 ProjectHandler。
func NewProjectHandler(db *gorm.DB, store *resume.Store, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		db:     db,
		store:  store,
		logger: logger,
		html:   bluemonday.UGCPolicy(),
	}
}

var errInvalidProjectID = errors.New("invalid project id")

type projectRequest struct {
	Name            string   `json:"name" binding:"required,max=255"`
	Description     string   `json:"description"`
	URL             string   `json:"url" binding:"max=512"`
	ImageKey        string   `json:"image_key" binding:"max=512"`
	ProjectType     string   `json:"project_type" binding:"omitempty,oneof=main toy"`
	TechStack       []string `json:"tech_stack"`
	LongDescription string   `json:"long_description"`
	Challenges      string   `json:"challenges"`
	Solutions       string   `json:"solutions"`
	Troubleshooting string   `json:"troubleshooting"`
	Slug            string   `json:"slug" binding:"max=64"`
}

type projectResponse struct {
	ID              uint     `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	URL             string   `json:"url"`
	ImageKey        string   `json:"image_key"`
	ProjectType     string   `json:"project_type"`
	TechStack       []string `json:"tech_stack"`
	DisplayOrder    int      `json:"display_order"`
	LongDescription string   `json:"long_description"`
	Challenges      string   `json:"challenges"`
	Solutions       string   `json:"solutions"`
	Troubleshooting string   `json:"troubleshooting"`
	Slug            string   `json:"slug"`
}

// ListProjects 按 display_order 返回当前用户全部项目。
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	var portfolio database.Portfolio
	if err := h.db.WithContext(ctx).Where("user_id = ?", userID).First(&portfolio).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, []projectResponse{})
			return
		}
		Internal(c, "failed to load portfolio")
		return
	}

	var projects []database.Project
	if err := h.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolio.ID).
		Order("display_order ASC, created_at DESC").
		Find(&projects).Error; err != nil {
		Internal(c, "failed to list projects")
		return
	}

	items := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		items = append(items, newProjectResponse(p))
	}
	c.JSON(http.StatusOK, items)
}

// CreateProject 新建项目并追加到排序末尾。
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.ImageKey != "" && !isValidUserAssetObjectKey(userID, req.ImageKey) {
		BadRequest(c, "invalid image object key")
		return
	}

	ctx := c.Request.Context()
	portfolio, err := getOrCreatePortfolio(ctx, h.db, userID)
	if err != nil {
		middleware.LoggerFromContext(c).Error("ensure portfolio", slog.Any("error", err))
		Internal(c, "failed to prepare portfolio")
		return
	}

	var maxOrder int64
	if err := h.db.WithContext(ctx).Model(&database.Project{}).
		Where("portfolio_id = ?", portfolio.ID).
		Count(&maxOrder).Error; err != nil {
		Internal(c, "failed to count projects")
		return
	}

	project := database.Project{
		PortfolioID:  portfolio.ID,
		DisplayOrder: int(maxOrder),
	}
	h.applyRequest(&project, req)

	if err := h.db.WithContext(ctx).Create(&project).Error; err != nil {
		middleware.LoggerFromContext(c).Error("create project", slog.Any("error", err))
		Internal(c, "failed to create project")
		return
	}

	c.JSON(http.StatusCreated, newProjectResponse(project))
}

// UpdateProject 覆盖指定项目，归属不变。
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.ImageKey != "" && !isValidUserAssetObjectKey(userID, req.ImageKey) {
		BadRequest(c, "invalid image object key")
		return
	}

	ctx := c.Request.Context()
	project, err := h.getProjectForUser(c, userID)
	if err != nil {
		return
	}

	h.applyRequest(project, req)
	if err := h.db.WithContext(ctx).Save(project).Error; err != nil {
		middleware.LoggerFromContext(c).Error("update project", slog.Any("error", err))
		Internal(c, "failed to update project")
		return
	}

	c.JSON(http.StatusOK, newProjectResponse(*project))
}

// DeleteProject 删除指定项目。
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	project, err := h.getProjectForUser(c, userID)
	if err != nil {
		return
	}

	if err := h.db.WithContext(c.Request.Context()).
		Delete(&database.Project{}, project.ID).Error; err != nil {
		Internal(c, "failed to delete project")
		return
	}

	c.Status(http.StatusNoContent)
}

type reorderProjectsRequest struct {
	OrderedIDs []uint `json:"ordered_ids"`
}

// ReorderProjects 按提交顺序重写 display_order。
func (h *ProjectHandler) ReorderProjects(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req reorderProjectsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	var portfolio database.Portfolio
	if err := h.db.WithContext(ctx).Where("user_id = ?", userID).First(&portfolio).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "portfolio not found")
			return
		}
		Internal(c, "failed to load portfolio")
		return
	}

	if err := h.store.ReorderProjects(ctx, userID, portfolio.ID, req.OrderedIDs); err != nil {
		switch {
		case errors.Is(err, resume.ErrNotOwner):
			Forbidden(c, "portfolio not owned by user")
		case errors.Is(err, resume.ErrDuplicateItem), errors.Is(err, resume.ErrUnknownItem):
			BadRequest(c, err.Error())
		default:
			middleware.LoggerFromContext(c).Error("reorder projects", slog.Any("error", err))
			Internal(c, "failed to reorder projects")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *ProjectHandler) applyRequest(project *database.Project, req projectRequest) {
	techStack := make([]string, 0, len(req.TechStack))
	for _, item := range req.TechStack {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			techStack = append(techStack, trimmed)
		}
	}
	techJSON, err := json.Marshal(techStack)
	if err != nil {
		techJSON = []byte("[]")
	}

	projectType := req.ProjectType
	if projectType == "" {
		projectType = database.ProjectTypeToy
	}

	project.Name = strings.TrimSpace(req.Name)
	project.Description = strings.TrimSpace(req.Description)
	project.URL = strings.TrimSpace(req.URL)
	project.ImageKey = strings.TrimSpace(req.ImageKey)
	project.ProjectType = projectType
	project.TechStack = datatypes.JSON(techJSON)
	project.LongDescription = h.html.Sanitize(req.LongDescription)
	project.Challenges = h.html.Sanitize(req.Challenges)
	project.Solutions = h.html.Sanitize(req.Solutions)
	project.Troubleshooting = h.html.Sanitize(req.Troubleshooting)
	project.Slug = strings.TrimSpace(req.Slug)
}

// getProjectForUser 解析 :id 并校验项目归属，失败时已写好响应。
func (h *ProjectHandler) getProjectForUser(c *gin.Context, userID uint) (*database.Project, error) {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid project id")
		return nil, errInvalidProjectID
	}

	ctx := c.Request.Context()
	var project database.Project
	if err := h.db.WithContext(ctx).
		Joins("JOIN portfolios ON portfolios.id = projects.portfolio_id").
		Where("projects.id = ? AND portfolios.user_id = ?", uint(projectID), userID).
		First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "project not found")
		} else {
			Internal(c, "failed to query project")
		}
		return nil, err
	}
	return &project, nil
}

func newProjectResponse(project database.Project) projectResponse {
	techStack := []string{}
	if len(project.TechStack) > 0 {
		_ = json.Unmarshal(project.TechStack, &techStack)
	}
	return projectResponse{
		ID:              project.ID,
		Name:            project.Name,
		Description:     project.Description,
		URL:             project.URL,
		ImageKey:        project.ImageKey,
		ProjectType:     project.ProjectType,
		TechStack:       techStack,
		DisplayOrder:    project.DisplayOrder,
		LongDescription: project.LongDescription,
		Challenges:      project.Challenges,
		Solutions:       project.Solutions,
		Troubleshooting: project.Troubleshooting,
		Slug:            project.Slug,
	}
}
