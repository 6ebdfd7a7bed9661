package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"phFolio/internal/api/middleware"
	"phFolio/internal/database"
	"phFolio/internal/resume"
)

// PublicHandler 对外提供按用户名访问的作品集页、打印用简历数据与项目详情。
// 可见性规则：public 任何人可看；friends_only 仅本人与已接受的好友；
// private 仅本人。被拒绝访问与用户不存在统一返回 404，不泄露账号是否存在。
type PublicHandler struct {
	db      *gorm.DB
	store   *resume.Store
	storage ObjectStorage
	logger  *slog.Logger
}

// NewPublicHandler 构造 PublicHandler。
func NewPublicHandler(db *gorm.DB, store *resume.Store, storageClient ObjectStorage, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{db: db, store: store, storage: storageClient, logger: logger}
}

const presignTTL = 10 * time.Minute

type publicProfileResponse struct {
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Website     string `json:"website,omitempty"`
	GithubURL   string `json:"github_url,omitempty"`
	LinkedinURL string `json:"linkedin_url,omitempty"`
}

type publicProjectResponse struct {
	projectResponse
	ImageURL string `json:"image_url,omitempty"`
}

type publicPortfolioResponse struct {
	Profile      publicProfileResponse   `json:"profile"`
	Portfolio    *portfolioResponse      `json:"portfolio"`
	MainProjects []publicProjectResponse `json:"main_projects"`
	ToyProjects  []publicProjectResponse `json:"toy_projects"`
	Resume       resumeDataResponse      `json:"resume"`
	IsOwner      bool                    `json:"is_owner"`
}

// GetPortfolioPage 返回公开作品集页全部数据。
func (h *PublicHandler) GetPortfolioPage(c *gin.Context) {
	owner, viewerID, ok := h.resolveViewableOwner(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	resp := publicPortfolioResponse{
		Profile:      h.newPublicProfile(ctx, *owner),
		MainProjects: []publicProjectResponse{},
		ToyProjects:  []publicProjectResponse{},
		Resume:       newResumeDataResponse(emptyResumeData()),
		IsOwner:      viewerID == owner.ID,
	}

	var portfolio database.Portfolio
	err := h.db.WithContext(ctx).Where("user_id = ?", owner.ID).First(&portfolio).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusOK, resp)
		return
	case err != nil:
		Internal(c, "failed to load portfolio")
		return
	}

	portfolioResp := newPortfolioResponse(portfolio)
	resp.Portfolio = &portfolioResp

	var projects []database.Project
	if err := h.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolio.ID).
		Order("display_order ASC").
		Find(&projects).Error; err != nil {
		Internal(c, "failed to load projects")
		return
	}
	for _, project := range projects {
		entry := h.newPublicProject(ctx, project)
		if project.ProjectType == database.ProjectTypeMain {
			resp.MainProjects = append(resp.MainProjects, entry)
		} else {
			resp.ToyProjects = append(resp.ToyProjects, entry)
		}
	}

	data, err := h.store.Load(ctx, portfolio.ID)
	if err != nil {
		middleware.LoggerFromContext(c).Error("load public resume", slog.Any("error", err))
		Internal(c, "failed to load resume data")
		return
	}
	resp.Resume = newResumeDataResponse(data)

	c.JSON(http.StatusOK, resp)
}

// GetResumePage 返回打印简历页所需数据。
func (h *PublicHandler) GetResumePage(c *gin.Context) {
	owner, _, ok := h.resolveViewableOwner(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var portfolio database.Portfolio
	err := h.db.WithContext(ctx).Where("user_id = ?", owner.ID).First(&portfolio).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusOK, gin.H{
			"profile": h.newPublicProfile(ctx, *owner),
			"resume":  newResumeDataResponse(emptyResumeData()),
		})
		return
	case err != nil:
		Internal(c, "failed to load portfolio")
		return
	}

	data, err := h.store.Load(ctx, portfolio.ID)
	if err != nil {
		middleware.LoggerFromContext(c).Error("load printable resume", slog.Any("error", err))
		Internal(c, "failed to load resume data")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile": h.newPublicProfile(ctx, *owner),
		"resume":  newResumeDataResponse(data),
	})
}

// GetProjectPage 返回单个项目的案例详情。
func (h *PublicHandler) GetProjectPage(c *gin.Context) {
	owner, _, ok := h.resolveViewableOwner(c)
	if !ok {
		return
	}

	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid project id")
		return
	}

	ctx := c.Request.Context()
	var project database.Project
	if err := h.db.WithContext(ctx).
		Joins("JOIN portfolios ON portfolios.id = projects.portfolio_id").
		Where("projects.id = ? AND portfolios.user_id = ?", uint(projectID), owner.ID).
		First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "project not found")
			return
		}
		Internal(c, "failed to query project")
		return
	}

	c.JSON(http.StatusOK, h.newPublicProject(ctx, project))
}

// resolveViewableOwner 解析 :username 并执行可见性裁决。
// 拒绝访问时已写好 404 响应并返回 ok=false。
func (h *PublicHandler) resolveViewableOwner(c *gin.Context) (*database.User, uint, bool) {
	username := c.Param("username")
	viewerID, _ := userIDFromContext(c)

	ctx := c.Request.Context()
	var owner database.User
	if err := h.db.WithContext(ctx).Where("username = ?", username).First(&owner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "profile not found")
			return nil, 0, false
		}
		Internal(c, "failed to query profile")
		return nil, 0, false
	}

	if !h.canView(ctx, viewerID, owner) {
		// 与不存在同样返回 404。
		NotFound(c, "profile not found")
		return nil, 0, false
	}
	return &owner, viewerID, true
}

func (h *PublicHandler) canView(ctx context.Context, viewerID uint, owner database.User) bool {
	if viewerID == owner.ID {
		return true
	}
	switch owner.Visibility {
	case database.VisibilityPrivate:
		return false
	case database.VisibilityFriendsOnly:
		if viewerID == 0 {
			return false
		}
		var count int64
		err := h.db.WithContext(ctx).Model(&database.Friendship{}).
			Where("status = ?", database.FriendshipAccepted).
			Where("(requester_id = ? AND receiver_id = ?) OR (requester_id = ? AND receiver_id = ?)",
				viewerID, owner.ID, owner.ID, viewerID).
			Count(&count).Error
		return err == nil && count > 0
	default:
		return true
	}
}

func (h *PublicHandler) newPublicProfile(ctx context.Context, owner database.User) publicProfileResponse {
	resp := publicProfileResponse{
		Username:    owner.Username,
		FullName:    owner.FullName,
		Website:     owner.Website,
		GithubURL:   owner.GithubURL,
		LinkedinURL: owner.LinkedinURL,
	}
	if owner.AvatarKey != "" && h.storage != nil {
		if url, err := h.storage.GeneratePresignedURL(ctx, owner.AvatarKey, presignTTL); err == nil {
			resp.AvatarURL = url
		}
	}
	return resp
}

func (h *PublicHandler) newPublicProject(ctx context.Context, project database.Project) publicProjectResponse {
	entry := publicProjectResponse{projectResponse: newProjectResponse(project)}
	if project.ImageKey != "" && h.storage != nil {
		if url, err := h.storage.GeneratePresignedURL(ctx, project.ImageKey, presignTTL); err == nil {
			entry.ImageURL = url
		}
	}
	return entry
}
