package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"phFolio/internal/api/middleware"
	"phFolio/internal/database"
)

// ProfileHandler 负责当前用户档案的读写，可见性在这里设置。
type ProfileHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewProfileHandler 构造 ProfileHandler。
func NewProfileHandler(db *gorm.DB, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{db: db, logger: logger}
}

type updateProfileRequest struct {
	Username    string `json:"username" binding:"omitempty,min=3,max=64"`
	FullName    string `json:"full_name" binding:"max=128"`
	AvatarKey   string `json:"avatar_key" binding:"max=512"`
	Website     string `json:"website" binding:"max=512"`
	GithubURL   string `json:"github_url" binding:"max=512"`
	LinkedinURL string `json:"linkedin_url" binding:"max=512"`
	Visibility  string `json:"visibility" binding:"omitempty,oneof=public friends_only private"`
}

type profileResponse struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	AvatarKey   string `json:"avatar_key"`
	Website     string `json:"website"`
	GithubURL   string `json:"github_url"`
	LinkedinURL string `json:"linkedin_url"`
	Visibility  string `json:"visibility"`
}

// GetProfile 返回当前用户档案。
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var user database.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		Internal(c, "failed to load profile")
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(user))
}

// UpdateProfile 保存档案字段；头像引用的对象必须属于当前用户。
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	avatarKey := strings.TrimSpace(req.AvatarKey)
	if avatarKey != "" && !isValidUserAssetObjectKey(userID, avatarKey) {
		BadRequest(c, "invalid avatar object key")
		return
	}

	updates := map[string]any{
		"full_name":    strings.TrimSpace(req.FullName),
		"avatar_key":   avatarKey,
		"website":      strings.TrimSpace(req.Website),
		"github_url":   strings.TrimSpace(req.GithubURL),
		"linkedin_url": strings.TrimSpace(req.LinkedinURL),
	}
	if username := strings.TrimSpace(req.Username); username != "" {
		updates["username"] = username
	}
	if req.Visibility != "" {
		updates["visibility"] = req.Visibility
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Model(&database.User{}).
		Where("id = ?", userID).
		Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			Conflict(c, "username already taken")
			return
		}
		middleware.LoggerFromContext(c).Error("update profile", slog.Any("error", err))
		Internal(c, "failed to update profile")
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		Internal(c, "failed to reload profile")
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(user))
}

func newProfileResponse(user database.User) profileResponse {
	return profileResponse{
		ID:          user.ID,
		Username:    user.Username,
		FullName:    user.FullName,
		AvatarKey:   user.AvatarKey,
		Website:     user.Website,
		GithubURL:   user.GithubURL,
		LinkedinURL: user.LinkedinURL,
		Visibility:  user.Visibility,
	}
}
