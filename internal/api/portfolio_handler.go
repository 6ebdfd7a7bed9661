package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"phFolio/internal/api/middleware"
	"phFolio/internal/database"
)

// PortfolioHandler 负责当前用户作品集容器的读写。
// Portfolio 按用户唯一，首次保存时惰性创建。
type PortfolioHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewPortfolioHandler 构造 PortfolioHandler。
func NewPortfolioHandler(db *gorm.DB, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{db: db, logger: logger}
}

type updatePortfolioRequest struct {
	Title  string   `json:"title" binding:"max=255"`
	Bio    string   `json:"bio"`
	Slug   string   `json:"slug" binding:"max=64"`
	Skills []string `json:"skills"`
}

type portfolioResponse struct {
	ID     uint     `json:"id"`
	Slug   string   `json:"slug"`
	Title  string   `json:"title"`
	Bio    string   `json:"bio"`
	Skills []string `json:"skills"`
}

// GetPortfolio 返回当前用户的 Portfolio；尚未创建时返回空对象。
func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var portfolio database.Portfolio
	err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		First(&portfolio).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, portfolioResponse{Skills: []string{}})
			return
		}
		Internal(c, "failed to load portfolio")
		return
	}

	c.JSON(http.StatusOK, newPortfolioResponse(portfolio))
}

// UpdatePortfolio 保存作品集信息，不存在时创建。
func (h *PortfolioHandler) UpdatePortfolio(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req updatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	portfolio, err := getOrCreatePortfolio(ctx, h.db, userID)
	if err != nil {
		middleware.LoggerFromContext(c).Error("ensure portfolio", slog.Any("error", err))
		Internal(c, "failed to prepare portfolio")
		return
	}

	skills := make([]string, 0, len(req.Skills))
	for _, skill := range req.Skills {
		if trimmed := strings.TrimSpace(skill); trimmed != "" {
			skills = append(skills, trimmed)
		}
	}
	skillsJSON, err := json.Marshal(skills)
	if err != nil {
		Internal(c, "failed to encode skills")
		return
	}

	updates := map[string]any{
		"title":  strings.TrimSpace(req.Title),
		"bio":    strings.TrimSpace(req.Bio),
		"skills": datatypes.JSON(skillsJSON),
	}
	if slug := strings.TrimSpace(req.Slug); slug != "" {
		updates["slug"] = slug
	}

	if err := h.db.WithContext(ctx).Model(portfolio).Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			Conflict(c, "slug already taken")
			return
		}
		middleware.LoggerFromContext(c).Error("update portfolio", slog.Any("error", err))
		Internal(c, "failed to update portfolio")
		return
	}

	if err := h.db.WithContext(ctx).First(portfolio, portfolio.ID).Error; err != nil {
		Internal(c, "failed to reload portfolio")
		return
	}

	c.JSON(http.StatusOK, newPortfolioResponse(*portfolio))
}

// getOrCreatePortfolio 返回用户的 Portfolio，不存在时以用户名作默认 slug 创建。
func getOrCreatePortfolio(ctx context.Context, db *gorm.DB, userID uint) (*database.Portfolio, error) {
	var portfolio database.Portfolio
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&portfolio).Error
	if err == nil {
		return &portfolio, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("query portfolio: %w", err)
	}

	var user database.User
	if err := db.WithContext(ctx).Select("id", "username").First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	portfolio = database.Portfolio{
		UserID: userID,
		Slug:   user.Username,
		Skills: datatypes.JSON([]byte("[]")),
	}
	if err := db.WithContext(ctx).Create(&portfolio).Error; err != nil {
		// 并发首保存时另一请求可能已创建，回读兜底。
		if isUniqueViolation(err) {
			if retryErr := db.WithContext(ctx).Where("user_id = ?", userID).First(&portfolio).Error; retryErr == nil {
				return &portfolio, nil
			}
		}
		return nil, fmt.Errorf("create portfolio: %w", err)
	}
	return &portfolio, nil
}

func newPortfolioResponse(portfolio database.Portfolio) portfolioResponse {
	skills := []string{}
	if len(portfolio.Skills) > 0 {
		_ = json.Unmarshal(portfolio.Skills, &skills)
	}
	return portfolioResponse{
		ID:     portfolio.ID,
		Slug:   portfolio.Slug,
		Title:  portfolio.Title,
		Bio:    portfolio.Bio,
		Skills: skills,
	}
}

// isUniqueViolation 粗判唯一约束冲突（postgres 23505 / sqlite UNIQUE）。
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
