package api

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"phFolio/internal/config"
	"phFolio/internal/database"
)

// assetStore 记录已上传资产，用于配额控制与列表查询。
type assetStore interface {
	Create(ctx context.Context, asset database.Asset) error
	CountByUser(ctx context.Context, userID uint) (int64, error)
	ListByUser(ctx context.Context, userID uint, limit int) ([]database.Asset, error)
	Delete(ctx context.Context, userID uint, objectKey string) error
}

type gormAssetStore struct {
	db *gorm.DB
}

func newGormAssetStore(db *gorm.DB) *gormAssetStore {
	return &gormAssetStore{db: db}
}

func (s *gormAssetStore) Create(ctx context.Context, asset database.Asset) error {
	return s.db.WithContext(ctx).Create(&asset).Error
}

func (s *gormAssetStore) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&database.Asset{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (s *gormAssetStore) ListByUser(ctx context.Context, userID uint, limit int) ([]database.Asset, error) {
	var assets []database.Asset
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&assets).Error
	return assets, err
}

func (s *gormAssetStore) Delete(ctx context.Context, userID uint, objectKey string) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND object_key = ?", userID, objectKey).
		Delete(&database.Asset{}).Error
}

// AssetHandler 负责处理资产上传、列表与访问。
// 上传前先做病毒扫描，通过后写入私有 Bucket 并登记配额。
type AssetHandler struct {
	store         assetStore
	Storage       ObjectStorage
	Logger        *slog.Logger
	ClamdAddr     string
	MaxBytes      int64
	MIMEWhitelist []string
	RedisClient   redisRateCounter

	maxAssetsPerUser int
	maxUploadsPerDay int
}

// NewAssetHandler 返回 AssetHandler 实例。
func NewAssetHandler(db *gorm.DB, storageClient ObjectStorage, redisClient redisRateCounter, logger *slog.Logger, cfg config.UploadConfig) *AssetHandler {
	return &AssetHandler{
		store:            newGormAssetStore(db),
		Storage:          storageClient,
		Logger:           logger,
		ClamdAddr:        cfg.ClamdAddr,
		MaxBytes:         cfg.MaxBytes,
		MIMEWhitelist:    []string{"image/png", "image/jpeg", "image/webp"},
		RedisClient:      redisClient,
		maxAssetsPerUser: cfg.MaxAssetsPerUser,
		maxUploadsPerDay: cfg.MaxUploadsPerDay,
	}
}

var allowedAssetExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// UploadAsset 处理受保护的图片上传。
// 流程：类型白名单 → 存量/当日配额 → clamd 扫描 → MinIO 上传 → 登记。
func (h *AssetHandler) UploadAsset(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}

	if h.MaxBytes > 0 && file.Size > h.MaxBytes {
		Error(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	ext := strings.ToLower(path.Ext(file.Filename))
	contentType, allowed := allowedAssetExtensions[ext]
	if !allowed || !h.mimeAllowed(contentType) {
		BadRequest(c, "unsupported file type")
		return
	}

	ctx := c.Request.Context()
	if h.maxAssetsPerUser > 0 {
		count, err := h.store.CountByUser(ctx, userID)
		if err != nil {
			h.logError("count assets", err)
			Internal(c, "failed to check asset quota")
			return
		}
		if count >= int64(h.maxAssetsPerUser) {
			Forbidden(c, "asset quota exceeded")
			return
		}
	}

	if h.RedisClient != nil && h.maxUploadsPerDay > 0 {
		key := fmt.Sprintf("upload_quota:%d:%s", userID, time.Now().UTC().Format("2006-01-02"))
		count, err := incrWithTTL(ctx, h.RedisClient, key, 24*time.Hour)
		if err != nil {
			// 配额计数失败不阻断上传，只记录。
			h.logError("upload quota counter", err)
		} else if count > int64(h.maxUploadsPerDay) {
			Error(c, http.StatusTooManyRequests, "daily upload limit reached")
			return
		}
	}

	if h.ClamdAddr != "" {
		clean, err := h.scanUpload(file)
		if err != nil {
			h.logError("scan file", err)
			Internal(c, "failed to scan file")
			return
		}
		if !clean {
			BadRequest(c, "malicious file detected")
			return
		}
	}

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	defer fileReader.Close()

	objectKey := fmt.Sprintf("user-assets/%d/%s%s", userID, uuid.NewString(), ext)
	if _, err := h.Storage.UploadFile(ctx, objectKey, fileReader, file.Size, contentType); err != nil {
		h.logError("upload file", err)
		Internal(c, "failed to upload file")
		return
	}

	if err := h.store.Create(ctx, database.Asset{UserID: userID, ObjectKey: objectKey, Size: file.Size}); err != nil {
		h.logError("record asset", err)
		// 对象已上传成功，登记失败时回收以免产生无主对象。
		if cleanupErr := h.Storage.DeleteObject(ctx, objectKey); cleanupErr != nil {
			h.logError("cleanup orphan object", cleanupErr)
		}
		Internal(c, "failed to record asset")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"objectKey": objectKey})
}

// ListAssets 按上传时间倒序列出用户资产及预览链接。
func (h *AssetHandler) ListAssets(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	assets, err := h.store.ListByUser(ctx, userID, 200)
	if err != nil {
		h.logError("list assets", err)
		Internal(c, "failed to list assets")
		return
	}

	items := make([]gin.H, 0, len(assets))
	for _, asset := range assets {
		url, err := h.Storage.GeneratePresignedURL(ctx, asset.ObjectKey, 10*time.Minute)
		if err != nil {
			h.logError("generate asset url", err)
			continue
		}
		items = append(items, gin.H{
			"objectKey":  asset.ObjectKey,
			"previewUrl": url,
			"size":       asset.Size,
			"uploadedAt": asset.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetAssetURL 返回资产的临时预签名 URL。
func (h *AssetHandler) GetAssetURL(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	objectKey := c.Query("objectKey")
	if objectKey == "" {
		objectKey = c.Query("key")
	}
	if !isValidUserAssetObjectKey(userID, objectKey) {
		Forbidden(c, "access denied")
		return
	}

	signedURL, err := h.Storage.GeneratePresignedURL(c.Request.Context(), objectKey, 15*time.Minute)
	if err != nil {
		h.logError("generate presigned url", err)
		Internal(c, "failed to generate url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

// DeleteAsset 删除用户自己的资产对象及其登记记录。
func (h *AssetHandler) DeleteAsset(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	objectKey := c.Query("objectKey")
	if !isValidUserAssetObjectKey(userID, objectKey) {
		Forbidden(c, "access denied")
		return
	}

	ctx := c.Request.Context()
	if err := h.Storage.DeleteObject(ctx, objectKey); err != nil {
		h.logError("delete object", err)
		Internal(c, "failed to delete asset")
		return
	}
	if err := h.store.Delete(ctx, userID, objectKey); err != nil {
		h.logError("delete asset record", err)
		Internal(c, "failed to delete asset")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *AssetHandler) scanUpload(file *multipart.FileHeader) (bool, error) {
	fileReader, err := file.Open()
	if err != nil {
		return false, fmt.Errorf("open upload: %w", err)
	}
	defer fileReader.Close()

	clamdClient := clamd.NewClamd(h.ClamdAddr)
	abortChan := make(chan bool)
	defer close(abortChan)

	scanChan, err := clamdClient.ScanStream(fileReader, abortChan)
	if err != nil {
		return false, fmt.Errorf("scan stream: %w", err)
	}
	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return false, nil
		}
	}
	return true, nil
}

func (h *AssetHandler) mimeAllowed(contentType string) bool {
	if len(h.MIMEWhitelist) == 0 {
		return true
	}
	for _, allowed := range h.MIMEWhitelist {
		if allowed == contentType {
			return true
		}
	}
	return false
}

func (h *AssetHandler) logError(msg string, err error) {
	if h.Logger == nil {
		return
	}
	h.Logger.Error(msg, slog.String("error", err.Error()))
}
