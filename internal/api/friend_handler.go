package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"phFolio/internal/api/middleware"
	"phFolio/internal/database"
	"phFolio/internal/tasks"
)

// FriendHandler 负责好友关系：发起、接受、拒绝请求与好友列表。
// 事件通过 Asynq 入队，由 worker 推送给接收方。
type FriendHandler struct {
	db          *gorm.DB
	asynqClient *asynq.Client
	logger      *slog.Logger
}

// NewFriendHandler 构造 FriendHandler。
func NewFriendHandler(db *gorm.DB, asynqClient *asynq.Client, logger *slog.Logger) *FriendHandler {
	return &FriendHandler{db: db, asynqClient: asynqClient, logger: logger}
}

type sendFriendRequestRequest struct {
	ReceiverID uint `json:"receiver_id" binding:"required"`
}

type friendProfile struct {
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarKey string `json:"avatar_key"`
}

type friendshipResponse struct {
	ID      uint          `json:"id"`
	Status  string        `json:"status"`
	Profile friendProfile `json:"profile"`
}

type friendListResponse struct {
	Friends  []friendshipResponse `json:"friends"`
	Incoming []friendshipResponse `json:"incoming"`
	Outgoing []friendshipResponse `json:"outgoing"`
}

// SendRequest 发起好友请求。不能加自己，已有关系（任一方向）时冲突。
func (h *FriendHandler) SendRequest(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req sendFriendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.ReceiverID == userID {
		BadRequest(c, "cannot send friend request to yourself")
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	var receiver database.User
	if err := h.db.WithContext(ctx).First(&receiver, req.ReceiverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "user not found")
			return
		}
		Internal(c, "failed to query user")
		return
	}

	var existing database.Friendship
	err := h.db.WithContext(ctx).
		Where("(requester_id = ? AND receiver_id = ?) OR (requester_id = ? AND receiver_id = ?)",
			userID, req.ReceiverID, req.ReceiverID, userID).
		First(&existing).Error
	if err == nil {
		Conflict(c, "friendship already exists")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		Internal(c, "failed to query friendship")
		return
	}

	friendship := database.Friendship{
		RequesterID: userID,
		ReceiverID:  req.ReceiverID,
		Status:      database.FriendshipPending,
	}
	if err := h.db.WithContext(ctx).Create(&friendship).Error; err != nil {
		if isUniqueViolation(err) {
			Conflict(c, "friendship already exists")
			return
		}
		logger.Error("create friendship", slog.Any("error", err))
		Internal(c, "failed to create friend request")
		return
	}

	h.enqueueNotify(c, tasks.FriendEventRequested, friendship, userID, req.ReceiverID)

	c.JSON(http.StatusCreated, gin.H{"id": friendship.ID, "status": friendship.Status})
}

// Accept 接受请求，只有接收方可以操作。
func (h *FriendHandler) Accept(c *gin.Context) {
	h.resolveRequest(c, database.FriendshipAccepted)
}

// Reject 拒绝请求，只有接收方可以操作。
func (h *FriendHandler) Reject(c *gin.Context) {
	h.resolveRequest(c, database.FriendshipRejected)
}

func (h *FriendHandler) resolveRequest(c *gin.Context, status string) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	friendshipID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid friendship id")
		return
	}

	ctx := c.Request.Context()
	var friendship database.Friendship
	if err := h.db.WithContext(ctx).
		Where("id = ? AND receiver_id = ? AND status = ?", uint(friendshipID), userID, database.FriendshipPending).
		First(&friendship).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "friend request not found")
			return
		}
		Internal(c, "failed to query friend request")
		return
	}

	if err := h.db.WithContext(ctx).Model(&friendship).Update("status", status).Error; err != nil {
		middleware.LoggerFromContext(c).Error("update friendship", slog.Any("error", err))
		Internal(c, "failed to update friend request")
		return
	}

	if status == database.FriendshipAccepted {
		h.enqueueNotify(c, tasks.FriendEventAccepted, friendship, userID, friendship.RequesterID)
	}

	c.JSON(http.StatusOK, gin.H{"id": friendship.ID, "status": status})
}

// List 返回已建立的好友以及进行中的双向请求。
func (h *FriendHandler) List(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	var edges []database.Friendship
	if err := h.db.WithContext(ctx).
		Where("requester_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&edges).Error; err != nil {
		Internal(c, "failed to list friendships")
		return
	}

	otherIDs := make([]uint, 0, len(edges))
	for _, edge := range edges {
		if edge.RequesterID == userID {
			otherIDs = append(otherIDs, edge.ReceiverID)
		} else {
			otherIDs = append(otherIDs, edge.RequesterID)
		}
	}

	profiles := make(map[uint]friendProfile, len(otherIDs))
	if len(otherIDs) > 0 {
		var others []database.User
		if err := h.db.WithContext(ctx).
			Select("id", "username", "full_name", "avatar_key").
			Where("id IN ?", otherIDs).
			Find(&others).Error; err != nil {
			Internal(c, "failed to load friend profiles")
			return
		}
		for _, other := range others {
			profiles[other.ID] = friendProfile{
				UserID:    other.ID,
				Username:  other.Username,
				FullName:  other.FullName,
				AvatarKey: other.AvatarKey,
			}
		}
	}

	resp := friendListResponse{
		Friends:  []friendshipResponse{},
		Incoming: []friendshipResponse{},
		Outgoing: []friendshipResponse{},
	}

	for _, edge := range edges {
		otherID := edge.RequesterID
		if otherID == userID {
			otherID = edge.ReceiverID
		}
		profile, found := profiles[otherID]
		if !found {
			continue
		}

		entry := friendshipResponse{
			ID:      edge.ID,
			Status:  edge.Status,
			Profile: profile,
		}

		switch {
		case edge.Status == database.FriendshipAccepted:
			resp.Friends = append(resp.Friends, entry)
		case edge.Status == database.FriendshipPending && edge.ReceiverID == userID:
			resp.Incoming = append(resp.Incoming, entry)
		case edge.Status == database.FriendshipPending && edge.RequesterID == userID:
			resp.Outgoing = append(resp.Outgoing, entry)
		}
	}

	c.JSON(http.StatusOK, resp)
}

// SearchUsers 按用户名/姓名模糊搜索，供发起请求时选人。
func (h *FriendHandler) SearchUsers(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusOK, gin.H{"profiles": []friendProfile{}})
		return
	}

	pattern := "%" + strings.ToLower(query) + "%"
	var users []database.User
	if err := h.db.WithContext(c.Request.Context()).
		Select("id", "username", "full_name", "avatar_key").
		Where("LOWER(username) LIKE ? OR LOWER(full_name) LIKE ?", pattern, pattern).
		Limit(10).
		Find(&users).Error; err != nil {
		Internal(c, "failed to search users")
		return
	}

	profiles := make([]friendProfile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, friendProfile{
			UserID:    user.ID,
			Username:  user.Username,
			FullName:  user.FullName,
			AvatarKey: user.AvatarKey,
		})
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

// enqueueNotify 投递好友事件；失败只记日志，不影响主流程。
func (h *FriendHandler) enqueueNotify(c *gin.Context, event string, friendship database.Friendship, actorID, receiverID uint) {
	if h.asynqClient == nil {
		return
	}

	logger := middleware.LoggerFromContext(c)

	var actor database.User
	if err := h.db.WithContext(c.Request.Context()).
		Select("id", "username").
		First(&actor, actorID).Error; err != nil {
		logger.Error("load actor for notify", slog.Any("error", err))
		return
	}

	task, err := tasks.NewFriendNotifyTask(tasks.FriendNotifyPayload{
		Event:         event,
		FriendshipID:  friendship.ID,
		ActorID:       actorID,
		ActorUsername: actor.Username,
		ReceiverID:    receiverID,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		logger.Error("build friend notify task", slog.Any("error", err))
		return
	}
	if _, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(3)); err != nil {
		logger.Error("enqueue friend notify", slog.Any("error", err))
	}
}
