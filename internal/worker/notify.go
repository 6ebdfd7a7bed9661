package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"phFolio/internal/database"
	"phFolio/internal/tasks"
)

// FriendNotifyMessage 是推送给前端的统一 WebSocket 消息协议。
// 注意：这里的字段名与前端解析保持一致。
type FriendNotifyMessage struct {
	Type          string `json:"type"`
	Event         string `json:"event"`
	FriendshipID  uint   `json:"friendship_id"`
	ActorID       uint   `json:"actor_id"`
	ActorUsername string `json:"actor_username"`
	CorrelationID string `json:"correlation_id"`
}

// FriendNotifyHandler 消费好友事件通知任务，将消息发布到接收方的
// redis 频道，由 ws handler 实时转发给在线客户端。
type FriendNotifyHandler struct {
	db          *gorm.DB
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewFriendNotifyHandler 创建任务处理器。
func NewFriendNotifyHandler(db *gorm.DB, redisClient *redis.Client, logger *slog.Logger) *FriendNotifyHandler {
	return &FriendNotifyHandler{
		db:          db,
		redisClient: redisClient,
		logger:      logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *FriendNotifyHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	log := h.logger

	var payload tasks.FriendNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("event", payload.Event),
		slog.Uint64("friendship_id", uint64(payload.FriendshipID)),
		slog.Uint64("receiver_id", uint64(payload.ReceiverID)),
	)

	// 好友关系可能在任务入队后被撤销，撤销则静默丢弃。
	var friendship database.Friendship
	if err := h.db.WithContext(ctx).First(&friendship, payload.FriendshipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("friendship no longer exists, dropping notification")
			return nil
		}
		log.Error("query friendship failed", slog.Any("error", err))
		return err
	}

	message := FriendNotifyMessage{
		Type:          "friend_notification",
		Event:         payload.Event,
		FriendshipID:  payload.FriendshipID,
		ActorID:       payload.ActorID,
		ActorUsername: payload.ActorUsername,
		CorrelationID: payload.CorrelationID,
	}
	data, err := json.Marshal(message)
	if err != nil {
		log.Error("marshal notification failed", slog.Any("error", err))
		return err
	}

	channel := tasks.UserNotifyChannel(payload.ReceiverID)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		log.Error("publish notification failed", slog.String("channel", channel), slog.Any("error", err))
		return err
	}

	log.Info("friend notification published", slog.String("channel", channel))
	return nil
}
