package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeFriendNotify = "notify:friend"
)

// 好友事件类型。
const (
	FriendEventRequested = "friend_requested"
	FriendEventAccepted  = "friend_accepted"
)

// FriendNotifyPayload 描述一次好友事件通知所需的最小信息。
type FriendNotifyPayload struct {
	Event         string `json:"event"`
	FriendshipID  uint   `json:"friendship_id"`
	ActorID       uint   `json:"actor_id"`
	ActorUsername string `json:"actor_username"`
	ReceiverID    uint   `json:"receiver_id"`
	CorrelationID string `json:"correlation_id"`
}

// UserNotifyChannel 返回指定用户的 redis 通知频道名。
// worker 向其发布，ws handler 订阅并转发。
func UserNotifyChannel(userID uint) string {
	return fmt.Sprintf("notify:user:%d", userID)
}

// NewFriendNotifyTask 构造一个好友事件通知任务。
func NewFriendNotifyTask(payload FriendNotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeFriendNotify, data), nil
}
