package models

import (
	"time"
)

// 通知事件类型常量
const (
	NotificationTierChanged     = "tier_changed"     // 等级变化
	NotificationMatrixPlaced    = "matrix_placed"    // 矩阵安置完成
	NotificationClawbackApplied = "clawback_applied" // 佣金追回
)

// NotificationEvent 通知事件模型
// 发给外部通知协作方的事件记录，发出即忘：写入失败只记日志，不影响主流程
type NotificationEvent struct {
	ID        uint      `json:"id" gorm:"primaryKey"`             // 主键ID
	MemberID  uint      `json:"member_id" gorm:"index"`           // 目标会员ID
	Kind      string    `json:"kind" gorm:"size:30"`              // 事件类型
	Payload   string    `json:"payload" gorm:"type:text"`         // 事件内容，JSON字符串
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"` // 创建时间
}

// TableName 返回表名
func (NotificationEvent) TableName() string {
	return "notification_events"
}
