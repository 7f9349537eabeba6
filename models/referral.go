package models

import (
	"time"
)

// ReferralEdge 推荐关系边模型
// 记录会员网络中的推荐关系：每个会员最多有一个推荐人（单亲不变量）
// 创建后不可变更，整体构成一片森林；祖先路径缓存可由本表完整重建
type ReferralEdge struct {
	ID        uint      `json:"id" gorm:"primaryKey"`           // 主键ID
	ChildID   uint      `json:"child_id" gorm:"uniqueIndex"`    // 被推荐会员ID，唯一索引保证单亲不变量
	ParentID  uint      `json:"parent_id" gorm:"index"`         // 推荐人会员ID
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"` // 创建时间
}

// TableName 返回表名
func (ReferralEdge) TableName() string {
	return "referral_edges"
}
