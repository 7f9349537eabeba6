package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// 积分流水类型常量
const (
	PointKindPurchase   = "purchase"      // 自身合格消费产生的业务积分
	PointKindCommission = "commission_bp" // 佣金产生的业务积分
	PointKindAdjustment = "adjustment"    // 人工调整
)

// PointTransaction 积分流水模型
// 只追加的积分/业务积分流水，资格考核的个人业绩和利润分享加权都从这里消费
// (kind, reference)唯一保证同一事件重放不会重复记账
type PointTransaction struct {
	ID             uint            `json:"id" gorm:"primaryKey"`                                    // 主键ID
	MemberID       uint            `json:"member_id" gorm:"index"`                                  // 会员ID
	Points         decimal.Decimal `json:"points" gorm:"type:decimal(20,2);default:0"`              // 普通积分变动
	BusinessPoints decimal.Decimal `json:"business_points" gorm:"type:decimal(20,2);default:0"`     // 业务积分(BP)变动
	Kind           string          `json:"kind" gorm:"size:30;uniqueIndex:idx_point_ref"`           // 流水类型
	Reference      string          `json:"reference" gorm:"size:150;uniqueIndex:idx_point_ref"`     // 来源引用号，幂等键
	OccurredAt     time.Time       `json:"occurred_at" gorm:"index"`                                // 业务发生时间
	CreatedAt      time.Time       `json:"created_at" gorm:"autoCreateTime"`                        // 创建时间
}

// TableName 返回表名
func (PointTransaction) TableName() string {
	return "point_transactions"
}
