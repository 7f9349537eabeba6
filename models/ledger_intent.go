package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// 账务意图类型常量
// 本系统不直接动账，只向外部账务系统发出付款/冲销意图
const (
	IntentTypeCommissionCredit  = "commission_credit"   // 佣金入账
	IntentTypeClawbackDebit     = "clawback_debit"      // 追回扣账
	IntentTypeProfitShareCredit = "profit_share_credit" // 利润分享入账
)

// 账务意图状态常量
const (
	IntentStatusPending   = "pending"   // 待外部账务系统应用
	IntentStatusApplied   = "applied"   // 外部账务系统已确认应用
	IntentStatusCancelled = "cancelled" // 应用前被作废，外部账务系统不得再应用
)

// LedgerIntent 账务意图模型
// 发给外部账务协作方的付款/冲销指令，reference唯一保证恰好应用一次
type LedgerIntent struct {
	ID         uint            `json:"id" gorm:"primaryKey"`                     // 主键ID
	IntentID   string          `json:"intent_id" gorm:"size:40;index"`           // 意图UUID，供外部系统引用
	MemberID   uint            `json:"member_id" gorm:"index"`                   // 目标会员ID
	Amount     decimal.Decimal `json:"amount" gorm:"type:decimal(20,2)"`         // 金额，入账为正，扣账为负
	Type       string          `json:"type" gorm:"size:30"`                      // 意图类型
	Reference  string          `json:"reference" gorm:"size:150;uniqueIndex"`    // 业务引用号，幂等键
	Status     string          `json:"status" gorm:"size:20;default:pending"`    // 状态
	AppliedAt  *time.Time      `json:"applied_at"`                               // 外部确认时间
	CreatedAt  time.Time       `json:"created_at" gorm:"autoCreateTime"`         // 创建时间
	UpdatedAt  time.Time       `json:"updated_at" gorm:"autoUpdateTime"`         // 更新时间
}

// TableName 返回表名
func (LedgerIntent) TableName() string {
	return "ledger_intents"
}
