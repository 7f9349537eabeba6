package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Member 会员模型
// 存储会员网络中每个会员的基本信息、账号凭证以及缓存的等级状态
// 推荐关系和安置关系分别由ReferralEdge和MatrixPosition维护
type Member struct {
	ID                uint       `json:"id" gorm:"primaryKey"`                  // 主键ID
	Username          string     `json:"username" gorm:"size:50;uniqueIndex"`   // 用户名，登录用，唯一
	Password          string     `json:"-" gorm:"size:100"`                     // 密码，不返回给前端
	Name              string     `json:"name" gorm:"size:50"`                   // 姓名
	Phone             string     `json:"phone" gorm:"size:20"`                  // 电话
	Email             string     `json:"email" gorm:"size:100"`                 // 邮箱
	Status            string     `json:"status" gorm:"size:20;default:active"`  // 状态：active活跃, inactive停用, suspended暂停
	Role              string     `json:"role" gorm:"size:20;default:member"`    // 角色：member普通会员, admin管理员
	ReferralCode      string     `json:"referral_code" gorm:"size:50;uniqueIndex"` // 推荐码，用于发展下线
	Tier              string     `json:"tier" gorm:"size:30;default:none"`      // 当前资格等级，由TierQualification批处理更新的缓存值
	ProfessionalLevel string     `json:"professional_level" gorm:"size:30"`     // 职业头衔，由矩阵安置决定的缓存值
	HasQualifyingKit  bool       `json:"has_qualifying_kit" gorm:"default:false"` // 是否持有合格套装产品，影响佣金比例
	AncestorPath      string     `json:"-" gorm:"type:text"`                    // 物化祖先路径缓存，从根到自身的ID点分路径，可由ReferralEdge完整重建
	LastLoginAt       *time.Time `json:"last_login_at"`                         // 最后登录时间
	CreatedAt         time.Time  `json:"created_at" gorm:"autoCreateTime"`      // 创建时间
	UpdatedAt         time.Time  `json:"updated_at" gorm:"autoUpdateTime"`      // 更新时间
}

// TableName 返回表名
func (Member) TableName() string {
	return "members"
}

// SetPassword 设置加密密码
func (m *Member) SetPassword(plainPassword string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(plainPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	m.Password = string(hashedPassword)
	return nil
}

// CheckPassword 验证密码
func (m *Member) CheckPassword(plainPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(m.Password), []byte(plainPassword))
	return err == nil
}

// MemberToken 会员登录令牌模型
// 存储会员的JWT认证令牌及相关会话信息，支持多设备登录
type MemberToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`             // 主键ID
	MemberID  uint      `json:"member_id" gorm:"index"`           // 关联的会员ID
	Token     string    `json:"token" gorm:"size:500;index"`      // JWT令牌字符串
	UserAgent string    `json:"user_agent" gorm:"size:255"`       // 用户代理信息，用于识别登录设备
	IP        string    `json:"ip" gorm:"size:50"`                // 登录IP地址，用于安全审计
	ExpiredAt time.Time `json:"expired_at" gorm:"index"`          // 令牌过期时间
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"` // 创建时间
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"` // 更新时间
}

// TableName 返回表名
func (MemberToken) TableName() string {
	return "member_tokens"
}
