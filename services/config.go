// Package services 实现会员网络报酬引擎的核心业务逻辑
// 包括推荐网络维护、矩阵安置、佣金计算、业绩聚合、资格考核、
// 佣金追回和利润分享等模块，全部以函数加*gorm.DB参数的形式提供，
// 便于在HTTP处理函数和批处理入口中复用同一事务
package services

import (
	"os"
	"strconv"

	"github.com/shopspring/decimal"
)

// 默认配置常量
const (
	defaultMaxCommissionLevels = 7    // 默认佣金计算最大层级
	defaultCommissionCapPct    = 60   // 默认单笔交易佣金总额封顶比例（百分数）
	defaultNonKitMultiplier    = 0.5  // 默认无合格套装时的比例折减系数
	defaultMaxMatrixDepth      = 7    // 默认矩阵最大深度
)

// MaxCommissionLevels 返回佣金计算的最大祖先链层级
// 早期3层方案和后期7层方案统一在这一个可配置项下，
// 通过COMMISSION_MAX_LEVELS环境变量调整
func MaxCommissionLevels() int {
	return envInt("COMMISSION_MAX_LEVELS", defaultMaxCommissionLevels)
}

// CommissionCapPercent 返回单笔交易佣金总额的封顶比例
// 例如60表示所有层级佣金之和不得超过交易额的60%
func CommissionCapPercent() decimal.Decimal {
	return envDecimal("COMMISSION_CAP_PERCENT", defaultCommissionCapPct)
}

// NonKitMultiplier 返回受益人未持有合格套装时的比例折减系数
func NonKitMultiplier() decimal.Decimal {
	return envDecimal("NON_KIT_MULTIPLIER", defaultNonKitMultiplier)
}

// MaxMatrixDepth 返回矩阵安置树的最大深度
// 超过该深度的安置会被显式拒绝而不是静默截断
func MaxMatrixDepth() int {
	return envInt("MATRIX_MAX_DEPTH", defaultMaxMatrixDepth)
}

// envInt 从环境变量读取整数配置，未设置或非法时返回默认值
func envInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// envDecimal 从环境变量读取小数配置，未设置或非法时返回默认值
func envDecimal(key string, fallback float64) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return decimal.NewFromFloat(fallback)
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil || parsed.IsNegative() {
		return decimal.NewFromFloat(fallback)
	}
	return parsed
}
