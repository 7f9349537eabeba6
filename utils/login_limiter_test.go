package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoginLimiterLocksAfterMaxAttempts(t *testing.T) {
	limiter := NewLoginLimiter(3, 15*time.Minute, time.Hour)

	// 前两次失败不锁定
	locked, _ := limiter.RecordFailedLogin("user")
	assert.False(t, locked)
	locked, _ = limiter.RecordFailedLogin("user")
	assert.False(t, locked)

	// 第三次失败触发锁定
	locked, minutes := limiter.RecordFailedLogin("user")
	assert.True(t, locked)
	assert.Equal(t, 15, minutes)

	locked, remaining := limiter.IsLocked("user")
	assert.True(t, locked)
	assert.Greater(t, remaining, 0)

	// 其他账号不受影响
	locked, _ = limiter.IsLocked("other")
	assert.False(t, locked)
}

func TestLoginLimiterResetAttempts(t *testing.T) {
	limiter := NewLoginLimiter(2, 15*time.Minute, time.Hour)

	limiter.RecordFailedLogin("user")
	limiter.RecordFailedLogin("user")

	locked, _ := limiter.IsLocked("user")
	assert.True(t, locked)

	// 登录成功后重置，锁定解除
	limiter.ResetAttempts("user")
	locked, _ = limiter.IsLocked("user")
	assert.False(t, locked)
}
