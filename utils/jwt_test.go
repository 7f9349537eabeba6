package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken(42, "tester", "member", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.MemberID)
	assert.Equal(t, "tester", claims.Username)
	assert.Equal(t, "member", claims.Role)
}

func TestParseTokenExpired(t *testing.T) {
	// 负的有效期生成已过期的令牌
	token, err := GenerateToken(42, "tester", "member", -time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenTampered(t *testing.T) {
	token, err := GenerateToken(42, "tester", "admin", time.Hour)
	require.NoError(t, err)

	// 篡改签名部分后验证失败
	_, err = ParseToken(token[:len(token)-2] + "xx")
	assert.Error(t, err)
}
