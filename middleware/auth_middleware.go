package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"member_network/database"
	"member_network/models"
	"member_network/utils"
)

// MemberAuthMiddleware 验证会员身份的中间件
// 该中间件负责处理所有需要会员身份验证的路由请求
// 认证方式为Authorization头的Bearer JWT令牌，令牌必须同时存在于数据库中
// （支持撤销）且未过期，关联会员必须处于活跃状态
//
// 认证成功后，会将会员ID和角色存储在请求上下文中，供后续处理函数使用
func MemberAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, member, ok := authenticate(c)
		if !ok {
			// 错误响应已在authenticate中写入
			return nil
		}

		// 将会员信息存储在上下文中，供后续处理函数使用
		c.Locals("member_id", member.ID)
		c.Locals("member_name", member.Name)
		c.Locals("member_role", claims.Role)

		// 继续处理请求
		return c.Next()
	}
}

// AdminAuthMiddleware 验证管理员身份的中间件
// 利润分享批次的审批/分发和批处理触发等管理操作要求admin角色
func AdminAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, member, ok := authenticate(c)
		if !ok {
			// 错误响应已在authenticate中写入
			return nil
		}

		// 角色以数据库中的当前值为准，令牌声明只作参考
		if member.Role != "admin" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "该操作需要管理员权限",
			})
		}

		c.Locals("member_id", member.ID)
		c.Locals("member_name", member.Name)
		c.Locals("member_role", claims.Role)

		return c.Next()
	}
}

// authenticate 执行共同的令牌校验流程
// 返回解析出的声明和关联的会员记录；校验失败时直接写入错误响应并返回false
func authenticate(c *fiber.Ctx) (*utils.MemberClaims, *models.Member, bool) {
	// 从请求头获取Authorization
	// 检查是否提供了Bearer令牌
	authHeader := c.Get("Authorization")
	if authHeader == "" || len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "未提供有效的认证令牌",
		})
		return nil, nil, false
	}

	// 从Authorization头中提取令牌
	tokenString := authHeader[7:]

	// 解析令牌
	// 验证JWT令牌的签名并提取声明信息
	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "无效的认证令牌",
		})
		return nil, nil, false
	}

	// 检查令牌是否存在于数据库
	// 确保令牌未被撤销且仍然有效
	var token models.MemberToken
	if err := database.GetDB().Where("token = ?", tokenString).First(&token).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "认证令牌不存在",
			})
		} else {
			c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "验证认证令牌失败",
			})
		}
		return nil, nil, false
	}

	// 检查令牌是否已过期
	// 即使JWT本身未过期，也需检查数据库中的过期时间
	if time.Now().After(token.ExpiredAt) {
		c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "认证令牌已过期",
		})
		return nil, nil, false
	}

	// 查询会员信息
	// 验证会员是否存在且状态为活跃
	var member models.Member
	if err := database.GetDB().Where("id = ? AND status = ?", claims.MemberID, "active").First(&member).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "会员不存在或已被禁用",
			})
		} else {
			c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "验证会员身份失败",
			})
		}
		return nil, nil, false
	}

	// 设置请求头，方便后续处理函数使用
	c.Set("X-Member-ID", strconv.FormatUint(uint64(member.ID), 10))

	return claims, &member, true
}
