package handlers

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"member_network/database"
	"member_network/models"
	"member_network/utils"
)

// MemberLogin 会员登录
// 验证用户名密码，签发JWT令牌并存储到数据库（支持撤销）
// 使用登录限制器防止暴力破解
func MemberLogin(c *fiber.Ctx) error {
	// 解析请求体
	var request struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "参数解析失败: " + err.Error(),
		})
	}

	if request.Username == "" || request.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "用户名和密码不能为空",
		})
	}

	// 检查账号是否因连续失败被锁定
	if locked, remaining := utils.DefaultLoginLimiter.IsLocked(request.Username); locked {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": fmt.Sprintf("登录失败次数过多，账号已锁定，请%d分钟后重试", remaining),
		})
	}

	// 查询会员信息
	var member models.Member
	if err := database.GetDB().Where("username = ?", request.Username).First(&member).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.DefaultLoginLimiter.RecordFailedLogin(request.Username)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "用户名或密码错误",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "查询会员失败: " + err.Error(),
		})
	}

	// 验证密码
	if !member.CheckPassword(request.Password) {
		if locked, remaining := utils.DefaultLoginLimiter.RecordFailedLogin(request.Username); locked {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": fmt.Sprintf("登录失败次数过多，账号已锁定%d分钟", remaining),
			})
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "用户名或密码错误",
		})
	}

	// 检查会员状态
	if member.Status != "active" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "账号已被禁用",
		})
	}

	// 登录成功，重置失败计数
	utils.DefaultLoginLimiter.ResetAttempts(request.Username)

	// 生成JWT令牌，24小时有效期
	token, err := utils.GenerateToken(member.ID, member.Username, member.Role, 24*time.Hour)
	if err != nil {
		log.Printf("生成令牌失败: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "登录失败，请稍后重试",
		})
	}

	expireTime := time.Now().Add(24 * time.Hour)

	// 存储令牌到数据库，记录设备信息和过期时间
	memberToken := models.MemberToken{
		MemberID:  member.ID,
		Token:     token,
		UserAgent: c.Get("User-Agent"),
		IP:        c.IP(),
		ExpiredAt: expireTime,
	}
	if err := database.GetDB().Create(&memberToken).Error; err != nil {
		log.Printf("存储令牌失败: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "登录失败，请稍后重试",
		})
	}

	// 更新最后登录时间
	now := time.Now()
	if err := database.GetDB().Model(&member).Update("last_login_at", now).Error; err != nil {
		log.Printf("更新最后登录时间失败: %v", err)
		// 不返回错误，继续处理
	}

	return c.JSON(fiber.Map{
		"message":    "登录成功",
		"token":      token,
		"expires_at": expireTime.Unix(),
		"member": fiber.Map{
			"id":                 member.ID,
			"username":           member.Username,
			"name":               member.Name,
			"tier":               member.Tier,
			"professional_level": member.ProfessionalLevel,
			"referral_code":      member.ReferralCode,
			"role":               member.Role,
		},
	})
}

// MemberLogout 会员登出
// 将当前会话的令牌从数据库中删除，使其立即失效
func MemberLogout(c *fiber.Ctx) error {
	// 从请求头获取令牌
	authHeader := c.Get("Authorization")
	if authHeader == "" || len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "未提供有效的认证令牌",
		})
	}

	tokenString := authHeader[7:]

	// 将令牌从数据库中删除
	// 使令牌立即失效，防止后续使用
	if err := database.GetDB().Where("token = ?", tokenString).Delete(&models.MemberToken{}).Error; err != nil {
		log.Printf("删除令牌失败: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "登出失败，请稍后重试",
		})
	}

	return c.JSON(fiber.Map{
		"message": "登出成功",
	})
}
