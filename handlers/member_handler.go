package handlers

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"member_network/database"
	"member_network/models"
	"member_network/services"
	"member_network/utils"
)

// RegisterMember 会员注册
// 注册事件同时驱动推荐网络和矩阵安置两棵独立的树：
//  1. 创建会员账号
//  2. 通过推荐码绑定推荐关系（NetworkGraph.AddEdge）
//  3. 将新会员安置到矩阵中（MatrixPlacement）
//
// 账号创建、推荐边和矩阵安置在同一个事务中完成——并发注册同一个
// 推荐人时由行锁和槽位唯一索引保证不会抢占同一个槽位
func RegisterMember(c *fiber.Ctx) error {
	// 解析请求体
	var request struct {
		Username     string `json:"username"`
		Password     string `json:"password"`
		Name         string `json:"name"`
		Phone        string `json:"phone"`
		Email        string `json:"email"`
		ReferralCode string `json:"referral_code"` // 推荐人的推荐码，首个会员可为空
	}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "参数解析失败: " + err.Error(),
		})
	}

	// 验证必填字段
	if request.Username == "" || request.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "用户名和密码不能为空",
		})
	}

	// 检查用户名是否已存在
	var existing models.Member
	if err := database.GetDB().Where("username = ?", request.Username).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "用户名已存在",
		})
	} else if err != gorm.ErrRecordNotFound {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "查询会员失败: " + err.Error(),
		})
	}

	// 解析推荐人
	var sponsor *models.Member
	if request.ReferralCode != "" {
		var found models.Member
		if err := database.GetDB().Where("referral_code = ?", request.ReferralCode).First(&found).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "推荐码不存在",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "查询推荐人失败: " + err.Error(),
			})
		}
		sponsor = &found
	}

	// 开始事务
	tx := database.GetDB().Begin()

	// 使用defer确保事务在函数返回时被正确处理
	var txCommitted bool
	defer func() {
		// 如果事务还没有被提交，则回滚
		if !txCommitted && tx != nil {
			tx.Rollback()
			log.Println("注册事务已回滚")
		}
	}()

	// 创建会员账号
	member := models.Member{
		Username:     request.Username,
		Name:         request.Name,
		Phone:        request.Phone,
		Email:        request.Email,
		Status:       "active",
		ReferralCode: utils.GenerateReferralCode(),
	}
	if err := member.SetPassword(request.Password); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "密码加密失败: " + err.Error(),
		})
	}
	if err := tx.Create(&member).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "创建会员失败: " + err.Error(),
		})
	}

	// 绑定推荐关系并安置到矩阵
	var position *models.MatrixPosition
	if sponsor != nil {
		if err := services.AddEdge(tx, member.ID, sponsor.ID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "绑定推荐关系失败: " + err.Error(),
			})
		}

		placed, err := services.PlaceMember(tx, member.ID, sponsor.ID)
		if err != nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "矩阵安置失败: " + err.Error(),
			})
		}
		position = placed
	} else {
		// 无推荐人的首个会员作为矩阵根
		placed, err := services.PlaceMember(tx, member.ID, 0)
		if err != nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "矩阵安置失败: " + err.Error(),
			})
		}
		position = placed
	}

	// 提交事务
	if err := tx.Commit().Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "提交事务失败: " + err.Error(),
		})
	}

	// 标记事务已提交
	txCommitted = true

	response := fiber.Map{
		"message":       "注册成功",
		"member_id":     member.ID,
		"referral_code": member.ReferralCode,
	}
	if position != nil {
		response["matrix"] = fiber.Map{
			"level": position.Level,
			"slot":  position.Slot,
			"title": position.ProfessionalLevel,
		}
	}

	return c.Status(fiber.StatusCreated).JSON(response)
}

// GetMember 查询会员信息
func GetMember(c *fiber.Ctx) error {
	memberID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "无效的会员ID",
		})
	}

	var member models.Member
	if err := database.GetDB().First(&member, memberID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "会员不存在",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "查询会员失败: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"id":                 member.ID,
		"username":           member.Username,
		"name":               member.Name,
		"status":             member.Status,
		"tier":               member.Tier,
		"professional_level": member.ProfessionalLevel,
		"referral_code":      member.ReferralCode,
		"has_qualifying_kit": member.HasQualifyingKit,
		"created_at":         member.CreatedAt,
	})
}
