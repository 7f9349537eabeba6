package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"member_network/database"
	"member_network/models"
	"member_network/services"
)

// GetAncestors 查询会员的祖先链，从最近的推荐人开始
// 可选的max_depth查询参数限制返回长度，默认取佣金层级上限
func GetAncestors(c *fiber.Ctx) error {
	memberID, err := strconv.Atoi(c.Params("id"))
	if err != nil || memberID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "无效的会员ID",
		})
	}

	maxDepth := services.MaxCommissionLevels()
	if raw := c.Query("max_depth"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "无效的max_depth参数",
			})
		}
		maxDepth = parsed
	}

	chain, err := services.AncestorChain(database.GetDB(), uint(memberID), maxDepth)
	if err != nil {
		if errors.Is(err, services.ErrMemberNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "会员不存在",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "查询祖先链失败: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"member_id": memberID,
		"ancestors": chain,
		"depth":     len(chain),
	})
}

// GetSubtree 分页查询会员的下线团队
// 广度优先顺序返回，近的下线排在前面
func GetSubtree(c *fiber.Ctx) error {
	memberID, err := strconv.Atoi(c.Params("id"))
	if err != nil || memberID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "无效的会员ID",
		})
	}

	var member models.Member
	if err := database.GetDB().First(&member, memberID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "会员不存在",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "查询会员失败: " + err.Error(),
		})
	}

	descendants, err := services.Subtree(database.GetDB(), uint(memberID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "查询下线团队失败: " + err.Error(),
		})
	}

	page, pageSize := parsePagination(c)
	total := len(descendants)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	pageIDs := descendants[start:end]

	// 批量补齐会员信息，保持广度优先顺序
	items := make([]fiber.Map, 0, len(pageIDs))
	if len(pageIDs) > 0 {
		var members []models.Member
		if err := database.GetDB().Where("id IN ?", pageIDs).Find(&members).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "查询下线会员失败: " + err.Error(),
			})
		}
		byID := make(map[uint]models.Member, len(members))
		for _, m := range members {
			byID[m.ID] = m
		}
		for _, id := range pageIDs {
			m, ok := byID[id]
			if !ok {
				continue
			}
			items = append(items, fiber.Map{
				"id":                 m.ID,
				"username":           m.Username,
				"name":               m.Name,
				"status":             m.Status,
				"tier":               m.Tier,
				"professional_level": m.ProfessionalLevel,
			})
		}
	}

	return c.JSON(fiber.Map{
		"member_id": member.ID,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"members":   items,
	})
}

// GetMatrixPosition 查询会员的矩阵位置
func GetMatrixPosition(c *fiber.Ctx) error {
	memberID, err := strconv.Atoi(c.Params("id"))
	if err != nil || memberID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "无效的会员ID",
		})
	}

	var position models.MatrixPosition
	if err := database.GetDB().Where("member_id = ?", memberID).First(&position).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "会员尚未安置到矩阵",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "查询矩阵位置失败: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"member_id":          position.MemberID,
		"parent_position_id": position.ParentPositionID,
		"slot":               position.Slot,
		"level":              position.Level,
		"sponsor_id":         position.SponsorID,
		"professional_level": position.ProfessionalLevel,
		"placed_at":          position.PlacedAt,
	})
}

// parsePagination 从查询参数解析分页，带默认值和上限
func parsePagination(c *fiber.Ctx) (page, pageSize int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.Query("page_size", "20"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
