package services

import (
	"encoding/json"
	"log"

	"gorm.io/gorm"

	"member_network/models"
)

// Notify 向外部通知协作方发出事件
// 发出即忘：写入失败只记日志，永远不影响调用方的主流程
func Notify(db *gorm.DB, memberID uint, kind string, payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("序列化通知内容失败(kind=%s): %v", kind, err)
		data = []byte("{}")
	}

	event := models.NotificationEvent{
		MemberID: memberID,
		Kind:     kind,
		Payload:  string(data),
	}

	if err := db.Create(&event).Error; err != nil {
		log.Printf("写入通知事件失败(member=%d, kind=%s): %v", memberID, kind, err)
	}
}
