// Package config 提供应用程序配置和初始化功能
package config

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
)

// GetServerPort 获取会员网络服务的监听端口
// 从SERVER_PORT环境变量读取，未设置时使用默认端口8080
func GetServerPort() string {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	return port
}

// StartServer 启动会员网络HTTP服务并处理优雅关闭
// 监听SIGINT/SIGTERM信号，收到信号后等待在途请求完成再退出，
// 避免事件入账或批处理触发请求被中途切断
func StartServer(app *fiber.App) {
	port := GetServerPort()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(fmt.Sprintf(":%s", port)); err != nil {
			log.Fatalf("会员网络服务启动失败: %v", err)
		}
	}()

	log.Printf("会员网络服务已启动，监听端口 %s", port)

	<-sigChan
	log.Println("收到终止信号，会员网络服务开始优雅关闭...")

	if err := app.Shutdown(); err != nil {
		log.Printf("服务关闭时发生错误: %v", err)
	}

	log.Println("会员网络服务已安全关闭")
}
