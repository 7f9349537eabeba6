package main

import (
	"member_network/config"
)

// 会员网络与多层级酬金引擎服务入口
// 外部计费/提款系统推送事件，本服务维护推荐网络、计算佣金、
// 执行月度考核与季度利润分享，并向外部账务系统发出付款意图
func main() {
	// 初始化数据库连接、迁移和基础配置数据
	config.InitApp()

	// 创建并配置Fiber应用
	app := config.SetupApp()

	// 启动HTTP服务器，阻塞直到收到终止信号
	config.StartServer(app)
}
