// Package idgen 提供基于 Sonyflake 的唯一 ID 生成器
//
// 生成的 ID 格式：
//   - 虚拟机主机名: vm-{递增数字}
//   - 传输会话令牌: sha256(用户名:时间戳:客户端种子:递增数字) 的十六进制串
//
// 使用方式：
//
//	gen := idgen.New()
//	hostname, err := gen.GenerateHostname()
//	// hostname: "vm-1234567890"
//
//	token, err := gen.GenerateTransferToken("alice", "client-seed")
package idgen
