package idgen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/sony/sonyflake"
)

// Generator 递增 ID 生成器
type Generator struct {
	sf  *sonyflake.Sonyflake
	now func() time.Time
}

var (
	defaultGenerator     *Generator
	defaultGeneratorOnce sync.Once
)

// DefaultGenerator 返回默认的 ID 生成器
func DefaultGenerator() *Generator {
	defaultGeneratorOnce.Do(func() {
		defaultGenerator = New()
	})
	return defaultGenerator
}

// New 创建新的 ID 生成器
func New() *Generator {
	sf := sonyflake.NewSonyflake(sonyflake.Settings{
		StartTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if sf == nil {
		// 无法获取机器 ID 时退化为固定机器 ID
		sf = sonyflake.NewSonyflake(sonyflake.Settings{
			StartTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			MachineID: func() (uint16, error) { return 1, nil },
		})
	}

	return &Generator{
		sf:  sf,
		now: time.Now,
	}
}

// GenerateID 生成通用递增 ID
func (g *Generator) GenerateID() (uint64, error) {
	return g.sf.NextID()
}

// GenerateHostname 生成虚拟机主机名（格式：vm-{递增 ID}）
func (g *Generator) GenerateHostname() (string, error) {
	id, err := g.sf.NextID()
	if err != nil {
		return "", fmt.Errorf("generate hostname: %w", err)
	}
	return fmt.Sprintf("vm-%d", id), nil
}

// GenerateTransferToken 由用户名、当前时间和客户端种子派生传输会话令牌
// 混入递增 ID，同一用户在同一时刻使用相同种子也不会冲突
func (g *Generator) GenerateTransferToken(username, clientSeed string) (string, error) {
	id, err := g.sf.NextID()
	if err != nil {
		return "", fmt.Errorf("generate transfer token: %w", err)
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s:%d", username, g.now().UnixNano(), clientSeed, id)))
	return hex.EncodeToString(sum[:]), nil
}

// GenerateHostname 使用默认生成器生成虚拟机主机名
func GenerateHostname() (string, error) {
	return DefaultGenerator().GenerateHostname()
}

// GenerateTransferToken 使用默认生成器生成传输会话令牌
func GenerateTransferToken(username, clientSeed string) (string, error) {
	return DefaultGenerator().GenerateTransferToken(username, clientSeed)
}
