package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrAgentNotRegistered 给定的 Agent ID 未注册
var ErrAgentNotRegistered = errors.New("Agent 未注册")

// Agent 外呼/在线坐席配置
// 租户归属以这里的记录为准, 绝不信任请求体里的租户字段。
type Agent struct {
	ID                 string    `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID           string    `gorm:"type:uuid;not null;index" json:"tenantId"`
	Name               string    `gorm:"size:255;not null" json:"name"`
	Type               string    `gorm:"size:20;not null;default:'generic'" json:"type"` // voice/chat/crm/generic
	CustomInstructions string    `gorm:"type:text" json:"customInstructions"`
	Active             bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定表名
func (Agent) TableName() string {
	return "agents"
}

// Resolver 根据 Agent ID 解析租户
type Resolver interface {
	Resolve(ctx context.Context, agentID string) (*Agent, error)
}

// GormResolver 基于数据库的 Agent 解析器
type GormResolver struct {
	db *gorm.DB
}

// NewGormResolver 创建解析器
func NewGormResolver(db *gorm.DB) *GormResolver {
	return &GormResolver{db: db}
}

// Resolve 查询 Agent 并返回其租户归属
// 未注册或已停用的 Agent 一律返回 ErrAgentNotRegistered。
func (r *GormResolver) Resolve(ctx context.Context, agentID string) (*Agent, error) {
	var agent Agent
	err := r.db.WithContext(ctx).
		Where("id = ? AND active = ?", agentID, true).
		First(&agent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAgentNotRegistered, agentID)
		}
		return nil, fmt.Errorf("查询 Agent 失败: %w", err)
	}

	return &agent, nil
}
