package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel 基础模型，使用 UUID 作为主键
// 优惠券及其使用记录创建后不再修改，因此只保留创建时间
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}

// BeforeCreate 钩子：生成 UUID 和创建时间
func (b *BaseModel) BeforeCreate(tx *gorm.DB) (err error) {
	b.Init(time.Now())
	return
}

// Init 在内存存储等不经过 GORM 的场景下补齐主键和创建时间
func (b *BaseModel) Init(now time.Time) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now.UTC()
	}
}
