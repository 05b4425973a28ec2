package repository

import (
	"context"

	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository 用户仓库接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByName(ctx context.Context, name string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uint) error

	// SetZoneQuota 设置用户在 Zone 的配额，不存在时新建
	SetZoneQuota(ctx context.Context, userID, zoneID uint, quota int) error
	// RemoveZone 移除用户对 Zone 的使用权
	RemoveZone(ctx context.Context, userID, zoneID uint) error
	// Zone 返回用户在 Zone 的授权记录
	Zone(ctx context.Context, userID, zoneID uint) (*model.UserZone, error)
	// Zones 返回用户所有的 Zone 授权
	Zones(ctx context.Context, userID uint) ([]*model.UserZone, error)
	// RemoveZoneFromAll 删除所有用户对 Zone 的授权
	RemoveZoneFromAll(ctx context.Context, zoneID uint) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByName(ctx context.Context, name string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	var users []*model.User
	if err := r.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// Delete 删除用户及其 Zone 授权
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&model.UserZone{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.User{}).Error
	})
}

func (r *userRepository) SetZoneQuota(ctx context.Context, userID, zoneID uint, quota int) error {
	uz := &model.UserZone{UserID: userID, ZoneID: zoneID, Quota: quota}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "zone_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quota"}),
	}).Create(uz).Error
}

func (r *userRepository) RemoveZone(ctx context.Context, userID, zoneID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND zone_id = ?", userID, zoneID).
		Delete(&model.UserZone{}).Error
}

func (r *userRepository) Zone(ctx context.Context, userID, zoneID uint) (*model.UserZone, error) {
	var uz model.UserZone
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND zone_id = ?", userID, zoneID).
		First(&uz).Error; err != nil {
		return nil, err
	}
	return &uz, nil
}

func (r *userRepository) Zones(ctx context.Context, userID uint) ([]*model.UserZone, error) {
	var zones []*model.UserZone
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("zone_id").Find(&zones).Error; err != nil {
		return nil, err
	}
	return zones, nil
}

func (r *userRepository) RemoveZoneFromAll(ctx context.Context, zoneID uint) error {
	return r.db.WithContext(ctx).Where("zone_id = ?", zoneID).Delete(&model.UserZone{}).Error
}
