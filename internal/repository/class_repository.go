package repository

import (
	"context"
	"tutor-smart-go/internal/model"

	"gorm.io/gorm"
)

// ClassRepository 接口定义了班级与花名册的数据操作方法。
type ClassRepository interface {
	Create(ctx context.Context, class *model.Class) error
	FindByID(ctx context.Context, classID uint) (*model.Class, error)
	// FindByMember 返回用户所在（作为学生或任课老师）的全部班级，附带老师与成员。
	FindByMember(ctx context.Context, userID uint) ([]model.Class, error)
	AddMembers(ctx context.Context, classID uint, userIDs []uint) error
	RemoveMember(ctx context.Context, classID, userID uint) error
}

type classRepository struct {
	db *gorm.DB
}

// NewClassRepository 创建一个新的 ClassRepository 实例。
func NewClassRepository(db *gorm.DB) ClassRepository {
	return &classRepository{db: db}
}

// Create 在数据库中插入一个新的班级记录。
func (r *classRepository) Create(ctx context.Context, class *model.Class) error {
	return r.db.WithContext(ctx).Omit("Members").Create(class).Error
}

// FindByID 根据班级 ID 查找班级及其成员。
func (r *classRepository) FindByID(ctx context.Context, classID uint) (*model.Class, error) {
	var class model.Class
	err := r.db.WithContext(ctx).Preload("Teacher").Preload("Members").First(&class, classID).Error
	if err != nil {
		return nil, err
	}
	return &class, nil
}

func (r *classRepository) FindByMember(ctx context.Context, userID uint) ([]model.Class, error) {
	var classes []model.Class
	err := r.db.WithContext(ctx).
		Preload("Teacher").
		Preload("Members").
		Where("teacher_id = ? OR id IN (?)", userID,
			r.db.Table("class_members").Select("class_id").Where("user_id = ?", userID)).
		Order("id").
		Find(&classes).Error
	return classes, err
}

// AddMembers 将一批用户加入班级，已存在的关联会被忽略。
func (r *classRepository) AddMembers(ctx context.Context, classID uint, userIDs []uint) error {
	if len(userIDs) == 0 {
		return nil
	}
	members := make([]model.User, 0, len(userIDs))
	for _, id := range userIDs {
		members = append(members, model.User{ID: id})
	}
	return r.db.WithContext(ctx).
		Model(&model.Class{ID: classID}).
		Omit("Members.*").
		Association("Members").
		Append(members)
}

// RemoveMember 将用户移出班级。
func (r *classRepository) RemoveMember(ctx context.Context, classID, userID uint) error {
	return r.db.WithContext(ctx).
		Model(&model.Class{ID: classID}).
		Association("Members").
		Delete(&model.User{ID: userID})
}
