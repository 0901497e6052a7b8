package service

import (
	"context"
	"errors"
	"tutor-smart-go/internal/model"
	"tutor-smart-go/internal/repository"
)

var ErrNotClassTeacher = errors.New("only the class teacher or an admin can manage this class")

// CreateClassRequest 是创建班级的入参。TeacherID 为空时由创建者任教。
type CreateClassRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Schedule    string `json:"schedule"`
	TeacherID   uint   `json:"teacherId"`
}

// ClassService 定义了班级与花名册管理的业务操作。
type ClassService interface {
	CreateClass(ctx context.Context, req CreateClassRequest, creator *model.User) (*model.Class, error)
	GetClass(ctx context.Context, classID uint) (*model.Class, error)
	ListMyClasses(ctx context.Context, userID uint) ([]model.RosterEntry, error)
	AddMembers(ctx context.Context, classID uint, userIDs []uint, operator *model.User) error
	RemoveMember(ctx context.Context, classID, userID uint, operator *model.User) error
}

type classService struct {
	classRepo repository.ClassRepository
	userRepo  repository.UserRepository
}

// NewClassService 创建一个新的 ClassService 实例。
func NewClassService(classRepo repository.ClassRepository, userRepo repository.UserRepository) ClassService {
	return &classService{classRepo: classRepo, userRepo: userRepo}
}

func (s *classService) CreateClass(ctx context.Context, req CreateClassRequest, creator *model.User) (*model.Class, error) {
	teacherID := req.TeacherID
	if teacherID == 0 {
		teacherID = creator.ID
	}
	teacher, err := s.userRepo.FindByID(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if teacher.Role == model.RoleStudent {
		return nil, ErrInvalidRole
	}
	class := &model.Class{
		Name:        req.Name,
		Description: req.Description,
		Schedule:    req.Schedule,
		TeacherID:   teacher.ID,
	}
	if err := s.classRepo.Create(ctx, class); err != nil {
		return nil, err
	}
	class.Teacher = teacher
	return class, nil
}

func (s *classService) GetClass(ctx context.Context, classID uint) (*model.Class, error) {
	return s.classRepo.FindByID(ctx, classID)
}

// ListMyClasses 返回用户作为学生或老师参与的全部班级。
func (s *classService) ListMyClasses(ctx context.Context, userID uint) ([]model.RosterEntry, error) {
	classes, err := s.classRepo.FindByMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.RosterEntry, 0, len(classes))
	for i := range classes {
		out = append(out, classes[i].Roster())
	}
	return out, nil
}

func (s *classService) AddMembers(ctx context.Context, classID uint, userIDs []uint, operator *model.User) error {
	if err := s.checkManage(ctx, classID, operator); err != nil {
		return err
	}
	return s.classRepo.AddMembers(ctx, classID, userIDs)
}

func (s *classService) RemoveMember(ctx context.Context, classID, userID uint, operator *model.User) error {
	if err := s.checkManage(ctx, classID, operator); err != nil {
		return err
	}
	return s.classRepo.RemoveMember(ctx, classID, userID)
}

// checkManage 只允许任课老师与管理员修改花名册。
func (s *classService) checkManage(ctx context.Context, classID uint, operator *model.User) error {
	class, err := s.classRepo.FindByID(ctx, classID)
	if err != nil {
		return err
	}
	if operator.Role == model.RoleAdmin || class.TeacherID == operator.ID {
		return nil
	}
	return ErrNotClassTeacher
}
