package store

import (
	"context"

	"github.com/quillchat/quill/pkg/controlplane/models"
)

// ============================================
// USER OPERATIONS
// ============================================

func (s *GORMStore) GetUserByUID(ctx context.Context, uid int64) (*models.User, error) {
	return getByField[models.User](s.db, ctx, "uid", uid, models.ErrUserNotFound)
}

func (s *GORMStore) GetUserByName(ctx context.Context, name string) (*models.User, error) {
	return getByField[models.User](s.db, ctx, "name", name, models.ErrUserNotFound)
}

func (s *GORMStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.ErrDuplicateUser
		}
		return err
	}
	return nil
}

func (s *GORMStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	return listAll[models.User](s.db, ctx, "uid ASC")
}

func (s *GORMStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}
