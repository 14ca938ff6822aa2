package repository

import (
	"context"

	"bloh/internal/cache"
	"bloh/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileStats are the aggregate counts shown on a profile.
type ProfileStats struct {
	SubscribersCount   int64 `json:"subscribers_count"`
	SubscriptionsCount int64 `json:"subscriptions_count"`
	PostsCount         int64 `json:"posts_count"`
	LikedPostsCount    int64 `json:"liked_posts_count"`
	IsSubscribed       bool  `json:"is_subscribed"`
}

// UserRepository defines persistence operations for users and subscriptions.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	ListAdmins(ctx context.Context) ([]models.User, error)
	Stats(ctx context.Context, userID, viewerID uint, publishedOnly bool) (*ProfileStats, error)
	Subscribe(ctx context.Context, subscriberID, targetID uint) error
	Unsubscribe(ctx context.Context, subscriberID, targetID uint) error
	ListSubscribers(ctx context.Context, authorID uint) ([]models.User, error)
	Followers(ctx context.Context, userID uint, limit, offset int) ([]models.User, int64, error)
	Following(ctx context.Context, userID uint, limit, offset int) ([]models.User, int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		return readDB(r.db).WithContext(ctx).First(&user, id).Error
	})
	if err != nil {
		return nil, notFoundOr(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "User", username)
	}
	return &user, nil
}

func (r *userRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(username) = LOWER(?)", username).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *userRepository) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = LOWER(?) AND id <> ?", email, excludeID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Update writes the profile columns only; the password hash is never touched here
// because cached users do not carry it.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Model(user).
		Select("email", "display_name", "avatar", "role", "is_staff").
		Updates(user).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("role = ? OR is_staff = ?", models.RoleAdmin, true).
		Order("id").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// Stats counts a profile's relations. publishedOnly limits posts_count to published
// posts, which is what everyone but the owner and admins sees.
func (r *userRepository) Stats(ctx context.Context, userID, viewerID uint, publishedOnly bool) (*ProfileStats, error) {
	db := readDB(r.db).WithContext(ctx)
	var s ProfileStats

	if err := db.Model(&models.Subscription{}).Where("target_id = ?", userID).Count(&s.SubscribersCount).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := db.Model(&models.Subscription{}).Where("subscriber_id = ?", userID).Count(&s.SubscriptionsCount).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	posts := db.Model(&models.Post{}).Where("author_id = ?", userID)
	if publishedOnly {
		posts = posts.Where("status = ?", models.PostStatusPublished)
	}
	if err := posts.Count(&s.PostsCount).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := db.Model(&models.PostLike{}).Where("user_id = ?", userID).Count(&s.LikedPostsCount).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if viewerID != 0 && viewerID != userID {
		var n int64
		if err := db.Model(&models.Subscription{}).
			Where("subscriber_id = ? AND target_id = ?", viewerID, userID).
			Count(&n).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		s.IsSubscribed = n > 0
	}
	return &s, nil
}

// Subscribe is idempotent.
func (r *userRepository) Subscribe(ctx context.Context, subscriberID, targetID uint) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Subscription{SubscriberID: subscriberID, TargetID: targetID}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) Unsubscribe(ctx context.Context, subscriberID, targetID uint) error {
	err := r.db.WithContext(ctx).
		Where("subscriber_id = ? AND target_id = ?", subscriberID, targetID).
		Delete(&models.Subscription{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListSubscribers returns every user subscribed to authorID.
func (r *userRepository) ListSubscribers(ctx context.Context, authorID uint) ([]models.User, error) {
	var users []models.User
	err := readDB(r.db).WithContext(ctx).
		Joins("JOIN subscriptions s ON s.subscriber_id = users.id").
		Where("s.target_id = ?", authorID).
		Order("users.id").
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// Followers lists the users subscribed to userID, newest subscription first.
func (r *userRepository) Followers(ctx context.Context, userID uint, limit, offset int) ([]models.User, int64, error) {
	return r.edgePage(ctx, "s.subscriber_id = users.id", "s.target_id = ?", userID, limit, offset)
}

// Following lists the users userID is subscribed to, newest subscription first.
func (r *userRepository) Following(ctx context.Context, userID uint, limit, offset int) ([]models.User, int64, error) {
	return r.edgePage(ctx, "s.target_id = users.id", "s.subscriber_id = ?", userID, limit, offset)
}

func (r *userRepository) edgePage(ctx context.Context, join, where string, userID uint, limit, offset int) ([]models.User, int64, error) {
	db := readDB(r.db).WithContext(ctx)
	var total int64
	if err := db.Model(&models.Subscription{}).Table("subscriptions s").Where(where, userID).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	limit, offset = pageBounds(limit, offset)
	var users []models.User
	err := db.Joins("JOIN subscriptions s ON "+join).
		Where(where, userID).
		Order("s.created_at DESC, users.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return users, total, nil
}
