package service

import (
	"context"
	"strings"

	"bloh/internal/media"
	"bloh/internal/models"
	"bloh/internal/policy"
	"bloh/internal/repository"
	"bloh/internal/storage"
	"bloh/internal/validation"
)

// Follower list page sizes.
const (
	UserPageSize    = 20
	UserMaxPageSize = 100
)

type UserService struct {
	users  repository.UserRepository
	images imageStore
}

// Profile is a user together with the aggregate counts shown on their page.
type Profile struct {
	User  *models.User
	Stats *repository.ProfileStats
}

// UpdateProfileInput carries a partial profile update; nil fields are left unchanged.
type UpdateProfileInput struct {
	Email       *string
	DisplayName *string
	Role        *string
}

func NewUserService(users repository.UserRepository, store storage.Storage, validator media.Validator) *UserService {
	return &UserService{users: users, images: imageStore{store: store, validator: validator}}
}

// MediaURL resolves a stored image key into a public URL.
func (s *UserService) MediaURL(key string) string {
	return s.images.URL(key)
}

// GetProfile returns userID's profile as seen by id. Post counts include drafts
// only for the user themself and admins.
func (s *UserService) GetProfile(ctx context.Context, id policy.Identity, userID uint) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	publishedOnly := !(id.Admin || id.Owns(userID))
	stats, err := s.users.Stats(ctx, userID, id.UserID, publishedOnly)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, Stats: stats}, nil
}

func (s *UserService) Me(ctx context.Context, id policy.Identity) (*Profile, error) {
	if err := policy.Authenticated.Check(id, policy.Read, 0); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, id, id.UserID)
}

func (s *UserService) UpdateMe(ctx context.Context, id policy.Identity, in UpdateProfileInput) (*Profile, error) {
	if err := policy.Authenticated.Check(id, policy.Write, 0); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if err := validation.ValidateEmail(email); err != nil {
			return nil, models.NewFieldValidationError("email", err.Error())
		}
		taken, err := s.users.EmailTaken(ctx, email, user.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, models.NewFieldValidationError("email", "A user with that email already exists")
		}
		user.Email = email
	}
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if err := validation.ValidateMaxLength("display_name", name, 150); err != nil {
			return nil, models.NewFieldValidationError("display_name", err.Error())
		}
		user.DisplayName = name
	}
	if in.Role != nil && models.Role(*in.Role) != user.Role {
		if !id.Admin {
			return nil, models.NewForbiddenError("Only admins can change roles")
		}
		role := models.Role(*in.Role)
		if !role.Valid() {
			return nil, models.NewFieldValidationError("role", "Invalid role")
		}
		user.Role = role
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, id, user.ID)
}

// UploadAvatar stores the upload as a square webp and replaces the previous avatar.
func (s *UserService) UploadAvatar(ctx context.Context, id policy.Identity, upload media.Upload) (*models.User, error) {
	if err := policy.Authenticated.Check(id, policy.Write, 0); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	img, err := s.images.validator.ValidateAvatar("avatar", upload)
	if err != nil {
		return nil, err
	}
	square, err := media.SquareWebP(img, media.AvatarSide)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	key, err := s.images.put(ctx, AvatarPrefix, square)
	if err != nil {
		return nil, err
	}

	old := user.Avatar
	user.Avatar = key
	if err := s.users.Update(ctx, user); err != nil {
		s.images.removeAll(ctx, key)
		return nil, err
	}
	s.images.removeAll(ctx, old)
	return user, nil
}

func (s *UserService) Subscribe(ctx context.Context, id policy.Identity, targetID uint) error {
	if err := policy.Authenticated.Check(id, policy.Write, 0); err != nil {
		return err
	}
	if id.UserID == targetID {
		return models.NewValidationError("You cannot subscribe to yourself")
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return err
	}
	return s.users.Subscribe(ctx, id.UserID, targetID)
}

func (s *UserService) Unsubscribe(ctx context.Context, id policy.Identity, targetID uint) error {
	if err := policy.Authenticated.Check(id, policy.Write, 0); err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return err
	}
	return s.users.Unsubscribe(ctx, id.UserID, targetID)
}

// Followers lists users subscribed to userID.
func (s *UserService) Followers(ctx context.Context, userID uint, page, pageSize int) (*Page[models.User], error) {
	return s.edges(ctx, userID, page, pageSize, s.users.Followers)
}

// Following lists users userID is subscribed to.
func (s *UserService) Following(ctx context.Context, userID uint, page, pageSize int) (*Page[models.User], error) {
	return s.edges(ctx, userID, page, pageSize, s.users.Following)
}

func (s *UserService) edges(
	ctx context.Context,
	userID uint,
	page, pageSize int,
	list func(context.Context, uint, int, int) ([]models.User, int64, error),
) (*Page[models.User], error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = UserPageSize
	}
	if pageSize > UserMaxPageSize {
		pageSize = UserMaxPageSize
	}
	items, total, err := list(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return &Page[models.User]{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}
