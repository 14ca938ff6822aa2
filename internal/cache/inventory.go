package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	TagListKey        = "tags:all"
	IngredientListKey = "ingredients:all"
	UserKeyPrefix     = "user:%d"
	ViewKeyPrefix     = "views:%d:%s"
)

const (
	ReferenceListTTL = 10 * time.Minute
	UserTTL          = 5 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// ViewKey marks that fingerprint viewed postID within the dedup window.
func ViewKey(postID uint, fingerprint string) string {
	return fmt.Sprintf(ViewKeyPrefix, postID, fingerprint)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateTags(ctx context.Context) {
	Invalidate(ctx, TagListKey)
}

func InvalidateIngredients(ctx context.Context) {
	Invalidate(ctx, IngredientListKey)
}
