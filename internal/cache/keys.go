package cache

import (
	"fmt"
	"time"
)

const (
	PostKeyPrefix      = "post:%d"
	UserKeyPrefix      = "user:%d"
	UserPostsKeyPrefix = "user:%d:posts"
	PostListFirstPage  = "posts:list:first"
	CategoriesKey      = "categories:counts"
	revokedKeyPrefix   = "session:revoked:%s"
)

const (
	PostTTL       = 30 * time.Minute
	PostListTTL   = 2 * time.Minute
	UserTTL       = 5 * time.Minute
	CategoriesTTL = 10 * time.Minute
)

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func UserPostsKey(userID uint) string {
	return fmt.Sprintf(UserPostsKeyPrefix, userID)
}

func revokedKey(jti string) string {
	return fmt.Sprintf(revokedKeyPrefix, jti)
}
