package redisrepo

import "fmt"

const (
	POST_KEY        = "post:%d"                   // <postID>
	OWNER_STATS_KEY = "owner:%s-stats:%d:%d"      // <ownerID>:<limit>:<offset>
	BALANCE_KEY     = "balance:%s"                // <userID>
	USER_CACHE_KEY  = "user-cache:%s"             // <userID>
)

func PostKey(postID int64) string {
	return fmt.Sprintf(POST_KEY, postID)
}

func OwnerStatsKey(ownerID string, limit int, offset int) string {
	return fmt.Sprintf(OWNER_STATS_KEY, ownerID, limit, offset)
}

func BalanceKey(userID string) string {
	return fmt.Sprintf(BALANCE_KEY, userID)
}

func UserCacheKey(userID string) string {
	return fmt.Sprintf(USER_CACHE_KEY, userID)
}
