package redis

import "fmt"

// Key prefix for all tracker data
const keyPrefix = "mjtrack"

// sessionKey returns the Redis key for a session token
func sessionKey(token string) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, token)
}

// userSessionsKey returns the Redis key for the SET of a user's session tokens
func userSessionsKey(userID int64) string {
	return fmt.Sprintf("%s:idx:user_sessions:%d", keyPrefix, userID)
}
