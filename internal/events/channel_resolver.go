package events

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const userChannelPrefix = "channel:user:"

// UserChannelPattern matches every per-user channel.
const UserChannelPattern = userChannelPrefix + "*"

// UserChannel is the pub/sub channel carrying events for one user.
func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("%s%s", userChannelPrefix, userID)
}

// UserFromChannel extracts the user id from a per-user channel name.
func UserFromChannel(channel string) (uuid.UUID, bool) {
	if !strings.HasPrefix(channel, userChannelPrefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(channel, userChannelPrefix))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
