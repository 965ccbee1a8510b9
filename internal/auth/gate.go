package auth

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"vagonetka-bot/pkg/telegoapi"
)

// Gate restricts the bot to its single configured administrator.
type Gate struct {
	adminID   int64
	channelID int64
}

// NewGate creates a gate for the given administrator and target channel.
func NewGate(adminID, channelID int64) (*Gate, error) {
	if adminID == 0 {
		return nil, fmt.Errorf("admin ID cannot be zero")
	}
	if channelID == 0 {
		return nil, fmt.Errorf("target channel ID cannot be zero")
	}
	return &Gate{adminID: adminID, channelID: channelID}, nil
}

// IsAdmin reports whether the chat belongs to the configured administrator.
// Events from any other chat are ignored entirely.
func (g *Gate) IsAdmin(chatID int64) bool {
	return chatID == g.adminID
}

// AdminID returns the configured administrator chat identifier.
func (g *Gate) AdminID() int64 {
	return g.adminID
}

// VerifyChannelAdmin checks at startup that the configured administrator
// actually administers the target channel, catching misconfiguration before
// the first post.
func (g *Gate) VerifyChannelAdmin(ctx context.Context, bot telegoapi.BotAPI) error {
	member, err := bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: tu.ID(g.channelID),
		UserID: g.adminID,
	})
	if err != nil {
		return fmt.Errorf("failed to get chat member info: %w", err)
	}

	status := member.MemberStatus()
	if status != telego.MemberStatusCreator && status != telego.MemberStatusAdministrator {
		return fmt.Errorf("user %d is not an administrator of channel %d (status %q)", g.adminID, g.channelID, status)
	}
	return nil
}
