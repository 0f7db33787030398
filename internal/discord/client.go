package discord

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	discordapi "github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

const memberPageSize = 1000

// Client adapts a disgo bot client to the Resolver and Notifier
// interfaces.
type Client struct {
	client            bot.Client
	inactivityChannel snowflake.ID
	logger            *zap.Logger
}

// NewClient connects a disgo client with the gateway intents the bot needs.
func NewClient(token string, inactivityChannelID snowflake.ID, logger *zap.Logger) (*Client, error) {
	client, err := disgo.New(token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMembers,
				gateway.IntentDirectMessages,
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord client: %w", err)
	}

	return &Client{
		client:            client,
		inactivityChannel: inactivityChannelID,
		logger:            logger.Named("discord"),
	}, nil
}

// Open connects to the Discord gateway.
func (c *Client) Open(ctx context.Context) error {
	return c.client.OpenGateway(ctx)
}

// Close shuts down the gateway connection.
func (c *Client) Close(ctx context.Context) {
	c.client.Close(ctx)
}

// Member resolves a guild member by user ID.
func (c *Client) Member(_ context.Context, guildID, userID snowflake.ID) (*Member, error) {
	member, err := c.client.Rest().GetMember(guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member %d: %w", userID, err)
	}

	return &Member{
		UserID:   member.User.ID,
		Username: member.User.Username,
		RoleIDs:  member.RoleIDs,
	}, nil
}

// MembersWithRole lists the guild members carrying a role by paging
// through the full member list.
func (c *Client) MembersWithRole(_ context.Context, guildID, roleID snowflake.ID) ([]Member, error) {
	var (
		matched []Member
		after   snowflake.ID
	)

	for {
		chunk, err := c.client.Rest().GetMembers(guildID, memberPageSize, after)
		if err != nil {
			return nil, fmt.Errorf("failed to get guild members: %w", err)
		}

		for _, member := range chunk {
			for _, id := range member.RoleIDs {
				if id == roleID {
					matched = append(matched, Member{
						UserID:   member.User.ID,
						Username: member.User.Username,
						RoleIDs:  member.RoleIDs,
					})

					break
				}
			}
		}

		if len(chunk) < memberPageSize {
			return matched, nil
		}

		after = chunk[len(chunk)-1].User.ID
	}
}

// Announce posts to the public inactivity channel.
func (c *Client) Announce(_ context.Context, content string) error {
	_, err := c.client.Rest().CreateMessage(c.inactivityChannel, discordapi.NewMessageCreateBuilder().
		SetContent(content).
		Build())
	if err != nil {
		return fmt.Errorf("failed to announce: %w", err)
	}

	return nil
}

// DirectMessage sends a DM to a user.
func (c *Client) DirectMessage(_ context.Context, userID snowflake.ID, content string) error {
	channel, err := c.client.Rest().CreateDMChannel(userID)
	if err != nil {
		return fmt.Errorf("failed to create DM channel: %w", err)
	}

	_, err = c.client.Rest().CreateMessage(channel.ID(), discordapi.NewMessageCreateBuilder().
		SetContent(content).
		Build())
	if err != nil {
		return fmt.Errorf("failed to send DM: %w", err)
	}

	return nil
}
