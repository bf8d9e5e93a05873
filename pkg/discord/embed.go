package discord

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"ctfbot/internal/ports/output"
)

// JoinButtonPrefix is the component custom id prefix for join buttons; the
// database event id follows the colon.
const JoinButtonPrefix = "ctf_join:"

// JoinButtonID builds the custom id for an event's join button.
func JoinButtonID(eventID int64) string {
	return fmt.Sprintf("%s%d", JoinButtonPrefix, eventID)
}

// FormatTimestamp renders t as a Discord timestamp, localized client-side.
func FormatTimestamp(t time.Time) string {
	return fmt.Sprintf("<t:%d:F>", t.Unix())
}

// BuildNoticeEmbed turns a notice into an embed message.
func BuildNoticeEmbed(n output.Notice) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       n.Title,
		Description: n.Description,
		Color:       n.Color,
	}
	if !n.StartAt.IsZero() && !n.FinishAt.IsZero() {
		embed.Fields = []*discordgo.MessageEmbedField{
			{Name: "Start", Value: FormatTimestamp(n.StartAt), Inline: true},
			{Name: "Finish", Value: FormatTimestamp(n.FinishAt), Inline: true},
		}
	}
	if n.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: n.Footer}
	}
	return embed
}

// BuildNoticeComponents returns the join button row, or nil when the notice
// carries no joinable event.
func BuildNoticeComponents(n output.Notice) []discordgo.MessageComponent {
	if n.JoinEventID == 0 {
		return nil
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Join",
				Style:    discordgo.PrimaryButton,
				Emoji:    &discordgo.ComponentEmoji{Name: "🚩"},
				CustomID: JoinButtonID(n.JoinEventID),
			},
		}},
	}
}
