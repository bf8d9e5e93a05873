package discord

import "github.com/bwmarrin/discordgo"

// TextInputValue extracts the value of the text input with the given custom
// id from a submitted modal. Empty string when absent.
func TextInputValue(data discordgo.ModalSubmitInteractionData, customID string) string {
	for _, component := range data.Components {
		row, ok := component.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok && input.CustomID == customID {
				return input.Value
			}
		}
	}
	return ""
}
