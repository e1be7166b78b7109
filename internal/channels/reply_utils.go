package channels

const maxDiscordMessageChars = 2000

// limitDiscordMessage cuts text to the Discord message ceiling in code points.
// Shorter text is returned unchanged, whitespace included.
func limitDiscordMessage(text string) string {
	runes := []rune(text)
	if len(runes) <= maxDiscordMessageChars {
		return text
	}
	return string(runes[:maxDiscordMessageChars])
}
