package dispatch

import (
	"fmt"
	"strings"

	"github.com/polyglot-bot/polyglot/internal/chunker"
	"github.com/polyglot-bot/polyglot/internal/languages"
)

const (
	resultHeader = "Translation result:\n"

	// widestResultPrefix is the longest "(i/N)" prefix the channel fallback
	// reserves room for.
	widestResultPrefix = "Translation result (XX/XX):\n"

	noticeNoText         = "No text to translate found. Please reply to a message containing text."
	noticeNotFound       = "The referenced message was not found."
	noticeForbidden      = "I don't have permission to read messages."
	noticeLongInput      = "⚠️ **Warning**: The message is very long and might exceed the translation service's token limit. I'll try to translate it, but it may be cut off or fail."
	noticeNoThreadAccess = "⚠️ I don't have permission to create threads. The translation will be sent in this channel instead."
)

func mustReplyNotice(trigger string) string {
	return "⚠️ **Error**: Please use this command as a reply to the message you want to translate.\n" +
		fmt.Sprintf("For example, reply to a message with `%s en` to translate it to English.", trigger)
}

func noLanguageNotice(trigger string, registry *languages.Registry) string {
	return fmt.Sprintf("⚠️ **Error**: No language specified. Please use the format: `%s [language code]`\n", trigger) +
		fmt.Sprintf("Available language codes: %s", registry.Summary())
}

func unsupportedNotice(registry *languages.Registry) string {
	return fmt.Sprintf("Unsupported language code. Supported languages are: %s.", registry.Summary())
}

func faultNotice(err error) string {
	return fmt.Sprintf("An error occurred: %v", err)
}

func chunkMessage(chunk chunker.Chunk) string {
	return "Translation result " + chunk.Label() + ":\n" + chunk.Text
}

// ThreadName names the thread a translation is posted in. Sources longer
// than maxSourceChars code points are cut and suffixed with "...".
func ThreadName(source, code string, maxSourceChars int) string {
	runes := []rune(source)
	if maxSourceChars > 0 && len(runes) > maxSourceChars {
		source = string(runes[:maxSourceChars]) + "..."
	}
	return fmt.Sprintf("Translation of '%s' to %s", source, strings.ToUpper(code))
}

// IntroMessage is the help text posted by the introduce command and on startup.
func IntroMessage(registry *languages.Registry, trigger string) string {
	var commands strings.Builder
	for i, lang := range registry.All() {
		if i > 0 {
			commands.WriteString("\n")
		}
		fmt.Fprintf(&commands, "   • `%s %s` - %s %s", trigger, lang.Code, lang.Description, lang.Emoji)
	}

	names := make([]string, 0, len(registry.Codes()))
	for _, lang := range registry.All() {
		names = append(names, fmt.Sprintf("**%s**", lang.Name))
	}

	var sb strings.Builder
	sb.WriteString("```ini\n[POLYGLOT TRANSLATOR BOT]\n```\n")
	sb.WriteString("🌐 **Hello! I'm Polyglot, your AI-powered translator bot!** 🌐\n\n")
	fmt.Fprintf(&sb, "✨ I specialize in seamless translations between %s.\n\n", joinNames(names))
	sb.WriteString("## **How to Use Me:**\n")
	sb.WriteString("① **Reply** to any message you want to translate\n")
	sb.WriteString("② Type one of these commands:\n")
	sb.WriteString(commands.String())
	sb.WriteString("\n\n🔍 **Examples:**\n")
	for _, lang := range registry.All() {
		fmt.Fprintf(&sb, "> Reply to a message with `%s %s` to get it in %s\n", trigger, lang.Code, lang.Name)
	}
	sb.WriteString("\n💫 Powered by state-of-the-art AI for accurate and natural translations!\n")
	sb.WriteString("⭐ I'm here whenever you need language assistance! ⭐\n\n")
	sb.WriteString("📝 **Want more languages added?** Please contact the server administrators.")
	return sb.String()
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}
