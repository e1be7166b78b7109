// Package sanitize strips Discord mention syntax from text before it leaves
// the bot, so a translated echo can never ping anyone.
package sanitize

import (
	"fmt"
	"regexp"
)

// mentionPattern matches user (<@id>, <@!id>), role (<@&id>), channel (<#id>)
// and broadcast (@everyone, @here) mentions.
var mentionPattern = regexp.MustCompile(`<@[!&]?\d+>|<#\d+>|@everyone|@here`)

// Placeholder returns the token substituted for the i-th mention.
func Placeholder(i int) string {
	return fmt.Sprintf("<__MENTION_%d__>", i)
}

// Mentions replaces every mention, left to right, with a numbered
// placeholder starting at 0. The mapping back to the original mention is
// not kept.
func Mentions(text string) string {
	n := 0
	return mentionPattern.ReplaceAllStringFunc(text, func(string) string {
		token := Placeholder(n)
		n++
		return token
	})
}

// Count reports how many mentions Mentions would replace.
func Count(text string) int {
	return len(mentionPattern.FindAllStringIndex(text, -1))
}
