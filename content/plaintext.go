package content

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

var (
	emphasisRe       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	excessiveLinesRe = regexp.MustCompile(`\n{3,}`)
)

// PlainText renders an HTML catalog fragment as plain text, keeping list
// items and paragraph breaks. Fragments without markup are returned
// unescaped.
func PlainText(fragment string) (string, error) {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.TrimSpace(fragment), nil
	}

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	text, err := converter.ConvertString(fragment)
	if err != nil {
		return "", err
	}
	text = emphasisRe.ReplaceAllString(text, "$1")
	text = html.UnescapeString(text)
	text = excessiveLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text), nil
}
