package coverage

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/scholarslab/nlfeatures/internal/model"
)

const stemPrefix = "nlfeatures"

var (
	viewPolicy  = bluemonday.UGCPolicy()
	mdConverter = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
)

// View renders the display body of a coverage value as safe HTML.
func View(text string, isHTML bool) string {
	return Render(Body(text), isHTML)
}

// Render turns body into safe HTML. HTML bodies are sanitised; plain bodies
// are escaped with line breaks kept.
func Render(body string, isHTML bool) string {
	if isHTML {
		return viewPolicy.Sanitize(body)
	}
	escaped := html.EscapeString(strings.ReplaceAll(body, "\r\n", "\n"))
	return strings.ReplaceAll(escaped, "\n", "<br />\n")
}

// PlainText renders the display body for a terminal.
func PlainText(text string, isHTML bool) (string, error) {
	return RenderPlain(Body(text), isHTML)
}

// RenderPlain converts an HTML body to Markdown. Plain bodies are returned
// unchanged.
func RenderPlain(body string, isHTML bool) (string, error) {
	if !isHTML {
		return body, nil
	}
	md, err := mdConverter.ConvertString(body)
	if err != nil {
		return "", fmt.Errorf("converting coverage html: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// InputNameStem returns the form input prefix for a feature's editor.
// Unsaved features get a random stem so several editors can share a page.
func InputNameStem(f *model.Feature) string {
	if f != nil && f.Saved() {
		return fmt.Sprintf("%s%d_", stemPrefix, f.ID)
	}
	return stemPrefix + strings.ReplaceAll(uuid.NewString(), "-", "") + "_"
}
