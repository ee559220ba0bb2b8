// ABOUTME: Builds Matrix message contents for outbound text and chart images
// ABOUTME: Text is sent as m.notice with an HTML body rendered from its lightweight markup

package matrix

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// markdown keeps line breaks as they are written; replies are laid out line
// by line. Raw HTML in the input is not passed through.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// toHTML renders text for FormattedBody. ok is false when rendering failed.
func toHTML(text string) (string, bool) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "", false
	}
	return strings.TrimSpace(buf.String()), true
}

// noticeContent is the content of an outbound text reply. Replies are
// notices so other bots in the room do not answer them.
func noticeContent(text string) *event.MessageEventContent {
	content := &event.MessageEventContent{
		MsgType: event.MsgNotice,
		Body:    text,
	}
	if formatted, ok := toHTML(text); ok {
		content.Format = event.FormatHTML
		content.FormattedBody = formatted
	}
	return content
}

// imageInfo describes an uploaded chart.
type imageInfo struct {
	URI      id.ContentURI
	FileName string
	MimeType string
	Size     int
	Width    int
	Height   int
}

// imageContent is an m.image event carrying caption as its body, with the
// file name set separately so clients show the caption under the image.
func imageContent(img imageInfo, caption string) *event.MessageEventContent {
	content := &event.MessageEventContent{
		MsgType:  event.MsgImage,
		Body:     img.FileName,
		FileName: img.FileName,
		URL:      img.URI.CUString(),
		Info: &event.FileInfo{
			MimeType: img.MimeType,
			Size:     img.Size,
			Width:    img.Width,
			Height:   img.Height,
		},
	}
	if caption != "" {
		content.Body = caption
		if formatted, ok := toHTML(caption); ok {
			content.Format = event.FormatHTML
			content.FormattedBody = formatted
		}
	}
	return content
}
