package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strconv"
	"time"

	"github.com/lysyi3m/press-comb/app/cfg"
	"github.com/lysyi3m/press-comb/app/content"
)

// Channel describes the RSS channel wrapping a post collection.
type Channel struct {
	Type        string // post type listed by the channel
	Title       string
	Link        string
	Description string
	Language    string
}

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Run renders items as RSS 2.0. Items are walked through loop, which is
// reset once rendering is done.
func (g *Generator) Run(channel Channel, loop *content.Loop, items []*content.Item) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	title := cmp.Or(channel.Title, channel.Type)
	g.writeElement(&buf, "title", title, 4)

	var baseLink, selfLink string
	if cfg.Get().BaseUrl != "" {
		baseLink = cfg.Get().BaseUrl
	} else {
		baseLink = fmt.Sprintf("http://localhost:%s", cfg.Get().Port)
	}
	selfLink = fmt.Sprintf("%s/feeds/%s", baseLink, channel.Type)

	g.writeElement(&buf, "link", cmp.Or(channel.Link, baseLink), 4)
	g.writeElement(&buf, "description", cmp.Or(channel.Description, fmt.Sprintf("Latest %s entries", channel.Type)), 4)
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := time.Now().In(time.Local)
	if len(items) > 0 && !items[0].PublishedAt.IsZero() {
		lastBuildDate = items[0].PublishedAt
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Press-Comb/%s", cfg.Get().Version), 4)
	g.writeElement(&buf, "language", channel.Language, 4)

	loop.Load(items)
	defer loop.Reset()
	for loop.Next() {
		g.writeItem(&buf, loop.Current())
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, item *content.Item) {
	buf.WriteString("    <item>\n")

	link := cmp.Or(firstMeta(item, "link"), item.Permalink)
	guid := cmp.Or(firstMeta(item, "guid"), item.Permalink, strconv.FormatInt(item.ID, 10))

	buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(guid)))
	xml.EscapeText(buf, []byte(guid))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", item.Title, 6)
	g.writeElement(buf, "link", link, 6)
	g.writeElement(buf, "description", cmp.Or(item.Excerpt, "No description available"), 6)

	if item.Content != "" && item.Content != item.Excerpt {
		buf.WriteString("      <content:encoded><![CDATA[")
		buf.WriteString(item.Content)
		buf.WriteString("]]></content:encoded>\n")
	}

	g.writeElement(buf, "pubDate", item.PublishedAt.Format(time.RFC1123Z), 6)
	g.writeElement(buf, "author", firstMeta(item, "author"), 6)

	for _, category := range categories(item) {
		g.writeElement(buf, "category", category, 6)
	}

	// RSS 2.0 requires url, length and type on an enclosure
	enclosureURL := firstMeta(item, "enclosure_url")
	enclosureType := firstMeta(item, "enclosure_type")
	if enclosureURL != "" && enclosureType != "" {
		length, _ := strconv.ParseInt(firstMeta(item, "enclosure_length"), 10, 64)
		buf.WriteString(fmt.Sprintf("      <enclosure url=\"%s\" length=\"%d\" type=\"%s\" />\n",
			html.EscapeString(enclosureURL),
			length,
			html.EscapeString(enclosureType)))
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, text string, indent int) {
	if text == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(text))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}

// firstMeta reads a metadata value whether it was fetched single or multi valued.
func firstMeta(item *content.Item, key string) string {
	switch v := item.Meta[key].(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func categories(item *content.Item) []string {
	var out []string
	switch v := item.Fields["categories"].(type) {
	case []string:
		out = v
	case []any:
		for _, c := range v {
			if s, ok := c.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
