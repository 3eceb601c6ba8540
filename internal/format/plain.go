package format

import (
	"strings"

	"golang.org/x/net/html"
)

// PlainText returns the readable text of formatted markup, suitable for
// speech: tags are dropped, <br> becomes a newline, and the bot label and
// code blocks (language label, copy button, listing) are skipped.
func PlainText(markup string) string {
	z := html.NewTokenizer(strings.NewReader(markup))

	var (
		b       strings.Builder
		skipTag string
		depth   int
	)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			text := collapse(b.String())
			return strings.TrimSpace(strings.TrimPrefix(text, BotLabel))

		case html.StartTagToken, html.SelfClosingTagToken:
			tag, hasAttr := z.TagName()
			name := string(tag)
			if name == "br" {
				if depth == 0 {
					b.WriteByte('\n')
				}
				continue
			}
			if tt == html.SelfClosingTagToken {
				continue
			}
			switch {
			case depth > 0 && name == skipTag:
				depth++
			case depth == 0 && name == "div" && hasAttr && hasClass(z, "code-block"):
				skipTag, depth = name, 1
			case depth == 0 && name == "div":
				b.WriteByte('\n')
			}

		case html.EndTagToken:
			tag, _ := z.TagName()
			if depth > 0 && string(tag) == skipTag {
				depth--
				if depth == 0 {
					b.WriteByte('\n')
				}
			}

		case html.TextToken:
			if depth == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func hasClass(z *html.Tokenizer, class string) bool {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "class" {
			for _, c := range strings.Fields(string(val)) {
				if c == class {
					return true
				}
			}
		}
		if !more {
			return false
		}
	}
}

// collapse trims each line and drops blank ones.
func collapse(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
