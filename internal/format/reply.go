// Package format turns chat replies into safe display markup and back into
// speakable text.
package format

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
)

const (
	// BotLabel prefixes every formatted reply.
	BotLabel = "TalkBot:"

	plainLanguage = "PLAINTEXT"
)

var (
	fencedBlock = regexp.MustCompile("(?s)```(\\w+)?\\s*\\n?(.*?)```")
	inlineCode  = regexp.MustCompile("`([^`\\n]+)`")
	bold        = regexp.MustCompile(`\*\*([^*]+)\*\*`)
)

// Reply formats text and wraps it in the bot message container.
func Reply(text string) string {
	return `<div class="bot-text"><strong>` + BotLabel + `</strong> ` + Body(text) + `</div>`
}

// Body is the bare reply transform. Fenced code blocks are lifted out
// before escaping and put back last, so their content is escaped exactly
// once and never touched by inline formatting. Everything else is escaped
// before inline markers are converted.
func Body(text string) string {
	// NUL is reserved for placeholders.
	text = strings.ReplaceAll(text, "\x00", "")

	var blocks []string
	text = fencedBlock.ReplaceAllStringFunc(text, func(m string) string {
		sub := fencedBlock.FindStringSubmatch(m)
		blocks = append(blocks, codeBlock(sub[1], strings.TrimSpace(sub[2])))
		return placeholder("B", len(blocks)-1)
	})

	text = html.EscapeString(text)

	var spans []string
	text = inlineCode.ReplaceAllStringFunc(text, func(m string) string {
		sub := inlineCode.FindStringSubmatch(m)
		spans = append(spans, `<code class="inline-code">`+sub[1]+`</code>`)
		return placeholder("I", len(spans)-1)
	})

	text = bold.ReplaceAllString(text, "<strong>$1</strong>")
	text = emphasize(text)
	text = strings.ReplaceAll(text, "\n", "<br>")

	for i, s := range spans {
		text = strings.Replace(text, placeholder("I", i), s, 1)
	}
	for i, b := range blocks {
		text = strings.Replace(text, placeholder("B", i), b, 1)
	}
	return text
}

// placeholder marks a lifted span. Escaping and the inline rules leave NUL
// bytes alone.
func placeholder(kind string, i int) string {
	return fmt.Sprintf("\x00%s%d\x00", kind, i)
}

// emphasize converts *x* to <em>x</em>. An asterisk that touches another
// asterisk never opens or closes emphasis, so a stray ** stays literal.
func emphasize(text string) string {
	star := func(i int) bool { return i >= 0 && i < len(text) && text[i] == '*' }

	var b strings.Builder
	for i := 0; i < len(text); i++ {
		if !star(i) || star(i-1) || star(i+1) {
			b.WriteByte(text[i])
			continue
		}
		j := strings.IndexByte(text[i+1:], '*')
		if j <= 0 || star(i+j+2) {
			b.WriteByte(text[i])
			continue
		}
		j += i + 1
		b.WriteString("<em>")
		b.WriteString(text[i+1 : j])
		b.WriteString("</em>")
		i = j
	}
	return b.String()
}

func codeBlock(language, code string) string {
	escaped := html.EscapeString(code)
	return `<div class="code-block"><div class="code-header"><span class="code-language">` +
		Language(language) +
		`</span><button class="copy-btn" data-copy="` + escaped + `">Copy</button></div><pre><code>` +
		escaped +
		`</code></pre></div>`
}

// Language returns the display label of a fence language tag. Aliases
// known to chroma are canonicalised ("py" is PYTHON); an empty tag is
// PLAINTEXT.
func Language(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return plainLanguage
	}
	if l := lexers.Get(tag); l != nil {
		if name := l.Config().Name; name != "" {
			tag = name
		}
	}
	return strings.ToUpper(html.EscapeString(tag))
}
