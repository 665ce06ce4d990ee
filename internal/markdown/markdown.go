// Package markdown turns model output, which often carries markdown
// emphasis and headings, into plain text.
package markdown

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// ToHTML renders md without typographic substitutions so that stripping
// the tags gives back the author's characters.
func ToHTML(md []byte) string {
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.FlagsNone})
	p := parser.NewWithExtensions(parser.CommonExtensions &^ parser.MathJax)
	return string(markdown.Render(p.Parse(md), renderer))
}

// Block-level closing tags end a paragraph of plain text.
var blockEnds = strings.NewReplacer(
	"</p>", "</p>\n",
	"</h1>", "</h1>\n",
	"</h2>", "</h2>\n",
	"</h3>", "</h3>\n",
	"</h4>", "</h4>\n",
	"</h5>", "</h5>\n",
	"</h6>", "</h6>\n",
	"</blockquote>", "</blockquote>\n",
	"<br>", "\n<br>",
	"<br />", "\n<br />",
)

var extraBlankLines = regexp.MustCompile(`\n{3,}`)

// ToPlainText renders md and drops all markup. Line breaks inside a
// paragraph are kept and paragraphs are separated by one blank line.
func ToPlainText(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	text := StripHTMLTags(blockEnds.Replace(ToHTML([]byte(md))))
	text = html.UnescapeString(text)

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	text = extraBlankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}

func StripHTMLTags(htmlContent string) string {
	var result bytes.Buffer
	inTag := false

	for _, ch := range htmlContent {
		switch ch {
		case '<':
			inTag = true
		case '>':
			inTag = false
		default:
			if !inTag {
				result.WriteRune(ch)
			}
		}
	}

	return result.String()
}
