package batch

import (
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

var htmlPolicy = bluemonday.UGCPolicy()

// markdownToHTML переводит отрендеренный Markdown в HTML и очищает его
// от небезопасной разметки, пришедшей из данных.
func markdownToHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	return htmlPolicy.SanitizeBytes(markdown.ToHTML([]byte(md), p, r))
}
