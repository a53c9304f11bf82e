package mdtemplar

import (
	"io"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Движок текстовых шаблонов с синтаксисом {{...}}.
// Поддержка:
// - {{key}}
// - {{#if key}} ... {{/if}}
// - {{#each key}} ... {{/each}}
// Блоки вкладываются произвольно. Маркеры, не привязанные к полям записи,
// выводятся как есть.

// -----------------------------
// AST
// -----------------------------

type node interface{}

type textNode struct {
	text string
}

type tagNode struct {
	key string
	raw string
}

type blockKind int

const (
	blockIf blockKind = iota
	blockEach
)

func (k blockKind) String() string {
	if k == blockEach {
		return "each"
	}
	return "if"
}

type blockNode struct {
	kind     blockKind
	key      string
	open     string
	close    string
	pos      int // смещение открывающего маркера в исходнике
	children []node
}

// Template хранит разобранный шаблон. Неизменяем, безопасен для параллельного
// рендера разных записей.
type Template struct {
	src   string
	nodes []node
}

// -----------------------------
// Токенизатор
// -----------------------------

type tokenKind int

const (
	tokenText tokenKind = iota
	tokenTag
	tokenOpen
	tokenClose
)

type token struct {
	kind  tokenKind
	block blockKind
	key   string
	raw   string
	pos   int
}

var (
	rxOpenIf    = regexp.MustCompile(`^#if\s+(.+)$`)
	rxOpenEach  = regexp.MustCompile(`^#each\s+(.+)$`)
	rxCloseIf   = regexp.MustCompile(`^/if$`)
	rxCloseEach = regexp.MustCompile(`^/each$`)
)

const (
	leftDelim  = "{{"
	rightDelim = "}}"
)

func tokenize(src string) []token {
	var toks []token
	last := 0
	for last < len(src) {
		start := strings.Index(src[last:], leftDelim)
		if start < 0 {
			break
		}
		start += last
		end := strings.Index(src[start+len(leftDelim):], rightDelim)
		if end < 0 {
			break
		}
		end += start + len(leftDelim)
		// {{{key}}}: маркером считается ближайшая к "}}" пара "{{"
		if i := strings.LastIndex(src[start:end], leftDelim); i > 0 {
			start += i
		}
		if start > last {
			toks = append(toks, token{kind: tokenText, raw: src[last:start], pos: last})
		}
		raw := src[start : end+len(rightDelim)]
		inner := strings.TrimSpace(src[start+len(leftDelim) : end])
		toks = append(toks, classify(inner, raw, start))
		last = end + len(rightDelim)
	}
	if last < len(src) {
		toks = append(toks, token{kind: tokenText, raw: src[last:], pos: last})
	}
	return toks
}

func classify(inner, raw string, pos int) token {
	if m := rxOpenIf.FindStringSubmatch(inner); len(m) == 2 {
		return token{kind: tokenOpen, block: blockIf, key: strings.TrimSpace(m[1]), raw: raw, pos: pos}
	}
	if m := rxOpenEach.FindStringSubmatch(inner); len(m) == 2 {
		return token{kind: tokenOpen, block: blockEach, key: strings.TrimSpace(m[1]), raw: raw, pos: pos}
	}
	if rxCloseIf.MatchString(inner) {
		return token{kind: tokenClose, block: blockIf, raw: raw, pos: pos}
	}
	if rxCloseEach.MatchString(inner) {
		return token{kind: tokenClose, block: blockEach, raw: raw, pos: pos}
	}
	return token{kind: tokenTag, key: inner, raw: raw, pos: pos}
}

// -----------------------------
// Парсер
// -----------------------------

// Parse разбирает шаблон в дерево блоков. Открывающий маркер без пары
// даёт ошибку ErrUnterminatedBlock (*BlockError).
func Parse(src string) (*Template, error) {
	var nodes []node
	var stack []*blockNode

	appendNode := func(n node) {
		if len(stack) == 0 {
			nodes = append(nodes, n)
		} else {
			top := stack[len(stack)-1]
			top.children = append(top.children, n)
		}
	}

	for _, tk := range tokenize(src) {
		switch tk.kind {
		case tokenText:
			appendNode(&textNode{text: tk.raw})
		case tokenTag:
			appendNode(&tagNode{key: tk.key, raw: tk.raw})
		case tokenOpen:
			stack = append(stack, &blockNode{kind: tk.block, key: tk.key, open: tk.raw, pos: tk.pos})
		case tokenClose:
			idx := -1
			for j := len(stack) - 1; j >= 0; j-- {
				if stack[j].kind == tk.block {
					idx = j
					break
				}
			}
			// закрывающий маркер без открытого блока своего вида остаётся текстом
			if idx < 0 {
				appendNode(&textNode{text: tk.raw})
				continue
			}
			// блок другого вида внутри так и не закрылся
			if idx != len(stack)-1 {
				return nil, blockError(src, stack[len(stack)-1])
			}
			top := stack[idx]
			stack = stack[:idx]
			top.close = tk.raw
			appendNode(top)
		}
	}
	if len(stack) != 0 {
		return nil, blockError(src, stack[len(stack)-1])
	}
	return &Template{src: src, nodes: nodes}, nil
}

func blockError(src string, b *blockNode) error {
	line, col := position(src, b.pos)
	return &BlockError{Kind: b.kind.String(), Key: b.key, Line: line, Column: col}
}

func position(src string, pos int) (line, col int) {
	before := src[:pos]
	line = strings.Count(before, "\n") + 1
	if i := strings.LastIndexByte(before, '\n'); i >= 0 {
		before = before[i+1:]
	}
	return line, utf8.RuneCountInString(before) + 1
}

// Source возвращает исходный текст шаблона.
func (t *Template) Source() string { return t.src }

// -----------------------------
// Рендер
// -----------------------------

// Render рендерит шаблон для записи rec. При ошибке результат пустой.
func (t *Template) Render(rec Record) (string, error) {
	sc, err := newScope(rec)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.Grow(len(t.src))
	if err := renderNodes(&sb, t.nodes, sc); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Execute рендерит шаблон и пишет результат в w только при успехе.
func (t *Template) Execute(w io.Writer, rec Record) error {
	out, err := t.Render(rec)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// Render разбирает и рендерит шаблон за один вызов.
func Render(src string, rec Record) (string, error) {
	t, err := Parse(src)
	if err != nil {
		return "", err
	}
	return t.Render(rec)
}

func renderNodes(sb *strings.Builder, nodes []node, sc *scope) error {
	for _, n := range nodes {
		switch nn := n.(type) {
		case *textNode:
			sb.WriteString(nn.text)
		case *tagNode:
			if v, ok := sc.resolveScalar(nn.key); ok {
				sb.WriteString(toString(v))
			} else {
				sb.WriteString(nn.raw)
			}
		case *blockNode:
			if err := renderBlock(sb, nn, sc); err != nil {
				return err
			}
		}
	}
	return nil
}

func renderBlock(sb *strings.Builder, b *blockNode, sc *scope) error {
	switch b.kind {
	case blockIf:
		v, ok := sc.resolveScalar(b.key)
		if !ok {
			return renderVerbatim(sb, b, sc)
		}
		if !truthy(v) {
			return nil
		}
		return renderNodes(sb, b.children, sc)
	case blockEach:
		items, ok := sc.resolveSequence(b.key)
		if !ok {
			return renderVerbatim(sb, b, sc)
		}
		for _, item := range items {
			isc, err := newScope(item)
			if err != nil {
				return err
			}
			if err := renderNodes(sb, b.children, isc); err != nil {
				return err
			}
		}
	}
	return nil
}

// renderVerbatim оставляет маркеры неизвестного блока как есть,
// а содержимое рендерит в текущем контексте.
func renderVerbatim(sb *strings.Builder, b *blockNode, sc *scope) error {
	sb.WriteString(b.open)
	if err := renderNodes(sb, b.children, sc); err != nil {
		return err
	}
	sb.WriteString(b.close)
	return nil
}
