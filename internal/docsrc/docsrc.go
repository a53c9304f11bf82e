// Package docsrc загружает документы YAML/JSON без схемы в дерево записей,
// сохраняя порядок ключей документа.
package docsrc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nikitaxru/mdtemplar"
)

// sanitizeBlock извлекает содержимое, обёрнутое в ``` ... ```.
// Если таких кавычек нет, возвращает исходную строку.
var fenceRx = regexp.MustCompile("(?s)```[a-zA-Z]*\\n(.*?)```")

func sanitizeBlock(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	m := fenceRx.FindStringSubmatch(s)
	if len(m) >= 2 {
		return strings.TrimSpace(m[1])
	}
	return s
}

// Decode читает один документ. Корень документа должен быть объектом.
func Decode(r io.Reader) (*mdtemplar.Map, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	src := sanitizeBlock(string(raw))

	var doc yaml.Node
	if err := yaml.NewDecoder(strings.NewReader(src)).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("docsrc: пустой документ")
		}
		return nil, fmt.Errorf("docsrc: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	root = deref(root)
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("docsrc: корень документа (строка %d) не объект", root.Line)
	}
	return mapping(root)
}

// Load загружает документ из файла.
func Load(path string) (*mdtemplar.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("docsrc: read %s: %w", path, err)
	}
	m, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func deref(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func mapping(n *yaml.Node) (*mdtemplar.Map, error) {
	m, _ := mdtemplar.NewMap(nil, nil)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		f, err := field(key, deref(n.Content[i+1]))
		if err != nil {
			return nil, err
		}
		m.Set(f)
	}
	return m, nil
}

func field(key string, n *yaml.Node) (mdtemplar.Field, error) {
	switch n.Kind {
	case yaml.MappingNode:
		child, err := mapping(n)
		if err != nil {
			return mdtemplar.Field{}, err
		}
		return mdtemplar.Child(key, child), nil
	case yaml.SequenceNode:
		items := make([]mdtemplar.Record, 0, len(n.Content))
		for i, it := range n.Content {
			it = deref(it)
			if it.Kind != yaml.MappingNode {
				return mdtemplar.Field{}, &mdtemplar.FieldError{
					Key:    key,
					Kind:   mdtemplar.KindSequence,
					Detail: fmt.Sprintf("строка %d: элемент %d не объект", it.Line, i),
				}
			}
			child, err := mapping(it)
			if err != nil {
				return mdtemplar.Field{}, err
			}
			items = append(items, child)
		}
		return mdtemplar.Sequence(key, items...), nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return mdtemplar.Field{}, fmt.Errorf("docsrc: строка %d, ключ %q: %w", n.Line, key, err)
		}
		switch v.(type) {
		case nil, string, bool, int, int64, uint64, float64:
			return mdtemplar.Scalar(key, v), nil
		default:
			// даты и прочие теги отдаём строкой как в документе
			return mdtemplar.Scalar(key, n.Value), nil
		}
	default:
		return mdtemplar.Field{}, &mdtemplar.FieldError{Key: key, Kind: mdtemplar.KindInvalid, Detail: fmt.Sprintf("строка %d", n.Line)}
	}
}
