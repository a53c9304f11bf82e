package batch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nikitaxru/mdtemplar"
	"github.com/nikitaxru/mdtemplar/internal/config"
	"github.com/nikitaxru/mdtemplar/internal/dbdef"
	"github.com/nikitaxru/mdtemplar/internal/docsrc"
)

// unit связывает запись для рендера с базовым именем выходного файла.
type unit struct {
	source string
	name   string
	record mdtemplar.Record
}

// loadUnits читает файл источника. Книга xlsx даёт запись на каждый лист,
// остальные виды дают одну запись на файл.
func loadUnits(kind, path string) ([]unit, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch kind {
	case config.KindDBDef:
		t, err := dbdef.LoadYAML(path)
		if err != nil {
			return nil, err
		}
		return []unit{{source: path, name: base, record: t}}, nil
	case config.KindGeneric:
		m, err := docsrc.Load(path)
		if err != nil {
			return nil, err
		}
		return []unit{{source: path, name: base, record: m}}, nil
	case config.KindXLSX:
		tables, err := dbdef.LoadWorkbook(path)
		if err != nil {
			return nil, err
		}
		units := make([]unit, 0, len(tables))
		for _, t := range tables {
			units = append(units, unit{
				source: path + "#" + t.ID,
				name:   base + "-" + safeName(t.ID),
				record: t,
			})
		}
		return units, nil
	default:
		return nil, fmt.Errorf("неизвестный вид источника %q", kind)
	}
}

// safeName заменяет символы, недопустимые в имени файла.
func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}
