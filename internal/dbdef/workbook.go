package dbdef

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Раскладка листа книги (один лист — одна таблица):
//
//	id      | users           <- пары ключ/значение уровня таблицы
//	name    | Пользователи
//	pkeys   | id
//	[columns]                 <- секция столбцов
//	id | name | type | pk ... <- заголовок: ключи полей
//	...                       <- строки данных до пустой строки или следующей секции
//	[indexes]
//	no | name | columns | unique
//
// Если строки id нет, идентификатором служит имя листа.

const (
	sectionColumns = "[columns]"
	sectionIndexes = "[indexes]"
)

// LoadWorkbook читает все листы книги как таблицы.
func LoadWorkbook(path string) ([]Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("dbdef: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var tables []Table
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("dbdef: лист %s: %w", sheet, err)
		}
		t, err := parseSheet(sheet, rows)
		if err != nil {
			return nil, fmt.Errorf("dbdef: %s, лист %s: %w", path, sheet, err)
		}
		t.Source = path
		tables = append(tables, t)
	}
	return tables, nil
}

func parseSheet(sheet string, rows [][]string) (Table, error) {
	t := Table{ID: sheet}
	section := ""
	var header []string

	for rIdx, row := range rows {
		rowNum := rIdx + 1
		first := ""
		if len(row) > 0 {
			first = strings.TrimSpace(row[0])
		}
		if isBlank(row) {
			section, header = "", nil
			continue
		}
		switch strings.ToLower(first) {
		case sectionColumns, sectionIndexes:
			section, header = strings.ToLower(first), nil
			continue
		}

		if section == "" {
			val := ""
			if len(row) > 1 {
				val = strings.TrimSpace(row[1])
			}
			switch first {
			case "id":
				t.ID = val
			case "name":
				t.Name = val
			case "pkeys":
				t.PKeys = val
			default:
				return Table{}, fmt.Errorf("строка %d: неизвестный ключ %q", rowNum, first)
			}
			continue
		}

		if header == nil {
			header = make([]string, len(row))
			for i, h := range row {
				header[i] = strings.ToLower(strings.TrimSpace(h))
			}
			continue
		}

		var err error
		switch section {
		case sectionColumns:
			var c Column
			c, err = parseColumn(header, row)
			t.Columns = append(t.Columns, c)
		case sectionIndexes:
			var ix Index
			ix, err = parseIndex(header, row)
			t.Indexes = append(t.Indexes, ix)
		}
		if err != nil {
			return Table{}, fmt.Errorf("строка %d: %w", rowNum, err)
		}
	}
	return t, nil
}

func parseColumn(header, row []string) (Column, error) {
	var c Column
	for i, key := range header {
		if key == "" {
			continue
		}
		v := cell(row, i)
		switch key {
		case "id":
			c.ID = v
		case "name":
			c.Name = v
		case "type":
			c.Type = v
		case "length":
			c.Length = v
		case "default":
			c.Default = v
		case "pk":
			c.PK = parseFlag(v)
		case "identity":
			c.Identity = parseFlag(v)
		case "notnull":
			c.NotNull = parseFlag(v)
		case "remarks":
			c.Remarks = v
		default:
			return Column{}, fmt.Errorf("неизвестный столбец %q", key)
		}
	}
	return c, nil
}

func parseIndex(header, row []string) (Index, error) {
	var ix Index
	for i, key := range header {
		if key == "" {
			continue
		}
		v := cell(row, i)
		switch key {
		case "no":
			if v == "" {
				continue
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return Index{}, fmt.Errorf("no: %w", err)
			}
			ix.No = n
		case "name":
			ix.Name = v
		case "columns":
			ix.Columns = v
		case "unique":
			ix.Unique = parseFlag(v)
		default:
			return Index{}, fmt.Errorf("неизвестный столбец %q", key)
		}
	}
	return ix, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseFlag понимает true/false, 1/0, yes/y и отметки "x", "○".
func parseFlag(v string) bool {
	switch strings.ToLower(v) {
	case "x", "○", "yes", "y":
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}
