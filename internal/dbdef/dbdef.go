// Package dbdef описывает определение таблицы БД (таблица, столбцы, индексы)
// как записи для рендера документации.
package dbdef

import "github.com/nikitaxru/mdtemplar"

// Table описывает таблицу.
type Table struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	PKeys   string   `yaml:"pkeys"`
	Columns []Column `yaml:"columns"`
	Indexes []Index  `yaml:"indexes"`

	// Source: файл, из которого загружена таблица. В шаблонах не виден.
	Source string `yaml:"-"`
}

// Fields реализует mdtemplar.Record.
func (t Table) Fields() []mdtemplar.Field {
	return []mdtemplar.Field{
		mdtemplar.Scalar("id", t.ID),
		mdtemplar.Scalar("name", t.Name),
		mdtemplar.SequenceOf("columns", t.Columns),
		mdtemplar.SequenceOf("indexes", t.Indexes),
		mdtemplar.Scalar("pkeys", t.PKeys),
		{Kind: mdtemplar.KindScalar, Value: t.Source},
	}
}

// Column описывает столбец таблицы.
type Column struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Length   string `yaml:"length"`
	Default  string `yaml:"default"`
	PK       bool   `yaml:"pk"`
	Identity bool   `yaml:"identity"`
	NotNull  bool   `yaml:"notnull"`
	Remarks  string `yaml:"remarks"`
}

func (c Column) Fields() []mdtemplar.Field {
	return []mdtemplar.Field{
		mdtemplar.Scalar("id", c.ID),
		mdtemplar.Scalar("name", c.Name),
		mdtemplar.Scalar("type", c.Type),
		mdtemplar.Scalar("length", c.Length),
		mdtemplar.Scalar("default", c.Default),
		mdtemplar.Scalar("pk", c.PK),
		mdtemplar.Scalar("identity", c.Identity),
		mdtemplar.Scalar("notnull", c.NotNull),
		mdtemplar.Scalar("remarks", c.Remarks),
	}
}

// Index описывает индекс таблицы.
type Index struct {
	No      int    `yaml:"no"`
	Name    string `yaml:"name"`
	Columns string `yaml:"columns"`
	Unique  bool   `yaml:"unique"`
}

func (i Index) Fields() []mdtemplar.Field {
	return []mdtemplar.Field{
		mdtemplar.Scalar("no", i.No),
		mdtemplar.Scalar("name", i.Name),
		mdtemplar.Scalar("columns", i.Columns),
		mdtemplar.Scalar("unique", i.Unique),
	}
}
