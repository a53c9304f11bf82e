package mdtemplar_test

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/nikitaxru/mdtemplar"
)

// Тестовые записи: таблица со столбцами, как в описании БД.
type column struct {
	ID   string
	PK   bool
	note string
}

func (c column) Fields() []mdtemplar.Field {
	return []mdtemplar.Field{
		mdtemplar.Scalar("id", c.ID),
		mdtemplar.Scalar("pk", c.PK),
		{Kind: mdtemplar.KindScalar, Value: c.note}, // служебное поле без алиаса
	}
}

type table struct {
	ID      string
	Name    any
	Columns []column
}

func (t table) Fields() []mdtemplar.Field {
	return []mdtemplar.Field{
		mdtemplar.Scalar("id", t.ID),
		mdtemplar.Scalar("name", t.Name),
		mdtemplar.SequenceOf("columns", t.Columns),
	}
}

// record — запись из произвольного списка полей.
type record []mdtemplar.Field

func (r record) Fields() []mdtemplar.Field { return r }

// TemplateSuite — сьют тестов текстового движка шаблонов
type TemplateSuite struct {
	suite.Suite
}

// Runner
func TestTemplateSuite(t *testing.T) {
	suite.Run(t, new(TemplateSuite))
}

func (s *TemplateSuite) render(src string, rec mdtemplar.Record) string {
	out, err := mdtemplar.Render(src, rec)
	s.Require().NoError(err, "render %q", src)
	return out
}

// TestScenarioTable — each со вложенным if по столбцам таблицы
func (s *TemplateSuite) TestScenarioTable() {
	rec := table{ID: "T1", Name: "Users", Columns: []column{{ID: "id", PK: true}, {ID: "name"}}}
	src := "# {{name}}\n{{#each columns}}- {{id}}{{#if pk}} (PK){{/if}}\n{{/each}}"
	s.Equal("# Users\n- id (PK)\n- name\n", s.render(src, rec))
}

// TestEmptySequence — пустая последовательность убирает блок, окружение остаётся
func (s *TemplateSuite) TestEmptySequence() {
	src := "before\n{{#each columns}}- {{id}}\n{{/each}}after"
	s.Equal("before\nafter", s.render(src, table{Columns: []column{}}))
	// nil-последовательность — тоже ноль итераций
	s.Equal("before\nafter", s.render(src, table{}))
}

// TestUnknownMarker — неизвестный ключ выводится как есть
func (s *TemplateSuite) TestUnknownMarker() {
	rec := table{Name: "Users"}
	s.Equal("{{missingkey}} Users", s.render("{{missingkey}} {{name}}", rec))
	s.Equal("{{#if nope}}Users{{/if}}", s.render("{{#if nope}}{{name}}{{/if}}", rec))
	s.Equal("{{#each nope}}Users{{/each}}", s.render("{{#each nope}}{{name}}{{/each}}", rec))
}

// TestUnterminatedBlock — открывающий маркер без пары
func (s *TemplateSuite) TestUnterminatedBlock() {
	for _, src := range []string{
		"{{#if x}} text",
		"a\n  {{#each columns}}{{id}}",
		"{{#each columns}}{{#if pk}}{{/each}}{{/if}}",
	} {
		out, err := mdtemplar.Render(src, table{})
		s.Require().Error(err, src)
		s.True(errors.Is(err, mdtemplar.ErrUnterminatedBlock), "%q: %v", src, err)
		s.Empty(out)
	}

	_, err := mdtemplar.Parse("a\n  {{#each columns}}{{id}}")
	var be *mdtemplar.BlockError
	s.Require().True(errors.As(err, &be))
	s.Equal("each", be.Kind)
	s.Equal("columns", be.Key)
	s.Equal(2, be.Line)
	s.Equal(3, be.Column)

	// во вложенном случае сообщается о внутреннем незакрытом блоке
	_, err = mdtemplar.Parse("{{#each columns}}{{#if pk}}{{/each}}{{/if}}")
	s.Require().True(errors.As(err, &be))
	s.Equal("if", be.Kind)
	s.Equal("pk", be.Key)
}

// TestStrayCloser — закрывающий маркер без открытого блока остаётся текстом
func (s *TemplateSuite) TestStrayCloser() {
	s.Equal("x{{/if}}y{{/each}}", s.render("x{{/if}}y{{/each}}", table{}))
}

// TestIdentity — шаблон без известных маркеров не меняется
func (s *TemplateSuite) TestIdentity() {
	for _, src := range []string{"", "plain text", "{ { x } }", "{{", "}}", "a {{ b"} {
		s.Equal(src, s.render(src, table{ID: "T1"}))
	}
	// повторный рендер готового результата ничего не меняет
	rec := table{ID: "T1", Name: "Users", Columns: []column{{ID: "id", PK: true}}}
	out := s.render("{{name}}:{{#each columns}}{{id}}{{/each}}", rec)
	s.Equal(out, s.render(out, rec))
}

// TestPlaceholderFormatting — строковое представление скаляров
func (s *TemplateSuite) TestPlaceholderFormatting() {
	rec := record{
		mdtemplar.Scalar("s", "str"),
		mdtemplar.Scalar("nil", nil),
		mdtemplar.Scalar("t", true),
		mdtemplar.Scalar("f", false),
		mdtemplar.Scalar("i", 42),
		mdtemplar.Scalar("i64", int64(-7)),
		mdtemplar.Scalar("u8", uint8(255)),
		mdtemplar.Scalar("fl", 2.5),
		mdtemplar.Scalar("whole", 3.0),
	}
	s.Equal("str||true|false|42|-7|255|2.5|3",
		s.render("{{s}}|{{nil}}|{{t}}|{{f}}|{{i}}|{{i64}}|{{u8}}|{{fl}}|{{whole}}", rec))
	// пробелы внутри маркера допустимы
	s.Equal("str", s.render("{{ s }}", rec))
	// {{{s}}} — маркер внутри лишних скобок
	s.Equal("{str}", s.render("{{{s}}}", rec))
}

// TestTruthiness — правила истинности для if
func (s *TemplateSuite) TestTruthiness() {
	cases := []struct {
		v    any
		want string
	}{
		{nil, ""},
		{true, "X"},
		{false, ""},
		{"yes", "X"},
		{"", ""},
		{1, ""},
		{0.5, ""},
	}
	for _, c := range cases {
		rec := record{mdtemplar.Scalar("k", c.v)}
		s.Equal(c.want, s.render("{{#if k}}X{{/if}}", rec), "value %#v", c.v)
	}
}

// TestBlockAtStart — блок в самом начале текста обрабатывается
func (s *TemplateSuite) TestBlockAtStart() {
	rec := record{mdtemplar.Scalar("a", true), mdtemplar.Scalar("b", false)}
	s.Equal("A!", s.render("{{#if a}}A{{/if}}{{#if b}}B{{/if}}!", rec))

	items := record{mdtemplar.Sequence("xs", record{mdtemplar.Scalar("v", "1")}, record{mdtemplar.Scalar("v", "2")})}
	s.Equal("12", s.render("{{#each xs}}{{v}}{{/each}}", items))
}

// TestNesting — each внутри if не разворачивается при ложном условии
func (s *TemplateSuite) TestNesting() {
	seq := mdtemplar.Sequence("b",
		record{mdtemplar.Scalar("c", "1")},
		record{mdtemplar.Scalar("c", "2")},
	)
	src := "{{#if a}}{{#each b}}{{c}}{{/each}}{{/if}}"
	s.Equal("12", s.render(src, record{mdtemplar.Scalar("a", "on"), seq}))
	s.Equal("", s.render(src, record{mdtemplar.Scalar("a", ""), seq}))
}

// TestRepeatedKeys — один и тот же ключ в нескольких местах и вложенный if разных ключей
func (s *TemplateSuite) TestRepeatedKeys() {
	rec := record{mdtemplar.Scalar("a", true), mdtemplar.Scalar("b", false), mdtemplar.Scalar("n", "N")}
	src := "{{#if a}}1{{#if b}}2{{/if}}3{{/if}}-{{#if a}}{{n}}{{#if a}}4{{/if}}{{/if}}-{{#if b}}5{{/if}}"
	s.Equal("13-N4-", s.render(src, rec))
}

// TestNestedEach — each внутри each, элемент — контекст итерации
func (s *TemplateSuite) TestNestedEach() {
	group := func(name string, members ...string) mdtemplar.Record {
		items := make([]mdtemplar.Record, 0, len(members))
		for _, m := range members {
			items = append(items, record{mdtemplar.Scalar("name", m)})
		}
		return record{mdtemplar.Scalar("name", name), mdtemplar.Sequence("members", items...)}
	}
	rec := record{
		mdtemplar.Scalar("name", "root"),
		mdtemplar.Sequence("groups", group("g1", "a", "b"), group("g2"), group("g3", "c")),
	}
	src := "{{name}}:{{#each groups}}[{{name}}:{{#each members}}<{{name}}>{{/each}}]{{/each}}"
	s.Equal("root:[g1:<a><b>][g2:][g3:<c>]", s.render(src, rec))
}

// TestEachScope — поля родителя внутри each не видны
func (s *TemplateSuite) TestEachScope() {
	rec := record{
		mdtemplar.Scalar("table", "T"),
		mdtemplar.Sequence("xs", record{mdtemplar.Scalar("v", "1")}),
	}
	s.Equal("{{table}}1", s.render("{{#each xs}}{{table}}{{v}}{{/each}}", rec))
}

// TestChildFlattening — поля дочерней записи адресуются плоскими ключами
func (s *TemplateSuite) TestChildFlattening() {
	owner := record{mdtemplar.Scalar("email", "a@b.c"), mdtemplar.Scalar("name", "child")}
	rec := record{
		mdtemplar.Scalar("name", "parent"),
		mdtemplar.Child("owner", owner),
		mdtemplar.Child("empty", nil),
	}
	s.Equal("parent a@b.c yes", s.render("{{name}} {{email}} {{#if email}}yes{{/if}}", rec))
	// ключ самой дочерней записи — не скаляр
	s.Equal("{{owner}}", s.render("{{owner}}", rec))
}

// TestHiddenField — поля без алиаса не участвуют в рендере
func (s *TemplateSuite) TestHiddenField() {
	rec := table{Columns: []column{{ID: "x", note: "secret"}}}
	s.Equal("x{{}}", s.render("{{#each columns}}{{id}}{{}}{{/each}}", rec))
}

// TestUnsupportedFieldKind — неверный вид поля останавливает рендер без вывода
func (s *TemplateSuite) TestUnsupportedFieldKind() {
	cases := []mdtemplar.Record{
		record{{Key: "bad", Kind: mdtemplar.KindInvalid}},
		record{mdtemplar.Scalar("bad", []string{"a"})},
		record{mdtemplar.Scalar("ok", "1"), mdtemplar.Child("c", record{mdtemplar.Scalar("bad", map[string]any{})})},
	}
	for _, rec := range cases {
		out, err := mdtemplar.Render("{{ok}}", rec)
		s.Require().Error(err)
		s.True(errors.Is(err, mdtemplar.ErrUnsupportedFieldKind), err.Error())
		s.Empty(out)
	}

	// ошибка в элементе последовательности всплывает при итерации
	rec := record{mdtemplar.Sequence("xs", record{mdtemplar.Scalar("v", "1")}, record{{Key: "v"}})}
	var buf bytes.Buffer
	tmpl, err := mdtemplar.Parse("{{#each xs}}{{v}}{{/each}}")
	s.Require().NoError(err)
	err = tmpl.Execute(&buf, rec)
	var fe *mdtemplar.FieldError
	s.Require().True(errors.As(err, &fe))
	s.Equal("v", fe.Key)
	s.Zero(buf.Len(), "partial output")
}

// TestTemplateReuse — один разобранный шаблон для многих записей параллельно
func (s *TemplateSuite) TestTemplateReuse() {
	tmpl, err := mdtemplar.Parse("{{id}}:{{#each columns}}{{id}};{{/each}}")
	s.Require().NoError(err)

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := strings.Repeat("t", i+1)
			out, err := tmpl.Render(table{ID: id, Columns: []column{{ID: "c"}}})
			if err == nil {
				results[i] = out
			}
		}(i)
	}
	wg.Wait()
	for i, out := range results {
		s.Equal(strings.Repeat("t", i+1)+":c;", out)
	}
	s.Equal("{{id}}:{{#each columns}}{{id}};{{/each}}", tmpl.Source())
}
