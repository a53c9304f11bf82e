package batch_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/xuri/excelize/v2"

	"github.com/nikitaxru/mdtemplar"
	"github.com/nikitaxru/mdtemplar/internal/batch"
	"github.com/nikitaxru/mdtemplar/internal/config"
	"github.com/nikitaxru/mdtemplar/internal/journal"
)

const tableTemplate = `# {{name}} ({{id}})
{{#each columns}}- {{id}}: {{type}}{{#if pk}} PK{{/if}}
{{/each}}`

const usersYAML = `id: users
name: Users
columns:
  - id: id
    type: int
    pk: true
  - id: email
    type: varchar
`

const rolesYAML = `id: roles
name: Roles
columns:
  - id: code
    type: text
`

type ExportSuite struct {
	suite.Suite
	dir     string
	logs    *bytes.Buffer
	ctx     context.Context
	journal *journal.Journal
	job     *config.Job
}

func (s *ExportSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.logs = &bytes.Buffer{}
	s.ctx = mdtemplar.LoggingContext(context.Background(),
		slog.New(slog.NewTextHandler(s.logs, &slog.HandlerOptions{Level: slog.LevelDebug})))

	j, err := journal.Open(filepath.Join(s.dir, "journal.db"))
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = j.Close() })
	s.journal = j

	s.write("table.md", tableTemplate)
	s.Require().NoError(os.MkdirAll(filepath.Join(s.dir, "yml"), 0o755))
	s.job = &config.Job{
		ID:        "B1001",
		Name:      "YAML to Markdown",
		Kind:      config.KindDBDef,
		Template:  filepath.Join(s.dir, "table.md"),
		SourceDir: filepath.Join(s.dir, "yml"),
		Pattern:   "*.yml",
		ExportDir: filepath.Join(s.dir, "docs"),
		Extension: ".md",
		Workers:   2,
	}
}

func (s *ExportSuite) write(name, content string) {
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, name), []byte(content), 0o644))
}

func (s *ExportSuite) read(name string) string {
	b, err := os.ReadFile(filepath.Join(s.job.ExportDir, name))
	s.Require().NoError(err)
	return string(b)
}

func (s *ExportSuite) run() error {
	return batch.NewExporter(s.job, s.journal, "run-1").ExecuteService(s.ctx)
}

func (s *ExportSuite) summary() map[string]int {
	sum, err := s.journal.Summary(context.Background(), "run-1")
	s.Require().NoError(err)
	return sum
}

func (s *ExportSuite) TestRendersEveryDocument() {
	s.write("yml/users.yml", usersYAML)
	s.write("yml/roles.yml", rolesYAML)
	s.write("yml/notes.txt", "ignored")

	s.Require().NoError(s.run())

	s.Equal("# Users (users)\n- id: int PK\n- email: varchar\n", s.read("users.md"))
	s.Equal("# Roles (roles)\n- code: text\n", s.read("roles.md"))
	s.NoFileExists(filepath.Join(s.job.ExportDir, "notes.md"))
	s.Equal(map[string]int{journal.StatusOK: 2}, s.summary())
	s.Contains(s.logs.String(), "Документ создан")
}

func (s *ExportSuite) TestFailedDocumentDoesNotStopOthers() {
	s.write("yml/users.yml", usersYAML)
	s.write("yml/broken.yml", "id: x\ncolour: red\n")

	err := s.run()
	s.Require().Error(err)
	s.Contains(err.Error(), "1 из 2")

	s.FileExists(filepath.Join(s.job.ExportDir, "users.md"))
	s.NoFileExists(filepath.Join(s.job.ExportDir, "broken.md"))
	s.Equal(map[string]int{journal.StatusOK: 1, journal.StatusFailed: 1}, s.summary())
}

func (s *ExportSuite) TestUnterminatedTemplateFailsJob() {
	s.write("table.md", "{{#each columns}}{{id}}")
	s.write("yml/users.yml", usersYAML)

	err := s.run()
	s.Require().Error(err)
	s.True(errors.Is(err, mdtemplar.ErrUnterminatedBlock))
	s.NoDirExists(s.job.ExportDir)
}

func (s *ExportSuite) TestMissingTemplate() {
	s.job.Template = filepath.Join(s.dir, "nope.md")
	s.Require().ErrorIs(s.run(), os.ErrNotExist)
}

func (s *ExportSuite) TestMissingSourceDirIsNotAnError() {
	s.job.SourceDir = filepath.Join(s.dir, "absent")
	s.Require().NoError(s.run())
	s.Contains(s.logs.String(), "Папка с документами не найдена")
	s.NoDirExists(s.job.ExportDir)
}

func (s *ExportSuite) TestWhenPredicate() {
	s.job.When = `id != "roles" && len(columns) > 0`
	s.write("yml/users.yml", usersYAML)
	s.write("yml/roles.yml", rolesYAML)

	s.Require().NoError(s.run())

	s.FileExists(filepath.Join(s.job.ExportDir, "users.md"))
	s.NoFileExists(filepath.Join(s.job.ExportDir, "roles.md"))
	s.Equal(map[string]int{journal.StatusOK: 1, journal.StatusSkipped: 1}, s.summary())
}

func (s *ExportSuite) TestWhenMustBeBoolean() {
	s.job.When = `name + "x"`
	s.write("yml/users.yml", usersYAML)
	s.Require().Error(s.run())
}

func (s *ExportSuite) TestHTMLExport() {
	s.job.HTML = true
	s.write("yml/users.yml", `id: users
name: "<script>alert(1)</script>Users"
columns: []
`)
	s.Require().NoError(s.run())

	html := s.read("users.html")
	s.Contains(html, "<h1")
	s.Contains(html, "Users (users)")
	s.NotContains(html, "<script>")
}

func (s *ExportSuite) TestGenericKind() {
	s.job.Kind = config.KindGeneric
	s.write("table.md", "{{title}}{{#each items}} [{{n}}]{{/each}}")
	s.write("yml/doc.yml", "title: Список\nitems:\n  - n: 1\n  - n: 2\n")

	s.Require().NoError(s.run())
	s.Equal("Список [1] [2]", s.read("doc.md"))
}

func (s *ExportSuite) TestWorkbookKind() {
	s.job.Kind = config.KindXLSX
	s.job.Pattern = "*.xlsx"

	f := excelize.NewFile()
	_ = f.SetCellValue("Sheet1", "A1", "id")
	_ = f.SetCellValue("Sheet1", "B1", "users")
	_ = f.SetCellValue("Sheet1", "A2", "name")
	_ = f.SetCellValue("Sheet1", "B2", "Users")
	_ = f.SetCellValue("Sheet1", "A3", "[columns]")
	_ = f.SetCellValue("Sheet1", "A4", "id")
	_ = f.SetCellValue("Sheet1", "B4", "type")
	_ = f.SetCellValue("Sheet1", "A5", "id")
	_ = f.SetCellValue("Sheet1", "B5", "int")
	_, err := f.NewSheet("roles")
	s.Require().NoError(err)
	_ = f.SetCellValue("roles", "A1", "[columns]")
	_ = f.SetCellValue("roles", "A2", "id")
	_ = f.SetCellValue("roles", "A3", "code")
	s.Require().NoError(f.SaveAs(filepath.Join(s.job.SourceDir, "schema.xlsx")))

	s.Require().NoError(s.run())

	s.Equal("# Users (users)\n- id: int\n", s.read("schema-users.md"))
	s.Equal("#  (roles)\n- code: \n", s.read("schema-roles.md"))
	s.Equal(map[string]int{journal.StatusOK: 2}, s.summary())
}

func TestExportSuite(t *testing.T) {
	suite.Run(t, new(ExportSuite))
}
