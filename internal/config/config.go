// Package config загружает HCL-конфигурацию пакетного запуска.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/natefinch/atomic"
	"github.com/zclconf/go-cty/cty"
)

// Виды источников записей для задания.
const (
	KindDBDef   = "dbdef"
	KindGeneric = "generic"
	KindXLSX    = "xlsx"
)

// Config описывает корень файла конфигурации.
type Config struct {
	LogLevel  string   `hcl:"log_level,optional"`
	LogFormat string   `hcl:"log_format,optional"`
	Journal   string   `hcl:"journal,optional"`
	Targets   []string `hcl:"targets,optional"`
	Jobs      []*Job   `hcl:"job,block"`
}

// Job описывает одно задание: шаблон, папка с документами и папка вывода.
type Job struct {
	ID        string `hcl:"id,label"`
	Name      string `hcl:"name,optional"`
	Kind      string `hcl:"kind,optional"`
	Template  string `hcl:"template"`
	SourceDir string `hcl:"source_dir"`
	Pattern   string `hcl:"pattern,optional"`
	ExportDir string `hcl:"export_dir"`
	Extension string `hcl:"extension,optional"`
	When      string `hcl:"when,optional"`
	HTML      bool   `hcl:"html,optional"`
	Workers   int    `hcl:"workers,optional"`
}

// Default возвращает конфигурацию по умолчанию с одним заданием B1001.
func Default() *Config {
	cfg := &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Targets:   []string{"B1001"},
		Jobs: []*Job{{
			ID:        "B1001",
			Name:      "YAML to Markdown",
			Kind:      KindDBDef,
			Template:  "templates/table.md",
			SourceDir: "yml",
			ExportDir: "docs",
		}},
	}
	cfg.applyDefaults()
	return cfg
}

// Job возвращает задание по идентификатору.
func (c *Config) Job(id string) (*Job, bool) {
	for _, j := range c.Jobs {
		if j.ID == id {
			return j, true
		}
	}
	return nil, false
}

// JobIDs возвращает идентификаторы всех заданий в порядке объявления.
func (c *Config) JobIDs() []string {
	ids := make([]string, 0, len(c.Jobs))
	for _, j := range c.Jobs {
		ids = append(ids, j.ID)
	}
	return ids
}

// Load читает конфигурацию из файла. Если файла нет, он создаётся
// с конфигурацией по умолчанию.
func Load(path string) (*Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			if werr := atomic.WriteFile(path, bytes.NewReader(Encode(cfg))); werr != nil {
				return nil, fmt.Errorf("config: write default %s: %w", path, werr)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(src, path)
}

// Parse разбирает конфигурацию из байтов; filename используется в диагностике.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: parse %s: %w", filename, diags)
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, evalContext(os.Environ()), &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: decode %s: %w", filename, diags)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", filename, err)
	}
	return &cfg, nil
}

// Encode сериализует конфигурацию в HCL.
func Encode(cfg *Config) []byte {
	f := hclwrite.NewEmptyFile()
	gohcl.EncodeIntoBody(cfg, f.Body())
	return f.Bytes()
}

// evalContext открывает переменные окружения как env.NAME.
func evalContext(environ []string) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
	}
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	for _, j := range c.Jobs {
		if j.Name == "" {
			j.Name = j.ID
		}
		if j.Kind == "" {
			j.Kind = KindDBDef
		}
		if j.Pattern == "" {
			switch j.Kind {
			case KindXLSX:
				j.Pattern = "*.xlsx"
			default:
				j.Pattern = "*.yml"
			}
		}
		if j.Extension == "" {
			j.Extension = ".md"
		}
		if j.Workers <= 0 {
			j.Workers = 1
		}
	}
}

func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q: ожидается debug, info, warn или error", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format %q: ожидается text или json", c.LogFormat)
	}
	seen := make(map[string]struct{}, len(c.Jobs))
	for _, j := range c.Jobs {
		if _, dup := seen[j.ID]; dup {
			return fmt.Errorf("задание %q объявлено дважды", j.ID)
		}
		seen[j.ID] = struct{}{}
		switch j.Kind {
		case KindDBDef, KindGeneric, KindXLSX:
		default:
			return fmt.Errorf("задание %q: неизвестный kind %q", j.ID, j.Kind)
		}
	}
	return nil
}
