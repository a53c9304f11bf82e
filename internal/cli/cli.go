// Package cli разбирает аргументы командной строки и готовит окружение
// запуска: логгер и список целей.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/nikitaxru/mdtemplar/internal/config"
)

// ExitError несёт ошибку с кодом завершения процесса.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Options хранит параметры запуска. Пустые значения не переопределяют конфигурацию.
type Options struct {
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	Journal     string
	Targets     []string
	Interactive bool
}

// Parse разбирает аргументы. Второй результат true, если нужно завершиться
// без ошибки (например, после -h).
func Parse(args []string, output io.Writer) (*Options, bool, error) {
	flagSet := flag.NewFlagSet("mdtemplar", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
mdtemplar - рендер Markdown-документов по шаблонам {{...}}.

Usage:
  mdtemplar [options] [TARGET...]

Arguments:
  TARGET
    Идентификатор задания из файла конфигурации (например, B1001).

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "mdtemplar.hcl", "Путь к файлу конфигурации HCL.")
	logLevelFlag := flagSet.String("log-level", "", "Уровень логов: 'debug', 'info', 'warn', 'error'.")
	logFormatFlag := flagSet.String("log-format", "", "Формат логов: 'text' или 'json'.")
	journalFlag := flagSet.String("journal", "", "Путь к журналу SQLite.")
	targetsFlag := flagSet.String("targets", "", "Список заданий через запятую.")
	interactiveFlag := flagSet.Bool("interactive", false, "Выбрать задания интерактивно.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	opts := &Options{
		ConfigPath:  *configFlag,
		LogLevel:    strings.ToLower(*logLevelFlag),
		LogFormat:   strings.ToLower(*logFormatFlag),
		Journal:     *journalFlag,
		Interactive: *interactiveFlag,
	}
	for _, t := range strings.Split(*targetsFlag, ",") {
		if t = strings.TrimSpace(t); t != "" {
			opts.Targets = append(opts.Targets, t)
		}
	}
	opts.Targets = append(opts.Targets, flagSet.Args()...)

	switch opts.LogFormat {
	case "", "text", "json":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	switch opts.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	if opts.ConfigPath == "" {
		return nil, false, &ExitError{Code: 2, Message: "config path must not be empty"}
	}
	return opts, false, nil
}

// Apply переносит заданные флаги в конфигурацию.
func (o *Options) Apply(cfg *config.Config) {
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.LogFormat = o.LogFormat
	}
	if o.Journal != "" {
		cfg.Journal = o.Journal
	}
	if len(o.Targets) > 0 {
		cfg.Targets = o.Targets
	}
}
