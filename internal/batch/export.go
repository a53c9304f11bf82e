package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	natomic "github.com/natefinch/atomic"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/nikitaxru/mdtemplar"
	"github.com/nikitaxru/mdtemplar/internal/config"
	"github.com/nikitaxru/mdtemplar/internal/journal"
)

// Exporter рендерит все документы из SourceDir
// по одному шаблону и складывает результат в ExportDir.
type Exporter struct {
	job     *config.Job
	journal *journal.Journal
	runID   string
}

// NewExporter создаёт задание. Журнал может быть nil.
func NewExporter(job *config.Job, j *journal.Journal, runID string) *Exporter {
	return &Exporter{job: job, journal: j, runID: runID}
}

func (e *Exporter) ID() string   { return e.job.ID }
func (e *Exporter) Name() string { return e.job.Name }

// ExecuteService обрабатывает документы задания. Ошибка одного документа
// не останавливает остальные; итоговая ошибка содержит число неудач.
func (e *Exporter) ExecuteService(ctx context.Context) error {
	log := mdtemplar.Logger(ctx)
	job := e.job

	raw, err := os.ReadFile(job.Template)
	if err != nil {
		return fmt.Errorf("шаблон %s: %w", job.Template, err)
	}
	tmpl, err := mdtemplar.Parse(string(raw))
	if err != nil {
		return fmt.Errorf("шаблон %s: %w", job.Template, err)
	}

	var when *vm.Program
	if strings.TrimSpace(job.When) != "" {
		when, err = expr.Compile(job.When, expr.AsBool())
		if err != nil {
			return fmt.Errorf("условие when %q: %w", job.When, err)
		}
	}

	if _, err := os.Stat(job.SourceDir); errors.Is(err, fs.ErrNotExist) {
		log.Info("📂 Папка с документами не найдена, пропуск", "source_dir", job.SourceDir)
		return nil
	}
	files, err := filepath.Glob(filepath.Join(job.SourceDir, job.Pattern))
	if err != nil {
		return fmt.Errorf("шаблон поиска %q: %w", job.Pattern, err)
	}
	sort.Strings(files)
	log.Info("🔍 Найдено документов", "count", len(files), "source_dir", job.SourceDir)
	if len(files) == 0 {
		return nil
	}

	if err := os.MkdirAll(job.ExportDir, 0o755); err != nil {
		return fmt.Errorf("папка вывода %s: %w", job.ExportDir, err)
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(job.Workers, 1))
	for _, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			failed.Add(int64(e.processFile(gctx, tmpl, when, path)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("задание %s: %d из %d документов с ошибкой", job.ID, n, len(files))
	}
	return nil
}

// processFile обрабатывает файл источника и возвращает число неудачных записей.
func (e *Exporter) processFile(ctx context.Context, tmpl *mdtemplar.Template, when *vm.Program, path string) int {
	log := mdtemplar.Logger(ctx)
	start := time.Now()
	units, err := loadUnits(e.job.Kind, path)
	if err != nil {
		log.Error("❌ Ошибка чтения документа", "source", path, "error", err)
		e.record(ctx, journal.Entry{Source: path, Status: journal.StatusFailed, Error: err.Error(), Duration: time.Since(start)})
		return 1
	}
	failed := 0
	for _, u := range units {
		if err := e.processUnit(ctx, tmpl, when, u); err != nil {
			failed++
		}
	}
	return failed
}

func (e *Exporter) processUnit(ctx context.Context, tmpl *mdtemplar.Template, when *vm.Program, u unit) (err error) {
	log := mdtemplar.Logger(ctx).With("source", u.source)
	ctx, span := tracer.Start(ctx, "render "+u.name, trace.WithAttributes(
		attribute.String("job.id", e.job.ID),
		attribute.String("source", u.source),
	))
	defer span.End()

	start := time.Now()
	dest := filepath.Join(e.job.ExportDir, u.name+e.job.Extension)
	entry := journal.Entry{Source: u.source, Output: dest}
	defer func() {
		entry.Duration = time.Since(start)
		if err != nil {
			entry.Status = journal.StatusFailed
			entry.Error = err.Error()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		e.record(ctx, entry)
	}()

	if when != nil {
		ok, err := match(when, u.record)
		if err != nil {
			log.Error("❌ Ошибка условия when", "error", err)
			return err
		}
		if !ok {
			log.Debug("⏭️ Документ не прошёл условие when")
			entry.Status = journal.StatusSkipped
			entry.Output = ""
			return nil
		}
	}

	out, err := tmpl.Render(u.record)
	if err != nil {
		log.Error("❌ Ошибка рендеринга", "error", err)
		return err
	}
	if err := natomic.WriteFile(dest, strings.NewReader(out)); err != nil {
		log.Error("❌ Ошибка сохранения", "dest", dest, "error", err)
		return fmt.Errorf("запись %s: %w", dest, err)
	}
	if e.job.HTML {
		htmlDest := strings.TrimSuffix(dest, filepath.Ext(dest)) + ".html"
		if err := natomic.WriteFile(htmlDest, strings.NewReader(string(markdownToHTML(out)))); err != nil {
			log.Error("❌ Ошибка сохранения", "dest", htmlDest, "error", err)
			return fmt.Errorf("запись %s: %w", htmlDest, err)
		}
	}
	entry.Status = journal.StatusOK
	log.Info("✅ Документ создан", "dest", dest, "bytes", len(out), "duration", time.Since(start))
	return nil
}

// match вычисляет условие when над полями записи.
func match(program *vm.Program, rec mdtemplar.Record) (bool, error) {
	env, err := mdtemplar.ToValue(rec)
	if err != nil {
		return false, err
	}
	res, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}
	ok, isBool := res.(bool)
	if !isBool {
		return false, fmt.Errorf("условие when вернуло %T, ожидался bool", res)
	}
	return ok, nil
}

func (e *Exporter) record(ctx context.Context, entry journal.Entry) {
	if e.journal == nil {
		return
	}
	entry.RunID = e.runID
	entry.Job = e.job.ID
	if err := e.journal.Record(ctx, entry); err != nil {
		mdtemplar.Logger(ctx).Warn("⚠️ Не удалось записать в журнал", "error", err)
	}
}
