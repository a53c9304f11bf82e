package batch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nikitaxru/mdtemplar"
	"github.com/nikitaxru/mdtemplar/internal/config"
	"github.com/nikitaxru/mdtemplar/internal/journal"
)

// Runner выполняет задания конфигурации по списку целей.
type Runner struct {
	cfg     *config.Config
	journal *journal.Journal
	runID   string
}

// NewRunner создаёт исполнителя с новым идентификатором запуска. Журнал может быть nil.
func NewRunner(cfg *config.Config, j *journal.Journal) *Runner {
	return &Runner{cfg: cfg, journal: j, runID: uuid.NewString()}
}

// RunID возвращает идентификатор запуска в журнале.
func (r *Runner) RunID() string { return r.runID }

// Run выполняет цели по порядку. Неизвестная цель пропускается с ошибкой
// в логе. Возвращает false, если хотя бы одна цель не выполнилась.
func (r *Runner) Run(ctx context.Context, targets []string) bool {
	log := mdtemplar.Logger(ctx).With("run_id", r.runID)
	ctx = mdtemplar.LoggingContext(ctx, log)
	start := time.Now()
	log.Info("🚀 Запуск пакетной обработки", "targets", targets)

	ok := true
	for _, id := range targets {
		if err := ctx.Err(); err != nil {
			log.Error("❌ Пакетная обработка прервана", "error", err)
			ok = false
			break
		}
		job, found := r.cfg.Job(id)
		if !found {
			log.Error("❌ Неизвестная цель", "target", id, "known", r.cfg.JobIDs())
			ok = false
			continue
		}
		if !Execute(ctx, NewExporter(job, r.journal, r.runID)) {
			ok = false
		}
	}

	if r.journal != nil {
		if summary, err := r.journal.Summary(ctx, r.runID); err == nil {
			log.Info("📊 Итоги запуска", "ok", summary[journal.StatusOK],
				"failed", summary[journal.StatusFailed], "skipped", summary[journal.StatusSkipped])
		} else {
			log.Warn("⚠️ Не удалось получить итоги из журнала", "error", err)
		}
	}
	log.Info("🏁 Пакетная обработка завершена", "ok", ok, "duration", time.Since(start))
	return ok
}

