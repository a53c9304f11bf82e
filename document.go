package mdtemplar

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/natefinch/atomic"
)

// WriteDocument читает шаблон, рендерит его для rec и атомарно записывает
// результат в destPath. При ошибке файл назначения не создаётся и не меняется.
func WriteDocument(ctx context.Context, templatePath, destPath string, rec Record) error {
	log := Logger(ctx)
	log.Debug("📁 Шаблон", "template", templatePath, "dest", destPath)
	startTime := time.Now()

	raw, err := os.ReadFile(templatePath)
	if err != nil {
		log.Error("❌ Ошибка чтения шаблона", "template", templatePath, "error", err)
		return fmt.Errorf("чтение шаблона %s: %w", templatePath, err)
	}

	out, err := Render(string(raw), rec)
	if err != nil {
		log.Error("❌ Ошибка рендеринга", "template", templatePath, "error", err)
		return fmt.Errorf("шаблон %s: %w", templatePath, err)
	}

	if err := atomic.WriteFile(destPath, strings.NewReader(out)); err != nil {
		log.Error("❌ Ошибка сохранения", "dest", destPath, "error", err)
		return fmt.Errorf("запись %s: %w", destPath, err)
	}
	log.Info("✅ Документ создан", "dest", destPath, "bytes", len(out), "duration", time.Since(startTime))
	return nil
}
