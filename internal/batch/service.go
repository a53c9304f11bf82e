// Package batch выполняет пакетные задания: находит документы, рендерит их
// по шаблону и пишет результат, журналируя каждый документ.
package batch

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nikitaxru/mdtemplar"
)

var tracer = otel.Tracer("github.com/nikitaxru/mdtemplar/internal/batch")

// Service описывает одно пакетное задание.
type Service interface {
	ID() string
	Name() string
	ExecuteService(ctx context.Context) error
}

// Execute запускает задание с логами начала и окончания.
// Паника внутри задания считается его ошибкой.
func Execute(ctx context.Context, s Service) (ok bool) {
	log := mdtemplar.Logger(ctx).With("service_id", s.ID(), "service_name", s.Name())
	ctx, span := tracer.Start(ctx, "service "+s.ID(), trace.WithAttributes(
		attribute.String("service.id", s.ID()),
		attribute.String("service.name", s.Name()),
	))
	defer span.End()

	start := time.Now()
	log.Info("▶️ Запуск задания")

	defer func() {
		if r := recover(); r != nil {
			log.Error("❌ Задание завершилось паникой", "panic", r, "duration", time.Since(start))
			span.SetStatus(codes.Error, "panic")
			ok = false
		}
	}()

	if err := s.ExecuteService(mdtemplar.LoggingContext(ctx, log)); err != nil {
		log.Error("❌ Задание завершилось с ошибкой", "error", err, "duration", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false
	}
	log.Info("✅ Задание выполнено", "duration", time.Since(start))
	return true
}
