package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/nikitaxru/mdtemplar/internal/config"
)

// ErrAborted возвращается, когда пользователь прервал выбор (Ctrl+C).
var ErrAborted = errors.New("cli: выбор прерван")

// Selector спрашивает у пользователя набор заданий.
type Selector interface {
	MultiSelect(ctx context.Context, message string, options, defaults []string) ([]string, error)
}

// SurveySelector спрашивает в терминале.
type SurveySelector struct{}

func (SurveySelector) MultiSelect(ctx context.Context, message string, options, defaults []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []string
	prompt := &survey.MultiSelect{
		Message: message,
		Options: options,
		Default: defaults,
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return nil, ErrAborted
		}
		return nil, err
	}
	return out, nil
}

// SelectTargets предлагает выбрать задания конфигурации; текущие цели
// отмечены по умолчанию. Пустой выбор считается ошибкой.
func SelectTargets(ctx context.Context, sel Selector, cfg *config.Config) ([]string, error) {
	options := make([]string, 0, len(cfg.Jobs))
	labels := make(map[string]string, len(cfg.Jobs))
	for _, j := range cfg.Jobs {
		label := j.ID
		if j.Name != "" && j.Name != j.ID {
			label = fmt.Sprintf("%s (%s)", j.ID, j.Name)
		}
		options = append(options, label)
		labels[label] = j.ID
	}
	var defaults []string
	for _, t := range cfg.Targets {
		for label, id := range labels {
			if id == t {
				defaults = append(defaults, label)
			}
		}
	}

	picked, err := sel.MultiSelect(ctx, "Задания для запуска:", options, defaults)
	if err != nil {
		return nil, err
	}
	if len(picked) == 0 {
		return nil, errors.New("cli: не выбрано ни одного задания")
	}
	targets := make([]string, 0, len(picked))
	for _, p := range picked {
		if id, ok := labels[p]; ok {
			targets = append(targets, id)
		}
	}
	return targets, nil
}
