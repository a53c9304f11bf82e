package mdtemplar

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFieldKind: поле записи не является ни скаляром,
	// ни дочерней записью, ни последовательностью записей.
	ErrUnsupportedFieldKind = errors.New("неподдерживаемый вид поля")

	// ErrUnterminatedBlock: у открывающего {{#if}}/{{#each}} нет парного закрывающего маркера.
	ErrUnterminatedBlock = errors.New("незакрытый блок")
)

// FieldError уточняет ErrUnsupportedFieldKind.
type FieldError struct {
	Key    string
	Kind   FieldKind
	Detail string
}

func (e *FieldError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("поле %q (%s): %s: %s", e.Key, e.Kind, ErrUnsupportedFieldKind, e.Detail)
	}
	return fmt.Sprintf("поле %q (%s): %s", e.Key, e.Kind, ErrUnsupportedFieldKind)
}

func (e *FieldError) Unwrap() error { return ErrUnsupportedFieldKind }

// BlockError указывает на открывающий маркер незакрытого блока.
// Line и Column считаются с 1, Column считается в рунах.
type BlockError struct {
	Kind   string // if | each
	Key    string
	Line   int
	Column int
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("%d:%d: {{#%s %s}}: %s", e.Line, e.Column, e.Kind, e.Key, ErrUnterminatedBlock)
}

func (e *BlockError) Unwrap() error { return ErrUnterminatedBlock }
