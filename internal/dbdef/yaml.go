package dbdef

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DecodeYAML читает одну таблицу из YAML. Неизвестные ключи дают ошибку.
func DecodeYAML(r io.Reader) (Table, error) {
	var t Table
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		if errors.Is(err, io.EOF) {
			return Table{}, errors.New("dbdef: пустой документ")
		}
		return Table{}, fmt.Errorf("dbdef: %w", err)
	}
	return t, nil
}

// LoadYAML загружает таблицу из файла.
func LoadYAML(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("dbdef: read %s: %w", path, err)
	}
	t, err := DecodeYAML(bytes.NewReader(data))
	if err != nil {
		return Table{}, fmt.Errorf("%s: %w", path, err)
	}
	t.Source = path
	return t, nil
}
