package mdtemplar

import (
	"fmt"
	"sort"
)

// Map хранит запись без схемы: упорядоченный набор полей, собранный
// из произвольных декодированных данных (YAML, JSON).
type Map struct {
	fields []Field
}

// Fields реализует Record.
func (m *Map) Fields() []Field {
	if m == nil {
		return nil
	}
	return m.fields
}

// Set добавляет поле или заменяет поле с тем же ключом, сохраняя позицию.
func (m *Map) Set(f Field) {
	for i := range m.fields {
		if m.fields[i].Key == f.Key {
			m.fields[i] = f
			return
		}
	}
	m.fields = append(m.fields, f)
}

// NewMapOf собирает запись из готовых полей. Поле с уже встречавшимся
// ключом заменяет предыдущее.
func NewMapOf(fields ...Field) *Map {
	m := &Map{fields: make([]Field, 0, len(fields))}
	for _, f := range fields {
		m.Set(f)
	}
	return m
}

// Len возвращает число полей.
func (m *Map) Len() int { return len(m.fields) }

// FromValue строит запись из map[string]any. Ключи map в Go не упорядочены,
// поэтому поля сортируются по имени; для сохранения порядка документа
// используйте NewMap с явным списком ключей.
//
// Вложенный объект становится дочерней записью, список объектов
// становится последовательностью. Список скаляров не поддерживается.
func FromValue(v map[string]any) (*Map, error) {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]any, len(keys))
	for i, k := range keys {
		vals[i] = v[k]
	}
	return NewMap(keys, vals)
}

// NewMap строит запись из параллельных срезов ключей и значений.
func NewMap(keys []string, vals []any) (*Map, error) {
	if len(keys) != len(vals) {
		return nil, fmt.Errorf("NewMap: %d ключей и %d значений", len(keys), len(vals))
	}
	m := &Map{fields: make([]Field, 0, len(keys))}
	for i, k := range keys {
		f, err := fieldFromValue(k, vals[i])
		if err != nil {
			return nil, err
		}
		m.Set(f)
	}
	return m, nil
}

func fieldFromValue(key string, v any) (Field, error) {
	switch vv := v.(type) {
	case Record:
		return Child(key, vv), nil
	case map[string]any:
		child, err := FromValue(vv)
		if err != nil {
			return Field{}, err
		}
		return Child(key, child), nil
	case []any:
		items := make([]Record, 0, len(vv))
		for i, it := range vv {
			switch iv := it.(type) {
			case Record:
				items = append(items, iv)
			case map[string]any:
				child, err := FromValue(iv)
				if err != nil {
					return Field{}, err
				}
				items = append(items, child)
			default:
				return Field{}, &FieldError{Key: key, Kind: KindSequence, Detail: fmt.Sprintf("элемент %d типа %T не объект", i, it)}
			}
		}
		return Sequence(key, items...), nil
	default:
		if !isScalar(v) {
			return Field{}, &FieldError{Key: key, Kind: KindInvalid, Detail: fmt.Sprintf("значение типа %T", v)}
		}
		return Scalar(key, v), nil
	}
}

// ToValue раскладывает запись в обычные значения Go: скаляры как есть,
// дочерние записи как map[string]any, последовательности как []any.
// Поля без алиаса пропускаются.
func ToValue(rec Record) (map[string]any, error) {
	fields, err := visibleFields(rec)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		switch f.Kind {
		case KindScalar:
			out[f.Key] = f.Value
		case KindChild:
			if f.Child == nil {
				out[f.Key] = nil
				continue
			}
			cv, err := ToValue(f.Child)
			if err != nil {
				return nil, err
			}
			out[f.Key] = cv
		case KindSequence:
			items := make([]any, 0, len(f.Items))
			for _, it := range f.Items {
				iv, err := ToValue(it)
				if err != nil {
					return nil, err
				}
				items = append(items, iv)
			}
			out[f.Key] = items
		}
	}
	return out, nil
}
