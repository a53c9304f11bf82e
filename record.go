package mdtemplar

import "fmt"

// FieldKind задаёт вид поля записи: скаляр, дочерняя запись или последовательность записей.
type FieldKind int

const (
	KindInvalid FieldKind = iota
	KindScalar
	KindChild
	KindSequence
)

func (k FieldKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindChild:
		return "child"
	case KindSequence:
		return "sequence"
	default:
		return fmt.Sprintf("invalid(%d)", int(k))
	}
}

// Field описывает одно поле записи.
// Key задаёт внешний ключ (алиас), по которому поле адресуется из шаблона.
// Поле с пустым Key служебное и рендереру не видно.
type Field struct {
	Key   string
	Kind  FieldKind
	Value any
	Child Record
	Items []Record
}

// Record описывает узел дерева данных. Fields возвращает явный упорядоченный список
// дескрипторов полей; набор полей фиксирован и при рендере не меняется.
type Record interface {
	Fields() []Field
}

// Scalar объявляет скалярное поле (nil, string, bool или число).
func Scalar(key string, v any) Field {
	return Field{Key: key, Kind: KindScalar, Value: v}
}

// Child объявляет дочернюю запись. Её скалярные поля доступны шаблону
// в том же плоском пространстве ключей, что и поля родителя.
func Child(key string, rec Record) Field {
	return Field{Key: key, Kind: KindChild, Child: rec}
}

// Sequence объявляет последовательность дочерних записей для {{#each key}}.
func Sequence(key string, items ...Record) Field {
	return Field{Key: key, Kind: KindSequence, Items: items}
}

// SequenceOf работает как Sequence для среза конкретного типа записей.
// nil-срез даёт отсутствующую последовательность (ноль итераций).
func SequenceOf[T Record](key string, items []T) Field {
	if items == nil {
		return Field{Key: key, Kind: KindSequence}
	}
	recs := make([]Record, len(items))
	for i, it := range items {
		recs[i] = it
	}
	return Field{Key: key, Kind: KindSequence, Items: recs}
}

// Fields без алиаса отфильтровываются; вид каждого поля проверяется сразу,
// чтобы несоответствие шаблона и записи всплывало до вывода.
func visibleFields(rec Record) ([]Field, error) {
	if rec == nil {
		return nil, nil
	}
	all := rec.Fields()
	out := make([]Field, 0, len(all))
	for _, f := range all {
		if f.Key == "" {
			continue
		}
		if err := checkField(f); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func checkField(f Field) error {
	switch f.Kind {
	case KindScalar:
		if !isScalar(f.Value) {
			return &FieldError{Key: f.Key, Kind: f.Kind, Detail: fmt.Sprintf("значение типа %T не скаляр", f.Value)}
		}
		return nil
	case KindChild, KindSequence:
		return nil
	default:
		return &FieldError{Key: f.Key, Kind: f.Kind}
	}
}

// scope хранит контекст рендера одного узла: собственные поля узла и,
// в глубину, поля его дочерних записей. Собственные поля перекрывают дочерние.
type scope struct {
	fields []Field
}

func newScope(rec Record) (*scope, error) {
	s := &scope{}
	if err := s.collect(rec, 0); err != nil {
		return nil, err
	}
	return s, nil
}

// maxChildDepth ограничивает разворачивание дочерних записей (защита от циклов).
const maxChildDepth = 64

func (s *scope) collect(rec Record, depth int) error {
	if depth > maxChildDepth {
		return fmt.Errorf("%w: глубина вложенных записей превышает %d", ErrUnsupportedFieldKind, maxChildDepth)
	}
	fields, err := visibleFields(rec)
	if err != nil {
		return err
	}
	s.fields = append(s.fields, fields...)
	for _, f := range fields {
		if f.Kind == KindChild && f.Child != nil {
			if err := s.collect(f.Child, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *scope) lookup(key string) (Field, bool) {
	for _, f := range s.fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

func (s *scope) resolveScalar(key string) (any, bool) {
	f, ok := s.lookup(key)
	if !ok || f.Kind != KindScalar {
		return nil, false
	}
	return f.Value, true
}

func (s *scope) resolveChild(key string) (Record, bool) {
	f, ok := s.lookup(key)
	if !ok || f.Kind != KindChild {
		return nil, false
	}
	return f.Child, true
}

func (s *scope) resolveSequence(key string) ([]Record, bool) {
	f, ok := s.lookup(key)
	if !ok || f.Kind != KindSequence {
		return nil, false
	}
	return f.Items, true
}
