package schema

import (
	stdsql "database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// UUID declares a TEXT column storing a uuid.UUID in its canonical string
// form. A NULL in a Nullable column decodes to the zero UUID.
func UUID[T any](name string, acc Accessor[T, uuid.UUID], opts ...Option) *Col[T, uuid.UUID] {
	d := &Desc{
		Name:          name,
		Kind:          KindText,
		NotNullPolicy: Abort,
	}
	for _, opt := range opts {
		opt(d)
	}
	return &Col[T, uuid.UUID]{
		desc: d,
		acc:  acc,
		cod: &codec[uuid.UUID]{
			dest: func() any {
				if d.Nullable {
					return &stdsql.Null[string]{}
				}
				return new(string)
			},
			decode: func(src any) (uuid.UUID, error) {
				var s string
				switch v := src.(type) {
				case *string:
					s = *v
				case *stdsql.Null[string]:
					if !v.Valid {
						return uuid.UUID{}, nil
					}
					s = v.V
				default:
					return uuid.UUID{}, fmt.Errorf("unexpected scan destination %T", src)
				}
				if s == "" {
					return uuid.UUID{}, nil
				}
				return uuid.Parse(s)
			},
			encode: func(v uuid.UUID) (any, error) { return v.String(), nil },
		},
	}
}

// Msgpack declares a BLOB column storing an arbitrary Go value in msgpack
// encoding. Predicates on such a column compare the encoded bytes. A NULL
// in a Nullable column decodes to V's zero value.
func Msgpack[T, V any](name string, acc Accessor[T, V], opts ...Option) *Col[T, V] {
	d := &Desc{
		Name:          name,
		Kind:          KindBlob,
		NotNullPolicy: Abort,
	}
	for _, opt := range opts {
		opt(d)
	}
	return &Col[T, V]{
		desc: d,
		acc:  acc,
		cod: &codec[V]{
			dest: func() any {
				if d.Nullable {
					return &stdsql.Null[[]byte]{}
				}
				return new([]byte)
			},
			decode: func(src any) (V, error) {
				var (
					v   V
					raw []byte
				)
				switch b := src.(type) {
				case *[]byte:
					raw = *b
				case *stdsql.Null[[]byte]:
					if !b.Valid {
						return v, nil
					}
					raw = b.V
				default:
					return v, fmt.Errorf("unexpected scan destination %T", src)
				}
				if len(raw) == 0 {
					return v, nil
				}
				if err := msgpack.Unmarshal(raw, &v); err != nil {
					return v, err
				}
				return v, nil
			},
			encode: func(v V) (any, error) { return msgpack.Marshal(v) },
		},
	}
}
