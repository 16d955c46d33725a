package compact

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
)

const tagName = "codec"

// Marshal encodes v. Fixed-size integers are written little-endian at their
// natural width, int and uint as general naturals, slices and strings with a
// general natural length prefix, structs field by field in declaration order.
// A field tagged `codec:"compact"` is written as a general natural regardless
// of its width; `codec:"-"` skips it.
func Marshal(v interface{}) ([]byte, error) {
	buffer := bytes.NewBuffer(nil)
	if err := NewEncoder(buffer).Encode(v); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// Encoder writes values to an underlying stream.
type Encoder struct {
	w   io.Writer
	buf []byte
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, buf: make([]byte, 0, 64)}
}

// Encode writes the encoding of v.
func (e *Encoder) Encode(v interface{}) error {
	e.buf = e.buf[:0]
	if err := e.encode(reflect.ValueOf(v)); err != nil {
		return err
	}
	_, err := e.w.Write(e.buf)
	return err
}

func (e *Encoder) encode(v reflect.Value) error {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			e.buf = append(e.buf, 1)
		} else {
			e.buf = append(e.buf, 0)
		}
	case reflect.Uint8:
		e.buf = append(e.buf, uint8(v.Uint()))
	case reflect.Uint16:
		e.buf = binary.LittleEndian.AppendUint16(e.buf, uint16(v.Uint()))
	case reflect.Uint32:
		e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v.Uint()))
	case reflect.Uint64:
		e.buf = binary.LittleEndian.AppendUint64(e.buf, v.Uint())
	case reflect.Int8:
		e.buf = append(e.buf, uint8(v.Int()))
	case reflect.Int16:
		e.buf = binary.LittleEndian.AppendUint16(e.buf, uint16(v.Int()))
	case reflect.Int32:
		e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v.Int()))
	case reflect.Int64:
		e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v.Int()))
	case reflect.Uint:
		e.buf = AppendUint64(e.buf, v.Uint())
	case reflect.Int:
		if v.Int() < 0 {
			return ErrNegativeCompact
		}
		e.buf = AppendUint64(e.buf, uint64(v.Int()))
	case reflect.String:
		e.buf = AppendUint64(e.buf, uint64(v.Len()))
		e.buf = append(e.buf, v.String()...)
	case reflect.Slice:
		e.buf = AppendUint64(e.buf, uint64(v.Len()))
		if v.Type().Elem().Kind() == reflect.Uint8 {
			e.buf = append(e.buf, v.Bytes()...)
			return nil
		}
		return e.encodeElements(v)
	case reflect.Array:
		return e.encodeElements(v)
	case reflect.Struct:
		return e.encodeStruct(v)
	case reflect.Ptr:
		if v.IsNil() {
			e.buf = append(e.buf, 0)
			return nil
		}
		e.buf = append(e.buf, 1)
		return e.encode(v.Elem())
	case reflect.Interface:
		if v.IsNil() {
			return fmt.Errorf(ErrUnsupportedType, "nil interface")
		}
		return e.encode(v.Elem())
	default:
		if !v.IsValid() {
			return fmt.Errorf(ErrUnsupportedType, "nil")
		}
		return fmt.Errorf(ErrUnsupportedType, v.Type())
	}
	return nil
}

func (e *Encoder) encodeElements(v reflect.Value) error {
	for i := 0; i < v.Len(); i++ {
		if err := e.encode(v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) encodeStruct(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get(tagName)
		if tag == "-" {
			continue
		}

		fv := v.Field(i)
		if tag == "compact" {
			switch fv.Kind() {
			case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
				e.buf = AppendUint64(e.buf, fv.Uint())
				continue
			default:
				return fmt.Errorf(ErrCompactOnNonInteger, field.Name)
			}
		}

		if err := e.encode(fv); err != nil {
			return fmt.Errorf(ErrEncodingStructField, field.Name, err)
		}
	}
	return nil
}
