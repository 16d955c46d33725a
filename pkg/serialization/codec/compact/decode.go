package compact

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
)

// MaxLength bounds any decoded length prefix so corrupt input cannot
// trigger huge allocations.
const MaxLength = 1 << 28

// maxPrealloc bounds what is allocated up front for a length prefix, larger
// values are only allocated as their bytes actually arrive.
const maxPrealloc = 1 << 16

// Unmarshal decodes data into dst, which must be a non-nil pointer.
func Unmarshal(data []byte, dst interface{}) error {
	return NewDecoder(bytes.NewReader(data)).Decode(dst)
}

// Decoder reads values from an underlying stream.
type Decoder struct {
	r   io.Reader
	buf [8]byte
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads the next value into dst, which must be a non-nil pointer.
// It returns io.EOF only when the stream ends cleanly before the value.
func (d *Decoder) Decode(dst interface{}) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return ErrInvalidPointer
	}
	return d.decode(v.Elem())
}

func (d *Decoder) read(n int) ([]byte, error) {
	if _, err := io.ReadFull(d.r, d.buf[:n]); err != nil {
		return nil, err
	}
	return d.buf[:n], nil
}

func (d *Decoder) readBytes(n int) ([]byte, error) {
	if n <= maxPrealloc {
		b := make([]byte, n)
		if _, err := io.ReadFull(d.r, b); err != nil {
			return nil, fmt.Errorf(ErrReadingBytes, unexpected(err))
		}
		return b, nil
	}
	b, err := io.ReadAll(io.LimitReader(d.r, int64(n)))
	if err != nil {
		return nil, fmt.Errorf(ErrReadingBytes, err)
	}
	if len(b) < n {
		return nil, fmt.Errorf(ErrReadingBytes, io.ErrUnexpectedEOF)
	}
	return b, nil
}

func (d *Decoder) length() (int, error) {
	n, err := ReadUint64(d.r)
	if err != nil {
		return 0, err
	}
	if n > MaxLength {
		return 0, fmt.Errorf("%w: %d", ErrLengthTooLarge, n)
	}
	return int(n), nil
}

func (d *Decoder) decode(v reflect.Value) error {
	switch v.Kind() {
	case reflect.Bool:
		b, err := d.read(1)
		if err != nil {
			return err
		}
		switch b[0] {
		case 0:
			v.SetBool(false)
		case 1:
			v.SetBool(true)
		default:
			return ErrDecodingBool
		}
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := d.fixed(int(v.Type().Size()))
		if err != nil {
			return err
		}
		v.SetUint(u)
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		size := int(v.Type().Size())
		u, err := d.fixed(size)
		if err != nil {
			return err
		}
		// sign extend from the encoded width
		shift := 64 - 8*size
		v.SetInt(int64(u<<shift) >> shift)
	case reflect.Uint, reflect.Int:
		u, err := ReadUint64(d.r)
		if err != nil {
			return err
		}
		if v.Kind() == reflect.Uint {
			v.SetUint(u)
		} else {
			v.SetInt(int64(u))
		}
	case reflect.String:
		n, err := d.length()
		if err != nil {
			return err
		}
		b, err := d.readBytes(n)
		if err != nil {
			return err
		}
		v.SetString(string(b))
	case reflect.Slice:
		n, err := d.length()
		if err != nil {
			return err
		}
		if n == 0 {
			v.Set(reflect.Zero(v.Type()))
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b, err := d.readBytes(n)
			if err != nil {
				return err
			}
			v.SetBytes(b)
			return nil
		}
		// grow with the decoded elements instead of trusting the prefix
		s := reflect.MakeSlice(v.Type(), 0, min(n, maxPrealloc))
		zero := reflect.Zero(v.Type().Elem())
		for i := 0; i < n; i++ {
			s = reflect.Append(s, zero)
			if err := d.decode(s.Index(i)); err != nil {
				return unexpected(err)
			}
		}
		v.Set(s)
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := d.decode(v.Index(i)); err != nil {
				if i > 0 {
					return unexpected(err)
				}
				return err
			}
		}
	case reflect.Struct:
		return d.decodeStruct(v)
	case reflect.Ptr:
		b, err := d.read(1)
		if err != nil {
			return err
		}
		if b[0] == 0 {
			v.Set(reflect.Zero(v.Type()))
			return nil
		}
		elem := reflect.New(v.Type().Elem())
		if err := d.decode(elem.Elem()); err != nil {
			return unexpected(err)
		}
		v.Set(elem)
	default:
		return fmt.Errorf(ErrUnsupportedType, v.Type())
	}
	return nil
}

func (d *Decoder) fixed(size int) (uint64, error) {
	b, err := d.read(size)
	if err != nil {
		return 0, err
	}
	switch size {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(b)), nil
	default:
		return binary.LittleEndian.Uint64(b), nil
	}
}

func (d *Decoder) decodeStruct(v reflect.Value) error {
	t := v.Type()
	first := true
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
		var err error
		if tag == "compact" {
			switch fv.Kind() {
			case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
				var u uint64
				u, err = ReadUint64(d.r)
				if err == nil {
					fv.SetUint(u)
				}
			default:
				return fmt.Errorf(ErrCompactOnNonInteger, field.Name)
			}
		} else {
			err = d.decode(fv)
		}

		if err != nil {
			// a clean EOF is only clean before the first field
			if first && err == io.EOF {
				return err
			}
			return fmt.Errorf(ErrDecodingStructField, field.Name, unexpected(err))
		}
		first = false
	}
	return nil
}
