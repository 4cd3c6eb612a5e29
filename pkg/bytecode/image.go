package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/raymyers/dryfart/pkg/value"
)

// Magic opens every image.
const Magic = "\xDFDRYFART"

// ErrBadImage is returned when an image cannot be decoded.
var ErrBadImage = errors.New("malformed image")

// Constant tags in the image. Bool appears only as an array element tag.
const (
	tagVoid  byte = 0
	tagBool  byte = 1
	tagChar  byte = 2
	tagNat   byte = 3
	tagInt   byte = 4
	tagReal  byte = 5
	tagTable byte = 7
	tagArray byte = 8
)

const nameFlag = 0xFF

// Image is a decoded program image.
type Image struct {
	Idents []string
	Consts []value.Value
	Pages  []Page
}

// Page is one subroutine of an image; page 0 is the main program.
type Page struct {
	Arity   uint8
	Upvals  uint8
	Line    uint32
	Name    uint16
	HasName bool
	Code    []byte
}

// PageName returns the display name of page i.
func (img *Image) PageName(i int) string {
	p := img.Pages[i]
	switch {
	case p.HasName && int(p.Name) < len(img.Idents):
		return img.Idents[p.Name]
	case i == 0:
		return "main"
	}
	return "anon"
}

// MarshalBinary encodes the image. Multi-byte integers and reals are
// big-endian. Each page's code is followed by a NUL byte that frames the
// page; readers check it and nothing else uses it.
func (img *Image) MarshalBinary() ([]byte, error) {
	buf := []byte(Magic)

	if len(img.Idents) > value.MaxPoolSize {
		return nil, fmt.Errorf("%w: %d identifiers", value.ErrPoolOverflow, len(img.Idents))
	}
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(img.Idents)))
	for _, name := range img.Idents {
		if len(name) > value.MaxIdentLen {
			return nil, fmt.Errorf("%w: %d bytes", value.ErrIdentTooLong, len(name))
		}
		buf = append(buf, byte(len(name)))
		buf = append(buf, name...)
		buf = append(buf, 0)
	}

	if len(img.Consts) > value.MaxPoolSize {
		return nil, fmt.Errorf("%w: %d constants", value.ErrPoolOverflow, len(img.Consts))
	}
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(img.Consts)))
	for i, c := range img.Consts {
		var err error
		buf, err = appendConst(buf, c)
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
	}

	if len(img.Pages) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d pages", value.ErrPoolOverflow, len(img.Pages))
	}
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(img.Pages)))
	for _, p := range img.Pages {
		buf = append(buf, p.Arity, p.Upvals)
		buf = binary.BigEndian.AppendUint32(buf, p.Line)
		if p.HasName {
			buf = append(buf, nameFlag)
			buf = binary.BigEndian.AppendUint16(buf, p.Name)
		} else {
			buf = append(buf, 0)
		}
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(p.Code)))
		buf = append(buf, p.Code...)
		buf = append(buf, 0)
	}
	return buf, nil
}

func appendConst(buf []byte, v value.Value) ([]byte, error) {
	if a, ok := v.(*value.Array); ok {
		tag, err := elemTag(a.Elem())
		if err != nil {
			return nil, err
		}
		if a.Len() > math.MaxUint16 {
			return nil, fmt.Errorf("%w: array of %d elements", ErrUnsupported, a.Len())
		}
		buf = append(buf, tagArray, tag)
		buf = binary.BigEndian.AppendUint16(buf, uint16(a.Len()))
		for _, e := range a.Items() {
			buf = appendPayload(buf, e)
		}
		return buf, nil
	}
	if t, ok := v.(value.NativeTable); ok {
		if len(t) > value.MaxIdentLen {
			return nil, fmt.Errorf("%w: table name of %d bytes", ErrUnsupported, len(t))
		}
		buf = append(buf, tagTable, byte(len(t)))
		return append(buf, t...), nil
	}
	switch v.(type) {
	case value.Char, value.Nat, value.Int, value.Real:
		tag, _ := elemTag(v.Type())
		return appendPayload(append(buf, tag), v), nil
	}
	return nil, fmt.Errorf("%w: constant of type %s", ErrUnsupported, v.Type())
}

func elemTag(t value.Type) (byte, error) {
	switch t {
	case value.TVoid:
		return tagVoid, nil
	case value.TBool:
		return tagBool, nil
	case value.TChar:
		return tagChar, nil
	case value.TNat:
		return tagNat, nil
	case value.TInt:
		return tagInt, nil
	case value.TReal:
		return tagReal, nil
	}
	return 0, fmt.Errorf("%w: element type %s", ErrUnsupported, t)
}

func appendPayload(buf []byte, v value.Value) []byte {
	switch x := v.(type) {
	case value.Bool:
		if x {
			return append(buf, 1)
		}
		return append(buf, 0)
	case value.Char:
		return append(buf, byte(x))
	case value.Nat:
		return binary.BigEndian.AppendUint32(buf, uint32(x))
	case value.Int:
		return binary.BigEndian.AppendUint32(buf, uint32(x))
	case value.Real:
		return binary.BigEndian.AppendUint32(buf, math.Float32bits(float32(x)))
	}
	return buf
}

// ReadImage decodes an image produced by Emit.
func ReadImage(data []byte) (*Image, error) {
	img := &Image{}
	if err := img.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return img, nil
}

// UnmarshalBinary decodes data into img.
func (img *Image) UnmarshalBinary(data []byte) error {
	r := &reader{data: data}
	if string(r.bytes(len(Magic))) != Magic {
		return fmt.Errorf("%w: bad magic", ErrBadImage)
	}

	n := int(r.u16())
	img.Idents = make([]string, 0, n)
	for ri := 0; ri < n; ri++ {
		name := string(r.bytes(int(r.u8())))
		if r.u8() != 0 && r.err == nil {
			return fmt.Errorf("%w: identifier %q not terminated", ErrBadImage, name)
		}
		img.Idents = append(img.Idents, name)
	}

	n = int(r.u16())
	img.Consts = make([]value.Value, 0, n)
	for i := 0; i < n; i++ {
		c, err := r.constant()
		if err != nil {
			return fmt.Errorf("constant %d: %w", i, err)
		}
		img.Consts = append(img.Consts, c)
	}

	n = int(r.u16())
	img.Pages = make([]Page, 0, n)
	for i := 0; i < n; i++ {
		var p Page
		p.Arity = r.u8()
		p.Upvals = r.u8()
		p.Line = r.u32()
		switch flag := r.u8(); flag {
		case nameFlag:
			p.HasName = true
			p.Name = r.u16()
		case 0:
		default:
			if r.err == nil {
				return fmt.Errorf("%w: page %d name flag 0x%02x", ErrBadImage, i, flag)
			}
		}
		size := r.u32()
		p.Code = r.bytes(int(size))
		if r.u8() != 0 && r.err == nil {
			return fmt.Errorf("%w: page %d missing trailer", ErrBadImage, i)
		}
		if r.err != nil {
			return r.err
		}
		img.Pages = append(img.Pages, p)
	}

	if r.err != nil {
		return r.err
	}
	if r.pos != len(data) {
		return fmt.Errorf("%w: %d trailing bytes", ErrBadImage, len(data)-r.pos)
	}
	return nil
}

// reader decodes big-endian fields, remembering the first short read.
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = fmt.Errorf("%w: unexpected end at offset %d", ErrBadImage, r.pos)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) u8() byte {
	b := r.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.bytes(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) constant() (value.Value, error) {
	tag := r.u8()
	switch tag {
	case tagTable:
		name := r.bytes(int(r.u8()))
		return value.NativeTable(name), r.err
	case tagArray:
		elem := r.u8()
		n := int(r.u16())
		items := make([]value.Value, 0, n)
		for ri := 0; ri < n; ri++ {
			v, err := r.payload(elem)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		if r.err != nil {
			return nil, r.err
		}
		a, err := value.NewArrayOf(items...)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadImage, err)
		}
		return a, nil
	case tagChar, tagNat, tagInt, tagReal:
		return r.payload(tag)
	}
	if r.err != nil {
		return nil, r.err
	}
	return nil, fmt.Errorf("%w: unknown constant tag %d", ErrBadImage, tag)
}

func (r *reader) payload(tag byte) (value.Value, error) {
	var v value.Value
	switch tag {
	case tagBool:
		v = value.Bool(r.u8() != 0)
	case tagChar:
		v = value.Char(r.u8())
	case tagNat:
		v = value.Nat(r.u32())
	case tagInt:
		v = value.Int(int32(r.u32()))
	case tagReal:
		v = value.Real(math.Float32frombits(r.u32()))
	default:
		return nil, fmt.Errorf("%w: unknown element tag %d", ErrBadImage, tag)
	}
	if r.err != nil {
		return nil, r.err
	}
	return v, nil
}
