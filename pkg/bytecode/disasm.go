package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Disassembler formats an image as a readable assembly-style dump.
type Disassembler struct {
	w       io.Writer
	printed bool
}

// NewDisassembler constructs a disassembler that writes to w.
func NewDisassembler(w io.Writer) *Disassembler {
	return &Disassembler{w: w}
}

// Disassemble dumps the pools and then every page.
func (d *Disassembler) Disassemble(img *Image) error {
	d.startSection()
	fmt.Fprintf(d.w, "idents %d\n", len(img.Idents))
	for i, name := range img.Idents {
		fmt.Fprintf(d.w, "  %d %s\n", i, name)
	}
	fmt.Fprintf(d.w, "consts %d\n", len(img.Consts))
	for i, c := range img.Consts {
		fmt.Fprintf(d.w, "  %d %s\n", i, c)
	}
	for i := range img.Pages {
		if err := d.DisassemblePage(img, i); err != nil {
			return err
		}
	}
	return nil
}

// DisassemblePage dumps page i of img.
func (d *Disassembler) DisassemblePage(img *Image, i int) error {
	if i < 0 || i >= len(img.Pages) {
		return fmt.Errorf("no page %d", i)
	}
	p := img.Pages[i]
	d.startSection()
	fmt.Fprintf(d.w, "page %d %s (arity=%d, upvals=%d) line=%d\n",
		i, img.PageName(i), p.Arity, p.Upvals, p.Line)

	code := p.Code
	for ip := 0; ip < len(code); {
		offset := ip
		op := Opcode(code[ip])
		ip++
		if !op.Valid() {
			return fmt.Errorf("%w: page %d: unknown opcode 0x%02x at %04d", ErrBadImage, i, byte(op), offset)
		}
		detail, err := d.decodeOperand(img, op, code, &ip)
		if err != nil {
			return fmt.Errorf("page %d at %04d: %w", i, offset, err)
		}
		fmt.Fprintf(d.w, "%04d %-12s", offset, op)
		if detail != "" {
			fmt.Fprintf(d.w, " %s", detail)
		}
		fmt.Fprintln(d.w)
	}
	return nil
}

func (d *Disassembler) startSection() {
	if d.printed {
		fmt.Fprintln(d.w)
	}
	d.printed = true
}

func (d *Disassembler) decodeOperand(img *Image, op Opcode, code []byte, ip *int) (string, error) {
	switch opcodes[op].arg {
	case argU8:
		v, err := readU8(code, ip)
		if err != nil {
			return "", err
		}
		if op == OpConst {
			return fmt.Sprintf("%d ; %s", v, constRef(img, uint16(v))), nil
		}
		return fmt.Sprintf("%d", v), nil

	case argU16:
		v, err := readU16(code, ip)
		if err != nil {
			return "", err
		}
		switch op {
		case OpConstL:
			return fmt.Sprintf("%d ; %s", v, constRef(img, v)), nil
		case OpLoadGlobal, OpStoreGlobal, OpSetField, OpGetField:
			return fmt.Sprintf("%d ; %s", v, identRef(img, v)), nil
		case OpMakeFunc, OpMakeProc:
			if int(v) < len(img.Pages) {
				return fmt.Sprintf("%d ; %s", v, img.PageName(int(v))), nil
			}
		}
		return fmt.Sprintf("%d", v), nil

	case argRel8:
		v, err := readU8(code, ip)
		if err != nil {
			return "", err
		}
		disp := int(int8(v))
		return fmt.Sprintf("%+d -> %04d", disp, *ip+disp), nil

	case argRel16:
		v, err := readU16(code, ip)
		if err != nil {
			return "", err
		}
		disp := int(int16(v))
		return fmt.Sprintf("%+d -> %04d", disp, *ip+disp), nil
	}
	return "", nil
}

func readU8(code []byte, ip *int) (byte, error) {
	if *ip >= len(code) {
		return 0, fmt.Errorf("%w: unexpected end of code", ErrBadImage)
	}
	val := code[*ip]
	*ip = *ip + 1
	return val, nil
}

func readU16(code []byte, ip *int) (uint16, error) {
	if *ip+1 >= len(code) {
		return 0, fmt.Errorf("%w: unexpected end of code", ErrBadImage)
	}
	val := binary.BigEndian.Uint16(code[*ip:])
	*ip += 2
	return val, nil
}

func constRef(img *Image, idx uint16) string {
	if int(idx) >= len(img.Consts) {
		return "<invalid>"
	}
	return img.Consts[idx].String()
}

func identRef(img *Image, idx uint16) string {
	if int(idx) >= len(img.Idents) {
		return "<invalid>"
	}
	return img.Idents[idx]
}
