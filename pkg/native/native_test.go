package native

import (
	"bytes"
	"errors"
	"testing"

	"github.com/raymyers/dryfart/pkg/value"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name string
		want value.Value
	}{
		{"STD", value.NativeTable("STD")},
		{"STD$io", value.NativeTable("STD$io")},
		{"STD$io$putLn", value.NativeProc("STD$io$putLn")},
		{"STD$a$eke", value.NativeProc("STD$a$eke")},
		{"STD$a$len", value.NativeFunc("STD$a$len")},
	}
	for _, tt := range tests {
		got, err := Lookup(tt.name)
		if err != nil {
			t.Fatalf("Lookup(%s): %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("Lookup(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
	if _, err := Lookup("STD$nope"); !errors.Is(err, ErrUnknown) {
		t.Errorf("expected ErrUnknown, got %v", err)
	}
}

func TestRoots(t *testing.T) {
	if !IsRoot("STD") || IsRoot("STD$io") || IsRoot("x") {
		t.Error("IsRoot wrong")
	}
	roots := Roots()
	if len(roots) != 1 || roots[0] != "STD" {
		t.Errorf("Roots = %v", roots)
	}
	f, err := Field(value.NativeTable("STD"), "io")
	if err != nil || f != value.NativeTable("STD$io") {
		t.Errorf("Field(STD, io) = %v, %v", f, err)
	}
}

func TestCallIO(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Call(&buf, "STD$io$put", []value.Value{value.NewText("a")}); err != nil {
		t.Fatal(err)
	}
	if _, err := Call(&buf, "STD$io$putLn", []value.Value{value.Nat(7)}); err != nil {
		t.Fatal(err)
	}
	if _, err := Call(&buf, "STD$io$putLn", []value.Value{value.Char('z')}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "a7U\nz\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestCallArrays(t *testing.T) {
	arr := value.NewArray()
	if _, err := Call(nil, "STD$a$eke", []value.Value{arr, value.Int(3)}); err != nil {
		t.Fatal(err)
	}
	n, err := Call(nil, "STD$a$len", []value.Value{arr})
	if err != nil || n != value.Nat(1) {
		t.Errorf("len = %v, %v", n, err)
	}
	if _, err := Call(nil, "STD$a$eke", []value.Value{arr, value.Nat(1)}); !errors.Is(err, value.ErrElemType) {
		t.Errorf("expected ErrElemType, got %v", err)
	}
	if _, err := Call(nil, "STD$a$len", []value.Value{value.Nat(1)}); !errors.Is(err, ErrArgType) {
		t.Errorf("expected ErrArgType, got %v", err)
	}
	if _, err := Call(nil, "STD$a$len", nil); !errors.Is(err, ErrArity) {
		t.Errorf("expected ErrArity, got %v", err)
	}
}
