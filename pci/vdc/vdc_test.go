package vdc

import (
	"errors"
	"testing"

	"k8s.io/utils/ptr"
)

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Filter
	}{
		{"8086:100e", Filter{Vendor: ptr.To[uint16](0x8086), Device: ptr.To[uint16](0x100e)}},
		{"8086:", Filter{Vendor: ptr.To[uint16](0x8086)}},
		{":100e", Filter{Device: ptr.To[uint16](0x100e)}},
		{"::0200", Filter{Class: ptr.To[uint16](0x0200)}},
		{"10de:*:0300", Filter{Vendor: ptr.To[uint16](0x10de), Class: ptr.To[uint16](0x0300)}},
		{":", Filter{}},
	} {
		got, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.in, err)
		}
		if !equal(got.Vendor, tc.want.Vendor) || !equal(got.Device, tc.want.Device) || !equal(got.Class, tc.want.Class) {
			t.Fatalf("Parse(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func equal(a, b *uint16) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"8086", "1:2:3:4", "xyz:1", "10000:0"} {
		if _, err := Parse(in); !errors.Is(err, ErrInvalidFilter) {
			t.Fatalf("Parse(%q): expected ErrInvalidFilter, got %v", in, err)
		}
	}
}

func TestMatches(t *testing.T) {
	nic := Of(0x8086, 0x100e, 0x02, 0x00)
	for _, tc := range []struct {
		in   string
		want bool
	}{
		{"8086:", true},
		{"8086:100e", true},
		{"8086:100f", false},
		{"::0200", true},
		{"::0300", false},
		{"10de:", false},
	} {
		f, err := Parse(tc.in)
		if err != nil {
			t.Fatal(err)
		}
		if got := f.Matches(nic); got != tc.want {
			t.Fatalf("%q.Matches = %v, want %v", tc.in, got, tc.want)
		}
	}
}
