package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"-1", "-1", true},
		{"0", "0", true},
		{"1234567.891", "1234567.891", true},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1.234,56", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(MustParseMoney(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
			}
		}
	}
}

func TestMoneyArithmeticIsExact(t *testing.T) {
	// 0.1 + 0.2 drifts in binary floating point.
	sum := MoneyFromFloat(0.1).Add(MoneyFromFloat(0.2))
	if !sum.Equal(MustParseMoney("0.3")) {
		t.Fatalf("0.1+0.2 = %s, want 0.3", sum)
	}

	total := Zero
	for i := 0; i < 1000; i++ {
		total = total.Add(MustParseMoney("0.01"))
	}
	if !total.Equal(MoneyFromInt(10)) {
		t.Fatalf("1000 * 0.01 = %s, want 10", total)
	}

	if got := MoneyFromInt(5).Sub(MoneyFromInt(8)); !got.Equal(MoneyFromInt(-3)) || !got.IsNegative() {
		t.Fatalf("5-8 = %s", got)
	}
	if got := MoneyFromInt(-3).Abs(); !got.Equal(MoneyFromInt(3)) {
		t.Fatalf("abs(-3) = %s", got)
	}
	if got := Sum(MoneyFromInt(1), MoneyFromInt(2), MoneyFromInt(3)); !got.Equal(MoneyFromInt(6)) {
		t.Fatalf("sum = %s", got)
	}
}

func TestMoneyRoundIsBankers(t *testing.T) {
	cases := map[string]string{
		"0.5":  "0",
		"1.5":  "2",
		"2.5":  "2",
		"-2.5": "-2",
		"2.51": "3",
	}
	for in, want := range cases {
		if got := MustParseMoney(in).Round(0); !got.Equal(MustParseMoney(want)) {
			t.Errorf("Round(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := MoneyFromInt(0).Validate(); err != nil {
		t.Fatalf("zero should be valid: %v", err)
	}
	if err := MoneyFromInt(-1).Validate(); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(MustParseMoney("12.50"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"12.5"` {
		t.Fatalf("marshal = %s", b)
	}

	var m Money
	if err := json.Unmarshal([]byte(`42.25`), &m); err != nil {
		t.Fatal(err)
	}
	if !m.Equal(MustParseMoney("42.25")) {
		t.Fatalf("unmarshal = %s", m)
	}
}
