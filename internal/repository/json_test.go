package repository

import (
	"database/sql"
	"errors"
	"reflect"
	"testing"
)

func TestDecodeStrings(t *testing.T) {
	cases := map[string][]string{
		``:              {},
		`[]`:            {},
		`null`:          {},
		`not json`:      {},
		`["disc","21"]`: {"disc", "21"},
	}
	for raw, want := range cases {
		if got := decodeStrings(raw); !reflect.DeepEqual(got, want) {
			t.Errorf("decodeStrings(%q) = %#v, want %#v", raw, got, want)
		}
	}
}

func TestDecodeSizesTolerant(t *testing.T) {
	got := decodeSizes(`[1200, 3.9, "17"]`)
	want := []int64{1200, 3, 17}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("decodeSizes = %v, want %v", got, want)
	}
	if got := decodeSizes(`{"a":1}`); len(got) != 0 {
		t.Fatalf("object should decode as empty, got %v", got)
	}
}

func TestEncodeEmptyAsArray(t *testing.T) {
	if encodeStrings(nil) != "[]" || encodeSizes(nil) != "[]" {
		t.Fatal("empty slices must encode as []")
	}
	if got := encodeSizes([]int64{5, 6}); got != "[5,6]" {
		t.Fatalf("encodeSizes = %s", got)
	}
}

func TestErrorMapping(t *testing.T) {
	if !errors.Is(notFound(sql.ErrNoRows), ErrNotFound) {
		t.Fatal("sql.ErrNoRows should map to ErrNotFound")
	}
	dup := errors.New("Error 1062 (23000): Duplicate entry")
	if !errors.Is(duplicate(dup), ErrConflict) {
		t.Fatal("1062 should map to ErrConflict")
	}
	if duplicate(nil) != nil {
		t.Fatal("nil stays nil")
	}
}
