package types

import (
	"testing"
)

func TestParseOrdering(t *testing.T) {
	for _, o := range Orderings {
		parsed, err := ParseOrdering(o.String())
		if err != nil {
			t.Fatalf("Expected %s to parse, got %v", o, err)
		}
		if parsed != o {
			t.Errorf("Expected %s, got %s", o, parsed)
		}
	}
	if o, err := ParseOrdering(""); err != nil || o != OrderDefault {
		t.Errorf("Expected empty string to be default ordering, got %s %v", o, err)
	}
	if _, err := ParseOrdering("newest"); err == nil {
		t.Errorf("Expected error for unknown ordering")
	}
}

func TestOrderingKeyRoundTrip(t *testing.T) {
	for _, o := range Orderings {
		key, dir := o.Key()
		if got := OrderingFor(key, dir); got != o {
			t.Errorf("Expected %s, got %s", o, got)
		}
	}
	if key, _ := OrderDefault.Key(); key != SortNone {
		t.Errorf("Expected default ordering to have no sort key, got %s", key)
	}
}

func TestOrderingText(t *testing.T) {
	var o Ordering
	if err := o.UnmarshalText([]byte("label-desc")); err != nil {
		t.Fatal(err)
	}
	if o != OrderLabelDescending {
		t.Errorf("Expected label-desc, got %s", o)
	}
	if _, err := Ordering(42).MarshalText(); err == nil {
		t.Errorf("Expected error for invalid ordering")
	}
}

func TestDocumentStrings(t *testing.T) {
	doc := Document{Fields: map[string]any{
		"tokens": []any{"a", 1, "b"},
		"name":   "x",
	}}
	tokens := doc.Strings("tokens")
	if len(tokens) != 2 || tokens[0] != "a" || tokens[1] != "b" {
		t.Errorf("Expected [a b], got %v", tokens)
	}
	if doc.String("name") != "x" || doc.String("missing") != "" {
		t.Errorf("Unexpected string lookup result")
	}
}
