package standardize

import (
	"strings"
	"testing"
)

func TestNormalizeProductName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Sony TV", "sony tv"},
		{"sony   tv", "sony tv"},
		{"SONY-TV", "sony tv"},
		{"  Café Molinillo!  ", "cafe molinillo"},
		{"4K (Ultra) HD", "4k ultra hd"},
		{"---", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeProductName(c.in); got != c.want {
			t.Errorf("NormalizeProductName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestProductID_DeterministicAcrossVariants(t *testing.T) {
	base, ok := ProductID("Sony TV")
	if !ok {
		t.Fatalf("expected an ID")
	}
	for _, variant := range []string{"sony tv", "SONY  TV", " Sony-TV ", "sony_tv"} {
		id, ok := ProductID(variant)
		if !ok {
			t.Fatalf("%q: expected an ID", variant)
		}
		if id != base {
			t.Errorf("%q: got %s, want %s", variant, id, base)
		}
	}
}

func TestProductID_Shape(t *testing.T) {
	id, ok := ProductID("Blender 3000")
	if !ok {
		t.Fatalf("expected an ID")
	}
	if !strings.HasPrefix(id, "PROD_") {
		t.Fatalf("missing prefix: %s", id)
	}
	if len(id) != len("PROD_")+10 {
		t.Fatalf("unexpected length: %s", id)
	}
}

func TestProductID_DistinctProductsDiffer(t *testing.T) {
	a, _ := ProductID("Sony TV")
	b, _ := ProductID("Sony Radio")
	if a == b {
		t.Fatalf("distinct products collided: %s", a)
	}
}

func TestProductID_EmptyCanonicalYieldsNoID(t *testing.T) {
	if _, ok := ProductID("!!!"); ok {
		t.Fatalf("expected no ID for punctuation-only name")
	}
	if _, ok := ProductID(""); ok {
		t.Fatalf("expected no ID for empty name")
	}
}
