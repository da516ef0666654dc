package normalize_test

import (
	"testing"

	"github.com/industrialgate/sitepass/internal/sitepass/normalize"
)

func TestIdentifier_StripsWhitespaceAndUppercases(t *testing.T) {
	got := normalize.Identifier("  sn- 5521 ")
	if got != "SN-5521" {
		t.Errorf("expected SN-5521, got %q", got)
	}
}

func TestIdentifier_FoldsHamzaAlefVariants(t *testing.T) {
	// Madda, Hamza above and Hamza below all fold to the bare Alef.
	variants := []string{"آ", "أ", "إ"}
	for _, v := range variants {
		if got := normalize.Identifier(v); got != "ا" {
			t.Errorf("variant %U: expected bare Alef, got %q", []rune(v)[0], got)
		}
	}
}

func TestIdentifier_DropsTatweelAndVowelMarks(t *testing.T) {
	// "مـُحمد" with tatweel and a damma collapses to the bare letters.
	got := normalize.Identifier("مـُحمد")
	want := "محمد"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestIdentifier_Idempotent(t *testing.T) {
	inputs := []string{"  ab c ", "أا-123", "SN-5521", "أ ا ا-1234"}
	for _, in := range inputs {
		once := normalize.Identifier(in)
		twice := normalize.Identifier(once)
		if once != twice {
			t.Errorf("Identifier not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestPlate_ArabicAndLatinFormsAgree(t *testing.T) {
	// Archive stores "أ ا ا-1234" (first Alef carries a Hamza); an operator
	// types the Latin side of the plate.
	stored := normalize.Plate("أ ا ا-1234")
	typed := normalize.Plate(" AAA-1234")
	if stored != "AAA1234" {
		t.Errorf("expected AAA1234 from Arabic form, got %q", stored)
	}
	if stored != typed {
		t.Errorf("Arabic and Latin plate forms diverge: %q vs %q", stored, typed)
	}
}

func TestPlate_HamzaVariantsNormalizeEqually(t *testing.T) {
	a := normalize.Plate("أبج-9876") // Hamza'd Alef
	b := normalize.Plate("ابج-9876") // bare Alef
	if a != b {
		t.Errorf("Hamza variant plates diverge: %q vs %q", a, b)
	}
}

func TestPlate_DropsSeparators(t *testing.T) {
	if got := normalize.Plate("XBD/1234"); got != "XBD1234" {
		t.Errorf("expected XBD1234, got %q", got)
	}
}

func TestPlate_Idempotent(t *testing.T) {
	in := " أ ب ح-1234 "
	once := normalize.Plate(in)
	if twice := normalize.Plate(once); once != twice {
		t.Errorf("Plate not idempotent: %q != %q", once, twice)
	}
}
