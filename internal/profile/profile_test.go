package profile

import "testing"

func TestLookup(t *testing.T) {
	p, ok := Lookup(BalancedFourStem)
	if !ok {
		t.Fatal("expected balanced-four-stem to resolve")
	}
	if p.WeightFilename != "ggml-model-htdemucs-4s-f16.bin" {
		t.Fatalf("filename = %q", p.WeightFilename)
	}
	if len(p.Stems) != 4 {
		t.Fatalf("stems = %v, want 4 entries", p.Stems)
	}
}

func TestLookupKeyUnknown(t *testing.T) {
	if _, ok := LookupKey("does-not-exist"); ok {
		t.Fatal("expected unknown key to fail lookup")
	}
}

func TestHasStem(t *testing.T) {
	p, _ := Lookup(BalancedSixStem)
	if !p.HasStem("piano") {
		t.Fatal("expected six-stem profile to include piano")
	}
	if p.HasStem("kazoo") {
		t.Fatal("did not expect kazoo stem")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	all := All()
	all[0].Label = "mutated"

	again := All()
	if again[0].Label == "mutated" {
		t.Fatal("All() must return independent copies")
	}
}
