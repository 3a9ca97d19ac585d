package glyph

import "testing"

func TestCharset_Sizes(t *testing.T) {
	want := map[string]int{
		"minimal": 5,
		"simple":  7,
		"blocks":  9,
		"dense":   12,
	}
	for _, set := range Sets {
		if set.Len() != want[set.Name] {
			t.Errorf("%s has %d glyphs, want %d", set.Name, set.Len(), want[set.Name])
		}
	}
}

func TestCharset_IndexMonotone(t *testing.T) {
	// For any two luminances l1 < l2 the mapped index for l1 must be
	// <= the index for l2, for every charset.
	for _, set := range Sets {
		prev := set.Index(0)
		if prev != 0 {
			t.Errorf("%s: Index(0) = %d, want 0", set.Name, prev)
		}
		for l := 1; l <= 255; l++ {
			idx := set.Index(uint8(l))
			if idx < prev {
				t.Fatalf("%s: Index(%d) = %d < Index(%d) = %d", set.Name, l, idx, l-1, prev)
			}
			if idx >= set.Len() {
				t.Fatalf("%s: Index(%d) = %d out of bounds", set.Name, l, idx)
			}
			prev = idx
		}
		if prev != set.Len()-1 {
			t.Errorf("%s: Index(255) = %d, want %d", set.Name, prev, set.Len()-1)
		}
	}
}

func TestCharset_EmptyRamp(t *testing.T) {
	var empty Charset
	if got := empty.Index(128); got != 0 {
		t.Fatalf("Index on empty ramp = %d, want 0", got)
	}
	if got := empty.Glyph(128); got != ' ' {
		t.Fatalf("Glyph on empty ramp = %q, want space", got)
	}
}

func TestCharset_Rotation(t *testing.T) {
	i := 0
	for range Sets {
		i = NextSet(i)
	}
	if i != 0 {
		t.Fatalf("NextSet did not cycle back to 0, got %d", i)
	}

	if got := PreviousSet(0); got != len(Sets)-1 {
		t.Fatalf("PreviousSet(0) = %d, want %d", got, len(Sets)-1)
	}
	if got := NextSet(len(Sets) - 1); got != 0 {
		t.Fatalf("NextSet(last) = %d, want 0", got)
	}
}
