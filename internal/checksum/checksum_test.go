package checksum

import "testing"

func TestSum_Stable(t *testing.T) {
	a := Sum([]byte("hello"))
	b := Sum([]byte("hello"))
	if a != b {
		t.Fatalf("sum not stable: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("len = %d, want 64", len(a))
	}
}

func TestMatches(t *testing.T) {
	data := []byte("content")
	sum := Sum(data)

	cases := map[string]bool{
		"":                 true,
		sum:                true,
		`"` + sum + `"`:    true,
		`W/"` + sum + `"`:  true,
		"deadbeef":         false,
		`"` + sum + `x"`:   false,
	}
	for etag, want := range cases {
		if got := Matches(data, etag); got != want {
			t.Errorf("Matches(%q) = %v, want %v", etag, got, want)
		}
	}
}
