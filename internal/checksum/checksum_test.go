package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != want {
		t.Errorf("Sum = %s, want %s", got, want)
	}
}

func TestETag(t *testing.T) {
	tag := ETag([]byte("abc"))
	if tag != `"ba7816bf8f01cfea414140de5dae2223"` {
		t.Errorf("ETag = %s", tag)
	}
	if ETag([]byte("abd")) == tag {
		t.Error("different content produced the same tag")
	}
}

func TestMatch(t *testing.T) {
	tag := ETag([]byte("abc"))
	cases := []struct {
		header string
		want   bool
	}{
		{"", false},
		{tag, true},
		{"W/" + tag, true},
		{`"other", ` + tag, true},
		{"*", true},
		{`"other"`, false},
	}
	for _, tc := range cases {
		if got := Match(tc.header, tag); got != tc.want {
			t.Errorf("Match(%q) = %v, want %v", tc.header, got, tc.want)
		}
	}
}
