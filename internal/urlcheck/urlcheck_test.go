package urlcheck

import (
	"reflect"
	"testing"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want Validity
	}{
		{"https://example.com", Valid},
		{"https://example.com/", Valid},
		{"HTTPS://Example.COM/path", Valid},
		{"https://www.reddit.com/r/golang/comments/abc123/some_title/", Valid},
		{"https://old.reddit.com/r/golang/comments/abc123/?sort=new", Valid},
		{"https://news.bbc.co.uk", Valid},
		{"https://example.com:8443/x", Valid},
		{"https://127.0.0.1:8080", Valid},
		{"https://[::1]/", Valid},
		{"https://xn--bcher-kva.de", Valid},
		{"https://bücher.de", Valid},
		{"https://BÜCHER.de/katalog", Valid},
		{"https://例え.jp/path", Valid},
		{"https://пример.рф", Valid},
		{"https://bücher.notatld", Invalid},
		{"https://bü_cher.de", Invalid},
		{"http://example.com", Invalid},
		{"ftp://example.com", Invalid},
		{"not a url", Invalid},
		{"", Invalid},
		{"example.com", Invalid},
		{"https://", Invalid},
		{"https:example.com", Invalid},
		{"https://localhost", Invalid},
		{"https://example.notatld", Invalid},
		{"https://-bad.com", Invalid},
		{"https://bad-.com", Invalid},
		{"https://under_score.com", Invalid},
		{"https://example.com:0", Invalid},
		{"https://example.com:99999", Invalid},
		{"https://example.com//double", Invalid},
		{"https://exa mple.com", Invalid},
		{"https://999.1.1.1", Invalid},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tt.raw); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestPartition(t *testing.T) {
	t.Parallel()

	input := []string{
		"https://b.com",
		"not a url",
		"https://a.com/",
		"ftp://example.com",
		"http://c.com",
	}

	valid, invalid := Partition(input)

	wantValid := []string{"https://b.com", "https://a.com/"}
	wantInvalid := []string{"not a url", "ftp://example.com", "http://c.com"}
	if !reflect.DeepEqual(valid, wantValid) {
		t.Errorf("Expected valid %q, got %q", wantValid, valid)
	}
	if !reflect.DeepEqual(invalid, wantInvalid) {
		t.Errorf("Expected invalid %q, got %q", wantInvalid, invalid)
	}

	// union equals input, sets are disjoint
	seen := make(map[string]int)
	for _, u := range valid {
		seen[u]++
	}
	for _, u := range invalid {
		seen[u]++
	}
	if len(seen) != len(input) {
		t.Errorf("Expected %d distinct entries across both lists, got %d", len(input), len(seen))
	}
	for u, n := range seen {
		if n != 1 {
			t.Errorf("Entry %q appears in %d lists", u, n)
		}
	}
}

func TestPartition_Empty(t *testing.T) {
	t.Parallel()

	valid, invalid := Partition(nil)
	if len(valid) != 0 || len(invalid) != 0 {
		t.Errorf("Expected empty partitions, got %q and %q", valid, invalid)
	}
}
