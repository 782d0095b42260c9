package crawler

import "testing"

func TestPatternFilter(t *testing.T) {
	t.Parallel()

	t.Run("same host", func(t *testing.T) {
		t.Parallel()

		f := NewPatternFilter(WithSameHost("http://example.com/"))
		if !f.Allow("http://example.com/about") {
			t.Error("expected same host to be allowed")
		}
		if !f.Allow("http://EXAMPLE.com/about") {
			t.Error("expected host comparison to ignore case")
		}
		if f.Allow("http://other.com/about") {
			t.Error("expected other host to be rejected")
		}
	})

	t.Run("ignore patterns", func(t *testing.T) {
		t.Parallel()

		f := NewPatternFilter(WithIgnorePatterns([]string{"/admin/*", "*.pdf"}))
		tests := []struct {
			url  string
			want bool
		}{
			{"http://example.com/admin", false},
			{"http://example.com/admin/users", false},
			{"http://example.com/files/report.pdf", false},
			{"http://example.com/administrator", true},
			{"http://example.com/", true},
		}
		for _, tt := range tests {
			if got := f.Allow(tt.url); got != tt.want {
				t.Errorf("Allow(%q) = %v, want %v", tt.url, got, tt.want)
			}
		}
	})

	t.Run("follow patterns", func(t *testing.T) {
		t.Parallel()

		f := NewPatternFilter(
			WithFollowPatterns([]string{"/docs/*"}),
			WithIgnorePatterns([]string{"/docs/private/*"}),
		)
		if !f.Allow("http://example.com/docs/intro") {
			t.Error("expected followed path to be allowed")
		}
		if f.Allow("http://example.com/blog/post") {
			t.Error("expected unfollowed path to be rejected")
		}
		if f.Allow("http://example.com/docs/private/key") {
			t.Error("expected ignore to win over follow")
		}
	})

	t.Run("bare file pattern", func(t *testing.T) {
		t.Parallel()

		f := NewPatternFilter(WithIgnorePatterns([]string{"report-??.html"}))
		if f.Allow("http://example.com/a/b/report-01.html") {
			t.Error("expected last segment match to be ignored")
		}
		if !f.Allow("http://example.com/a/b/report-001.html") {
			t.Error("expected non-matching file to be allowed")
		}
	})

	t.Run("FilterFunc", func(t *testing.T) {
		t.Parallel()

		var f Filter = FilterFunc(func(url string) bool { return url == "keep" })
		if !f.Allow("keep") || f.Allow("drop") {
			t.Error("FilterFunc did not delegate")
		}
	})
}
