package attribution

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		before    string
		after     string
		suggested string
		want      string
		wantOK    bool
	}{
		{
			name:      "single attributable block",
			before:    "foo\n",
			after:     "foobar\n",
			suggested: "bar\n",
			want:      "bar\n",
			wantOK:    true,
		},
		{
			name:      "pure insertion between lines",
			before:    "a\nc\n",
			after:     "a\nb\nc\n",
			suggested: "b\n",
			want:      "b\n",
			wantOK:    true,
		},
		{
			name:      "suggestion without trailing newline strips reinserted terminator",
			before:    "abc\n",
			after:     "abcX\n",
			suggested: "X",
			want:      "X",
			wantOK:    true,
		},
		{
			name:      "disjoint edit regions rejected",
			before:    "line1\nline2\n",
			after:     "LINE1\nline2modified\n",
			suggested: "anything",
			wantOK:    false,
		},
		{
			name:      "second non-whitespace deletion rejected",
			before:    "keep\nalpha\nmid\nbeta\n",
			after:     "keep\nmid\n",
			suggested: "x",
			wantOK:    false,
		},
		{
			name:      "second insertion block rejected",
			before:    "a\nb\nc\n",
			after:     "a\nX\nb\nY\nc\n",
			suggested: "X\nY\n",
			wantOK:    false,
		},
		{
			name:      "multiline suggestion accepts multi-line insert block",
			before:    "def f():\n",
			after:     "def f():\n    x = 1\n    return x\n",
			suggested: "    x = 1\n    return x\n",
			want:      "    x = 1\n    return x\n",
			wantOK:    true,
		},
		{
			name:      "single-line suggestion rejects second non-whitespace insert line",
			before:    "a\n",
			after:     "a\nfirst\nsecond\n",
			suggested: "first",
			wantOK:    false,
		},
		{
			name:      "single-line suggestion tolerates trailing whitespace line",
			before:    "a\nz\n",
			after:     "a\nfirst\n\nz\n",
			suggested: "first",
			want:      "first\n\n",
			wantOK:    true,
		},
		{
			name:      "user typed through the suggestion prefix",
			before:    "print(\n",
			after:     "print(hello)\n",
			suggested: "hello)",
			want:      "hello)",
			wantOK:    true,
		},
		{
			name:      "insert not starting with deleted text rejected",
			before:    "foo\n",
			after:     "qux\n",
			suggested: "bar",
			wantOK:    false,
		},
		{
			name:      "carriage returns stripped from result",
			before:    "a\n",
			after:     "a\nnew\r\n",
			suggested: "new\n",
			want:      "new\n",
			wantOK:    true,
		},
		{
			name:      "no change at all is attributable and empty",
			before:    "same\n",
			after:     "same\n",
			suggested: "bar",
			want:      "",
			wantOK:    true,
		},
		{
			name:      "whitespace-only deletion tolerated",
			before:    "a\n\nrest\n",
			after:     "a\nrest\nnew\n",
			suggested: "new\n",
			want:      "new\n",
			wantOK:    true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Classify(tc.before, tc.after, tc.suggested)
			if ok != tc.wantOK {
				t.Fatalf("ok=%v want %v (got %q)", ok, tc.wantOK, got)
			}
			if ok && got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestClassifyRejectsInsertionAfterWhitespaceOnlyInsert(t *testing.T) {
	// A whitespace-only insertion closes the door on any further insertion,
	// even for multiline suggestions.
	before := "a\nm\nz\n"
	after := "a\n\nm\nnew\nz\n"
	if _, ok := Classify(before, after, "one\ntwo\n"); ok {
		t.Fatal("expected rejection after whitespace-only insertion")
	}
}
