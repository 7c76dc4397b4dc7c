package reader

import "testing"

// readAll drains every top-level form, failing the test on any error.
func readAll(t *testing.T, src string) []*Form {
	t.Helper()
	r := New(src)
	var forms []*Form
	for {
		f, err := r.ReadOne()
		if err != nil {
			t.Fatalf("ReadOne(%q): %v", src, err)
		}
		if f == nil {
			return forms
		}
		forms = append(forms, f)
	}
}

// TestDiscardBeforeClosingDelimiter checks that #_ as the last element
// of a collection reads cleanly instead of running past the closer.
func TestDiscardBeforeClosingDelimiter(t *testing.T) {
	forms := readAll(t, "[1 2 #_3]")
	if len(forms) != 1 || forms[0].Kind != KVector {
		t.Fatalf("expected a single vector form, got %#v", forms)
	}
	items := forms[0].Items
	if len(items) != 3 || items[2].Kind != KDiscard {
		t.Fatalf("expected [int int discard], got %#v", items)
	}
}

// TestDiscardBeforeClosingParen mirrors the list case from the same bug.
func TestDiscardBeforeClosingParen(t *testing.T) {
	forms := readAll(t, "(a b #_c)")
	if len(forms) != 1 || forms[0].Kind != KList {
		t.Fatalf("expected a single list form, got %#v", forms)
	}
	if len(forms[0].Items) != 3 || forms[0].Items[2].Kind != KDiscard {
		t.Fatalf("expected [sym sym discard], got %#v", forms[0].Items)
	}
}

// TestTrailingDiscardAtEOF checks a top-level #_x with nothing after it.
func TestTrailingDiscardAtEOF(t *testing.T) {
	forms := readAll(t, "#_x")
	if len(forms) != 1 || forms[0].Kind != KDiscard {
		t.Fatalf("expected a single discard form, got %#v", forms)
	}
}

// TestDiscardFollowedByAnotherForm checks the reader resumes correctly
// after a discard and still reads the next real top-level form.
func TestDiscardFollowedByAnotherForm(t *testing.T) {
	forms := readAll(t, "#_1 2")
	if len(forms) != 2 {
		t.Fatalf("expected 2 top-level forms, got %#v", forms)
	}
	if forms[0].Kind != KDiscard {
		t.Errorf("forms[0].Kind = %v, want KDiscard", forms[0].Kind)
	}
	if forms[1].Kind != KInt || forms[1].Int != 2 {
		t.Errorf("forms[1] = %#v, want int 2", forms[1])
	}
}
