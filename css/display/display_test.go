package display

import (
	"testing"

	"github.com/benoitkugler/pagestyle/utils/testutils"
)

func TestIsBlock(t *testing.T) {
	for _, test := range []struct {
		display, position, float string
		isRoot                   bool
		exp                      bool
	}{
		{"block", "", "", false, true},
		{"list-item", "", "", false, true},
		{"table", "", "", false, true},
		{"inline", "", "", false, false},
		{"inline-block", "", "", false, false},
		{"none", "", "", false, false},
		{"", "", "", false, false},
		// blockification
		{"inline", "", "left", false, true},
		{"inline", "absolute", "", false, true},
		{"inline", "fixed", "", false, true},
		{"inline", "", "", true, true},
		{"none", "", "", true, false},
		// internal table parts are never blockified
		{"table-cell", "", "left", false, false},
		{"table-row", "", "", false, true},
	} {
		got := IsBlock(test.display, test.position, test.float, test.isRoot)
		if got != test.exp {
			t.Fatalf("IsBlock(%q, %q, %q, %v): expected %v", test.display, test.position, test.float, test.isRoot, test.exp)
		}
	}
}

func TestIsInlineLevel(t *testing.T) {
	testutils.AssertEqual(t, IsInlineLevel("inline"), true)
	testutils.AssertEqual(t, IsInlineLevel(""), true)
	testutils.AssertEqual(t, IsInlineLevel("inline-flex"), true)
	testutils.AssertEqual(t, IsInlineLevel("block"), false)
}

func TestFormattingContexts(t *testing.T) {
	testutils.AssertEqual(t, EstablishesBFC("flow-root", "", "", ""), true)
	testutils.AssertEqual(t, EstablishesBFC("block", "", "left", ""), true)
	testutils.AssertEqual(t, EstablishesBFC("block", "", "", "hidden"), true)
	testutils.AssertEqual(t, EstablishesBFC("block", "", "", "visible"), false)
	testutils.AssertEqual(t, EstablishesBFC("block", "", "", ""), false)

	testutils.AssertEqual(t, EstablishesCB("relative"), true)
	testutils.AssertEqual(t, EstablishesCB("static"), false)
	testutils.AssertEqual(t, EstablishesCB(""), false)
}
