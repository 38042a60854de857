package strings

import (
	"reflect"
	"testing"

	kit "echokit/internal/platform/testkit"
)

func TestSplitList(t *testing.T) {
	got := SplitList(" 14201, 14202 ,,")
	if !reflect.DeepEqual(got, []string{"14201", "14202"}) {
		t.Fatalf("SplitList = %v", got)
	}
	if SplitList("  ") != nil {
		t.Fatalf("blank input should yield nil")
	}
}

func TestMustHelpers(t *testing.T) {
	if MustString("retrieval", "name") != "retrieval" {
		t.Fatalf("MustString")
	}
	kit.MustPanic(t, func() { MustString("  ", "name") })

	if got := MustPrefix(" programs/ "); got != "/programs" {
		t.Fatalf("MustPrefix = %q", got)
	}
	kit.MustPanic(t, func() { MustPrefix("/") })
}

func TestIfEmpty(t *testing.T) {
	def := []string{"GET"}
	if got := IfEmpty(nil, def); len(got) != 1 || got[0] != "GET" {
		t.Fatalf("IfEmpty(nil) = %v", got)
	}
	if got := IfEmpty([]string{"POST"}, def); got[0] != "POST" {
		t.Fatalf("IfEmpty kept = %v", got)
	}
}
