package catalog

import (
	"errors"
	"testing"
)

func TestFind(t *testing.T) {
	m, err := Find(6)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if m.Title != "Basics: CAT" || len(m.LetterSet) != 3 || m.LetterSet[0] != "C" {
		t.Fatalf("unexpected module: %+v", m)
	}
	if _, err := Find(42); !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("expected ErrModuleNotFound, got %v", err)
	}
}

func TestModulesReturnsCopies(t *testing.T) {
	mods := Modules()
	mods[0].LetterSet[0] = "Z"
	mods[0].Completed = true
	fresh := Modules()
	if fresh[0].LetterSet[0] != "A" || fresh[0].Completed {
		t.Fatalf("catalog mutated through returned slice: %+v", fresh[0])
	}
}

func TestCompletion(t *testing.T) {
	mods := WithCompletion(Modules(), map[int]bool{1: true, 2: true, 3: true})
	if !mods[0].Completed || mods[3].Completed {
		t.Fatalf("unexpected completion flags")
	}
	if got := CompletionPercent(mods); got != 33 {
		t.Fatalf("expected 33%%, got %d", got)
	}
	if got := CompletionPercent(nil); got != 0 {
		t.Fatalf("expected 0 for empty catalog, got %d", got)
	}
}

func TestEveryCatalogLetterHasTip(t *testing.T) {
	for _, m := range Modules() {
		for _, l := range m.LetterSet {
			if _, ok := tips[l]; !ok {
				t.Fatalf("missing tip for %s", l)
			}
		}
	}
}
