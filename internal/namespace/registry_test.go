package namespace

import "testing"

func replaceRegistry(t *testing.T) func() {
	t.Helper()
	prev := globalRegistry
	globalRegistry = newRegistry()
	return func() { globalRegistry = prev }
}

func TestRegisterResolveAndList(t *testing.T) {
	cleanup := replaceRegistry(t)
	defer cleanup()

	if err := Register(Metadata{Key: "menu"}); err != nil {
		t.Fatalf("register menu failed: %v", err)
	}
	if err := Register(Metadata{Key: "/Blog/Cards/"}); err != nil {
		t.Fatalf("register blog/cards failed: %v", err)
	}

	if _, ok := Resolve("MENU"); !ok {
		t.Fatalf("resolve should be case-insensitive")
	}
	if _, ok := Resolve("blog/cards"); !ok {
		t.Fatalf("resolve should flatten separators like the store does")
	}

	list := List()
	if len(list) != 2 {
		t.Fatalf("list length mismatch: %d", len(list))
	}
	if list[0].Key != "blog-cards" || list[1].Key != "menu" {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	cleanup := replaceRegistry(t)
	defer cleanup()

	if err := Register(Metadata{Key: "part"}); err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}
	if err := Register(Metadata{Key: "Part"}); err == nil {
		t.Fatalf("duplicate registration should fail")
	}
	if err := Register(Metadata{Key: " / "}); err == nil {
		t.Fatalf("empty key should fail")
	}
}

func TestBuiltinsAndDescribe(t *testing.T) {
	keys := Keys()
	if len(keys) < 2 || keys[0] != "menu" || keys[1] != "part" {
		t.Fatalf("内置命名空间缺失: %v", keys)
	}
	if got := Describe("part"); got != "Number of part typed cache entries" {
		t.Fatalf("unexpected description: %s", got)
	}
	if got := Describe("widgets"); got != "Number of widgets typed cache entries" {
		t.Fatalf("unexpected fallback description: %s", got)
	}
}

func TestMessages(t *testing.T) {
	cases := map[string]string{
		ClearMessage("", 0):     "No typed entries found, vp-cache is already empty.",
		ClearMessage("part", 0): "No part entries found, vp-cache is already empty.",
		ClearMessage("part", 3): "3 part cache entries cleared.",
		ClearMessage("", 1200):  "1,200 typed cache entries cleared.",
		FlushMessage(0):         "No entries found, vp-cache is already empty.",
		FlushMessage(7):         "7 cache entries cleared.",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}
