package fieldmap

import (
	"encoding/json"
	"testing"
)

func record(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("bad test record: %v", err)
	}
	return m
}

func TestResolve_CandidateOrder(t *testing.T) {
	spec := Spec{"a.b", "c"}

	v, ok := Resolve(record(t, `{"c": 5}`), spec)
	if !ok {
		t.Fatal("expected a match on the second candidate")
	}
	if n, _ := v.(float64); n != 5 {
		t.Errorf("expected 5, got %v", v)
	}

	// First candidate wins when both are present.
	v, _ = Resolve(record(t, `{"a": {"b": 1}, "c": 5}`), spec)
	if n, _ := v.(float64); n != 1 {
		t.Errorf("expected first candidate value 1, got %v", v)
	}
}

func TestResolve_EmptyRecordIsAbsent(t *testing.T) {
	if v, ok := Resolve(record(t, `{}`), Spec{"a.b", "c"}); ok {
		t.Errorf("expected absent, got %v", v)
	}
}

func TestResolve_NullIsAbsent(t *testing.T) {
	raw := record(t, `{"a": {"b": null}, "c": null}`)
	if v, ok := Resolve(raw, Spec{"a.b", "c"}); ok {
		t.Errorf("null values must resolve as absent, got %v", v)
	}
}

func TestResolve_ListIndex(t *testing.T) {
	raw := record(t, `{"experiences": [{"title": "CTO"}, {"title": "Engineer"}]}`)

	v, ok := Resolve(raw, Spec{"experiences[0].title"})
	if !ok || v != "CTO" {
		t.Errorf("expected CTO, got %v (ok=%v)", v, ok)
	}

	if _, ok := Resolve(raw, Spec{"experiences[5].title"}); ok {
		t.Error("out-of-range index must be absent")
	}
}

func TestResolve_FirstNonNullOfArray(t *testing.T) {
	raw := record(t, `{"positions": [{"companyName": null}, {"companyName": "Acme"}]}`)

	v, ok := Resolve(raw, Spec{"positions[].companyName"})
	if !ok || v != "Acme" {
		t.Errorf("expected Acme from array scan, got %v (ok=%v)", v, ok)
	}
}

func TestResolve_ComplexPassthrough(t *testing.T) {
	raw := record(t, `{"experiences": [{"company": "Acme", "roles": ["a", "b"]}]}`)

	v, ok := Resolve(raw, ProfileFields["experiences"])
	if !ok {
		t.Fatal("expected experiences to resolve")
	}
	list, ok := v.([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("expected opaque list passthrough, got %T", v)
	}
	sub, _ := list[0].(map[string]any)
	if sub["company"] != "Acme" {
		t.Error("sub-record structure must be preserved verbatim")
	}
}

func TestResolveString(t *testing.T) {
	raw := record(t, `{"full_name": "Jane Doe", "headline": "  "}`)

	if s, ok := ResolveString(raw, ProfileFields["full_name"]); !ok || s != "Jane Doe" {
		t.Errorf("expected Jane Doe, got %q (ok=%v)", s, ok)
	}
	// Whitespace-only strings count as absent.
	if _, ok := ResolveString(raw, ProfileFields["headline"]); ok {
		t.Error("blank string must be absent")
	}
}

func TestResolveInt(t *testing.T) {
	raw := record(t, `{"followers": 1200, "connections": "500"}`)

	if n, ok := ResolveInt(raw, ProfileFields["followers"]); !ok || n != 1200 {
		t.Errorf("expected 1200, got %d (ok=%v)", n, ok)
	}
	if n, ok := ResolveInt(raw, ProfileFields["connections"]); !ok || n != 500 {
		t.Errorf("expected numeric string coercion to 500, got %d (ok=%v)", n, ok)
	}
}

func TestPostFields_SourceURLVariants(t *testing.T) {
	for _, raw := range []string{
		`{"post_url": "https://x/1"}`,
		`{"postUrl": "https://x/1"}`,
		`{"url": "https://x/1"}`,
	} {
		s, ok := ResolveString(record(t, raw), PostFields["source_url"])
		if !ok || s != "https://x/1" {
			t.Errorf("record %s: expected url, got %q (ok=%v)", raw, s, ok)
		}
	}
}
