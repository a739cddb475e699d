package dedup

import (
	"reflect"
	"testing"

	"github.com/ppiankov/leadmaster/internal/model"
)

func cand(title, link string) model.Candidate {
	return model.Candidate{Headline: title, URL: link, Origin: model.OriginFeedSearch}
}

func TestExact_TrailingSpaceDuplicate(t *testing.T) {
	in := []model.Candidate{
		{Headline: "Acme Corp breaks ground on new plant", URL: "https://a.example.com/1", Origin: model.OriginPrimarySearch},
		{Headline: "Acme Corp breaks ground on new plant ", URL: "https://b.example.com/2", Origin: model.OriginFeedSearch},
	}

	out := Exact(in)
	if len(out) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(out))
	}
	if out[0].URL != "https://a.example.com/1" {
		t.Errorf("expected first-seen candidate to survive, got %s", out[0].URL)
	}
}

func TestExact_URLCollisionDisqualifies(t *testing.T) {
	in := []model.Candidate{
		cand("Acme buys 40 acres", "https://news.example.com/story?utm_source=x"),
		cand("Acme Corp purchases land for plant", "https://NEWS.example.com/story/"),
		cand("Beta opens warehouse", "https://news.example.com/other"),
	}

	out := Exact(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 survivors, got %d: %+v", len(out), out)
	}
	if out[0].Headline != "Acme buys 40 acres" || out[1].Headline != "Beta opens warehouse" {
		t.Errorf("unexpected survivors or order: %+v", out)
	}
}

func TestExact_EmptyURLsDoNotCollide(t *testing.T) {
	in := []model.Candidate{
		cand("Acme buys land", ""),
		cand("Beta buys land", ""),
		cand("", "https://x.example.com"),
	}

	out := Exact(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(out))
	}
}

func TestFuzzy_DropsSyndicatedRewrite(t *testing.T) {
	in := []model.Candidate{
		cand("Acme Corp breaks ground on new Ohio plant", "https://a.example.com/1"),
		cand("Acme Corp breaks ground on new Ohio plants", "https://b.example.com/2"),
		cand("Zenith Foods plans cold storage facility", "https://c.example.com/3"),
	}

	exact := Exact(in)
	if len(exact) != 3 {
		t.Fatalf("exact mode should keep all three, got %d", len(exact))
	}

	out := Fuzzy(in, 0.8)
	if len(out) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(out))
	}
	if out[1].Headline != "Zenith Foods plans cold storage facility" {
		t.Errorf("unexpected order: %+v", out)
	}
}

func TestDedup_Idempotent(t *testing.T) {
	in := []model.Candidate{
		cand("Acme Corp breaks ground on new plant", "https://a.example.com/1"),
		cand("acme corp breaks ground on new plant", "https://a.example.com/9"),
		cand("Beta Logistics buys land near Dallas", "https://a.example.com/1"),
		cand("Gamma Foods to build cold storage site", "https://g.example.com/1"),
		cand("Gamma Foods to build cold storage sites", "https://g.example.com/2"),
		cand("Delta Steel expands mill", "https://d.example.com/1#frag"),
		cand("Delta Steel expands mill again", "https://d.example.com/1"),
	}

	for name, fn := range map[string]func([]model.Candidate) []model.Candidate{
		"exact": Exact,
		"fuzzy": func(c []model.Candidate) []model.Candidate { return Fuzzy(c, 0.8) },
	} {
		once := fn(in)
		twice := fn(once)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("%s: dedup not idempotent\nonce:  %+v\ntwice: %+v", name, once, twice)
		}
	}
}

func TestDedup_Uniqueness(t *testing.T) {
	in := []model.Candidate{
		cand("A", "u1"), cand("a", "u2"), cand("B", "U1"), cand("C", "u3"), cand("C ", "u4"),
	}

	out := Exact(in)
	seen := make(map[[2]string]bool)
	for _, c := range out {
		title, link := Key(c)
		k := [2]string{title, link}
		if seen[k] {
			t.Errorf("duplicate key survived: %v", k)
		}
		seen[k] = true
	}
	if len(out) != 2 {
		t.Errorf("expected A and C to survive, got %+v", out)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"same", "same", 1, 1},
		{"", "", 1, 1},
		{"abc", "xyz", 0, 0},
		{"acme opens plant", "acme opens plants", 0.9, 1},
	}

	for _, tt := range tests {
		got := Similarity(tt.a, tt.b)
		if got < tt.min || got > tt.max {
			t.Errorf("Similarity(%q, %q) = %f, want [%f, %f]", tt.a, tt.b, got, tt.min, tt.max)
		}
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := map[string]string{
		"":                                       "",
		"HTTPS://Example.COM/Path/":              "https://example.com/path",
		"https://example.com/a?utm_source=x&b=1": "https://example.com/a?b=1",
		"https://example.com/a#section":          "https://example.com/a",
		"not a url":                              "not a url",
	}

	for in, want := range tests {
		if got := NormalizeURL(in); got != want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}
