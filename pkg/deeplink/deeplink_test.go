package deeplink

import "testing"

func TestBuildParseRoundTrip(t *testing.T) {
	token := "abc-123"
	native := Build("meetup", token)
	if native != "meetup://join/abc-123" {
		t.Fatalf("native link: %s", native)
	}
	got, err := Parse(native)
	if err != nil || got != token {
		t.Fatalf("parse native: got %q err %v", got, err)
	}

	web := BuildWeb("meetup.example.com", token)
	if web != "https://meetup.example.com/join/abc-123" {
		t.Fatalf("web link: %s", web)
	}
	got, err = Parse(web)
	if err != nil || got != token {
		t.Fatalf("parse web: got %q err %v", got, err)
	}
}

func TestParseRejectsNonInviteLinks(t *testing.T) {
	bad := []string{
		"",
		"join/abc",
		"https://meetup.example.com/profile/abc",
		"meetup://join/",
		"https://meetup.example.com/join/abc/extra",
	}
	for _, raw := range bad {
		if tok, err := Parse(raw); err == nil {
			t.Fatalf("expected error for %q, got token %q", raw, tok)
		}
	}
}
