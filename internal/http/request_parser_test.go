package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		query     url.Values
		wantYear  int
		wantMonth int
	}{
		{"combined", url.Values{"month": {"2023-11"}}, 2023, 11},
		{"separate", url.Values{"year": {"2022"}, "month": {"7"}}, 2022, 7},
		{"empty uses now", url.Values{}, 2024, 3},
		{"month out of range", url.Values{"month": {"13"}}, 2024, 3},
		{"garbage", url.Values{"year": {"abc"}, "month": {"x"}}, 2024, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseMonthParams(tt.query, now)
			if got.Year != tt.wantYear || got.Month != tt.wantMonth {
				t.Fatalf("got %+v, want %d-%d", got, tt.wantYear, tt.wantMonth)
			}
		})
	}
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		wantJSON    bool
		wantConfirm string
		wantErr     bool
	}{
		{"form", "confirm=yes&id=a1", "application/x-www-form-urlencoded", false, "yes", false},
		{"json", `{"confirm":true,"id":"a1"}`, "application/json", true, "true", false},
		{"json without header", `{"confirm":"yes"}`, "", true, "yes", false},
		{"empty", "", "", false, "", false},
		{"broken json", `{"confirm":`, "application/json", false, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			p := NewRequestBodyParser(req)
			err := p.Parse()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if p.IsJSON() != tt.wantJSON {
				t.Fatalf("IsJSON = %v", p.IsJSON())
			}
			if got := p.Get("confirm"); got != tt.wantConfirm {
				t.Fatalf("confirm = %q, want %q", got, tt.wantConfirm)
			}
			if got := p.Values().Get("confirm"); got != tt.wantConfirm {
				t.Fatalf("Values confirm = %q", got)
			}
		})
	}
}

func TestIsConfirmed(t *testing.T) {
	for v, want := range map[string]bool{"yes": true, "TRUE": true, "1": true, "no": false, "": false, "y": false} {
		if got := isConfirmed(v); got != want {
			t.Errorf("isConfirmed(%q) = %v", v, got)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Layer\x00 mash\t\n "); got != "Layer mash" {
		t.Fatalf("got %q", got)
	}
}
