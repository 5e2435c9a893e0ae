package handlers

import (
	"testing"

	"golang.org/x/text/language"
)

func TestNewLocalizerFallback(t *testing.T) {
	tests := []struct {
		locale string
		want   language.Tag
	}{
		{locale: "fr", want: language.French},
		{locale: "fr-FR", want: language.French},
		{locale: "en", want: language.English},
		{locale: "", want: language.English},
		{locale: "de", want: language.English},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			if got := NewLocalizer(tt.locale).fallback; got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
