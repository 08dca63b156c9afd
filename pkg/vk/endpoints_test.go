package vk

import (
	"errors"
	"net/url"
	"testing"
)

func TestMethodURL(t *testing.T) {
	params := url.Values{}
	params.Set("peer_id", "12345")

	got := MethodURL(BaseURL, MethodHistoryAttachments, params)
	want := "https://api.vk.com/method/messages.getHistoryAttachments?peer_id=12345"
	if got != want {
		t.Errorf("MethodURL = %s, want %s", got, want)
	}
}

func TestParseConversationLink(t *testing.T) {
	tests := []struct {
		name    string
		link    string
		want    int64
		wantErr bool
	}{
		{"full messenger link", "https://vk.com/im/convo/12345", 12345, false},
		{"with trailing path", "https://vk.com/im/convo/12345/somewhere", 12345, false},
		{"negative peer", "https://vk.com/im/convo/-987", -987, false},
		{"bare path", "/convo/7", 7, false},
		{"no convo segment", "https://vk.com/im/peer/12345", 0, true},
		{"non-numeric", "https://vk.com/im/convo/abc", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConversationLink(tt.link)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q", tt.link)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseConversationLink(%q) = %d, want %d", tt.link, got, tt.want)
			}
		})
	}
}

func TestValidatePeerID(t *testing.T) {
	if err := ValidatePeerID(12345); err != nil {
		t.Errorf("Expected positive peer ID accepted: %v", err)
	}
	if err := ValidatePeerID(0); err != nil {
		t.Errorf("Expected zero peer ID accepted: %v", err)
	}

	err := ValidatePeerID(-1)
	if err == nil {
		t.Fatal("Expected negative peer ID rejected")
	}

	var vkErr *Error
	if !errors.As(err, &vkErr) {
		t.Fatalf("Expected typed error, got %T", err)
	}
	if vkErr.Type != ErrorTypeUnsupported {
		t.Errorf("Expected unsupported error type, got %s", vkErr.Type)
	}
	if vkErr.Message != "dialogs with bots or communities are not supported" {
		t.Errorf("Unexpected message: %s", vkErr.Message)
	}
}

func TestBestSize(t *testing.T) {
	t.Run("PicksMaxWidth", func(t *testing.T) {
		photo := &Photo{Sizes: []PhotoSize{
			{Type: "s", URL: "small", Width: 75},
			{Type: "w", URL: "wide", Width: 2560},
			{Type: "x", URL: "mid", Width: 604},
		}}

		best, ok := photo.BestSize()
		if !ok {
			t.Fatal("Expected a best size")
		}
		if best.URL != "wide" {
			t.Errorf("Expected widest variant, got %s", best.URL)
		}
	})

	t.Run("NoSizes", func(t *testing.T) {
		photo := &Photo{}
		if _, ok := photo.BestSize(); ok {
			t.Error("Expected no best size for empty variant list")
		}
	})

	t.Run("NilPhoto", func(t *testing.T) {
		var photo *Photo
		if _, ok := photo.BestSize(); ok {
			t.Error("Expected no best size for nil photo")
		}
	})
}
