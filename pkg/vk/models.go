package vk

import "encoding/json"

// envelope is the top-level shape of every VK API response: exactly one of
// "response" or "error" is set.
type envelope struct {
	Response json.RawMessage `json:"response"`
	Error    *apiError       `json:"error"`
}

// apiError is the VK error object carried inside the envelope
type apiError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

// HistoryAttachments is the payload of messages.getHistoryAttachments
type HistoryAttachments struct {
	Items    []Item `json:"items"`
	NextFrom string `json:"next_from"`
}

// Item is one attachment entry of a history page
type Item struct {
	MessageID  int        `json:"message_id"`
	Attachment Attachment `json:"attachment"`
}

// Attachment wraps a single attachment; only photos are interpreted
type Attachment struct {
	Type  string `json:"type"`
	Photo *Photo `json:"photo"`
}

// Photo is a photo attachment with its size variants
type Photo struct {
	ID      int64       `json:"id"`
	OwnerID int64       `json:"owner_id"`
	Sizes   []PhotoSize `json:"sizes"`
}

// PhotoSize is one resolution variant of a photo
type PhotoSize struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// BestSize returns the size variant with the maximum width, or false when the
// photo has no variants. A missing width counts as zero, so such a variant is
// picked only when nothing wider exists.
func (p *Photo) BestSize() (PhotoSize, bool) {
	if p == nil || len(p.Sizes) == 0 {
		return PhotoSize{}, false
	}
	best := p.Sizes[0]
	for _, s := range p.Sizes[1:] {
		if s.Width > best.Width {
			best = s
		}
	}
	return best, true
}
