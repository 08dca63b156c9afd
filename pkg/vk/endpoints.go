package vk

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
)

const (
	// BaseURL is the base URL of the VK API
	BaseURL = "https://api.vk.com/method"

	// DefaultAPIVersion is the API version sent with every request
	DefaultAPIVersion = "5.199"

	// MethodHistoryAttachments pages through a conversation's attachments
	MethodHistoryAttachments = "messages.getHistoryAttachments"

	// MethodUsersGet is used as a cheap token validity probe
	MethodUsersGet = "users.get"

	// MediaTypePhoto is the only attachment kind this tool retrieves
	MediaTypePhoto = "photo"

	// MaxPageSize is the largest page the history attachments method accepts
	MaxPageSize = 200
)

// MethodURL constructs the URL for a VK API method call
func MethodURL(baseURL, method string, params url.Values) string {
	return fmt.Sprintf("%s/%s?%s", baseURL, method, params.Encode())
}

var convoLinkPattern = regexp.MustCompile(`/convo/(-?\d+)`)

// ParseConversationLink extracts the peer ID from a conversation link
// such as https://vk.com/im/convo/12345
func ParseConversationLink(link string) (int64, error) {
	m := convoLinkPattern.FindStringSubmatch(link)
	if m == nil {
		return 0, &Error{
			Type:    ErrorTypeParsing,
			Message: "invalid conversation link",
		}
	}

	peerID, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, &Error{
			Type:    ErrorTypeParsing,
			Message: "invalid conversation link",
		}
	}

	return peerID, nil
}

// ValidatePeerID rejects peer IDs this tool cannot dump. Negative IDs
// identify bot and community dialogs.
func ValidatePeerID(peerID int64) error {
	if peerID < 0 {
		return &Error{
			Type:    ErrorTypeUnsupported,
			Message: "dialogs with bots or communities are not supported",
		}
	}
	return nil
}
