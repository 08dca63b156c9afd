package auth

import (
	"errors"
	"net/url"
)

// ErrNoToken is returned when an OAuth redirect URL carries no access token
var ErrNoToken = errors.New("no access token in OAuth URL")

// ExtractTokenFromOAuthURL pulls the access token out of a VK implicit-flow
// redirect URL. The token lives in the URL fragment:
//
//	https://oauth.vk.com/blank.html#access_token=vk1.a...&expires_in=86400&user_id=1
func ExtractTokenFromOAuthURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", ErrNoToken
	}
	if parsed.Fragment == "" {
		return "", ErrNoToken
	}

	params, err := url.ParseQuery(parsed.Fragment)
	if err != nil {
		return "", ErrNoToken
	}

	token := params.Get("access_token")
	if token == "" {
		return "", ErrNoToken
	}

	return token, nil
}
