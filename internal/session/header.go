package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dunglas/httpsfv"

	"shopsync/internal/model"
)

// HeaderName carries the session on REST requests.
const HeaderName = "Shopper-Session"

// ParseHeader extracts the session from a Shopper-Session header.
// Format: user="42", token="abc123" (RFC 8941 Dictionary).
//
// Examples:
//   - user="u1", token="t"  → {u1, t}
//   - user=42, token="t"    → {42, t} (integer user ids accepted)
//   - token="t";ttl=60, user="u1" → params ignored
//
// Returns error if header is empty, malformed, or missing either key.
func ParseHeader(header string) (Session, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Session{}, errors.New("empty Shopper-Session header")
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return Session{}, fmt.Errorf("invalid Shopper-Session header: %w", err)
	}

	user, err := stringMember(dict, "user")
	if err != nil {
		return Session{}, err
	}
	token, err := stringMember(dict, "token")
	if err != nil {
		return Session{}, err
	}

	return Session{UserID: model.ID(user), Token: token}, nil
}

// FormatHeader renders s as a Shopper-Session header value.
func FormatHeader(s Session) (string, error) {
	dict := httpsfv.NewDictionary()

	if s.UserID.IsNumeric() {
		n, _ := strconv.ParseInt(string(s.UserID), 10, 64)
		dict.Add("user", httpsfv.NewItem(n))
	} else {
		dict.Add("user", httpsfv.NewItem(string(s.UserID)))
	}
	dict.Add("token", httpsfv.NewItem(s.Token))

	return httpsfv.Marshal(dict)
}

func stringMember(dict *httpsfv.Dictionary, key string) (string, error) {
	member, ok := dict.Get(key)
	if !ok {
		return "", fmt.Errorf("%s key not found in Shopper-Session header", key)
	}

	item, ok := member.(httpsfv.Item)
	if !ok {
		return "", fmt.Errorf("%s value must be an item", key)
	}

	switch v := item.Value.(type) {
	case string:
		return v, nil
	case httpsfv.Token:
		return string(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return "", fmt.Errorf("%s value must be a string or integer", key)
	}
}
