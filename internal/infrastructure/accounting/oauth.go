package accounting

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Signer builds OAuth 1.0a token-based authentication headers using HMAC-SHA256
type Signer struct {
	realm          string
	consumerKey    string
	consumerSecret string
	tokenID        string
	tokenSecret    string

	now   func() time.Time
	nonce func() string
}

// NewSigner creates a Signer from config credentials
func NewSigner(cfg *Config) *Signer {
	return &Signer{
		realm:          cfg.realm(),
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		tokenID:        cfg.TokenID,
		tokenSecret:    cfg.TokenSecret,
		now:            time.Now,
		nonce:          func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

// Authorization returns the Authorization header value for method and rawURL.
// Query parameters of rawURL take part in the signature.
func (s *Signer) Authorization(method, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("accounting: parse url for signing: %w", err)
	}

	oauth := map[string]string{
		"oauth_consumer_key":     s.consumerKey,
		"oauth_nonce":            s.nonce(),
		"oauth_signature_method": "HMAC-SHA256",
		"oauth_timestamp":        strconv.FormatInt(s.now().Unix(), 10),
		"oauth_token":            s.tokenID,
		"oauth_version":          "1.0",
	}

	signature := s.sign(method, u, oauth)

	keys := sortedKeys(oauth)
	var b strings.Builder
	fmt.Fprintf(&b, `OAuth realm="%s"`, s.realm)
	for _, k := range keys {
		fmt.Fprintf(&b, `,%s="%s"`, k, percentEncode(oauth[k]))
	}
	fmt.Fprintf(&b, `,oauth_signature="%s"`, percentEncode(signature))
	return b.String(), nil
}

// sign computes base64(HMAC-SHA256(key, baseString))
func (s *Signer) sign(method string, u *url.URL, oauth map[string]string) string {
	pairs := make([]string, 0, len(oauth)+len(u.Query()))
	for k, v := range oauth {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(v))
	}
	for k, values := range u.Query() {
		for _, v := range values {
			pairs = append(pairs, percentEncode(k)+"="+percentEncode(v))
		}
	}
	sort.Strings(pairs)

	base := strings.ToUpper(method) + "&" +
		percentEncode(baseURL(u)) + "&" +
		percentEncode(strings.Join(pairs, "&"))

	key := percentEncode(s.consumerSecret) + "&" + percentEncode(s.tokenSecret)
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// baseURL is scheme://host/path with the host lower-cased and no query
func baseURL(u *url.URL) string {
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + u.EscapedPath()
}

// percentEncode escapes per RFC 3986: only unreserved characters are left as-is
func percentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
