package upstream

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// signer produces OAuth 1.0a one-legged HMAC-SHA1 query parameters, the
// scheme WooCommerce accepts over plain query strings.
type signer struct {
	consumerKey    string
	consumerSecret string
	now            func() time.Time
	nonce          func() string
}

func newSigner(key, secret string) *signer {
	return &signer{
		consumerKey:    key,
		consumerSecret: secret,
		now:            time.Now,
		nonce:          randomNonce,
	}
}

func randomNonce() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(b)
}

// sign returns query plus the oauth_* parameters for method and rawURL.
// Existing query parameters of rawURL take part in the signature.
func (s *signer) sign(method, rawURL string, query url.Values) (url.Values, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	for k, vs := range u.Query() {
		params[k] = append(params[k], vs...)
	}
	for k, vs := range query {
		params[k] = append(params[k], vs...)
	}
	params.Set("oauth_consumer_key", s.consumerKey)
	params.Set("oauth_nonce", s.nonce())
	params.Set("oauth_signature_method", "HMAC-SHA1")
	params.Set("oauth_timestamp", strconv.FormatInt(s.now().Unix(), 10))
	params.Set("oauth_version", "1.0")

	base := strings.ToUpper(method) + "&" +
		percentEncode(baseURL(u)) + "&" +
		percentEncode(normalizedParams(params))

	mac := hmac.New(sha1.New, []byte(percentEncode(s.consumerSecret)+"&"))
	mac.Write([]byte(base))
	params.Set("oauth_signature", base64.StdEncoding.EncodeToString(mac.Sum(nil)))

	for k := range u.Query() {
		params.Del(k)
	}
	return params, nil
}

func baseURL(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	if (scheme == "http" && strings.HasSuffix(host, ":80")) || (scheme == "https" && strings.HasSuffix(host, ":443")) {
		host = host[:strings.LastIndex(host, ":")]
	}
	return scheme + "://" + host + u.EscapedPath()
}

// normalizedParams encodes and sorts by key then value (RFC 5849 3.4.1.3.2)
func normalizedParams(params url.Values) string {
	pairs := make([]string, 0, len(params))
	for k, vs := range params {
		for _, v := range vs {
			pairs = append(pairs, percentEncode(k)+"="+percentEncode(v))
		}
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}

// percentEncode is RFC 3986 encoding: unreserved characters stay, space is %20
func percentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
