package tracking

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"net/url"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	// CodeLength is the length of every tracking code.
	CodeLength = 8
	// CodeAlphabet is the 62-character alphabet codes are drawn from.
	CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// maxCodeDraws is the first draw plus five re-rolls.
	maxCodeDraws = 6

	qrSize = "300x300"

	visitorHashLength = 32
)

// GenerateCode returns a uniformly random tracking code.
func GenerateCode() (string, error) {
	alphabetLen := big.NewInt(int64(len(CodeAlphabet)))
	b := make([]byte, CodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		b[i] = CodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// IsValidCode reports whether code has the shape of a tracking code.
func IsValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(CodeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}

// ShortURL is the shareable URL that resolves code.
func ShortURL(baseURL, code string) string {
	return strings.TrimSuffix(baseURL, "/") + "/functions/tracking-links?code=" + url.QueryEscape(code)
}

// QRCodeURL is an image URL rendering shortURL as a QR code.
func QRCodeURL(serviceURL, shortURL string) string {
	return serviceURL + "?size=" + qrSize + "&data=" + url.QueryEscape(shortURL)
}

// VisitorHasher derives a stable, keyed, non-reversible visitor id from an IP.
type VisitorHasher struct {
	key []byte
}

// NewVisitorHasher creates a hasher keyed by secret.
// Secrets longer than a BLAKE2b key are compressed first.
func NewVisitorHasher(secret string) *VisitorHasher {
	key := []byte(secret)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	return &VisitorHasher{key: key}
}

// Hash returns a 32-char hex digest of ip. Empty input yields "".
func (h *VisitorHasher) Hash(ip string) string {
	if ip == "" {
		return ""
	}
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// only reachable with an oversize key, which NewVisitorHasher prevents
		return ""
	}
	mac.Write([]byte(ip))
	return hex.EncodeToString(mac.Sum(nil))[:visitorHashLength]
}
