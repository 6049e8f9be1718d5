package tokens

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const BearerPrefix = "Bearer "

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// reserved claims are always set by the codec and win over extra claims.
var reserved = []string{"sub", "iat", "exp", "jti", "typ"}

// Key is the signing material and lifetime for one token class.
type Key struct {
	Secret []byte
	TTL    time.Duration
}

type Keys struct {
	Access  Key
	Refresh Key
	Reset   Key
}

// Claims is the decoded view of a session token.
type Claims struct {
	Class string `json:"typ"`
	jwt.RegisteredClaims
}

// Decoded is what Parse hands back to callers.
type Decoded struct {
	Subject   string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec issues and parses HS256 tokens. It holds no mutable state and is safe
// for concurrent use.
type Codec struct {
	keys Keys
	now  func() time.Time
}

type Option func(*Codec)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func NewCodec(keys Keys, opts ...Option) (*Codec, error) {
	c := &Codec{keys: keys, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	seen := make([][]byte, 0, len(Classes()))
	for _, class := range Classes() {
		k, err := c.key(class)
		if err != nil {
			return nil, err
		}
		if len(k.Secret) == 0 {
			return nil, fmt.Errorf("tokens: empty secret for %s tokens", class)
		}
		if k.TTL <= 0 {
			return nil, fmt.Errorf("tokens: non-positive lifetime for %s tokens", class)
		}
		for _, other := range seen {
			if bytes.Equal(other, k.Secret) {
				return nil, fmt.Errorf("tokens: %s tokens share a secret with another class", class)
			}
		}
		seen = append(seen, k.Secret)
	}
	return c, nil
}

func (c *Codec) key(class Class) (Key, error) {
	switch class {
	case ClassAccess:
		return c.keys.Access, nil
	case ClassRefresh:
		return c.keys.Refresh, nil
	case ClassReset:
		return c.keys.Reset, nil
	default:
		return Key{}, fmt.Errorf("tokens: unknown token class %d", uint8(class))
	}
}

// TTL returns the configured lifetime of a class.
func (c *Codec) TTL(class Class) time.Duration {
	k, err := c.key(class)
	if err != nil {
		return 0
	}
	return k.TTL
}

// Issue signs a new token of the given class for subject. Extra claims never
// override the registered ones.
func (c *Codec) Issue(subject string, class Class, extra map[string]any) (string, error) {
	raw, _, err := c.Mint(subject, class, extra)
	return raw, err
}

// Mint is Issue that also hands back the registered claims it signed, so
// callers recording the token do not have to parse it again.
func (c *Codec) Mint(subject string, class Class, extra map[string]any) (string, *Decoded, error) {
	k, err := c.key(class)
	if err != nil {
		return "", nil, err
	}
	if subject == "" {
		return "", nil, errors.New("tokens: empty subject")
	}

	iat := jwt.NewNumericDate(c.now())
	exp := jwt.NewNumericDate(iat.Add(k.TTL))
	jti := uuid.NewString()

	claims := jwt.MapClaims{}
	for name, v := range extra {
		claims[name] = v
	}
	for _, name := range reserved {
		delete(claims, name)
	}
	claims["sub"] = subject
	claims["iat"] = iat
	claims["exp"] = exp
	claims["jti"] = jti
	claims["typ"] = class.String()

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(k.Secret)
	if err != nil {
		return "", nil, err
	}
	return raw, &Decoded{Subject: subject, ID: jti, IssuedAt: iat.Time, ExpiresAt: exp.Time}, nil
}

// Parse verifies raw with the key of the asserted class only. It fails with
// ErrTokenExpired once now reaches the embedded expiry and with ErrTokenInvalid
// for every other defect.
func (c *Codec) Parse(raw string, class Class) (*Decoded, error) {
	k, err := c.key(class)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	var claims Claims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return k.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !tkn.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Class != class.String() {
		return nil, fmt.Errorf("%w: not a %s token", ErrTokenInvalid, class)
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing subject or expiry", ErrTokenInvalid)
	}

	out := &Decoded{
		Subject:   claims.Subject,
		ID:        claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// Remaining is the lifetime left on a decoded token at now.
func (d *Decoded) Remaining(now time.Time) time.Duration {
	return d.ExpiresAt.Sub(now)
}

// StripBearer removes an optional "Bearer " prefix.
func StripBearer(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= len(BearerPrefix) && strings.EqualFold(raw[:len(BearerPrefix)], BearerPrefix) {
		return strings.TrimSpace(raw[len(BearerPrefix):])
	}
	return raw
}
