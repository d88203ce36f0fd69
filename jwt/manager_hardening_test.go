package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func TestCreateAndParseCredential(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{
		TTL:           time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "communitylearn",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, expiresAt, err := m.CreateCredential("uid-1", "ada@example.com", true)
	if err != nil {
		t.Fatalf("create credential: %v", err)
	}
	if time.Until(expiresAt) <= 59*time.Minute {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}

	claims, err := m.ParseCredential(token)
	if err != nil {
		t.Fatalf("parse credential: %v", err)
	}
	if claims.UID() != "uid-1" || claims.Email != "ada@example.com" || !claims.EmailVerified {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestCreateCredentialRequiresUID(t *testing.T) {
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("secret-secret-secret-secret")})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, _, err := m.CreateCredential("", "a@b.com", false); !errors.Is(err, ErrMissingSubject) {
		t.Fatalf("expected ErrMissingSubject, got %v", err)
	}
}

func TestVerifyOnlyManagerCannotSign(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, _, err := m.CreateCredential("u", "a@b.com", false); err == nil {
		t.Fatal("expected verify-only manager to refuse signing")
	}
}

func TestParseCredentialRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := CredentialClaims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	token, err := tok.SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.ParseCredential(token); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestParseCredentialIssuerAudienceAndLeeway(t *testing.T) {
	_, priv := newEdKeys(t)
	m, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     priv.Public().(ed25519.PublicKey),
		Issuer:        "communitylearn",
		Audience:      "web",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	sign := func(issuer, audience string, exp, iat time.Time) string {
		t.Helper()
		c := CredentialClaims{RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   "u",
			Issuer:    issuer,
			Audience:  gjwt.ClaimStrings{audience},
			ExpiresAt: gjwt.NewNumericDate(exp),
			IssuedAt:  gjwt.NewNumericDate(iat),
		}}
		s, err := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, c).SignedString(priv)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	now := time.Now()
	if _, err := m.ParseCredential(sign("other", "web", now.Add(time.Minute), now)); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}
	if _, err := m.ParseCredential(sign("communitylearn", "other", now.Add(time.Minute), now)); err == nil {
		t.Fatal("expected wrong audience to fail")
	}
	if _, err := m.ParseCredential(sign("communitylearn", "web", now.Add(-15*time.Second), now.Add(-time.Minute))); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}
	if _, err := m.ParseCredential(sign("communitylearn", "web", now.Add(-2*time.Minute), now.Add(-3*time.Minute))); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestParseCredentialRejectsMissingSubjectAndExpiry(t *testing.T) {
	secret := []byte("secret-secret-secret-secret")
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: secret})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	noSubject, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, CredentialClaims{RegisteredClaims: gjwt.RegisteredClaims{
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}).SignedString(secret)
	if _, err := m.ParseCredential(noSubject); !errors.Is(err, ErrMissingSubject) {
		t.Fatalf("expected ErrMissingSubject, got %v", err)
	}

	noExpiry, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, CredentialClaims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject: "u",
	}}).SignedString(secret)
	if _, err := m.ParseCredential(noExpiry); err == nil {
		t.Fatal("expected credential without expiry to fail")
	}
}

func TestParseCredentialUnknownKidFails(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	pub2, _ := newEdKeys(t)
	m, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv1,
		PublicKey:     pub1,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub1},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := CredentialClaims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims)
	tok.Header["kid"] = "k2"
	token, err := tok.SignedString(priv1)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.ParseCredential(token); err == nil {
		t.Fatal("expected unknown kid failure")
	}

	good, _, err := m.CreateCredential("u", "a@b.com", false)
	if err != nil {
		t.Fatalf("create credential: %v", err)
	}
	if _, err := m.ParseCredential(good); err != nil {
		t.Fatalf("expected known kid token to pass: %v", err)
	}

	m2, _ := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub2, VerifyKeys: map[string][]byte{"k2": pub2}})
	if _, err := m2.ParseCredential(good); err == nil {
		t.Fatal("expected parse failure with mismatched key set")
	}
}
