package digestauth_test

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"gitlab.com/iglou.eu/goulc/http/server/digestauth"
	"gitlab.com/iglou.eu/goulc/http/server/digesthash"
	"gitlab.com/iglou.eu/goulc/http/server/digestnonce"
)

func newTestEngine(t *testing.T) *digestauth.Engine {
	t.Helper()
	seed, err := digestnonce.RandomSeed()
	if err != nil {
		t.Fatalf("RandomSeed() error = %v", err)
	}
	e, err := digestauth.New(digestauth.DigestConfig{
		NoncesNum:    1 << 16,
		NonceTimeout: time.Minute,
		DefMaxNC:     1000,
		Entropy:      seed,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

var nonceRe = regexp.MustCompile(`nonce="([0-9a-f]{72})"`)

func extractNonce(t *testing.T, header string) string {
	t.Helper()
	m := nonceRe.FindStringSubmatch(header)
	if m == nil {
		t.Fatalf("no nonce found in challenge %q", header)
	}
	return m[1]
}

// clientResponse replicates the RFC 7616 §3.4.1 computation a well-behaved
// client performs, independent of the validator under test.
func clientResponse(algo digesthash.AlgoID, username, realm, password, method, uri, nonce, nc, cnonce, qop string) string {
	ctx1, _ := digesthash.Init(algo)
	ha1 := digesthash.CalcUserDigest(ctx1, username, realm, password)

	ctx2, _ := digesthash.Init(algo)
	ctx2.Update([]byte(method))
	ctx2.UpdateWithColon()
	ctx2.Update([]byte(uri))
	ha2 := ctx2.Finish()

	ctx3, _ := digesthash.Init(algo)
	ctx3.Update([]byte(hex.EncodeToString(ha1)))
	ctx3.UpdateWithColon()
	ctx3.Update([]byte(nonce))
	ctx3.UpdateWithColon()
	if qop != "" {
		ctx3.Update([]byte(nc))
		ctx3.UpdateWithColon()
		ctx3.Update([]byte(cnonce))
		ctx3.UpdateWithColon()
		ctx3.Update([]byte(qop))
		ctx3.UpdateWithColon()
	}
	ctx3.Update([]byte(hex.EncodeToString(ha2)))
	return hex.EncodeToString(ctx3.Finish())
}

func authHeader(fields map[string]string, algo digesthash.AlgoID) string {
	var sb strings.Builder
	sb.WriteString("Digest ")
	first := true
	write := func(k, v string, quote bool) {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(k)
		sb.WriteString("=")
		if quote {
			sb.WriteString(`"`)
		}
		sb.WriteString(v)
		if quote {
			sb.WriteString(`"`)
		}
	}
	write("username", fields["username"], true)
	write("realm", fields["realm"], true)
	write("nonce", fields["nonce"], true)
	write("uri", fields["uri"], true)
	if qop, ok := fields["qop"]; ok {
		write("qop", qop, false)
		write("nc", fields["nc"], false)
		write("cnonce", fields["cnonce"], true)
	}
	write("response", fields["response"], true)
	write("algorithm", algo.String(), false)
	if uh, ok := fields["userhash"]; ok {
		write("userhash", uh, false)
	}
	return sb.String()
}

func TestRoundTripQOPAuth(t *testing.T) {
	e := newTestEngine(t)

	headers, err := e.AddChallenge("test", "", nil, false, digestauth.QOPMaskAuth, digestauth.AllAlgos, false, false, "")
	if err != nil {
		t.Fatalf("AddChallenge() error = %v", err)
	}
	var header string
	for _, h := range headers {
		if strings.Contains(h, "algorithm=SHA-256,") || strings.Contains(h, "algorithm=SHA-256") {
			header = h
		}
	}
	if header == "" {
		header = headers[0]
	}
	nonce := extractNonce(t, header)

	const (
		username = "Mufasa"
		realm    = "test"
		password = "Circle Of Life"
		method   = "GET"
		uri      = "/dir/index.html"
		nc       = "00000001"
		cnonce   = "0a4f113b"
		qop      = "auth"
	)
	resp := clientResponse(digesthash.SHA256, username, realm, password, method, uri, nonce, nc, cnonce, qop)
	auth := authHeader(map[string]string{
		"username": username, "realm": realm, "nonce": nonce, "uri": uri,
		"qop": qop, "nc": nc, "cnonce": cnonce, "response": resp,
	}, digesthash.SHA256)

	req := digestauth.Request{
		Method:     method,
		Path:       uri,
		Query:      url.Values{},
		AuthHeader: auth,
	}

	outcome := e.CheckPassword(req, realm, username, password, 0, digestauth.QOPMaskAuth, digestauth.AllAlgos)
	if !outcome.OK() {
		t.Fatalf("CheckPassword() = %v, want OK", outcome)
	}

	// Idempotence of replay rejection: same (nonce, nc) must now be STALE.
	outcome = e.CheckPassword(req, realm, username, password, 0, digestauth.QOPMaskAuth, digestauth.AllAlgos)
	if outcome != digestauth.NonceStale {
		t.Fatalf("replay CheckPassword() = %v, want NONCE_STALE", outcome)
	}
}

func TestWrongPasswordIsResponseWrong(t *testing.T) {
	e := newTestEngine(t)
	headers, err := e.AddChallenge("test", "", nil, false, digestauth.QOPMaskAuth, digestauth.AllAlgos, false, false, "")
	if err != nil {
		t.Fatalf("AddChallenge() error = %v", err)
	}
	nonce := extractNonce(t, headers[0])

	const (
		username = "Mufasa"
		realm    = "test"
		method   = "GET"
		uri      = "/dir/index.html"
	)
	resp := clientResponse(digesthash.MD5, username, realm, "wrong password", method, uri, nonce, "00000001", "abcd1234", "auth")
	auth := authHeader(map[string]string{
		"username": username, "realm": realm, "nonce": nonce, "uri": uri,
		"qop": "auth", "nc": "00000001", "cnonce": "abcd1234", "response": resp,
	}, digesthash.MD5)

	req := digestauth.Request{Method: method, Path: uri, Query: url.Values{}, AuthHeader: auth}
	outcome := e.CheckPassword(req, realm, username, "Circle Of Life", 0, digestauth.QOPMaskAuth, digestauth.AllAlgos)
	if outcome != digestauth.ResponseWrong {
		t.Fatalf("CheckPassword() = %v, want RESPONSE_WRONG", outcome)
	}
}

func TestWrongRealmAndMissingHeader(t *testing.T) {
	e := newTestEngine(t)

	req := digestauth.Request{Method: "GET", Path: "/", Query: url.Values{}}
	outcome := e.CheckPassword(req, "test", "bob", "pw", 0, digestauth.QOPMaskAuth, digestauth.AllAlgos)
	if outcome != digestauth.HeaderMissing {
		t.Fatalf("no header: CheckPassword() = %v, want HEADER_MISSING", outcome)
	}

	headers, _ := e.AddChallenge("test", "", nil, false, digestauth.QOPMaskAuth, digestauth.AllAlgos, false, false, "")
	nonce := extractNonce(t, headers[0])
	resp := clientResponse(digesthash.MD5, "bob", "other-realm", "pw", "GET", "/", nonce, "00000001", "cnonce", "auth")
	auth := authHeader(map[string]string{
		"username": "bob", "realm": "other-realm", "nonce": nonce, "uri": "/",
		"qop": "auth", "nc": "00000001", "cnonce": "cnonce", "response": resp,
	}, digesthash.MD5)
	req2 := digestauth.Request{Method: "GET", Path: "/", Query: url.Values{}, AuthHeader: auth}
	outcome = e.CheckPassword(req2, "test", "bob", "pw", 0, digestauth.QOPMaskAuth, digestauth.AllAlgos)
	if outcome != digestauth.WrongRealm {
		t.Fatalf("CheckPassword() = %v, want WRONG_REALM", outcome)
	}
}

func TestUnknownNonceIsNonceWrong(t *testing.T) {
	e := newTestEngine(t)
	fabricated := strings.Repeat("a", digestnonce.HexSize)
	resp := clientResponse(digesthash.MD5, "bob", "test", "pw", "GET", "/", fabricated, "00000001", "cnonce", "auth")
	auth := authHeader(map[string]string{
		"username": "bob", "realm": "test", "nonce": fabricated, "uri": "/",
		"qop": "auth", "nc": "00000001", "cnonce": "cnonce", "response": resp,
	}, digesthash.MD5)
	req := digestauth.Request{Method: "GET", Path: "/", Query: url.Values{}, AuthHeader: auth}
	outcome := e.CheckPassword(req, "test", "bob", "pw", 0, digestauth.QOPMaskAuth, digestauth.AllAlgos)
	if outcome != digestauth.NonceWrong {
		t.Fatalf("CheckPassword() = %v, want NONCE_WRONG", outcome)
	}
}

func TestUserhashScenario(t *testing.T) {
	e := newTestEngine(t)
	const (
		username = "Mufasa"
		realm    = "test"
		password = "Circle Of Life"
		method   = "GET"
		uri      = "/dir/index.html"
	)

	userhashHex, err := digestauth.CalcUserhashHex(digesthash.SHA256, username, realm)
	if err != nil {
		t.Fatalf("CalcUserhashHex() error = %v", err)
	}

	headers, err := e.AddChallenge(realm, "", nil, false, digestauth.QOPMaskAuth, digestauth.AlgoMaskSHA256, true, true, "")
	if err != nil {
		t.Fatalf("AddChallenge() error = %v", err)
	}
	nonce := extractNonce(t, headers[0])

	resp := clientResponse(digesthash.SHA256, username, realm, password, method, uri, nonce, "00000001", "cnonce1", "auth")
	auth := authHeader(map[string]string{
		"username": userhashHex, "realm": realm, "nonce": nonce, "uri": uri,
		"qop": "auth", "nc": "00000001", "cnonce": "cnonce1", "response": resp,
		"userhash": "true",
	}, digesthash.SHA256)
	req := digestauth.Request{Method: method, Path: uri, Query: url.Values{}, AuthHeader: auth}
	outcome := e.CheckPassword(req, realm, username, password, 0, digestauth.QOPMaskAuth, digestauth.AlgoMaskSHA256)
	if !outcome.OK() {
		t.Fatalf("CheckPassword() = %v, want OK", outcome)
	}

	// Flip the last hex character of the userhash: must fail as WRONG_USERNAME.
	flipped := flipLastHexChar(userhashHex)
	auth2 := authHeader(map[string]string{
		"username": flipped, "realm": realm, "nonce": nonce, "uri": uri,
		"qop": "auth", "nc": "00000002", "cnonce": "cnonce2", "response": resp,
		"userhash": "true",
	}, digesthash.SHA256)
	req2 := digestauth.Request{Method: method, Path: uri, Query: url.Values{}, AuthHeader: auth2}
	outcome = e.CheckPassword(req2, realm, username, password, 0, digestauth.QOPMaskAuth, digestauth.AlgoMaskSHA256)
	if outcome != digestauth.WrongUsername {
		t.Fatalf("flipped userhash: CheckPassword() = %v, want WRONG_USERNAME", outcome)
	}
}

func flipLastHexChar(s string) string {
	b := []byte(s)
	last := b[len(b)-1]
	if last == '0' {
		b[len(b)-1] = '1'
	} else {
		b[len(b)-1] = '0'
	}
	return string(b)
}

func TestAddChallengeValidation(t *testing.T) {
	e := newTestEngine(t)

	if _, err := e.AddChallenge("", "", nil, false, digestauth.QOPMaskAuth, digestauth.AllAlgos, false, false, ""); err != digestauth.ErrNoRealm {
		t.Errorf("empty realm: err = %v, want ErrNoRealm", err)
	}
	if _, err := e.AddChallenge("test", "", nil, false, digestauth.QOPMaskAuth, 0, false, false, ""); err != digestauth.ErrNoAlgo {
		t.Errorf("no algo: err = %v, want ErrNoAlgo", err)
	}
	if _, err := e.AddChallenge("test", "", nil, false, digestauth.QOPMaskAuthInt, digestauth.AllAlgos, false, false, ""); err != digestauth.ErrNoUsableQOP {
		t.Errorf("auth-int only: err = %v, want ErrNoUsableQOP", err)
	}
	if _, err := e.AddChallenge("test", "", []string{`bad"domain`}, false, digestauth.QOPMaskAuth, digestauth.AllAlgos, false, false, ""); err != digestauth.ErrDomainQuote {
		t.Errorf("quoted domain: err = %v, want ErrDomainQuote", err)
	}
}

func TestChallengeLayoutOmitsAlgorithmForPlainMD5(t *testing.T) {
	e := newTestEngine(t)
	headers, err := e.AddChallenge("test", "opaque-val", nil, false, digestauth.QOPMaskNone, digestauth.AlgoMaskMD5, false, false, "")
	if err != nil {
		t.Fatalf("AddChallenge() error = %v", err)
	}
	if len(headers) != 1 {
		t.Fatalf("len(headers) = %d, want 1", len(headers))
	}
	if strings.Contains(headers[0], "algorithm=") {
		t.Errorf("qop=none MD5-only challenge unexpectedly carries algorithm=: %q", headers[0])
	}
	if strings.Contains(headers[0], "qop=") {
		t.Errorf("qop=none challenge unexpectedly carries qop=: %q", headers[0])
	}
	if !strings.Contains(headers[0], `opaque="opaque-val"`) {
		t.Errorf("challenge missing opaque: %q", headers[0])
	}
}

func TestStatsTrackOutcomes(t *testing.T) {
	e := newTestEngine(t)
	req := digestauth.Request{Method: "GET", Path: "/", Query: url.Values{}}
	e.CheckPassword(req, "test", "bob", "pw", 0, digestauth.QOPMaskAuth, digestauth.AllAlgos)

	stats := e.Stats()
	if stats.HeaderMissing != 1 {
		t.Errorf("Stats().HeaderMissing = %d, want 1", stats.HeaderMissing)
	}
}

func TestQOPNoneRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	headers, err := e.AddChallenge("test", "", nil, false, digestauth.QOPMaskNone, digestauth.AlgoMaskMD5, false, false, "")
	if err != nil {
		t.Fatalf("AddChallenge() error = %v", err)
	}
	nonce := extractNonce(t, headers[0])

	const (
		username = "bob"
		realm    = "test"
		password = "secret"
		method   = "GET"
		uri      = "/"
	)
	resp := clientResponse(digesthash.MD5, username, realm, password, method, uri, nonce, "", "", "")
	auth := fmt.Sprintf(`Digest username="%s", realm="%s", nonce="%s", uri="%s", response="%s"`,
		username, realm, nonce, uri, resp)

	req := digestauth.Request{Method: method, Path: uri, Query: url.Values{}, AuthHeader: auth}
	outcome := e.CheckPassword(req, realm, username, password, 0, digestauth.QOPMaskNone, digestauth.AlgoMaskMD5)
	if !outcome.OK() {
		t.Fatalf("CheckPassword() = %v, want OK", outcome)
	}
}
