package crypto

import (
	"bytes"
	"strings"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	addr := NewAddress(BoostPrefix, raw)

	encoded := addr.String()
	if !strings.HasPrefix(encoded, string(BoostPrefix)+"1") {
		t.Fatalf("expected %s prefix, got %s", BoostPrefix, encoded)
	}

	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded.Bytes(), raw) {
		t.Fatalf("expected payload %x, got %x", raw, decoded.Bytes())
	}
	if decoded.Prefix() != BoostPrefix {
		t.Fatalf("expected prefix %s, got %s", BoostPrefix, decoded.Prefix())
	}
	if decoded.Array() != addr.Array() {
		t.Fatalf("expected matching fixed-size form")
	}
}

func TestDecodeAddressRejectsBadInput(t *testing.T) {
	cases := []string{
		"",
		"not-bech32",
		"pzb1qqqq", // truncated payload
	}
	for _, raw := range cases {
		if _, err := DecodeAddress(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestPrivateKeyRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	restored, err := PrivateKeyFromBytes(key.Bytes())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	original := key.PubKey().Address()
	recovered := restored.PubKey().Address()
	if original.String() != recovered.String() {
		t.Fatalf("expected stable address, got %s vs %s", original.String(), recovered.String())
	}
	if original.Prefix() != BoostPrefix {
		t.Fatalf("expected %s prefix, got %s", BoostPrefix, original.Prefix())
	}
}
