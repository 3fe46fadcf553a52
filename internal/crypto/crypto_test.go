package crypto

import (
	"bytes"
	"strings"
	"testing"
)

func TestXORRoundTrip(t *testing.T) {
	plain := []byte("BMD action payload with some bytes \x00\x01\xff")
	enc := EncryptXOR(plain)
	if bytes.Equal(enc, plain) {
		t.Fatal("ciphertext equals plaintext")
	}
	if got := DecryptXOR(enc); !bytes.Equal(got, plain) {
		t.Fatalf("DecryptXOR = %x, want %x", got, plain)
	}
}

func TestLEARoundTrip(t *testing.T) {
	key, err := ParseLEAKey(strings.Repeat("0f1e2d3c4b5a6978", 4))
	if err != nil {
		t.Fatal(err)
	}
	plain := make([]byte, 16*5+7)
	for i := range plain {
		plain[i] = byte(i * 37)
	}
	enc := EncryptLEA(plain, key)
	if bytes.Equal(enc[:16], plain[:16]) {
		t.Fatal("first block was not encrypted")
	}
	if !bytes.Equal(enc[80:], plain[80:]) {
		t.Fatal("trailing partial block should be left as is")
	}
	if got := DecryptLEA(enc, key); !bytes.Equal(got, plain) {
		t.Fatalf("DecryptLEA = %x, want %x", got, plain)
	}
}

func TestParseLEAKey(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{strings.Repeat("ab", 32), true},
		{strings.Repeat("ab", 16), false},
		{strings.Repeat("zz", 32), false},
	}
	for _, c := range cases {
		_, err := ParseLEAKey(c.in)
		if (err == nil) != c.ok {
			t.Errorf("ParseLEAKey(%q) err = %v, want ok=%v", c.in, err, c.ok)
		}
	}
}
