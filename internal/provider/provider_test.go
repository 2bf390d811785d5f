package provider

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"golang.org/x/crypto/pbkdf2"
)

func testKeyIV(t *testing.T, p Provider) ([]byte, []byte) {
	t.Helper()
	salt, err := p.RandomBytes(SaltLength)
	if err != nil {
		t.Fatalf("failed to generate salt: %v", err)
	}
	key, err := p.DeriveBits([]byte("test-password-12345"), salt, Iterations, KeyLength)
	if err != nil {
		t.Fatalf("failed to derive key: %v", err)
	}
	return key, salt
}

func encryptAll(t *testing.T, p Provider, key, iv []byte, chunks [][]byte) []byte {
	t.Helper()
	ctx, err := p.NewCipherContext(key, iv)
	if err != nil {
		t.Fatalf("failed to create cipher context: %v", err)
	}
	var out []byte
	for _, chunk := range chunks {
		part, err := ctx.Update(chunk)
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		out = append(out, part...)
	}
	final, err := ctx.Final()
	if err != nil {
		t.Fatalf("final failed: %v", err)
	}
	return append(out, final...)
}

func decryptAll(t *testing.T, p Provider, key, iv []byte, chunks [][]byte) []byte {
	t.Helper()
	ctx, err := p.NewDecipherContext(key, iv)
	if err != nil {
		t.Fatalf("failed to create decipher context: %v", err)
	}
	var out []byte
	for _, chunk := range chunks {
		part, err := ctx.Update(chunk)
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		out = append(out, part...)
	}
	final, err := ctx.Final()
	if err != nil {
		t.Fatalf("final failed: %v", err)
	}
	return append(out, final...)
}

func providers(t *testing.T) map[string]Provider {
	t.Helper()
	out := make(map[string]Provider)
	for _, name := range []string{NameNative, NameWebCrypto} {
		p, err := Get(name)
		if err != nil {
			t.Fatalf("provider %s not registered: %v", name, err)
		}
		out[name] = p
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	plaintexts := map[string][]byte{
		"empty":         {},
		"short":         []byte("Hello, World!"),
		"one block":     bytes.Repeat([]byte{0xAB}, 16),
		"block aligned": bytes.Repeat([]byte("0123456789abcdef"), 4),
		"large":         bytes.Repeat([]byte{0x42}, 100*1024+7),
	}

	for name, p := range providers(t) {
		key, iv := testKeyIV(t, p)
		for label, plain := range plaintexts {
			t.Run(name+"/"+label, func(t *testing.T) {
				ct := encryptAll(t, p, key, iv, [][]byte{plain})
				if len(ct)%BlockSize != 0 {
					t.Fatalf("ciphertext length %d is not block aligned", len(ct))
				}
				if len(ct) < len(plain)+1 {
					t.Fatalf("ciphertext too short for padded plaintext")
				}
				got := decryptAll(t, p, key, iv, [][]byte{ct})
				if !bytes.Equal(got, plain) {
					t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(plain))
				}
			})
		}
	}
}

func TestRoundTrip_ChunkedUpdates(t *testing.T) {
	plain := bytes.Repeat([]byte("streaming cipher context "), 997)
	chunkSizes := []int{1, 7, 16, 100, 4096}

	for name, p := range providers(t) {
		key, iv := testKeyIV(t, p)
		want := encryptAll(t, p, key, iv, [][]byte{plain})

		for _, size := range chunkSizes {
			var chunks [][]byte
			for off := 0; off < len(plain); off += size {
				end := off + size
				if end > len(plain) {
					end = len(plain)
				}
				chunks = append(chunks, plain[off:end])
			}
			got := encryptAll(t, p, key, iv, chunks)
			if !bytes.Equal(got, want) {
				t.Fatalf("%s: chunk size %d produced different ciphertext", name, size)
			}
			back := decryptAll(t, p, key, iv, chunks2(got, size))
			if !bytes.Equal(back, plain) {
				t.Fatalf("%s: chunked decrypt mismatch at chunk size %d", name, size)
			}
		}
	}
}

func chunks2(data []byte, size int) [][]byte {
	var out [][]byte
	for off := 0; off < len(data); off += size {
		end := off + size
		if end > len(data) {
			end = len(data)
		}
		out = append(out, data[off:end])
	}
	return out
}

func TestCrossProviderCompatibility(t *testing.T) {
	native, err := Get(NameNative)
	if err != nil {
		t.Fatalf("native provider missing: %v", err)
	}
	web, err := Get(NameWebCrypto)
	if err != nil {
		t.Fatalf("webcrypto provider missing: %v", err)
	}

	key, iv := testKeyIV(t, native)
	plain := bytes.Repeat([]byte("interoperable ciphertext"), 321)

	ctNative := encryptAll(t, native, key, iv, chunks2(plain, 100))
	ctWeb := encryptAll(t, web, key, iv, chunks2(plain, 100))
	if !bytes.Equal(ctNative, ctWeb) {
		t.Fatal("providers produced different ciphertext for identical inputs")
	}

	// Each provider must decrypt the other's output.
	if got := decryptAll(t, web, key, iv, [][]byte{ctNative}); !bytes.Equal(got, plain) {
		t.Fatal("webcrypto failed to decrypt native ciphertext")
	}
	if got := decryptAll(t, native, key, iv, [][]byte{ctWeb}); !bytes.Equal(got, plain) {
		t.Fatal("native failed to decrypt webcrypto ciphertext")
	}
}

func TestNativeEmitsCompleteBlocksEagerly(t *testing.T) {
	p, err := Get(NameNative)
	if err != nil {
		t.Fatalf("native provider missing: %v", err)
	}
	key, iv := testKeyIV(t, p)
	ctx, err := p.NewCipherContext(key, iv)
	if err != nil {
		t.Fatalf("failed to create cipher context: %v", err)
	}

	out, err := ctx.Update(make([]byte, 40))
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if len(out) != 32 {
		t.Fatalf("expected 32 bytes of complete blocks, got %d", len(out))
	}
	final, err := ctx.Final()
	if err != nil {
		t.Fatalf("final failed: %v", err)
	}
	if len(final) != 16 {
		t.Fatalf("expected one padded block at final, got %d bytes", len(final))
	}
}

func TestWebCryptoBuffersUntilFinal(t *testing.T) {
	p, err := Get(NameWebCrypto)
	if err != nil {
		t.Fatalf("webcrypto provider missing: %v", err)
	}
	key, iv := testKeyIV(t, p)
	ctx, err := p.NewCipherContext(key, iv)
	if err != nil {
		t.Fatalf("failed to create cipher context: %v", err)
	}

	out, err := ctx.Update(make([]byte, 40))
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no output before final, got %d bytes", len(out))
	}
	final, err := ctx.Final()
	if err != nil {
		t.Fatalf("final failed: %v", err)
	}
	if len(final) != 48 {
		t.Fatalf("expected 48 bytes at final, got %d", len(final))
	}
}

func TestContextUnusableAfterFinal(t *testing.T) {
	for name, p := range providers(t) {
		key, iv := testKeyIV(t, p)

		ctx, err := p.NewCipherContext(key, iv)
		if err != nil {
			t.Fatalf("%s: failed to create cipher context: %v", name, err)
		}
		if _, err := ctx.Final(); err != nil {
			t.Fatalf("%s: final failed: %v", name, err)
		}
		if _, err := ctx.Update([]byte("more")); err == nil {
			t.Fatalf("%s: expected error on update after final", name)
		}
		if _, err := ctx.Final(); err == nil {
			t.Fatalf("%s: expected error on second final", name)
		}
	}
}

func TestInvalidKeyAndIVSizes(t *testing.T) {
	for name, p := range providers(t) {
		if _, err := p.NewCipherContext(make([]byte, 16), make([]byte, 16)); err == nil {
			t.Fatalf("%s: expected error for short key", name)
		}
		if _, err := p.NewCipherContext(make([]byte, 32), make([]byte, 12)); err == nil {
			t.Fatalf("%s: expected error for short IV", name)
		}
		if _, err := p.NewDecipherContext(make([]byte, 31), make([]byte, 16)); err == nil {
			t.Fatalf("%s: expected error for short key on decipher", name)
		}
	}
}

func TestDecrypt_TruncatedCiphertext(t *testing.T) {
	for name, p := range providers(t) {
		key, iv := testKeyIV(t, p)
		ct := encryptAll(t, p, key, iv, [][]byte{[]byte("some plaintext that spans blocks")})

		ctx, err := p.NewDecipherContext(key, iv)
		if err != nil {
			t.Fatalf("%s: failed to create decipher context: %v", name, err)
		}
		if _, err := ctx.Update(ct[:len(ct)-5]); err != nil {
			t.Fatalf("%s: update failed: %v", name, err)
		}
		if _, err := ctx.Final(); err == nil {
			t.Fatalf("%s: expected error for truncated ciphertext", name)
		}
	}
}

func TestDecrypt_WrongKeyFailsPadding(t *testing.T) {
	for name, p := range providers(t) {
		key, iv := testKeyIV(t, p)
		ct := encryptAll(t, p, key, iv, [][]byte{[]byte("padding oracle fodder")})

		wrong := make([]byte, KeyLength)
		copy(wrong, key)
		wrong[0] ^= 0xFF

		ctx, err := p.NewDecipherContext(wrong, iv)
		if err != nil {
			t.Fatalf("%s: failed to create decipher context: %v", name, err)
		}
		if _, err := ctx.Update(ct); err != nil {
			t.Fatalf("%s: update failed: %v", name, err)
		}
		if _, err := ctx.Final(); err == nil {
			t.Fatalf("%s: expected padding error with wrong key", name)
		}
	}
}

func TestDeriveBits_Deterministic(t *testing.T) {
	salt := []byte("0123456789abcdef")
	password := []byte("correct horse battery staple")
	want := pbkdf2.Key(password, salt, Iterations, KeyLength, sha256.New)

	for name, p := range providers(t) {
		got, err := p.DeriveBits(password, salt, Iterations, KeyLength)
		if err != nil {
			t.Fatalf("%s: derive failed: %v", name, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("%s: derived key differs from PBKDF2-HMAC-SHA256 reference", name)
		}
	}
}

func TestRandomBytes(t *testing.T) {
	for name, p := range providers(t) {
		a, err := p.RandomBytes(SaltLength)
		if err != nil {
			t.Fatalf("%s: random bytes failed: %v", name, err)
		}
		b, err := p.RandomBytes(SaltLength)
		if err != nil {
			t.Fatalf("%s: random bytes failed: %v", name, err)
		}
		if len(a) != SaltLength || len(b) != SaltLength {
			t.Fatalf("%s: wrong length", name)
		}
		if bytes.Equal(a, b) {
			t.Fatalf("%s: two salts were identical", name)
		}
	}
}

func TestGetUnknownProvider(t *testing.T) {
	if _, err := Get("no-such-runtime"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
