package unit

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/owacoder/devio"
	"github.com/owacoder/devio/aesdev"
	"github.com/owacoder/devio/httpdev"
	"github.com/owacoder/devio/limit"
	"github.com/owacoder/devio/md5dev"
	"github.com/owacoder/devio/pad"
	"github.com/owacoder/devio/repeat"
	"github.com/owacoder/devio/sockdev"
)

// These tests exercise whole pipelines across package boundaries.

func TestDeviceInterfaceCompliance(t *testing.T) {
	var d *devio.Device
	var _ io.Reader = d
	var _ io.Writer = d
	var _ io.Seeker = d
	var _ io.Closer = d
	var _ io.ByteScanner = d
	var _ io.RuneScanner = d
	var _ io.ByteWriter = d
}

func TestSealAndOpenPipeline(t *testing.T) {
	// plaintext -> pad -> aes-cbc -> memory, then back out through the
	// decryptor; the tail padding is part of the recovered stream
	key, _ := hex.DecodeString("2b7e151628aed2a6abf7158809cf4f3c")
	var iv [16]byte
	copy(iv[:], []byte("sixteen byte iv!"))
	message := []byte("the rain in spain stays mainly in the plain")

	sealedDev, sealedMem, err := devio.OpenMemory(nil, "wb", nil)
	if err != nil {
		t.Fatalf("OpenMemory failed: %v", err)
	}
	cipher, err := aesdev.New(sealedDev, aesdev.Config{Key: key, IV: iv, Mode: aesdev.CBC}, "wb")
	if err != nil {
		t.Fatalf("aesdev.New failed: %v", err)
	}
	padded, err := pad.New(cipher, aesdev.BlockSize, "wb")
	if err != nil {
		t.Fatalf("pad.New failed: %v", err)
	}

	if _, err := padded.Write(message); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := padded.Close(); err != nil {
		t.Fatalf("pad close failed: %v", err)
	}
	if err := cipher.Close(); err != nil {
		t.Fatalf("cipher close failed: %v", err)
	}

	sealed := sealedMem.Bytes()
	if len(sealed)%aesdev.BlockSize != 0 {
		t.Fatalf("sealed length %d is not block aligned", len(sealed))
	}

	srcDev, _, err := devio.OpenMemory(sealed, "rb", nil)
	if err != nil {
		t.Fatalf("OpenMemory failed: %v", err)
	}
	opener, err := aesdev.New(srcDev, aesdev.Config{Key: key, IV: iv, Mode: aesdev.CBC, Decrypt: true}, "rb")
	if err != nil {
		t.Fatalf("aesdev.New failed: %v", err)
	}
	recovered, err := io.ReadAll(opener)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(recovered[:len(message)], message) {
		t.Error("recovered plaintext mismatched")
	}
	if recovered[len(message)] != 0x80 {
		t.Errorf("padding marker = %#x, want 0x80", recovered[len(message)])
	}
}

func TestRepeatThroughLimit(t *testing.T) {
	// an endless cycled source, cut down to an exact window
	src, _, err := devio.OpenMemory([]byte("ab"), "rb", nil)
	if err != nil {
		t.Fatalf("OpenMemory failed: %v", err)
	}
	cycle, err := repeat.New(src, "rb")
	if err != nil {
		t.Fatalf("repeat.New failed: %v", err)
	}
	window, err := limit.New(cycle, 0, 7, "rb")
	if err != nil {
		t.Fatalf("limit.New failed: %v", err)
	}

	got, err := io.ReadAll(window)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(got) != "abababa" {
		t.Errorf("windowed cycle = %q, want abababa", got)
	}
}

func TestHashOfCipheredStream(t *testing.T) {
	// the digest of a deterministic cipher stream is itself deterministic
	key := make([]byte, 32)
	src, _, err := devio.OpenMemory(make([]byte, 64), "rb", nil)
	if err != nil {
		t.Fatalf("OpenMemory failed: %v", err)
	}
	enc, err := aesdev.New(src, aesdev.Config{Key: key, Mode: aesdev.ECB}, "rb")
	if err != nil {
		t.Fatalf("aesdev.New failed: %v", err)
	}
	hasher, err := md5dev.New(enc, "rb")
	if err != nil {
		t.Fatalf("md5dev.New failed: %v", err)
	}

	first := make([]byte, md5dev.DigestSize)
	if _, err := hasher.Read(first); err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	src2, _, _ := devio.OpenMemory(make([]byte, 64), "rb", nil)
	enc2, _ := aesdev.New(src2, aesdev.Config{Key: key, Mode: aesdev.ECB}, "rb")
	hasher2, _ := md5dev.New(enc2, "rb")
	second := make([]byte, md5dev.DigestSize)
	if _, err := hasher2.Read(second); err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("same pipeline produced different digests")
	}
}

func TestHTTPOverRealSocket(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprintf(w, "hit %d on %s", hits, r.URL.Path)
	}))
	defer server.Close()

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parsing server URL failed: %v", err)
	}
	port, _ := strconv.Atoi(u.Port())

	transport, err := sockdev.Dial(sockdev.TCP, u.Hostname(), port, "r+b")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	client := httpdev.NewClient(transport, true)
	defer client.Close()

	readBody := func() string {
		t.Helper()
		body, err := client.ResponseBody()
		if err != nil {
			t.Fatalf("ResponseBody failed: %v", err)
		}
		got, err := io.ReadAll(body)
		if err != nil {
			t.Fatalf("ReadAll failed: %v", err)
		}
		if err := client.EndResponse(); err != nil {
			t.Fatalf("EndResponse failed: %v", err)
		}
		return string(got)
	}

	if err := client.Get(server.URL + "/first"); err != nil {
		t.Fatalf("first Get failed: %v", err)
	}
	if client.Status() != 200 {
		t.Fatalf("status = %d", client.Status())
	}
	if got := readBody(); got != "hit 1 on /first" {
		t.Errorf("first body = %q", got)
	}

	// keep-alive: same transport, second exchange
	if !client.Reusable() {
		t.Fatal("client should be reusable")
	}
	if err := client.Get(server.URL + "/second"); err != nil {
		t.Fatalf("second Get failed: %v", err)
	}
	if got := readBody(); got != "hit 2 on /second" {
		t.Errorf("second body = %q", got)
	}
}

func TestHTTPPostOverRealSocket(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Write(bytes.ToUpper(body))
	}))
	defer server.Close()

	u, _ := url.Parse(server.URL)
	port, _ := strconv.Atoi(u.Port())
	transport, err := sockdev.Dial(sockdev.TCP, u.Hostname(), port, "r+b")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	client := httpdev.NewClient(transport, true)
	defer client.Close()

	if err := client.BeginRequest("POST", server.URL+"/upload"); err != nil {
		t.Fatalf("BeginRequest failed: %v", err)
	}
	body, err := client.RequestBody("text/plain")
	if err != nil {
		t.Fatalf("RequestBody failed: %v", err)
	}
	if _, err := body.WriteString("chunked uphill"); err != nil {
		t.Fatalf("writing body failed: %v", err)
	}
	if err := body.Close(); err != nil {
		t.Fatalf("closing body failed: %v", err)
	}

	if err := client.BeginResponse(); err != nil {
		t.Fatalf("BeginResponse failed: %v", err)
	}
	respBody, err := client.ResponseBody()
	if err != nil {
		t.Fatalf("ResponseBody failed: %v", err)
	}
	got, err := io.ReadAll(respBody)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(got) != "CHUNKED UPHILL" {
		t.Errorf("echoed body = %q", got)
	}
	if err := client.EndResponse(); err != nil {
		t.Fatalf("EndResponse failed: %v", err)
	}
}
