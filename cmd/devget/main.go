// devget fetches a URL over the device stack, or runs a local file through
// the cipher and hash devices.
//
// Fetch:
//
//	devget -url https://example.com/ [-o file] [-md5] [-metrics]
//
// Encrypt/decrypt a file (bit-padded to the block size on encrypt):
//
//	devget -in plain.bin -out sealed.bin -key <hex> -iv <hex> -cipher cbc
//	devget -in sealed.bin -out plain.bin -key <hex> -iv <hex> -cipher cbc -decrypt
//
// Hash a file:
//
//	devget -in file.bin -md5
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/owacoder/devio"
	"github.com/owacoder/devio/aesdev"
	"github.com/owacoder/devio/exporter"
	"github.com/owacoder/devio/httpdev"
	"github.com/owacoder/devio/internal/logging"
	"github.com/owacoder/devio/md5dev"
	"github.com/owacoder/devio/pad"
	"github.com/owacoder/devio/sockdev"
)

func main() {
	var (
		rawurl     = flag.String("url", "", "URL to fetch (http or https)")
		outPath    = flag.String("o", "", "Write the fetched body to a file instead of stdout")
		inPath     = flag.String("in", "", "Input file for cipher/hash operations")
		outFile    = flag.String("out", "", "Output file for cipher operations")
		keyHex     = flag.String("key", "", "AES key in hex (16, 24 or 32 bytes)")
		ivHex      = flag.String("iv", "", "AES IV in hex (16 bytes)")
		cipherName = flag.String("cipher", "cbc", "Chaining mode: ecb, cbc, pcbc, cfb, ofb")
		decrypt    = flag.Bool("decrypt", false, "Decrypt instead of encrypt")
		noAccel    = flag.Bool("no-accel", false, "Force the portable cipher path")
		wantMD5    = flag.Bool("md5", false, "Print the MD5 digest of the body or input file")
		metrics    = flag.Bool("metrics", false, "Dump transport metrics after the fetch")
	)
	flag.Parse()

	switch {
	case *rawurl != "":
		fetch(*rawurl, *outPath, *wantMD5, *metrics)
	case *inPath != "" && *keyHex != "":
		runCipher(*inPath, *outFile, *keyHex, *ivHex, *cipherName, *decrypt, *noAccel)
	case *inPath != "" && *wantMD5:
		hashFile(*inPath)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func fetch(rawurl, outPath string, wantMD5, wantMetrics bool) {
	u, err := url.Parse(rawurl)
	if err != nil {
		log.Fatalf("Invalid URL %q: %v", rawurl, err)
	}

	kind := sockdev.TCP
	port := 80
	if u.Scheme == "https" {
		kind = sockdev.TLS
		port = 443
	}
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			log.Fatalf("Invalid port %q: %v", p, err)
		}
	}

	m := devio.NewMetrics()
	transport, err := dialWithMetrics(kind, u.Hostname(), port, m)
	if err != nil {
		log.Fatalf("Connect failed: %v", err)
	}

	client := httpdev.NewClient(transport, true)
	defer client.Close()

	if err := client.Get(rawurl); err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	logging.Info("response", "status", client.Status(), "reason", client.Reason())

	body, err := client.ResponseBody()
	if err != nil {
		log.Fatalf("No response body: %v", err)
	}

	sink, mem, err := openSink(outPath)
	if err != nil {
		log.Fatalf("Open output failed: %v", err)
	}

	if wantMD5 {
		hasher, err := md5dev.New(body, "r+b")
		if err != nil {
			log.Fatalf("Hash device failed: %v", err)
		}
		digest := make([]byte, md5dev.DigestSize)
		if _, err := hasher.Read(digest); err != nil {
			log.Fatalf("Hashing failed: %v", err)
		}
		hasher.Close()
		fmt.Printf("%s\n", hex.EncodeToString(digest))
	} else {
		if _, err := devio.Copy(sink, body); err != nil {
			log.Fatalf("Body transfer failed: %v", err)
		}
	}

	if err := client.EndResponse(); err != nil {
		log.Fatalf("Finishing response failed: %v", err)
	}

	if err := sink.Close(); err != nil {
		log.Fatalf("Closing output failed: %v", err)
	}
	if mem != nil {
		os.Stdout.Write(mem.Bytes())
	}

	if wantMetrics {
		dumpMetrics(m)
	}
}

// dialWithMetrics opens the transport with an observer attached, so the
// byte counters cover the whole exchange.
func dialWithMetrics(kind sockdev.Kind, host string, port int, m *devio.Metrics) (*devio.Device, error) {
	return sockdev.Dial(kind, host, port, "r+b",
		sockdev.WithNoDelay(),
		sockdev.WithObserver(devio.NewMetricsObserver(m)))
}

func dumpMetrics(m *devio.Metrics) {
	collector := exporter.NewDeviceCollector("devio", nil)
	collector.Add("transport", m)

	reg := prometheus.NewRegistry()
	if err := reg.Register(collector); err != nil {
		log.Fatalf("Metrics registration failed: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		log.Fatalf("Metrics gather failed: %v", err)
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			fmt.Fprintf(os.Stderr, "%s %v\n", mf.GetName(), metric.GetCounter().GetValue())
		}
	}
}

// openSink returns a device to receive the body: a file when a path is
// given, otherwise a memory device flushed to stdout at the end.
func openSink(path string) (*devio.Device, *devio.Memory, error) {
	if path != "" {
		d, err := devio.OpenFile(path, "wb", nil)
		return d, nil, err
	}
	d, mem, err := devio.OpenMemory(nil, "wb", nil)
	return d, mem, err
}

func runCipher(inPath, outPath, keyHex, ivHex, cipherName string, decrypt, noAccel bool) {
	if outPath == "" {
		log.Fatalf("Cipher mode requires -out")
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		log.Fatalf("Invalid key: %v", err)
	}
	var iv [16]byte
	if ivHex != "" {
		raw, err := hex.DecodeString(ivHex)
		if err != nil || len(raw) != 16 {
			log.Fatalf("Invalid IV: must be 16 hex-encoded bytes")
		}
		copy(iv[:], raw)
	}
	chain, err := aesdev.ParseChainMode(cipherName)
	if err != nil {
		log.Fatalf("Invalid cipher mode: %v", err)
	}

	in, err := devio.OpenFile(inPath, "rb", nil)
	if err != nil {
		log.Fatalf("Open input failed: %v", err)
	}
	defer in.Close()

	out, err := devio.OpenFile(outPath, "wb", nil)
	if err != nil {
		log.Fatalf("Open output failed: %v", err)
	}

	mode := "wb"
	if noAccel {
		mode = "wb<"
	}
	cipher, err := aesdev.New(out, aesdev.Config{Key: key, IV: iv, Mode: chain, Decrypt: decrypt}, mode)
	if err != nil {
		log.Fatalf("Cipher device failed: %v", err)
	}

	sink := cipher
	if !decrypt {
		// bit-pad the plaintext so the stream is a whole number of blocks
		sink, err = pad.New(cipher, aesdev.BlockSize, "wb")
		if err != nil {
			log.Fatalf("Padding device failed: %v", err)
		}
	}

	if _, err := devio.Copy(sink, in); err != nil {
		log.Fatalf("Transform failed: %v", err)
	}
	if sink != cipher {
		if err := sink.Close(); err != nil {
			log.Fatalf("Padding flush failed: %v", err)
		}
	}
	if err := cipher.Close(); err != nil {
		log.Fatalf("Cipher close failed: %v", err)
	}
	if err := out.Close(); err != nil {
		log.Fatalf("Closing output failed: %v", err)
	}
}

func hashFile(path string) {
	in, err := devio.OpenFile(path, "rb", nil)
	if err != nil {
		log.Fatalf("Open input failed: %v", err)
	}
	defer in.Close()

	hasher, err := md5dev.New(in, "rb")
	if err != nil {
		log.Fatalf("Hash device failed: %v", err)
	}
	defer hasher.Close()

	digest := make([]byte, md5dev.DigestSize)
	if _, err := hasher.Read(digest); err != nil {
		log.Fatalf("Hashing failed: %v", err)
	}
	fmt.Printf("%s  %s\n", hex.EncodeToString(digest), path)
}
