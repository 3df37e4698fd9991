// Command horcrux-seed populates a running horcrux instance with
// random keys and values over the wire, to exercise snapshot size and
// shard distribution under load. It is a thin TCP client of the same
// text protocol the front-end exposes — no shortcuts into internal
// packages.
package main

import (
	"bufio"
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"math/big"
	"net"
	"time"

	"github.com/google/uuid"
)

const (
	keyAlphabet  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	valuePayload = 450 // bytes per generated value
)

func main() {
	addr := flag.String("addr", "127.0.0.1:11211", "address of the running horcrux server")
	count := flag.Int("count", 100_000, "number of keys to generate")
	snapshot := flag.Bool("snapshot", true, "send a snapshot command once seeding completes")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatalf("horcrux-seed: dial %s: %v", *addr, err)
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	start := time.Now()
	for i := 0; i < *count; i++ {
		key := randomKey()
		data := randomAlnum(valuePayload)

		if _, err := fmt.Fprintf(writer, "set %s 0 0 %d\r\n%s\r\n", key, len(data), data); err != nil {
			log.Fatalf("horcrux-seed: write set for key %d: %v", i, err)
		}
		if err := writer.Flush(); err != nil {
			log.Fatalf("horcrux-seed: flush set for key %d: %v", i, err)
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			log.Fatalf("horcrux-seed: read reply for key %d: %v", i, err)
		}
		if line != "STORED\r\n" {
			log.Fatalf("horcrux-seed: unexpected reply for key %d: %q", i, line)
		}

		if (i+1)%100_000 == 0 {
			log.Printf("horcrux-seed: %d/%d keys set (%s elapsed)", i+1, *count, time.Since(start))
		}
	}
	log.Printf("horcrux-seed: database seeded with %d keys in %s", *count, time.Since(start))

	if !*snapshot {
		return
	}

	if _, err := writer.WriteString("snapshot\r\n"); err != nil {
		log.Fatalf("horcrux-seed: write snapshot request: %v", err)
	}
	if err := writer.Flush(); err != nil {
		log.Fatalf("horcrux-seed: flush snapshot request: %v", err)
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		log.Fatalf("horcrux-seed: read snapshot reply: %v", err)
	}
	if line != "SNAPSHOT FINISHED\r\n" {
		log.Fatalf("horcrux-seed: unexpected snapshot reply: %q", line)
	}
	log.Printf("horcrux-seed: snapshot requested")
}

// randomKey tags every generated key with a fresh UUID so repeated
// seeding runs against the same instance never collide on a key
// already present from a prior run.
func randomKey() string {
	return "seed-" + uuid.NewString()
}

func randomAlnum(n int) string {
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(keyAlphabet))))
		if err != nil {
			log.Fatalf("horcrux-seed: generating random payload: %v", err)
		}
		buf[i] = keyAlphabet[idx.Int64()]
	}
	return string(buf)
}
