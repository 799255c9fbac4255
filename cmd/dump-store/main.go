// Command dump-store prints every document of a bbolt store as one JSON
// object per line, tagged with its collection. The running bot holds the file
// lock, so stop it first.
//
// Usage: go run ./cmd/dump-store /path/to/data.db
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/guanke/assistbot/internal/store"
)

type line struct {
	Collection string          `json:"collection"`
	Document   json.RawMessage `json:"document"`
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run ./cmd/dump-store /path/to/data.db")
	}

	dbPath := os.Args[1]
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		log.Fatalf("Database file not found: %s", dbPath)
	}

	st, err := store.OpenBoltReadOnly(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	out := bufio.NewWriter(os.Stdout)
	counts, err := dump(st, out)
	if ferr := out.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		log.Fatalf("Dump failed: %v", err)
	}
	for _, c := range store.Collections() {
		fmt.Fprintf(os.Stderr, "%s: %d\n", c, counts[c])
	}
}

func dump(st *store.BoltStore, w io.Writer) (map[string]int, error) {
	enc := json.NewEncoder(w)
	counts := make(map[string]int)
	for _, c := range store.Collections() {
		err := st.Dump(c, func(doc json.RawMessage) error {
			counts[c]++
			return enc.Encode(line{Collection: c, Document: doc})
		})
		if err != nil {
			return counts, fmt.Errorf("%s: %w", c, err)
		}
	}
	return counts, nil
}
