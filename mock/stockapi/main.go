// Command stockapi serves a fake TiteLive/Praxiel stock API for local runs.
//
// Every SIRET gets the same generated catalog of mock ISBNs, sorted and paged by ref.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

type stockLine struct {
	Ref       string  `json:"ref"`
	Available int     `json:"available"`
	Price     float64 `json:"price"`
}

type page struct {
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Stocks []stockLine `json:"stocks"`
}

const catalogSize = 2500

func catalog() []stockLine {
	lines := make([]stockLine, catalogSize)
	for i := range lines {
		lines[i] = stockLine{
			Ref:       fmt.Sprintf("978%010d", i),
			Available: i % 7,
			Price:     float64(500+i%3000) / 100,
		}
	}

	return lines
}

func main() {
	addr := ":8081"
	if v := os.Getenv("MOCK_STOCKAPI_ADDR"); v != "" {
		addr = v
	}
	lines := catalog()

	http.HandleFunc("/stocks/", func(w http.ResponseWriter, r *http.Request) {
		siret := strings.TrimPrefix(r.URL.Path, "/stocks/")
		if len(siret) != 14 {
			http.Error(w, `{"error":"invalid siret"}`, http.StatusNotFound)
			return
		}

		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit <= 0 {
			limit = 1000
		}
		after := r.URL.Query().Get("after")
		start := sort.Search(len(lines), func(i int) bool { return lines[i].Ref > after })
		end := min(start+limit, len(lines))

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(page{Total: len(lines), Limit: limit, Stocks: lines[start:end]}); err != nil {
			log.Printf("[stockapi] write error: %v", err)
		}

		log.Printf("[stockapi] %s %s after=%q - %d lines", r.Method, r.URL.Path, after, end-start)
	})

	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"healthy"}`)); err != nil {
			log.Printf("[stockapi] health write error: %v", err)
		}
	})

	log.Printf("mock stock API running on %s", addr)
	server := &http.Server{
		Addr:         addr,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
