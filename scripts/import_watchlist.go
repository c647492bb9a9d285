package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Imports a hot sheet CSV into a running plate service by pushing the
// plate list through the watchlist refresh endpoint. The first CSV column
// is the plate number; remaining columns are ignored.

const serviceURL = "http://localhost:8080"

var authToken = ""

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run import_watchlist.go <path-to-csv>")
		fmt.Println("Example: go run import_watchlist.go hot-sheet.csv")
		os.Exit(1)
	}

	csvPath := os.Args[1]

	if authToken == "" {
		fmt.Print("Enter auth token (Bearer token): ")
		fmt.Scanln(&authToken)
	}

	fmt.Println("Step 1: Reading CSV file...")
	plates, err := readPlates(csvPath)
	if err != nil {
		fmt.Printf("Error reading CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Read %d plates from CSV\n", len(plates))

	fmt.Println("\nStep 2: Pushing plate list to plate service...")
	if err := pushRefresh(plates); err != nil {
		fmt.Printf("Error refreshing watchlist: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Watchlist refresh triggered")

	fmt.Println("\nStep 3: Verifying watchlist status...")
	entries, refreshedAt, err := fetchStatus()
	if err != nil {
		fmt.Printf("Error fetching status: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Watchlist holds %d entries, last refreshed %s\n", entries, refreshedAt)
}

func readPlates(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var plates []string
	header := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header {
			header = false
			continue
		}
		if len(row) == 0 {
			continue
		}
		plate := strings.TrimSpace(row[0])
		if plate == "" {
			continue
		}
		plates = append(plates, plate)
	}
	return plates, nil
}

func pushRefresh(plates []string) error {
	payload, err := json.Marshal(map[string]interface{}{"plates": plates})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, serviceURL+"/api/v1/watchlist/refresh", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+authToken)

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Data struct {
			WatchlistError string `json:"watchlist_error"`
			Entries        int    `json:"entries"`
			ReEnriched     int    `json:"re_enriched"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("unexpected response: %s", string(body))
	}
	if parsed.Data.WatchlistError != "" {
		return fmt.Errorf("refresh kept previous snapshot: %s", parsed.Data.WatchlistError)
	}
	fmt.Printf("  entries: %d, re-enriched: %d\n", parsed.Data.Entries, parsed.Data.ReEnriched)
	return nil
}

func fetchStatus() (int, string, error) {
	req, err := http.NewRequest(http.MethodGet, serviceURL+"/api/v1/watchlist/status", nil)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Authorization", "Bearer "+authToken)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return 0, "", fmt.Errorf("service returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Entries         int    `json:"entries"`
		LastRefreshedAt string `json:"last_refreshed_at"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, "", fmt.Errorf("unexpected response: %s", string(body))
	}
	return parsed.Entries, parsed.LastRefreshedAt, nil
}
