package perfmetrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// CsvHeader defines the CSV header of the transfer journal
const CsvHeader = "Timestamp,Operation,Name,Bytes,Seconds,Attempts,Status\n"

// Record is one completed (or failed) transfer.
type Record struct {
	Timestamp time.Time
	Operation string
	Name      string
	Bytes     int64
	Duration  time.Duration
	Attempts  int
	Err       error
}

// Status returns "ok" or the error text.
func (r Record) Status() string {
	if r.Err == nil {
		return "ok"
	}
	return r.Err.Error()
}

// LogTransfer appends r to the CSV file at path, writing the header first
// when the file is new.
func LogTransfer(path string, r Record) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Check if file exists to determine if we need to write header
	fileExists := true
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fileExists = false
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	if !fileExists {
		if _, err := file.WriteString(CsvHeader); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	timestamp := r.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	writer := csv.NewWriter(file)
	record := []string{
		timestamp.Format(time.RFC3339),
		r.Operation,
		r.Name,
		strconv.FormatInt(r.Bytes, 10),
		strconv.FormatFloat(r.Duration.Seconds(), 'f', 2, 64),
		strconv.Itoa(r.Attempts),
		r.Status(),
	}
	if err := writer.Write(record); err != nil {
		return fmt.Errorf("failed to write CSV record: %w", err)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}
