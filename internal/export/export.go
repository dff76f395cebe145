// Package export turns completed results into downloadable artifacts:
// a JSON document and a fixed-layout plain-text report.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/ai-detect/internal/classifier"
)

const fileNameStamp = "20060102-150405"

// MarshalRecord serializes a single result as an indented JSON object.
// The preview representation is display-only and always omitted.
func MarshalRecord(result classifier.Result) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}

// MarshalRecords serializes one or more results as an indented JSON
// array, preserving input order.
func MarshalRecords(results []classifier.Result) ([]byte, error) {
	return json.MarshalIndent(results, "", "  ")
}

// Report renders a single result as a fixed-layout plain-text report,
// one field per line. Output is deterministic for identical input.
func Report(result classifier.Result) string {
	classification := "SYNTHETIC"
	if result.IsReal {
		classification = "AUTHENTIC"
	}

	var sb strings.Builder
	sb.WriteString("AI Image Detection Report\n")
	sb.WriteString("=========================\n")
	fmt.Fprintf(&sb, "File: %s\n", result.FileName)
	fmt.Fprintf(&sb, "Analyzed At: %s\n", result.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "Classification: %s\n", classification)
	fmt.Fprintf(&sb, "Confidence: %.1f%%\n", result.Confidence*100)
	fmt.Fprintf(&sb, "Risk Level: %s\n", result.RiskLevel)
	fmt.Fprintf(&sb, "Probability Real: %.1f%%\n", result.Probabilities.Real*100)
	fmt.Fprintf(&sb, "Probability Fake: %.1f%%\n", result.Probabilities.Fake*100)
	fmt.Fprintf(&sb, "Model: %s\n", result.ModelName)
	fmt.Fprintf(&sb, "Processing Time: %.2fs\n", result.ProcessingTime)
	sb.WriteString("Techniques:\n")
	for _, technique := range result.Techniques {
		fmt.Fprintf(&sb, "- %s\n", technique)
	}
	return sb.String()
}

// JSONFileName builds a timestamped artifact name for a JSON export.
func JSONFileName(now time.Time) string {
	return fmt.Sprintf("detection-results-%s.json", now.Format(fileNameStamp))
}

// ReportFileName builds a timestamped artifact name for a text report.
func ReportFileName(now time.Time) string {
	return fmt.Sprintf("detection-report-%s.txt", now.Format(fileNameStamp))
}

// WriteJSON writes the results to a timestamped file under dir and
// returns the path. A single result is written as one object, multiple
// results as an array.
func WriteJSON(dir string, results []classifier.Result, now time.Time) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(results) == 1 {
		data, err = MarshalRecord(results[0])
	} else {
		data, err = MarshalRecords(results)
	}
	if err != nil {
		return "", fmt.Errorf("serialize results: %w", err)
	}

	path := filepath.Join(dir, JSONFileName(now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// WriteReport writes the plain-text report for one result to a
// timestamped file under dir and returns the path.
func WriteReport(dir string, result classifier.Result, now time.Time) (string, error) {
	path := filepath.Join(dir, ReportFileName(now))
	if err := os.WriteFile(path, []byte(Report(result)), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
