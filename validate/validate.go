// Command validate provides a small CLI that validates formation JSON files
// in a directory (default ../formations). It checks:
//   - JSON structure and the formation name pattern
//   - Jersey numbers within 1..15
//   - Coordinates normalized to the field (0..1 on both axes)
//   - File name matching the formation name inside it
//   - Overlapping positions that would render players on top of each other
package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"huddle/formation"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateFormation loads and validates a single formation JSON file.
func validateFormation(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var f formation.Formation
	if err := json.Unmarshal(data, &f); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if err := f.Validate(); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
	}

	// The store derives file names from formation names; a mismatch means
	// the file was renamed by hand and will shadow or lose the formation.
	expected := strings.TrimSuffix(result.File, ".json")
	if f.Name != expected {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Name %q does not match file name (expected %q)", f.Name, expected))
	}

	if len(f.Positions) == 0 {
		result.Valid = false
		result.Errors = append(result.Errors, "Formation places no players")
	}

	if overlaps := checkOverlaps(f.Positions); len(overlaps) > 0 {
		result.Valid = false
		result.Errors = append(result.Errors, overlaps...)
	}

	// Add informational data
	if result.Valid {
		numbers := make([]int, 0, len(f.Positions))
		for number := range f.Positions {
			numbers = append(numbers, number)
		}
		sort.Ints(numbers)

		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", f.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Positions: %d", len(f.Positions)))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Numbers: %v", numbers))
		if len(f.Positions) == 15 {
			result.Errors = append(result.Errors, "✓ Full XV placed")
		}
	}

	return result
}

// checkOverlaps reports pairs of players placed closer than a rendered
// jersey marker, which draws them on top of each other on the host screen.
func checkOverlaps(positions map[int]formation.Position) []string {
	const minSeparation = 0.02

	numbers := make([]int, 0, len(positions))
	for number := range positions {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)

	var errs []string
	for i, a := range numbers {
		for _, b := range numbers[i+1:] {
			pa, pb := positions[a], positions[b]
			if math.Hypot(pa.X-pb.X, pa.Y-pb.Y) < minSeparation {
				errs = append(errs, fmt.Sprintf("Players %d and %d overlap at (%.2f, %.2f)", a, b, pa.X, pa.Y))
			}
		}
	}
	return errs
}

// main scans the formations directory for *.json files and validates each
// one, printing a concise report and exiting with non-zero status if any
// are invalid.
func main() {
	formationsDir := "../formations"
	if len(os.Args) > 1 {
		formationsDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(formationsDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding formation files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No formation files found in %s\n", formationsDir)
		return
	}

	allValid := true
	for _, file := range files {
		result := validateFormation(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All formations are valid!")
	} else {
		fmt.Println("❌ Some formations have errors")
		os.Exit(1)
	}
}
