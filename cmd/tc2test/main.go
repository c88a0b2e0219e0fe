// tc2test runs the end-to-end suite: every .tc file under testdata/ is
// compiled, linked, executed, and its exit status compared against the
// expectation recorded in the file's comment header. The language itself
// has no comments, so leading '//' lines are stripped before the source
// reaches the compiler.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

// Expectation is parsed from a test file's '//' header lines.
type Expectation struct {
	Status    int    `json:"status"`
	ErrorKind string `json:"error_kind,omitempty"` // expected compile failure
	Skip      string `json:"skip,omitempty"`
}

type FileTestResult struct {
	File        string      `json:"file"`
	Status      string      `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message     string      `json:"message,omitempty"`
	Diff        string      `json:"diff,omitempty"`
	Expectation Expectation `json:"expectation"`
	Compile     *Execution  `json:"compile,omitempty"`
	Run         *Execution  `json:"run,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	compiler   = flag.String("compiler", "./tc2", "Path to the compiler under test.")
	testFiles  = flag.String("test-files", "testdata/*.tc", "Glob pattern(s) for files to test (space-separated).")
	skipFiles  = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout    = flag.Duration("timeout", 5*time.Second, "Timeout for each command execution.")
	jobs       = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose    = flag.Bool("v", false, "Enable verbose logging.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	tempDir, err := os.MkdirTemp("", "tc2test-*")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to create temp directory: %v\n", cRed, cNone, err)
	}
	defer os.RemoveAll(tempDir)
	setupInterruptHandler(tempDir)

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		abs, err := filepath.Abs(f)
		if err == nil {
			skipList[abs] = true
		}
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < *jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(file, tempDir)
			}
		}()
	}

	// Feed the tasks channel, skipping files with identical content.
	seenHashes := make(map[string]string)
	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		content, err := os.ReadFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file: %v", err)}
			continue
		}
		fileHash := fmt.Sprintf("%x", xxhash.Sum64(content))
		if originalFile, seen := seenHashes[fileHash]; seen {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", originalFile)}
			continue
		}
		seenHashes[fileHash] = file
		tasks <- file
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}
	sort.Slice(allResults, func(i, j int) bool { return allResults[i].File < allResults[j].File })

	printSummary(allResults)
	resultsMap := writeJSONReport(allResults)
	if hasFailures(resultsMap) {
		os.Exit(1)
	}
}

func setupInterruptHandler(tempDir string) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		os.RemoveAll(tempDir)
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled. Cleaning up...\n", cYellow, cNone)
		os.Exit(1)
	}()
}

// parseTestFile splits the '//' header from the program text and decodes
// the expectation lines. Unknown header keys are an error so typos in
// test files are caught immediately.
func parseTestFile(content string) (Expectation, string, error) {
	exp := Expectation{}
	var body strings.Builder
	inHeader := true

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if inHeader && strings.HasPrefix(strings.TrimSpace(line), "//") {
			directive := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "//"))
			if directive == "" {
				continue
			}
			key, value, found := strings.Cut(directive, ":")
			if !found {
				return exp, "", fmt.Errorf("malformed header line: %q", line)
			}
			value = strings.TrimSpace(value)
			switch strings.TrimSpace(key) {
			case "status":
				status, err := strconv.Atoi(value)
				if err != nil {
					return exp, "", fmt.Errorf("bad status value %q: %v", value, err)
				}
				exp.Status = status
			case "error":
				exp.ErrorKind = value
			case "skip":
				exp.Skip = value
			default:
				return exp, "", fmt.Errorf("unknown header key %q", key)
			}
			continue
		}
		inHeader = false
		body.WriteString(line)
		body.WriteString("\n")
	}
	return exp, body.String(), scanner.Err()
}

func testFile(file, tempDir string) *FileTestResult {
	content, err := os.ReadFile(file)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file: %v", err)}
	}
	exp, body, err := parseTestFile(string(content))
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Bad test header: %v", err), Expectation: exp}
	}
	if exp.Skip != "" {
		return &FileTestResult{File: file, Status: "SKIP", Message: exp.Skip, Expectation: exp}
	}

	// Deterministic artifact names from the stripped body's hash.
	bodyHash := fmt.Sprintf("%x", xxhash.Sum64String(body))
	srcPath := filepath.Join(tempDir, bodyHash+".tc")
	binPath := filepath.Join(tempDir, bodyHash)
	if err := os.WriteFile(srcPath, []byte(body), 0o644); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to write stripped source: %v", err), Expectation: exp}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	compileResult := executeCommand(ctx, *compiler, "-b", binPath, srcPath)

	if exp.ErrorKind != "" {
		if compileResult.ExitCode == 0 {
			return &FileTestResult{
				File:        file,
				Status:      "FAIL",
				Message:     fmt.Sprintf("Expected a %s error, but compilation succeeded", exp.ErrorKind),
				Expectation: exp,
				Compile:     &compileResult,
			}
		}
		if !strings.Contains(compileResult.Stderr, exp.ErrorKind) {
			return &FileTestResult{
				File:        file,
				Status:      "FAIL",
				Message:     fmt.Sprintf("Compilation failed, but stderr does not mention %q", exp.ErrorKind),
				Diff:        fmt.Sprintf("Compiler STDERR:\n%s", compileResult.Stderr),
				Expectation: exp,
				Compile:     &compileResult,
			}
		}
		return &FileTestResult{File: file, Status: "PASS", Message: "Compilation failed as expected", Expectation: exp, Compile: &compileResult}
	}

	if compileResult.ExitCode != 0 || compileResult.TimedOut {
		return &FileTestResult{
			File:        file,
			Status:      "FAIL",
			Message:     "Compilation failed",
			Diff:        fmt.Sprintf("Compiler STDERR:\n%s", compileResult.Stderr),
			Expectation: exp,
			Compile:     &compileResult,
		}
	}

	runCtx, runCancel := context.WithTimeout(context.Background(), *timeout)
	defer runCancel()
	runResult := executeCommand(runCtx, binPath)

	if runResult.TimedOut {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Program timed out", Expectation: exp, Compile: &compileResult, Run: &runResult}
	}
	if runResult.ExitCode != exp.Status {
		return &FileTestResult{
			File:        file,
			Status:      "FAIL",
			Message:     "Exit status mismatch",
			Diff:        cmp.Diff(exp.Status, runResult.ExitCode),
			Expectation: exp,
			Compile:     &compileResult,
			Run:         &runResult,
		}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: fmt.Sprintf("Exited with status %d", runResult.ExitCode), Expectation: exp, Compile: &compileResult, Run: &runResult}
}

func executeCommand(ctx context.Context, command string, args ...string) Execution {
	startTime := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Execution{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(startTime),
	}

	if ctx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
	} else if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -2
			result.Stderr += "\nExecution error: " + err.Error()
		}
	}
	return result
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	for _, result := range results {
		switch result.Status {
		case "PASS":
			passed++
			if *verbose {
				fmt.Printf("[%sPASS%s] %s%s%s: %s (%s)\n", cGreen, cNone, cCyan, result.File, cNone, result.Message, formatDuration(result))
			}
		case "FAIL":
			failed++
			fmt.Printf("[%sFAIL%s] %s%s%s: %s\n", cRed, cNone, cCyan, result.File, cNone, result.Message)
			if result.Diff != "" {
				fmt.Println(formatDiff(result.Diff))
			}
		case "SKIP":
			skipped++
			if *verbose {
				fmt.Printf("[%sSKIP%s] %s%s%s: %s\n", cYellow, cNone, cCyan, result.File, cNone, result.Message)
			}
		case "ERROR":
			errored++
			fmt.Printf("[%sERROR%s] %s%s%s: %s\n", cRed, cNone, cCyan, result.File, cNone, result.Message)
		}
	}
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
}

func formatDuration(r *FileTestResult) string {
	var total time.Duration
	if r.Compile != nil {
		total += r.Compile.Duration
	}
	if r.Run != nil {
		total += r.Run.Duration
	}
	if total < time.Millisecond {
		return fmt.Sprintf("%dµs", total.Microseconds())
	}
	return fmt.Sprintf("%dms", total.Milliseconds())
}

func formatDiff(diff string) string {
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmed, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line)
		builder.WriteString(cNone)
		builder.WriteString("\n")
	}
	return builder.String()
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}
	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return resultsMap
	}
	if err := os.WriteFile(*outputJSON, jsonData, 0o644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, *outputJSON, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", *outputJSON)
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, result := range results {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			absFile, err := filepath.Abs(file)
			if err != nil {
				continue
			}
			if !seen[absFile] {
				if info, err := os.Stat(absFile); err == nil && info.Mode().IsRegular() {
					allFiles = append(allFiles, absFile)
					seen[absFile] = true
				}
			}
		}
	}
	return allFiles, nil
}
