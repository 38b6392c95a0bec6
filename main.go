package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gofeat/elfvw"
	"gofeat/extract"
	"gofeat/pevw"
	"gofeat/view"
)

// Configuration of the run
type Config struct {
	Format      string
	JSON        bool
	Verbose     bool
	Parallel    bool
	MaxWorkers  int
	ShowHelp    bool
	ShowVersion bool
}

// Processing statistics
type ProcessStats struct {
	mu        sync.Mutex
	Processed int
	Failed    int
	Features  int
}

const versionString = "gofeat, version 0.1"

var (
	config = &Config{}
	stats  = &ProcessStats{}

	// Command flags
	formatFlag  = flag.String("format", "auto", "Input format: auto, pe, elf, sc32, sc64, raw")
	jsonOut     = flag.Bool("json", false, "Emit observations as JSON lines")
	verbose     = flag.Bool("v", false, "Enable verbose output")
	parallel    = flag.Bool("j", false, "Process files in parallel")
	maxWorkers  = flag.Int("workers", 4, "Maximum number of parallel workers (default: 4)")
	showHelp    = flag.Bool("help", false, "Display this help and exit")
	showVersion = flag.Bool("version", false, "Display version information and exit")
)

// Custom errors
var (
	ErrUnknownInput = errors.New("could not determine input format")
)

// ProcessResult is the outcome of extracting one file
type ProcessResult struct {
	Filename string
	Features int
	Output   string
	Error    error
}

func init() {
	flag.Usage = customUsage
}

func customUsage() {
	_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] FILE...\n", os.Args[0])
	_, _ = fmt.Fprintln(os.Stderr, "Extract file-level features from binary artifacts for capability matching.")
	_, _ = fmt.Fprintln(os.Stderr, "")
	_, _ = fmt.Fprintln(os.Stderr, "Options:")
	flag.PrintDefaults()
	_, _ = fmt.Fprintln(os.Stderr, "")
	_, _ = fmt.Fprintln(os.Stderr, "Examples:")
	_, _ = fmt.Fprintf(os.Stderr, "  %s sample.exe                 # Auto-detected format\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  %s -format sc64 payload.bin   # Treat input as 64-bit shellcode\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  %s -j -workers=8 *.dll        # Parallel processing with 8 workers\n", os.Args[0])
}

func parseFlags() {
	flag.Parse()

	config.Format = *formatFlag
	config.JSON = *jsonOut
	config.Verbose = *verbose
	config.Parallel = *parallel
	config.MaxWorkers = *maxWorkers
	config.ShowHelp = *showHelp
	config.ShowVersion = *showVersion

	if config.MaxWorkers < 1 {
		config.MaxWorkers = 1
	}
	if config.MaxWorkers > 16 {
		config.MaxWorkers = 16
	}
}

// openView builds the backend view for raw file bytes, honoring the
// -format flag and falling back to magic sniffing.
func openView(raw []byte) (view.View, error) {
	switch config.Format {
	case "pe":
		return pevw.New(raw)
	case "elf":
		return elfvw.New(raw)
	case "sc32":
		return view.NewMappedView(raw, view.ArchX86), nil
	case "sc64":
		return view.NewMappedView(raw, view.ArchX8664), nil
	case "raw":
		return view.NewRawView(raw), nil
	case "auto":
		if pevw.Detect(raw) {
			return pevw.New(raw)
		}
		if elfvw.Detect(raw) {
			return elfvw.New(raw)
		}
		if pevw.DetectCOFF(raw) {
			return pevw.New(raw)
		}
		return nil, ErrUnknownInput
	default:
		return nil, fmt.Errorf("unknown format %q", config.Format)
	}
}

type jsonObservation struct {
	Feature string `json:"feature"`
	Value   string `json:"value"`
	Address string `json:"address,omitempty"`
}

func processFile(filename string) *ProcessResult {
	result := &ProcessResult{Filename: filename}

	fileInfo, err := os.Stat(filename)
	if err != nil {
		result.Error = fmt.Errorf("cannot access file: %w", err)
		return result
	}
	if !fileInfo.Mode().IsRegular() {
		result.Error = fmt.Errorf("not a regular file")
		return result
	}

	raw, err := os.ReadFile(filename)
	if err != nil {
		result.Error = fmt.Errorf("failed to read file: %w", err)
		return result
	}

	v, err := openView(raw)
	if err != nil {
		result.Error = err
		return result
	}

	var out strings.Builder
	for obs, err := range extract.FileFeatures(v) {
		if err != nil {
			result.Error = err
			break
		}
		result.Features++
		if config.JSON {
			line, _ := json.Marshal(jsonObservation{
				Feature: obs.Feature.Kind.String(),
				Value:   obs.Feature.Value,
				Address: obs.Address.String(),
			})
			out.Write(line)
			out.WriteByte('\n')
		} else {
			fmt.Fprintf(&out, "%s\n", obs)
		}
	}
	result.Output = out.String()
	return result
}

func printResult(result *ProcessResult) {
	if len(flag.Args()) > 1 && !config.JSON {
		fmt.Printf("%s:\n", filepath.Base(result.Filename))
	}
	fmt.Print(result.Output)
	if result.Error != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(result.Filename), result.Error)
	} else if config.Verbose {
		fmt.Printf("  %d features from %s\n", result.Features, filepath.Base(result.Filename))
	}
}

func processFilesSequential(filenames []string) []ProcessResult {
	results := make([]ProcessResult, 0, len(filenames))
	for _, filename := range filenames {
		result := processFile(filename)
		results = append(results, *result)
		printResult(result)
	}
	return results
}

func processFilesParallel(filenames []string) []ProcessResult {
	jobs := make(chan string, len(filenames))
	results := make(chan ProcessResult, len(filenames))

	var wg sync.WaitGroup
	for i := 0; i < config.MaxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for filename := range jobs {
				result := processFile(filename)
				results <- *result
			}
		}()
	}

	go func() {
		for _, filename := range filenames {
			jobs <- filename
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var allResults []ProcessResult
	for result := range results {
		allResults = append(allResults, result)
		printResult(&result)
	}
	return allResults
}

func updateStats(results []ProcessResult) {
	stats.mu.Lock()
	defer stats.mu.Unlock()

	for _, result := range results {
		stats.Processed++
		if result.Error != nil {
			stats.Failed++
		}
		stats.Features += result.Features
	}
}

func printSummary() {
	if stats.Processed == 0 {
		return
	}
	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Files processed: %d\n", stats.Processed)
	fmt.Printf("  Successful: %d\n", stats.Processed-stats.Failed)
	fmt.Printf("  Failed: %d\n", stats.Failed)
	fmt.Printf("  Features extracted: %d\n", stats.Features)
}

func main() {
	parseFlags()

	if config.ShowHelp {
		flag.Usage()
		os.Exit(0)
	}
	if config.ShowVersion {
		fmt.Println(versionString)
		os.Exit(0)
	}

	filenames := flag.Args()
	if len(filenames) == 0 {
		flag.Usage()
		os.Exit(0)
	}

	var results []ProcessResult
	if config.Parallel && len(filenames) > 1 {
		if config.Verbose {
			fmt.Printf("Processing %d files with %d workers...\n", len(filenames), config.MaxWorkers)
		}
		results = processFilesParallel(filenames)
	} else {
		results = processFilesSequential(filenames)
	}

	updateStats(results)

	if (len(filenames) > 1 || config.Verbose) && !config.JSON {
		printSummary()
	}

	if stats.Failed > 0 {
		os.Exit(1)
	}
}
