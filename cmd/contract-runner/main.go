package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/gotrs-io/gotrs-feedback/internal/contract"
	"github.com/gotrs-io/gotrs-feedback/internal/logger"
)

func main() {
	reportPath := flag.String("report", "contract-test-report.json", "Where to write the JSON report")
	delay := flag.Duration("delay", 10*time.Millisecond, "Stub response delay")
	flag.Parse()

	code := run(*reportPath, *delay)
	_ = logger.Sync()
	os.Exit(code)
}

// run executes the default scenarios and returns the process exit code.
func run(reportPath string, delay time.Duration) int {
	runner := contract.NewRunner(delay, logger.Get())
	report := runner.Run(context.Background(), contract.DefaultScenarios())

	printReport(report)

	if err := saveReport(reportPath, report); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save report: %v\n", err)
	}

	if report.Failed > 0 {
		return 1
	}
	return 0
}

func printReport(report contract.Report) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("                 CONTRACT TEST REPORT")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Timestamp: %s\n", report.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("Total Tests: %d\n", report.TotalTests)
	fmt.Printf("Passed: %d\n", report.Passed)
	fmt.Printf("Failed: %d\n", report.Failed)
	fmt.Printf("Success Rate: %.1f%%\n", report.SuccessRate)
	fmt.Println(strings.Repeat("-", 60))

	for _, result := range report.Results {
		status := "PASS"
		if !result.Passed {
			status = "FAIL"
		}

		fmt.Printf("%s %s %s [%s]\n", status, result.Method, result.Endpoint, result.Name)
		fmt.Printf("   %s\n", result.Description)

		if result.Error != "" {
			fmt.Printf("   Error: %s\n", result.Error)
		}
		for _, v := range result.Violations {
			fmt.Printf("   %s: %s\n", v.Path, v.Message)
		}
		fmt.Println()
	}

	fmt.Println(strings.Repeat("=", 60))

	if report.Failed > 0 {
		fmt.Printf("\n%d contract(s) failed\n", report.Failed)
	} else {
		fmt.Println("\nAll contracts passed!")
	}
}

func saveReport(path string, report contract.Report) error {
	data, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
