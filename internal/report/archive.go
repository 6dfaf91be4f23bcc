package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// WriteReportFile archives a delivered report under outputDir and returns
// its path.
func WriteReportFile(content, outputDir string, reportTime time.Time) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("critico_%s.md", reportTime.Format("20060102_1504"))
	path := filepath.Join(outputDir, filename)
	return path, os.WriteFile(path, []byte(content+"\n"), 0644)
}
