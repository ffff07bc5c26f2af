package types

import "time"

// Status represents the final outcome of processing a single file
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusSkipped Status = "skipped"
)

// ProcessorKind identifies one of the closed set of processing strategies.
// Selection happens once per file via a pure mapping from extension to kind.
type ProcessorKind string

const (
	KindMarkdown ProcessorKind = "markdown" // direct document-to-markdown conversion
	KindExcel    ProcessorKind = "excel"    // spreadsheet to CSV/markdown tables
	KindOCR      ProcessorKind = "ocr"      // detection + recognition over rasterized pages
)

// Device identifies the execution device used for OCR inference
type Device string

const (
	DeviceGPU Device = "gpu"
	DeviceCPU Device = "cpu"
)

// ProcessingResult holds the outcome of processing one input file.
// It is created by a processor at the end of its run and never mutated.
type ProcessingResult struct {
	Source       string        `json:"source"`
	Output       string        `json:"output,omitempty"`
	Status       Status        `json:"status"`
	Processor    ProcessorKind `json:"processor,omitempty"`
	Device       Device        `json:"device,omitempty"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration_ms"`
	FallbackUsed bool          `json:"fallback_used,omitempty"`
	TimedOut     bool          `json:"timed_out,omitempty"`
}

// Succeeded reports whether the file was processed successfully
func (r *ProcessingResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// BatchSummary aggregates the outcome of a batch run
type BatchSummary struct {
	Total         int                   `json:"total"`
	Succeeded     int                   `json:"succeeded"`
	Failed        int                   `json:"failed"`
	Skipped       int                   `json:"skipped"`
	Timeouts      int                   `json:"timeouts"`
	SuccessRate   float64               `json:"success_rate"`
	TotalDuration time.Duration         `json:"total_duration"`
	AvgDuration   time.Duration         `json:"avg_duration"`
	ByProcessor   map[ProcessorKind]int `json:"by_processor"`
	CleanupErrors int                   `json:"cleanup_errors"`
}
