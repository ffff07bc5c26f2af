package constants

import "time"

// Application constants
const (
	AppName = "ocrkit"
	// Note: AppVersion is managed via build-time ldflags injection in main.go
)

// Exit codes. "Some files failed" is distinguished from "the invocation
// itself was wrong" so callers can script around partial failures.
const (
	ExitOK          = 0
	ExitFilesFailed = 1
	ExitUsageError  = 2
)

// File processing constants
const (
	// Default file permissions
	DefaultFilePermission = 0644
	DefaultDirPermission  = 0755

	// Output naming
	MarkdownExtension       = ".md"
	CSVExtension            = ".csv"
	DefaultMarkdownDirName  = "markdown_output"
	DefaultSearchableSuffix = "_ocr"

	// Retry settings
	DefaultMaxRetries = 3

	// Minimum extracted characters for a PDF text layer to be trusted
	DefaultMinTextThreshold = 10
)

// Concurrency and timing defaults
const (
	DefaultWorkers          = 4
	MaxWorkers              = 16
	DefaultBatchSize        = 16
	DefaultBenchTimeout     = 300 * time.Second
	TempNamespaceDirPrefix  = "ocrkit-"
	ProgressReportThreshold = 10 // report incremental progress for batches this large
)

// OCR processing constants
const (
	// Raster settings for recognition
	DefaultImageDPI = 300
	FastModeDPI     = 150

	// Default engine architectures. The detection architecture selects the
	// page segmentation profile; the recognition architecture names the
	// trained model used for character recognition.
	DefaultDetArch  = "auto"
	DefaultRecoArch = "eng"

	// Searchable PDF optimization levels (image recompression aggressiveness)
	MinOptimizeLevel     = 0
	MaxOptimizeLevel     = 3
	DefaultOptimizeLevel = 1
)

// File type groups. Extensions are stored without the leading dot.
var (
	ImageExtensions = []string{
		"jpg", "jpeg", "png", "gif", "bmp", "tiff", "tif",
	}

	PDFExtensions = []string{"pdf"}

	OfficeExtensions = []string{
		"doc", "docx", "ppt", "pptx", "rtf", "odt", "odp",
	}

	SpreadsheetExtensions = []string{
		"xlsx", "xlsm", "xls", "ods",
	}

	TextExtensions = []string{
		"txt", "md", "markdown", "html", "htm", "mhtml", "mht",
		"csv", "tsv", "json", "xml",
	}

	EbookExtensions = []string{"epub"}
)

// ConversionExtensions returns every extension the convert factory claims
func ConversionExtensions() []string {
	var exts []string
	exts = append(exts, PDFExtensions...)
	exts = append(exts, OfficeExtensions...)
	exts = append(exts, SpreadsheetExtensions...)
	exts = append(exts, TextExtensions...)
	exts = append(exts, EbookExtensions...)
	return exts
}

// OCRExtensions returns every extension the extract command accepts
func OCRExtensions() []string {
	var exts []string
	exts = append(exts, PDFExtensions...)
	exts = append(exts, ImageExtensions...)
	return exts
}
