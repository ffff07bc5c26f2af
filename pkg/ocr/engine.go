package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ocrkit/ocrkit/pkg/config"
	"github.com/ocrkit/ocrkit/pkg/constants"
	"github.com/ocrkit/ocrkit/pkg/interfaces"
	"github.com/ocrkit/ocrkit/pkg/logger"
	"github.com/ocrkit/ocrkit/pkg/types"
	"github.com/ocrkit/ocrkit/pkg/utils"
)

// gpuProbe reports whether a GPU inference backend is usable. Tesseract
// ships without a GPU path in common builds, so the default probe always
// fails and inference runs on CPU. Tests override this to exercise the
// fallback recording.
var gpuProbe = func() error {
	return utils.NewDeviceError("no usable GPU backend detected", nil)
}

// TesseractEngine runs detection + recognition through a pool of gosseract
// clients. Clients are created once when the engine loads and reused across
// every page of the batch; concurrent Recognize calls each borrow one
// client from the pool.
type TesseractEngine struct {
	device  types.Device
	lang    string
	segMode gosseract.PageSegMode
	clients chan *gosseract.Client
	logger  *logger.Logger
}

var _ interfaces.OCREngine = (*TesseractEngine)(nil)

// NewTesseractEngine loads the recognition model and prepares the client
// pool. Model load failures are fatal for the whole invocation. Unless CPU
// is forced, the engine probes for a GPU and falls back to CPU when none is
// usable, recording the device actually used.
func NewTesseractEngine(cfg *config.Config, log *logger.Logger) (*TesseractEngine, error) {
	device := resolveDevice(cfg.UseCPU, log)

	if cfg.Threads > 0 {
		// Tesseract reads its OpenMP thread budget from the environment
		os.Setenv("OMP_THREAD_LIMIT", strconv.Itoa(cfg.Threads))
		os.Setenv("OMP_NUM_THREADS", strconv.Itoa(cfg.Threads))
	}

	lang := cfg.RecoArch
	if lang == "" || lang == "auto" {
		lang = constants.DefaultRecoArch
	}
	segMode := segModeFor(cfg.DetArch, cfg.FastMode)

	poolSize := cfg.Workers
	if poolSize < 1 {
		poolSize = 1
	}

	engine := &TesseractEngine{
		device:  device,
		lang:    lang,
		segMode: segMode,
		clients: make(chan *gosseract.Client, poolSize),
		logger:  log,
	}

	for i := 0; i < poolSize; i++ {
		client, err := engine.newClient()
		if err != nil {
			engine.Close()
			return nil, err
		}
		engine.clients <- client
	}

	log.Info("Loaded tesseract engine: lang=%s device=%s pool=%d", lang, device, poolSize)
	return engine, nil
}

// newClient creates one configured gosseract client
func (e *TesseractEngine) newClient() (*gosseract.Client, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage(e.lang); err != nil {
		client.Close()
		return nil, utils.NewModelLoadError(
			fmt.Sprintf("failed to load recognition model %q", e.lang), err)
	}
	if err := client.SetPageSegMode(e.segMode); err != nil {
		client.Close()
		return nil, utils.NewModelLoadError("failed to configure page segmentation", err)
	}

	return client, nil
}

// resolveDevice picks the inference device. Forcing CPU skips the probe;
// otherwise the GPU probe is retried on recoverable failures before falling
// back to CPU with a warning, and the batch continues.
func resolveDevice(useCPU bool, log *logger.Logger) types.Device {
	if useCPU {
		return types.DeviceCPU
	}
	if err := utils.WithRetry(gpuProbe, constants.DefaultMaxRetries); err != nil {
		log.Warn("GPU unavailable, falling back to CPU: %v", err)
		return types.DeviceCPU
	}
	return types.DeviceGPU
}

// segModeFor maps the detection architecture name to a tesseract page
// segmentation mode. Fast mode prefers the cheaper sparse profile.
func segModeFor(detArch string, fastMode bool) gosseract.PageSegMode {
	switch strings.ToLower(detArch) {
	case "sparse":
		return gosseract.PSM_SPARSE_TEXT
	case "block":
		return gosseract.PSM_SINGLE_BLOCK
	case "", "auto":
		if fastMode {
			return gosseract.PSM_SPARSE_TEXT
		}
		return gosseract.PSM_AUTO
	default:
		return gosseract.PSM_AUTO
	}
}

// Name returns the engine name
func (e *TesseractEngine) Name() string {
	return "tesseract"
}

// Device returns the device inference actually runs on
func (e *TesseractEngine) Device() types.Device {
	return e.device
}

// Recognize runs detection + recognition on a single page image
func (e *TesseractEngine) Recognize(ctx context.Context, img image.Image) (interfaces.Recognition, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return interfaces.Recognition{}, utils.NewOCRError("failed to encode page image", err)
	}

	var client *gosseract.Client
	select {
	case client = <-e.clients:
	case <-ctx.Done():
		return interfaces.Recognition{}, ctx.Err()
	}
	defer func() { e.clients <- client }()

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return interfaces.Recognition{}, utils.NewOCRError("failed to set page image", err)
	}

	text, err := client.Text()
	if err != nil {
		return interfaces.Recognition{}, utils.NewOCRError("text recognition failed", err)
	}

	hocr, err := client.HOCRText()
	if err != nil {
		return interfaces.Recognition{}, utils.NewOCRError("hocr recognition failed", err)
	}

	return interfaces.Recognition{
		Text: strings.TrimSpace(text),
		HOCR: hocr,
	}, nil
}

// Close releases every pooled client
func (e *TesseractEngine) Close() error {
	var firstErr error
	for {
		select {
		case client := <-e.clients:
			if err := client.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		default:
			return firstErr
		}
	}
}
