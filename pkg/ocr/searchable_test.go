package ocr

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const samplePageHOCR = `<div class='ocr_page' id='page_1' title='image ""; bbox 0 0 2480 3508'>
 <div class='ocr_carea' id='block_1_1'>
  <p class='ocr_par' id='par_1_1'>
   <span class='ocr_line' id='line_1_1'><span class='ocrx_word' id='word_1_1'>hello</span></span>
  </p>
 </div>
</div>`

func TestExtractPageDiv(t *testing.T) {
	wrapped := "<html><body>" + samplePageHOCR + "</body></html>"
	got := extractPageDiv(wrapped)
	assert.True(t, strings.HasPrefix(got, "<div class='ocr_page'"))
	assert.True(t, strings.HasSuffix(got, "</div>"))
	assert.Contains(t, got, "word_1_1")
}

func TestExtractPageDivWithoutPageMarkup(t *testing.T) {
	fragment := "<p>no page div here</p>"
	assert.Equal(t, fragment, extractPageDiv(fragment))
}

func TestRenumberPage(t *testing.T) {
	renumbered := renumberPage(samplePageHOCR, 7)
	assert.Contains(t, renumbered, "id='page_7'")
	assert.NotContains(t, renumbered, "id='page_1'")
}

func TestAssembleHOCR(t *testing.T) {
	doc := assembleHOCR([]string{samplePageHOCR, samplePageHOCR, samplePageHOCR})

	assert.Contains(t, doc, "<html")
	assert.Contains(t, doc, "</html>")
	assert.Contains(t, doc, `ocr-system`)
	assert.Contains(t, doc, "id='page_1'")
	assert.Contains(t, doc, "id='page_2'")
	assert.Contains(t, doc, "id='page_3'")
	assert.Equal(t, 3, strings.Count(doc, "class='ocr_page'"))
}

func TestIsMostlyBitonal(t *testing.T) {
	bitonal := image.NewGray(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if (x+y)%7 == 0 {
				bitonal.SetGray(x, y, color.Gray{Y: 0})
			} else {
				bitonal.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	assert.True(t, isMostlyBitonal(bitonal))

	midtones := image.NewGray(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			midtones.SetGray(x, y, color.Gray{Y: 128})
		}
	}
	assert.False(t, isMostlyBitonal(midtones))
}

func TestThresholdImage(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 2, 1))
	src.SetGray(0, 0, color.Gray{Y: 40})
	src.SetGray(1, 0, color.Gray{Y: 200})

	out := thresholdImage(src).(*image.Gray)
	assert.Equal(t, uint8(0), out.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), out.GrayAt(1, 0).Y)
}
