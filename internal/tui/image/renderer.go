// Package image renders preview bytes for the terminal, either through a
// graphics protocol or as ANSI half blocks.
package image

import (
	"bytes"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"os"
	"strings"

	"github.com/BourgeoisBear/rasterm"
	"github.com/disintegration/imaging"
)

// 假设的单元格像素尺寸
const (
	CellPixelWidth  = 8
	CellPixelHeight = 16
)

// GraphicsProtocol 图形协议
type GraphicsProtocol string

const (
	ProtocolKitty GraphicsProtocol = "kitty"
	ProtocolITerm GraphicsProtocol = "iterm2"
	ProtocolSixel GraphicsProtocol = "sixel"
	ProtocolANSI  GraphicsProtocol = "ansi"
)

// RenderError 渲染错误类型
type RenderError struct {
	Protocol GraphicsProtocol
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render error with %s protocol: %v", e.Protocol, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Rendered is one encoded image and the cells it occupies
type Rendered struct {
	Data   string
	Cols   int
	Rows   int
	Width  int
	Height int
}

// Renderer encodes images for the detected or configured protocol
type Renderer struct {
	Protocol GraphicsProtocol
}

// NewRenderer picks the protocol from method ("auto", "kitty", "iterm2",
// "sixel" or "ansi")
func NewRenderer(method string) *Renderer {
	switch GraphicsProtocol(strings.ToLower(method)) {
	case ProtocolKitty:
		return &Renderer{Protocol: ProtocolKitty}
	case ProtocolITerm:
		return &Renderer{Protocol: ProtocolITerm}
	case ProtocolSixel:
		return &Renderer{Protocol: ProtocolSixel}
	case ProtocolANSI:
		return &Renderer{Protocol: ProtocolANSI}
	}
	return &Renderer{Protocol: DetectProtocol(os.Getenv)}
}

// DetectProtocol 根据环境变量判断终端支持的协议
func DetectProtocol(getenv func(string) string) GraphicsProtocol {
	term := strings.ToLower(getenv("TERM"))
	termProgram := strings.ToLower(getenv("TERM_PROGRAM"))

	switch {
	case getenv("KITTY_WINDOW_ID") != "" || strings.Contains(term, "kitty"):
		return ProtocolKitty
	case getenv("GHOSTTY") != "" || termProgram == "ghostty" || strings.Contains(term, "ghostty"):
		return ProtocolKitty
	case termProgram == "iterm.app" || termProgram == "wezterm":
		return ProtocolITerm
	}

	for _, sixelTerm := range []string{"xterm-sixel", "mlterm", "yaft"} {
		if strings.Contains(term, sixelTerm) {
			return ProtocolSixel
		}
	}
	return ProtocolANSI
}

// Clear removes graphics left on screen by the kitty protocol
func (r *Renderer) Clear() string {
	if r.Protocol == ProtocolKitty {
		return "\033_Ga=d\033\\"
	}
	return ""
}

// Render decodes data and fits it into cols x rows terminal cells
func (r *Renderer) Render(data []byte, cols, rows int) (*Rendered, error) {
	cols = max(cols, 1)
	rows = max(rows, 1)

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &RenderError{Protocol: r.Protocol, Err: fmt.Errorf("failed to decode image: %w", err)}
	}
	bounds := src.Bounds()
	out := &Rendered{Width: bounds.Dx(), Height: bounds.Dy()}

	if r.Protocol == ProtocolANSI {
		out.Data, out.Cols, out.Rows = renderANSI(src, cols, rows)
		return out, nil
	}

	fitted := imaging.Fit(src, cols*CellPixelWidth, rows*CellPixelHeight, imaging.Lanczos)
	fb := fitted.Bounds()
	out.Cols = max(1, (fb.Dx()+CellPixelWidth-1)/CellPixelWidth)
	out.Rows = max(1, (fb.Dy()+CellPixelHeight-1)/CellPixelHeight)

	var b strings.Builder
	switch r.Protocol {
	case ProtocolKitty:
		err = rasterm.KittyWriteImage(&b, fitted, rasterm.KittyImgOpts{
			DstCols: uint32(out.Cols),
			DstRows: uint32(out.Rows),
		})
	case ProtocolITerm:
		err = rasterm.ItermWriteImage(&b, fitted)
	case ProtocolSixel:
		// Sixel 需要调色板图像
		paletted := image.NewPaletted(fb, palette.Plan9)
		draw.FloydSteinberg.Draw(paletted, fb, fitted, fb.Min)
		err = rasterm.SixelWriteImage(&b, paletted)
	}
	if err != nil {
		return nil, &RenderError{Protocol: r.Protocol, Err: err}
	}
	out.Data = b.String()
	return out, nil
}

// renderANSI 使用 24 位颜色半块字符渲染，每个单元格上下两个像素
func renderANSI(src image.Image, cols, rows int) (string, int, int) {
	fitted := imaging.Fit(src, cols, rows*2, imaging.Box)
	b := fitted.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return "", 0, 0
	}

	var out strings.Builder
	outRows := (h + 1) / 2
	for row := 0; row < outRows; row++ {
		for x := 0; x < w; x++ {
			top := fitted.NRGBAAt(b.Min.X+x, b.Min.Y+row*2)
			bot := top
			if y := row*2 + 1; y < h {
				bot = fitted.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			}
			fmt.Fprintf(&out, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀", top.R, top.G, top.B, bot.R, bot.G, bot.B)
		}
		out.WriteString("\x1b[0m")
		if row < outRows-1 {
			out.WriteString("\n")
		}
	}
	return out.String(), w, outRows
}
