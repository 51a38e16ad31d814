//go:build windows

package display

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"log"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
)

const (
	windowClass = "ScreenTranslateDisplay"
	windowStyle = win.WS_OVERLAPPED | win.WS_CAPTION | win.WS_SYSMENU | win.WS_MINIMIZEBOX
)

var (
	registerOnce sync.Once
	registerErr  error

	// active is only touched on the thread running Show's message loop.
	active *nativeWindow
)

// Window is the Win32 Displayer.
type Window struct {
	Options Options
}

func New(opts Options) *Window { return &Window{Options: opts} }

type nativeWindow struct {
	hwnd      win.HWND
	width     int
	height    int
	bgra      []byte
	click     image.Point
	clicked   bool
	destroyed bool
}

func (w *nativeWindow) Rect() image.Rectangle {
	var rc win.RECT
	if !win.GetClientRect(w.hwnd, &rc) {
		log.Printf("Display: GetClientRect failed")
		return image.Rectangle{}
	}
	origin := win.POINT{X: rc.Left, Y: rc.Top}
	win.ClientToScreen(w.hwnd, &origin)
	return image.Rect(int(origin.X), int(origin.Y), int(origin.X+rc.Right-rc.Left), int(origin.Y+rc.Bottom-rc.Top))
}

func (w *nativeWindow) Minimize() {
	win.ShowWindow(w.hwnd, win.SW_MINIMIZE)
}

func (w *nativeWindow) Close() {
	if !w.destroyed {
		win.DestroyWindow(w.hwnd)
	}
}

// Show blocks the calling goroutine, locked to its OS thread, until the
// window is clicked or ctx is cancelled.
func (d *Window) Show(ctx context.Context, img image.Image, anchor image.Point) (Interaction, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := registerClass(); err != nil {
		return Interaction{}, err
	}

	opts := d.Options
	if opts.Title == "" {
		opts.Title = DefaultOptions().Title
	}

	b := img.Bounds()
	w := &nativeWindow{width: b.Dx(), height: b.Dy(), bgra: toBGRA(img)}

	// Outer rectangle whose client area is exactly the image; rc.Left and
	// rc.Top come back as the frame offsets.
	rc := win.RECT{Right: int32(w.width), Bottom: int32(w.height)}
	win.AdjustWindowRect(&rc, windowStyle, false)
	origin := OuterOrigin(anchor, image.Pt(int(rc.Left), int(rc.Top)), opts.ChromeOffset)

	m := newMachine()
	active = w
	defer func() { active = nil }()

	w.hwnd = win.CreateWindowEx(
		win.WS_EX_TOPMOST,
		syscall.StringToUTF16Ptr(windowClass),
		syscall.StringToUTF16Ptr(opts.Title),
		windowStyle,
		int32(origin.X), int32(origin.Y), rc.Right-rc.Left, rc.Bottom-rc.Top,
		0, 0, win.GetModuleHandle(nil), nil,
	)
	if w.hwnd == 0 {
		return Interaction{}, fmt.Errorf("failed to create display window")
	}
	log.Printf("Display: window %dx%d, client at %v, frame at %v", w.width, w.height, anchor, origin)

	win.ShowWindow(w.hwnd, win.SW_SHOW)
	win.SetForegroundWindow(w.hwnd)
	win.UpdateWindow(w.hwnd)
	m.advance(Created, AwaitingClick)

	done := make(chan struct{})
	defer close(done)
	hwnd := w.hwnd
	go func() {
		select {
		case <-ctx.Done():
			win.PostMessage(hwnd, win.WM_CLOSE, 0, 0)
		case <-done:
		}
	}()

	var msg win.MSG
	for {
		ret := win.GetMessage(&msg, 0, 0, 0)
		if ret == 0 || ret == -1 {
			log.Printf("Display: message loop ended (%d)", ret)
			return m.abandon(w), fmt.Errorf("display message loop ended")
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)

		if w.clicked {
			result, _ := m.replay(w, w.click, opts)
			return result, nil
		}
		if w.destroyed {
			// Closed without a click: by the user or by ctx.
			return m.abandon(w), ctx.Err()
		}
	}
}

func registerClass() error {
	registerOnce.Do(func() {
		wc := win.WNDCLASSEX{
			CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
			Style:         win.CS_HREDRAW | win.CS_VREDRAW,
			LpfnWndProc:   syscall.NewCallback(wndProc),
			HInstance:     win.GetModuleHandle(nil),
			HCursor:       win.LoadCursor(0, win.MAKEINTRESOURCE(win.IDC_ARROW)),
			LpszClassName: syscall.StringToUTF16Ptr(windowClass),
		}
		if win.RegisterClassEx(&wc) == 0 {
			registerErr = fmt.Errorf("failed to register window class")
		}
	})
	return registerErr
}

func wndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	w := active
	if w == nil || w.hwnd != hwnd {
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	}

	switch msg {
	case win.WM_LBUTTONDOWN:
		if w.clicked {
			return 0
		}
		pt := win.POINT{
			X: int32(int16(win.LOWORD(uint32(lParam)))),
			Y: int32(int16(win.HIWORD(uint32(lParam)))),
		}
		win.ClientToScreen(hwnd, &pt)
		w.click = image.Pt(int(pt.X), int(pt.Y))
		w.clicked = true
		return 0

	case win.WM_PAINT:
		var ps win.PAINTSTRUCT
		hdc := win.BeginPaint(hwnd, &ps)
		paint(hdc, w)
		win.EndPaint(hwnd, &ps)
		return 0

	case win.WM_DESTROY:
		// No PostQuitMessage: a stray WM_QUIT would end the next Show's loop.
		w.destroyed = true
		return 0
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

func paint(hdc win.HDC, w *nativeWindow) {
	memDC := win.CreateCompatibleDC(hdc)
	defer win.DeleteDC(memDC)

	bi := win.BITMAPINFO{
		BmiHeader: win.BITMAPINFOHEADER{
			BiSize:        uint32(unsafe.Sizeof(win.BITMAPINFOHEADER{})),
			BiWidth:       int32(w.width),
			BiHeight:      -int32(w.height), // top-down
			BiPlanes:      1,
			BiBitCount:    32,
			BiCompression: win.BI_RGB,
		},
	}
	var bits unsafe.Pointer
	hBitmap := win.CreateDIBSection(memDC, &bi.BmiHeader, win.DIB_RGB_COLORS, &bits, 0, 0)
	if hBitmap == 0 {
		log.Printf("Display: CreateDIBSection failed")
		return
	}
	defer win.DeleteObject(win.HGDIOBJ(hBitmap))

	// 32bpp rows are already DWORD aligned.
	copy(unsafe.Slice((*byte)(bits), len(w.bgra)), w.bgra)

	old := win.SelectObject(memDC, win.HGDIOBJ(hBitmap))
	defer win.SelectObject(memDC, old)
	win.BitBlt(hdc, 0, 0, int32(w.width), int32(w.height), memDC, 0, 0, win.SRCCOPY)
}

// toBGRA converts img to the top-down BGRA layout of a 32bpp DIB.
func toBGRA(img image.Image) []byte {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	out := rgba.Pix
	for i := 0; i+3 < len(out); i += 4 {
		out[i], out[i+2] = out[i+2], out[i]
	}
	return out
}
