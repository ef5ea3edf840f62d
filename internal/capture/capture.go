// Package capture enumerates the connected displays and grabs their content.
//
// Provider is the contract used by the detection cycle, Screenshot implements
// it on top of github.com/kbinani/screenshot. Captured images are handed over to
// the OCR engine as PNG files written by Persist.
package capture

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"slices"

	"github.com/CZERTAINLY/Spotter/internal/model"

	"github.com/kbinani/screenshot"
)

type Provider interface {
	// Displays returns identifiers of all displays to be captured.
	Displays(ctx context.Context) ([]model.ScreenID, error)
	// Capture returns the current content of a display.
	Capture(ctx context.Context, id model.ScreenID) (image.Image, error)
}

// Screenshot captures active displays of the local desktop session.
type Screenshot struct {
	only []int
}

// NewScreenshot returns a provider capturing all active displays, or only
// those listed in only.
func NewScreenshot(only ...int) Screenshot {
	return Screenshot{only: append([]int(nil), only...)}
}

func (s Screenshot) Displays(ctx context.Context) ([]model.ScreenID, error) {
	if err := ctx.Err(); err != nil {
		return nil, &model.CaptureError{Screen: -1, Err: err}
	}
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		return nil, &model.CaptureError{Screen: -1, Err: model.ErrNoDisplay}
	}

	ret := make([]model.ScreenID, 0, n)
	for i := range n {
		if len(s.only) > 0 && !slices.Contains(s.only, i) {
			continue
		}
		ret = append(ret, model.ScreenID(i))
	}
	if len(ret) == 0 {
		return nil, &model.CaptureError{
			Screen: -1,
			Err:    fmt.Errorf("none of configured displays %v is active (%d active): %w", s.only, n, model.ErrNoDisplay),
		}
	}
	return ret, nil
}

func (s Screenshot) Capture(ctx context.Context, id model.ScreenID) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, &model.CaptureError{Screen: id, Err: err}
	}
	img, err := screenshot.CaptureDisplay(int(id))
	if err != nil {
		return nil, &model.CaptureError{Screen: id, Err: err}
	}
	return img, nil
}

// Persist stores img as a PNG file.
func Persist(img image.Image, path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return &model.IOError{Op: "create", Path: path, Err: err}
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return &model.IOError{Op: "encode", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &model.IOError{Op: "close", Path: path, Err: err}
	}
	return nil
}
