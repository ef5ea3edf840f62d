package detect_test

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/CZERTAINLY/Spotter/internal/model"
)

// screens is a fake capture.Provider with a fixed number of displays
type screens struct {
	n   int
	err error
}

func (s screens) Displays(context.Context) ([]model.ScreenID, error) {
	if s.err != nil {
		return nil, &model.CaptureError{Screen: -1, Err: s.err}
	}
	ret := make([]model.ScreenID, s.n)
	for i := range s.n {
		ret[i] = model.ScreenID(i)
	}
	return ret, nil
}

func (s screens) Capture(_ context.Context, id model.ScreenID) (image.Image, error) {
	return image.NewGray(image.Rect(0, 0, 2+int(id), 2)), nil
}

// recognizer is a fake ocr.Recognizer returning text per artifact name
type recognizer struct {
	texts map[string]string
	errs  map[string]error
	block map[string]bool

	mx      sync.Mutex
	seen    []string
	started chan string
}

func (r *recognizer) Recognize(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", errors.Join(errors.New("artifact missing during recognition"), err)
	}
	name := filepath.Base(path)
	r.mx.Lock()
	r.seen = append(r.seen, path)
	r.mx.Unlock()
	if r.started != nil {
		r.started <- name
	}
	if r.block[name] {
		<-ctx.Done()
		return "", &model.RecognitionError{Path: path, Err: ctx.Err()}
	}
	if err := r.errs[name]; err != nil {
		return "", &model.RecognitionError{Path: path, Stderr: "engine failed", Err: err}
	}
	return r.texts[name], nil
}

func (r *recognizer) paths() []string {
	r.mx.Lock()
	defer r.mx.Unlock()
	return append([]string(nil), r.seen...)
}
