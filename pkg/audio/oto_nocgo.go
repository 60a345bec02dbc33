//go:build nocgo
// +build nocgo

package audio

import "errors"

// newProductionBackend is stubbed out for builds without audio device
// support; New(KindAuto) falls back to the mock backend.
func newProductionBackend() (Backend, error) {
	return nil, errors.New("audio output not available in nocgo build")
}
