// Package pipeline turns a camera capture into a scored, persisted attempt.
package pipeline

import (
	"errors"

	"github.com/verte-zerg/signdrill/internal/model"
	"github.com/verte-zerg/signdrill/internal/signs"
)

// ErrDetectionFailed means the capture produced no letter. The attempt is
// not scored and does not count.
var ErrDetectionFailed = errors.New("detection failed")

// Reconcile picks the letter to score. A failed detection yields
// ErrDetectionFailed. A successful verification carrying a letter replaces
// the detector's letter; otherwise the decoded detector label stands.
func Reconcile(det model.DetectionResult, ver *model.VerificationResult) (model.Symbol, error) {
	if !det.Success {
		return "", ErrDetectionFailed
	}
	if ver != nil && ver.Success && ver.Letter != "" {
		if letter, err := signs.Decode(string(ver.Letter)); err == nil {
			return letter, nil
		}
	}
	letter, err := signs.Decode(det.Label)
	if err != nil {
		return "", errors.Join(ErrDetectionFailed, err)
	}
	return letter, nil
}
