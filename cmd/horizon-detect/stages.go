//go:build !gocv

package main

import "github.com/ironsheep/horizon-detect/internal/detection"

// detectorStages returns nil, selecting the pure Go pipeline.
func detectorStages() detection.Stages {
	return nil
}
