//go:build gocv

package main

import "github.com/ironsheep/horizon-detect/internal/detection"

func detectorStages() detection.Stages {
	return detection.OpenCVStages{}
}
