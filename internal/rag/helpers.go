package rag

import (
	"time"

	"github.com/akolanti/PDFChat/internal/metrics"
)

func timedStep(label string, fn func() error) error {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics(label, time.Since(start)) }()
	return fn()
}

func timedValue[T any](label string, fn func() (T, error)) (T, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics(label, time.Since(start)) }()
	return fn()
}
