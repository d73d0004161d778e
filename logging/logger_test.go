package logging

import (
	"testing"

	"go.viam.com/test"
)

func TestNewLoggerDoesNotPanic(t *testing.T) {
	logger := NewLogger("test", DEBUG)
	test.That(t, logger, test.ShouldNotBeNil)
	logger.Debugw("hello", "key", "value")
	logger.Infow("hello")
	logger.Warnw("hello")
	logger.Errorw("hello")
}

func TestNamedReturnsDistinctLogger(t *testing.T) {
	logger := NewLogger("root", INFO)
	child := logger.Named("child")
	test.That(t, child, test.ShouldNotBeNil)
}
