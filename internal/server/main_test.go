package server

import (
	"os"
	"testing"

	"github.com/emrgen/canvas/internal/tester"
)

func TestMain(m *testing.M) {
	tester.Setup()
	code := m.Run()

	tester.RemoveDBFile()
	os.Exit(code)
}
