package main

import (
	"testing"

	_ "github.com/odyssey-erp/receiving/internal/testing/guard"
)

func TestMainSkipsInTestMode(t *testing.T) {
	main()
}
