package masterdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTSKU(t *testing.T) {
	require.Equal(t, "NOR-AP-000001", TSKU("Northwind", "Apparel", 1))
	require.Equal(t, "ABX-SH-000042", TSKU("a-b", "shoes", 42))
	require.Equal(t, "XXX-XX-000007", TSKU("", " ", 7))
	require.Equal(t, "NOR-AP-", TSKUPrefix("Northwind", "Apparel"))
}

func TestEAN13CheckDigit(t *testing.T) {
	// 4006381333931 is a published EAN-13 example.
	require.Equal(t, byte('1'), EAN13CheckDigit("400638133393"))
	require.True(t, ValidEAN13("4006381333931"))
	require.False(t, ValidEAN13("4006381333932"))
	require.False(t, ValidEAN13("40063813339"))
	require.False(t, ValidEAN13("40063813339a1"))
}

func TestBarcodeGenerator(t *testing.T) {
	g := &BarcodeGenerator{
		now:    func() time.Time { return time.UnixMilli(1767225600123) },
		random: func() int { return 42 },
	}
	code := g.Next()
	require.Len(t, code, 13)
	require.Equal(t, "29600123"+"0042", code[:12])
	require.True(t, ValidEAN13(code))
}

func TestNewBarcodeGeneratorProducesValidCodes(t *testing.T) {
	g := NewBarcodeGenerator()
	for i := 0; i < 50; i++ {
		require.True(t, ValidEAN13(g.Next()))
	}
}
