package masterdata

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode"
)

// barcodePrefix is the in-store EAN-13 prefix range.
const barcodePrefix = "29"

// maxCodeAttempts bounds TSKU/barcode allocation retries on collisions.
const maxCodeAttempts = 5

// TSKU builds "BRD-CA-000001": three letters of the brand, two of the
// category and a six digit sequence.
func TSKU(brand, category string, seq int) string {
	return fmt.Sprintf("%s%06d", TSKUPrefix(brand, category), seq)
}

// TSKUPrefix is the "BRD-CA-" part shared by every TSKU of a brand and
// category pair.
func TSKUPrefix(brand, category string) string {
	return codeLetters(brand, 3) + "-" + codeLetters(category, 2) + "-"
}

func codeLetters(name string, n int) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if b.Len() >= n {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	for b.Len() < n {
		b.WriteByte('X')
	}
	return b.String()
}

// BarcodeGenerator produces EAN-13 barcodes from the clock and a random part.
type BarcodeGenerator struct {
	now    func() time.Time
	random func() int
}

// NewBarcodeGenerator wires the wall clock and math/rand/v2.
func NewBarcodeGenerator() *BarcodeGenerator {
	return &BarcodeGenerator{
		now:    time.Now,
		random: func() int { return rand.IntN(10000) },
	}
}

// Next returns prefix + last six digits of unix millis + four random digits
// + check digit.
func (g *BarcodeGenerator) Next() string {
	millis := g.now().UnixMilli() % 1_000_000
	body := fmt.Sprintf("%s%06d%04d", barcodePrefix, millis, g.random())
	return body + string(EAN13CheckDigit(body))
}

// EAN13CheckDigit computes the check digit for the first twelve digits.
func EAN13CheckDigit(digits string) byte {
	sum := 0
	for i := 0; i < 12 && i < len(digits); i++ {
		d := int(digits[i] - '0')
		if i%2 == 0 {
			sum += d
		} else {
			sum += 3 * d
		}
	}
	return byte('0' + (10-sum%10)%10)
}

// ValidEAN13 reports whether code is thirteen digits with a correct check digit.
func ValidEAN13(code string) bool {
	if len(code) != 13 {
		return false
	}
	for i := 0; i < 13; i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return EAN13CheckDigit(code[:12]) == code[12]
}
