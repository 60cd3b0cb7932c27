package arrivals

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/odyssey-erp/receiving/internal/shared"
)

const maxSearchLength = 100

// ValidateAttachRequest rejects a line set naming the same product twice.
func ValidateAttachRequest(req AttachProductsRequest) error {
	seen := make(map[int64]int, len(req.ArrivalProducts))
	for i, line := range req.ArrivalProducts {
		if prev, ok := seen[line.ProductID]; ok {
			return fmt.Errorf("%w: product %d at lines %d and %d", ErrDuplicateProduct, line.ProductID, prev+1, i+1)
		}
		seen[line.ProductID] = i
	}
	return nil
}

// ParseListFilters reads search, status, ne, order, page and itemsPerPage.
func ParseListFilters(q url.Values) (ListFilters, error) {
	f := ListFilters{
		Search:     NormalizeSearch(q.Get("search")),
		Negate:     strings.EqualFold(q.Get("ne"), "true"),
		Descending: strings.EqualFold(strings.TrimSpace(q.Get("order")), "desc"),
		Page:       shared.ParsePageParams(q),
	}
	if f.Search != "" {
		if id, err := strconv.ParseInt(f.Search, 10, 64); err == nil && id > 0 {
			f.SupplierID = &id
		}
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status := Status(strings.ToLower(raw))
		if !status.IsValid() {
			return ListFilters{}, fmt.Errorf("%w: %s", ErrInvalidStatus, raw)
		}
		f.Status = &status
	}
	return f, nil
}

// NormalizeSearch applies NFKC and lowercases the term. Lowercasing keeps
// characters like ß intact so ILIKE still matches them.
func NormalizeSearch(raw string) string {
	s := strings.TrimSpace(norm.NFKC.String(raw))
	if len(s) > maxSearchLength {
		s = s[:maxSearchLength]
		for !utf8.ValidString(s) {
			s = s[:len(s)-1]
		}
	}
	return cases.Lower(language.Und).String(s)
}

// likePattern escapes LIKE metacharacters and wraps s for a substring match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
