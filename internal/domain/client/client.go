package client

import (
	"strings"
	"unicode"

	"github.com/tecnipro/cobranzas/internal/domain/shared"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// minTokenLength is the minimum significant token length used by the
// conjunctive similarity search.
const minTokenLength = 3

var titleCaser = cases.Title(language.Spanish)

// stripMarks removes combining diacritical marks after canonical
// decomposition, so "Ñ" degrades to "N" for matching purposes.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Client is a real downstream customer of the provider, distinct from the
// billing intermediaries that appear as payers on the tax documents.
// SearchKey is the dedup identity; DisplayName is what users see.
type Client struct {
	shared.BaseEntity
	DisplayName string `json:"display_name"`
	SearchKey   string `json:"search_key"`
	TaxID       string `json:"tax_id,omitempty"`
	ContactName string `json:"contact_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	CreatedBy   string `json:"created_by"`
}

// New creates a client from a raw name, normalizing it for display and match
func New(name, createdBy string) (*Client, error) {
	displayName, searchKey := Normalize(name)
	if displayName == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Client name is required")
	}
	if createdBy == "" {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Creating actor is required")
	}
	return &Client{
		BaseEntity:  shared.NewBaseEntity(),
		DisplayName: displayName,
		SearchKey:   searchKey,
		CreatedBy:   createdBy,
	}, nil
}

// Rename replaces the client name, renormalizing both forms
func (c *Client) Rename(name string) error {
	displayName, searchKey := Normalize(name)
	if displayName == "" {
		return shared.NewDomainError("INVALID_NAME", "Client name is required")
	}
	c.DisplayName = displayName
	c.SearchKey = searchKey
	c.Touch()
	return nil
}

// Normalize produces the two canonical forms of a client name:
// the title-cased display name and the upper-cased, diacritic-stripped
// search key used for matching, never for display.
//
//	"  empresa  ejemplo spa  " → ("Empresa Ejemplo Spa", "EMPRESA EJEMPLO SPA")
//	"Constructora Ñañez"       → ("Constructora Ñañez", "CONSTRUCTORA NANEZ")
func Normalize(name string) (displayName, searchKey string) {
	collapsed := strings.Join(strings.Fields(name), " ")
	if collapsed == "" {
		return "", ""
	}
	displayName = titleCaser.String(collapsed)

	stripped, _, err := transform.String(stripMarks, strings.ToUpper(displayName))
	if err != nil {
		// Transform only fails on malformed UTF-8; fall back to the plain
		// upper-cased form rather than losing the record.
		stripped = strings.ToUpper(displayName)
	}
	return displayName, stripped
}

// SearchTokens splits an already-normalized search key into the significant
// tokens used by the conjunctive similarity match.
func SearchTokens(searchKey string) []string {
	var tokens []string
	for _, t := range strings.Fields(searchKey) {
		if len(t) >= minTokenLength {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
