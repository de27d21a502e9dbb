package normalize

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/heartmarshall/prondict/internal/domain"
)

// Folder lowercases words with the rules of one language and composes
// them to NFC. A Folder is not safe for concurrent use.
type Folder struct {
	caser cases.Caser
}

// NewFolder returns a Folder for lang. Invalid codes fall back to
// language-neutral lowercasing.
func NewFolder(lang domain.Language) *Folder {
	return &Folder{caser: cases.Lower(lang.Tag())}
}

// Fold returns the case-folded form of s.
func (f *Folder) Fold(s string) string {
	return norm.NFC.String(f.caser.String(s))
}
