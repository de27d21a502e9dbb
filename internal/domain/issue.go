package domain

// IssueKind identifies the type of a reported issue.
type IssueKind string

const (
	IssueMissingMetadata               IssueKind = "missing_metadata"
	IssueInvalidGraphemeInWord         IssueKind = "invalid_grapheme_in_word"
	IssueInvalidPhonemeInPronunciation IssueKind = "invalid_phoneme_in_pronunciation"
)

// Issue is a structured problem report. Issues never abort a build.
type Issue interface {
	Kind() IssueKind
	IssueLanguage() Language
}

// IssueReporter receives issues as they are found.
type IssueReporter interface {
	Report(issue Issue)
}

// MissingMetadataIssue is raised when a language has no curated metadata and
// a draft was synthesized from the data.
type MissingMetadataIssue struct {
	Metadata      Metadata           `json:"metadata"`
	Distributions Distributions      `json:"distributions"`
	Reference     *PhoneticInventory `json:"reference,omitempty"`
}

func (MissingMetadataIssue) Kind() IssueKind { return IssueMissingMetadata }
func (i MissingMetadataIssue) IssueLanguage() Language { return i.Metadata.Language }

// InvalidGraphemeInWordIssue is raised when a word contains a grapheme
// outside the metadata alphabet.
type InvalidGraphemeInWordIssue struct {
	Raw         WordPronunciation `json:"raw"`
	PartialWord string            `json:"partial_word"`
	Grapheme    string            `json:"grapheme"`
	Metadata    Metadata          `json:"-"`
}

func (InvalidGraphemeInWordIssue) Kind() IssueKind { return IssueInvalidGraphemeInWord }
func (i InvalidGraphemeInWordIssue) IssueLanguage() Language { return i.Metadata.Language }

// InvalidPhonemeInPronunciationIssue is raised when a pronunciation candidate
// contains a symbol outside the metadata alphabet.
type InvalidPhonemeInPronunciationIssue struct {
	Raw      WordPronunciation `json:"raw"`
	Phoneme  string            `json:"phoneme"`
	Metadata Metadata          `json:"-"`
}

func (InvalidPhonemeInPronunciationIssue) Kind() IssueKind {
	return IssueInvalidPhonemeInPronunciation
}
func (i InvalidPhonemeInPronunciationIssue) IssueLanguage() Language { return i.Metadata.Language }
