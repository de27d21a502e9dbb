package domain

// DictionaryEntry is one word with its pronunciations in collation order.
type DictionaryEntry struct {
	Word           string   `json:"word"`
	Pronunciations []string `json:"pronunciations"`
}

// Dictionary is the final, immutable result of a build.
// Entries are ordered by the collation of the metadata language.
type Dictionary struct {
	Entries  []DictionaryEntry
	Metadata Metadata

	index map[string]int
}

// NewDictionary wraps already ordered entries. Words must be unique.
func NewDictionary(entries []DictionaryEntry, meta Metadata) *Dictionary {
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.Word] = i
	}
	return &Dictionary{Entries: entries, Metadata: meta, index: index}
}

// Lookup returns the pronunciations of word.
func (d *Dictionary) Lookup(word string) ([]string, bool) {
	i, ok := d.index[word]
	if !ok {
		return nil, false
	}
	return d.Entries[i].Pronunciations, true
}

// Words returns the words in dictionary order.
func (d *Dictionary) Words() []string {
	words := make([]string, len(d.Entries))
	for i, e := range d.Entries {
		words[i] = e.Word
	}
	return words
}

// Len returns the number of words.
func (d *Dictionary) Len() int { return len(d.Entries) }

// PronunciationCount returns the total number of (word, pronunciation) pairs.
func (d *Dictionary) PronunciationCount() int {
	n := 0
	for _, e := range d.Entries {
		n += len(e.Pronunciations)
	}
	return n
}
