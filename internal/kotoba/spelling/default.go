package spelling

import (
	"bytes"
	_ "embed"
)

//go:embed misspellings.txt
var defaultTable []byte

// Default returns a corpus preloaded with the bundled common-misspelling
// table. The bundled table is validated at load time, so a failure here means
// the embedded data itself is broken.
func Default() (*Corpus, error) {
	c := NewCorpus()
	if err := c.LoadMisspellings(bytes.NewReader(defaultTable)); err != nil {
		return nil, err
	}
	return c, nil
}
