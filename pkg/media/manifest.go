package media

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	errs "igstories/pkg/errors"
)

const (
	// MaxManifestSize bounds the manifest text accepted for parsing.
	MaxManifestSize = 8 << 20
	// MaxManifestTokens bounds the number of XML tokens read.
	MaxManifestTokens = 200_000
)

const baseURLElement = "BaseURL"

// ExtractBaseURLs returns the text of every BaseURL element in document
// order. Manifests come from the network and are untrusted: DOCTYPE and
// other directives are rejected, entity references beyond the five XML
// builtins fail, and input size and token count are capped. Any failure is
// reported as *errors.ManifestParseError.
func ExtractBaseURLs(manifest string) ([]string, error) {
	if len(manifest) > MaxManifestSize {
		return nil, parseError(fmt.Errorf("manifest exceeds %d bytes", MaxManifestSize))
	}

	dec := xml.NewDecoder(strings.NewReader(manifest))
	dec.Strict = true

	var (
		urls    []string
		text    strings.Builder
		depth   int
		inBase  int
		sawRoot bool
		tokens  int
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseError(err)
		}

		tokens++
		if tokens > MaxManifestTokens {
			return nil, parseError(fmt.Errorf("manifest exceeds %d tokens", MaxManifestTokens))
		}

		switch t := tok.(type) {
		case xml.Directive:
			return nil, parseError(errors.New("directives are not allowed in manifests"))
		case xml.StartElement:
			if depth == 0 {
				if sawRoot {
					return nil, parseError(errors.New("multiple root elements"))
				}
				sawRoot = true
			}
			depth++
			if t.Name.Local == baseURLElement {
				if inBase == 0 {
					text.Reset()
				}
				inBase++
			}
		case xml.EndElement:
			depth--
			if t.Name.Local == baseURLElement && inBase > 0 {
				inBase--
				if inBase == 0 {
					urls = append(urls, strings.TrimSpace(text.String()))
				}
			}
		case xml.CharData:
			if inBase > 0 {
				text.Write(t)
			} else if depth == 0 && len(strings.TrimSpace(string(t))) > 0 {
				return nil, parseError(errors.New("text outside root element"))
			}
		}
	}

	if !sawRoot {
		return nil, parseError(errors.New("no root element"))
	}

	return urls, nil
}

func parseError(err error) error {
	return &errs.ManifestParseError{Err: err}
}
