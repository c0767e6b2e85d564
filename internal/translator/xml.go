package translator

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"

	"gotranslator/internal/core"
)

const argumentExceptionTitle = "Argument Exception"

// errorDocument is the HTML page the API returns for rejected arguments:
//
//	<html><body><h1>Argument Exception</h1><p>Method: Translate()</p>
//	<p>Parameter: appId</p><p>Message: Invalid appId</p>...</body></html>
type errorDocument struct {
	XMLName xml.Name `xml:"html"`
	Body    struct {
		H1         string   `xml:"h1"`
		Paragraphs []string `xml:"p"`
	} `xml:"body"`
}

// parseArgumentException reports whether body is an Argument Exception page
// and returns its message. The page is HTML, so it is decoded leniently.
func parseArgumentException(body []byte) (string, bool) {
	if !bytes.Contains(body, []byte(argumentExceptionTitle)) {
		return "", false
	}

	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	var doc errorDocument
	if err := dec.Decode(&doc); err != nil {
		return "", false
	}
	if strings.TrimSpace(doc.Body.H1) != argumentExceptionTitle {
		return "", false
	}

	var parts []string
	for _, p := range doc.Body.Paragraphs {
		p = strings.TrimSpace(p)
		if msg, ok := strings.CutPrefix(p, "Message:"); ok {
			return strings.TrimSpace(msg), true
		}
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return argumentExceptionTitle, true
	}
	return strings.Join(parts, "; "), true
}

// parseStringElement returns the text content of the root element,
// e.g. <string xmlns="http://schemas.microsoft.com/2003/10/Serialization/">Salut</string>.
func parseStringElement(body []byte) (string, error) {
	var root struct {
		XMLName xml.Name
		Value   string `xml:",chardata"`
	}
	if err := xml.Unmarshal(body, &root); err != nil {
		return "", core.NewCommunicationError("malformed response from translator API: "+err.Error(), err)
	}
	return root.Value, nil
}

// parseIntArray decodes <ArrayOfint><int>11</int><int>4</int></ArrayOfint>.
func parseIntArray(body []byte) ([]int, error) {
	var arr struct {
		Values []string `xml:"int"`
	}
	if err := xml.Unmarshal(body, &arr); err != nil {
		return nil, core.NewCommunicationError("malformed response from translator API: "+err.Error(), err)
	}

	out := make([]int, 0, len(arr.Values))
	for _, v := range arr.Values {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, core.NewCommunicationError("malformed sentence length "+strconv.Quote(v), err)
		}
		out = append(out, n)
	}
	return out, nil
}

// parseStringArray decodes <ArrayOfstring><string>en</string>...</ArrayOfstring>.
func parseStringArray(body []byte) ([]string, error) {
	var arr struct {
		Values []string `xml:"string"`
	}
	if err := xml.Unmarshal(body, &arr); err != nil {
		return nil, core.NewCommunicationError("malformed response from translator API: "+err.Error(), err)
	}
	if arr.Values == nil {
		return []string{}, nil
	}
	return arr.Values, nil
}
