package service

import (
	"bytes"
	"regexp"
)

var (
	fenceStart = regexp.MustCompile("(?is)^\\s*```(?:json)?\\s*")
	fenceEnd   = regexp.MustCompile("(?is)\\s*```\\s*$")
	utf8BOM    = []byte("\uFEFF")
)

// cleanImportDocument acepta documentos pegados a mano: quita BOM y fences
// ```json ... ``` y, si hay texto alrededor, se queda con el primer objeto JSON.
func cleanImportDocument(raw []byte) []byte {
	doc := bytes.TrimSpace(raw)
	doc = bytes.TrimPrefix(doc, utf8BOM)
	doc = fenceStart.ReplaceAll(doc, nil)
	doc = fenceEnd.ReplaceAll(doc, nil)
	doc = bytes.TrimSpace(doc)
	if len(doc) > 0 && doc[0] == '{' {
		return doc
	}
	if obj := firstJSONObject(doc); obj != nil {
		return obj
	}
	return doc
}

// firstJSONObject devuelve el primer objeto {...} balanceado, ignorando llaves dentro de strings.
func firstJSONObject(input []byte) []byte {
	start := bytes.IndexByte(input, '{')
	if start == -1 {
		return nil
	}

	inString, escape := false, false
	depth := 0
	for i := start; i < len(input); i++ {
		ch := input[i]
		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return nil
}
