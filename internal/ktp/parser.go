// Package ktp extracts identity fields from OCR text of Indonesian ID cards.
// Card layouts vary wildly between issuers and scan quality, so extraction is
// a fixed, ordered list of named heuristics rather than a grammar.
package ktp

import (
	"regexp"
	"strings"
)

// Field keys produced by Parse. Every key is always present in the result,
// empty when a rule found nothing.
const (
	FieldNIK        = "nik"
	FieldName       = "name"
	FieldBirthPlace = "birth_place"
	FieldBirthDate  = "birth_date"
	FieldAddress    = "address"
	FieldGender     = "gender"
)

// Keys lists every field Parse emits, in output order.
var Keys = []string{FieldNIK, FieldName, FieldBirthPlace, FieldBirthDate, FieldAddress, FieldGender}

var (
	nikRe        = regexp.MustCompile(`\b(\d{16})\b`)
	nameLabelRe  = regexp.MustCompile(`(?i)^nama\s*[:.]?\s*`)
	nameBareRe   = regexp.MustCompile(`(?i)^nama\s*$`)
	birthLineRe  = regexp.MustCompile(`(?i)tempat\s*[/.]?\s*tgl\.?\s*lahir|ttl|lahir`)
	birthSplitRe = regexp.MustCompile(`[,/]|\s{2,}`)
	placeLabelRe = regexp.MustCompile(`(?i)^tempat\s*[:.]?\s*`)
	dateRe       = regexp.MustCompile(`\d{1,2}[-/]\d{1,2}[-/]\d{2,4}`)
	addrLabelRe  = regexp.MustCompile(`(?i)^alamat\s*[:.]?\s*`)
	addrBareRe   = regexp.MustCompile(`(?i)^alamat\s*$`)
	genderLineRe = regexp.MustCompile(`(?i)jenis\s*kelamin|kelamin|j[ke]\s*[:.]?\s*`)
	maleRe       = regexp.MustCompile(`(?i)\b(laki|laki-laki|pria|male|m)\b`)
	femaleRe     = regexp.MustCompile(`(?i)\b(perempuan|wanita|female|f)\b`)
	digitRe      = regexp.MustCompile(`\d`)
	leadDigitRe  = regexp.MustCompile(`^\d`)
)

// document is the pre-tokenized input shared by all rules.
type document struct {
	lines    []string
	fullText string
}

// rule fills zero or more fields in the result. Rules run in order; apart
// from the birth-date overwrite noted on its rule, a later rule never
// replaces a field an earlier rule filled.
type rule struct {
	name  string
	apply func(doc document, out map[string]string)
}

var rules = []rule{
	{name: "nik-16-digit", apply: extractNIK},
	{name: "name-labeled-or-first-text-line", apply: extractName},
	{name: "birth-place-and-date", apply: extractBirth},
	{name: "address-labeled-or-region-markers", apply: extractAddress},
	{name: "gender-tokens", apply: extractGender},
}

// Parse runs every extraction rule over raw OCR text and returns the field
// map. All keys are present; blank input yields all-empty values.
func Parse(raw string) map[string]string {
	out := make(map[string]string, len(Keys))
	for _, k := range Keys {
		out[k] = ""
	}
	if strings.TrimSpace(raw) == "" {
		return out
	}

	var lines []string
	for _, ln := range strings.Split(raw, "\n") {
		if t := strings.TrimSpace(ln); t != "" {
			lines = append(lines, t)
		}
	}
	doc := document{lines: lines, fullText: strings.Join(lines, " ")}

	for _, r := range rules {
		r.apply(doc, out)
	}
	return out
}

func extractNIK(doc document, out map[string]string) {
	if m := nikRe.FindStringSubmatch(doc.fullText); m != nil {
		out[FieldNIK] = m[1]
	}
}

// extractName tries a "Nama:" label first, then a bare "Nama" line followed
// by the value, then falls back to the first plausible text line of the card.
func extractName(doc document, out map[string]string) {
	for i, line := range doc.lines {
		if nameLabelRe.MatchString(line) && !nameBareRe.MatchString(line) {
			value := strings.TrimSpace(nameLabelRe.ReplaceAllString(line, ""))
			if value != "" && !isDigits(value) {
				out[FieldName] = value
			}
			break
		}
		if nameBareRe.MatchString(line) && i+1 < len(doc.lines) {
			candidate := doc.lines[i+1]
			if candidate != "" && !isDigits(candidate) && len(candidate) > 2 {
				out[FieldName] = candidate
				break
			}
		}
	}
	if out[FieldName] != "" {
		return
	}
	limit := len(doc.lines)
	if limit > 5 {
		limit = 5
	}
	for _, line := range doc.lines[:limit] {
		if len(line) > 4 && !isDigits(line) && !leadDigitRe.MatchString(line) {
			out[FieldName] = line
			break
		}
	}
}

// extractBirth scans for a "Tempat/Tgl Lahir" style line and splits it into
// place and date parts. A bare "Tempat" label may set the place, and any
// line holding a dd-mm-yyyy shaped token sets the date, last match winning,
// until a labeled line yields a date and stops the scan.
func extractBirth(doc document, out map[string]string) {
	for _, line := range doc.lines {
		if birthLineRe.MatchString(line) {
			parts := birthSplitRe.Split(line, 3)
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p == "" || isDigits(p) {
					continue
				}
				if out[FieldBirthPlace] == "" {
					out[FieldBirthPlace] = p
				} else if out[FieldBirthDate] == "" && digitRe.MatchString(p) {
					out[FieldBirthDate] = p
					break
				}
			}
			if out[FieldBirthDate] != "" {
				return
			}
		}
		if placeLabelRe.MatchString(line) {
			out[FieldBirthPlace] = strings.TrimSpace(placeLabelRe.ReplaceAllString(line, ""))
		}
		if dateRe.MatchString(line) {
			out[FieldBirthDate] = line
		}
	}
}

func extractAddress(doc document, out map[string]string) {
	for i, line := range doc.lines {
		if addrLabelRe.MatchString(line) && !addrBareRe.MatchString(line) {
			out[FieldAddress] = strings.TrimSpace(addrLabelRe.ReplaceAllString(line, ""))
			break
		}
		if addrBareRe.MatchString(line) && i+1 < len(doc.lines) {
			out[FieldAddress] = doc.lines[i+1]
			break
		}
	}
	if out[FieldAddress] != "" {
		return
	}
	for _, line := range doc.lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "kel/") || strings.Contains(lower, "rt/") ||
			strings.Contains(lower, "desa") || strings.Contains(lower, "kec") {
			out[FieldAddress] = line
			break
		}
	}
}

// extractGender stops at the first line carrying a gender label, whether or
// not a recognizable token follows it.
func extractGender(doc document, out map[string]string) {
	for _, line := range doc.lines {
		if !genderLineRe.MatchString(line) {
			continue
		}
		if maleRe.MatchString(line) {
			out[FieldGender] = "M"
		} else if femaleRe.MatchString(line) {
			out[FieldGender] = "F"
		}
		break
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
