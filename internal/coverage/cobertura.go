package coverage

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// Report is a Cobertura coverage document, modeled only as deeply as path
// rewriting requires. Unknown attributes and elements are preserved where
// the encoding allows; the numeric totals pass through untouched as strings.
type Report struct {
	XMLName  xml.Name  `xml:"coverage"`
	LineRate string    `xml:"line-rate,attr,omitempty"`
	Branch   string    `xml:"branch-rate,attr,omitempty"`
	Version  string    `xml:"version,attr,omitempty"`
	Time     string    `xml:"timestamp,attr,omitempty"`
	Sources  []Source  `xml:"sources>source"`
	Packages []Package `xml:"packages>package"`
}

// Source is one root directory the report's filenames are relative to.
type Source struct {
	Path string `xml:",chardata"`
}

// Package groups classes under a package name.
type Package struct {
	Name     string  `xml:"name,attr"`
	LineRate string  `xml:"line-rate,attr,omitempty"`
	Classes  []Class `xml:"classes>class"`
}

// Class records coverage for a single source file.
type Class struct {
	Name     string `xml:"name,attr"`
	Filename string `xml:"filename,attr"`
	LineRate string `xml:"line-rate,attr,omitempty"`
	Lines    []Line `xml:"lines>line"`
}

// Line is a single line-hit record.
type Line struct {
	Number string `xml:"number,attr"`
	Hits   string `xml:"hits,attr"`
}

// ParseFile reads and decodes a Cobertura report from disk.
func ParseFile(path string) (*Report, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read coverage report %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a Cobertura report.
func Parse(raw []byte) (*Report, error) {
	var r Report
	if err := xml.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("failed to decode coverage report: %w", err)
	}
	return &r, nil
}

// Encode renders the report back to XML with the standard header.
func (r *Report) Encode() ([]byte, error) {
	body, err := xml.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode coverage report: %w", err)
	}
	var sb strings.Builder
	sb.WriteString(xml.Header)
	sb.Write(body)
	sb.WriteString("\n")
	return []byte(sb.String()), nil
}

// WriteFile encodes the report and writes it to path.
func (r *Report) WriteFile(path string) error {
	raw, err := r.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write coverage report %s: %w", path, err)
	}
	return nil
}
