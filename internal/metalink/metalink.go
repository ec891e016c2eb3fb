// Package metalink builds Metalink 4 (RFC 5854) documents, the multi-file
// manifest format handed back for a set of generated climatology files.
// Element and attribute names follow RFC 5854 so existing Metalink consumers
// can parse the manifests without changes.
package metalink

import (
	"encoding/xml"
	"fmt"
	"time"
)

// Namespace is the Metalink 4 XML namespace.
const Namespace = "urn:ietf:params:xml:ns:metalink"

// MediaTypeNetCDF is the declared format identifier for NetCDF entries.
const MediaTypeNetCDF = "application/x-netcdf"

// MetaURL points at one retrievable copy of a file.
type MetaURL struct {
	MediaType string `xml:"mediatype,attr" json:"mediatype"`
	URL       string `xml:",chardata" json:"url"`
}

// File is one manifest entry: name, category label, size, and location.
type File struct {
	Name        string  `xml:"name,attr" json:"name"`
	Identity    string  `xml:"identity" json:"identity"`
	Description string  `xml:"description,omitempty" json:"description,omitempty"`
	Size        int64   `xml:"size,omitempty" json:"size,omitempty"`
	MetaURL     MetaURL `xml:"metaurl" json:"metaurl"`
}

// Document is a Metalink 4 multi-file reference document.
type Document struct {
	XMLName     xml.Name `xml:"metalink" json:"-"`
	XMLNS       string   `xml:"xmlns,attr" json:"-"`
	Identity    string   `xml:"identity" json:"identity"`
	Description string   `xml:"description,omitempty" json:"description,omitempty"`
	Generator   string   `xml:"generator" json:"generator"`
	Published   string   `xml:"published" json:"published"`
	Files       []File   `xml:"file" json:"files"`
}

// New creates an empty manifest with identity and description headers.
func New(identity, description string) *Document {
	return &Document{
		XMLNS:       Namespace,
		Identity:    identity,
		Description: description,
		Generator:   "thunderbird",
		Published:   time.Now().UTC().Format(time.RFC3339),
	}
}

// Append adds one file entry to the manifest.
func (d *Document) Append(f File) {
	d.Files = append(d.Files, f)
}

// Len returns the number of file entries.
func (d *Document) Len() int {
	return len(d.Files)
}

// XML serializes the manifest as an indented XML document with declaration.
func (d *Document) XML() (string, error) {
	body, err := xml.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode metalink: %w", err)
	}
	return xml.Header + string(body) + "\n", nil
}
