package metalink

import (
	"encoding/xml"
	"strings"
	"testing"
)

// TestDocumentXML checks the serialized structure existing consumers rely on.
func TestDocumentXML(t *testing.T) {
	doc := New("outputs", "Output of netCDF climo files")
	doc.Published = "2026-01-02T03:04:05Z"
	doc.Append(File{
		Name:        "tasmax_aClimMean_6190.nc",
		Identity:    "Climatology",
		Description: "Climatology",
		Size:        2048,
		MetaURL: MetaURL{
			MediaType: MediaTypeNetCDF,
			URL:       "http://localhost:8095/outputs/tasmax_aClimMean_6190.nc",
		},
	})

	out, err := doc.XML()
	if err != nil {
		t.Fatalf("XML() error = %v", err)
	}

	for _, want := range []string{
		xml.Header,
		`<metalink xmlns="urn:ietf:params:xml:ns:metalink">`,
		`<file name="tasmax_aClimMean_6190.nc">`,
		`<identity>Climatology</identity>`,
		`<size>2048</size>`,
		`<metaurl mediatype="application/x-netcdf">http://localhost:8095/outputs/tasmax_aClimMean_6190.nc</metaurl>`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("document missing %q:\n%s", want, out)
		}
	}
}

// TestDocumentXMLRoundTrip checks the document parses back with encoding/xml.
func TestDocumentXMLRoundTrip(t *testing.T) {
	doc := New("outputs", "")
	doc.Append(File{Name: "a.nc", Identity: "Climatology", MetaURL: MetaURL{MediaType: MediaTypeNetCDF, URL: "file:///tmp/a.nc"}})
	doc.Append(File{Name: "b.nc", Identity: "Climatology", MetaURL: MetaURL{MediaType: MediaTypeNetCDF, URL: "file:///tmp/b.nc"}})

	out, err := doc.XML()
	if err != nil {
		t.Fatalf("XML() error = %v", err)
	}

	var parsed Document
	if err := xml.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Len() != 2 {
		t.Fatalf("parsed %d files, want 2", parsed.Len())
	}
	if parsed.Files[1].MetaURL.URL != "file:///tmp/b.nc" {
		t.Fatalf("metaurl = %q", parsed.Files[1].MetaURL.URL)
	}
}

// TestEmptyDocument checks a zero-entry manifest is still a valid document.
func TestEmptyDocument(t *testing.T) {
	doc := New("outputs", "Output of netCDF climo files")

	out, err := doc.XML()
	if err != nil {
		t.Fatalf("XML() error = %v", err)
	}
	if doc.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", doc.Len())
	}
	if strings.Contains(out, "<file") {
		t.Fatalf("empty manifest must not contain file entries:\n%s", out)
	}
}
