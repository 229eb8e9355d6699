package match

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("processing: %w", NewError(KindExtraction, "cv.pdf", "corrupt file", errors.New("eof")))

	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected extraction error to match sentinel")
	}
	if errors.Is(err, ErrOracle) {
		t.Fatalf("did not expect oracle sentinel to match")
	}
	if KindOf(err) != KindExtraction {
		t.Fatalf("unexpected kind: %q", KindOf(err))
	}
	if got := err.Error(); got != "processing: cv.pdf: corrupt file: eof" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestKindOfPlainError(t *testing.T) {
	if KindOf(errors.New("boom")) != "" {
		t.Fatalf("expected empty kind for plain errors")
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{input: "similarity", want: ModeSimilarity},
		{input: " Oracle ", want: ModeOracle},
		{input: "ranking", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("%q: expected validation error, got %v", tt.input, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("%q: got %q, %v", tt.input, got, err)
		}
	}
}

func TestDocumentSuffix(t *testing.T) {
	doc := NewDocument("Resume.PDF", nil)
	if doc.Suffix() != FormatPDF {
		t.Fatalf("unexpected suffix: %q", doc.Suffix())
	}

	declared := Document{Name: "upload", Format: ".TXT"}
	if declared.Suffix() != FormatTXT {
		t.Fatalf("expected declared format to win, got %q", declared.Suffix())
	}
}

func TestReadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cv.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}

	doc, err := ReadDocument(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Name != "cv.txt" || doc.Format != FormatTXT || string(doc.Data) != "hello" {
		t.Fatalf("unexpected document: %+v", doc)
	}

	if _, err := ReadDocument(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestTagString(t *testing.T) {
	if Shortlisted.String() != "Shortlisted" || NotShortlisted.String() != "Not Shortlisted" {
		t.Fatalf("unexpected labels: %q %q", Shortlisted, NotShortlisted)
	}
}
