// Package extract turns uploaded documents into plain text.
//
// Failures never abort a batch: they are returned inside match.ExtractedText
// so the caller can report them next to the document and move on.
package extract

import (
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/spigell/cv-shortlister/internal/logger"
	"github.com/spigell/cv-shortlister/internal/match"
)

// expectedMIME maps declared suffixes to the content type sniffing should find.
var expectedMIME = map[string]string{
	match.FormatPDF:  "application/pdf",
	match.FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	match.FormatTXT:  "text/plain",
}

type Extractor struct {
	logger *zap.Logger
}

func New(log *zap.Logger) *Extractor {
	return &Extractor{logger: logger.WithFields(log)}
}

// Extract dispatches on the declared suffix. Unsupported suffixes produce
// empty text without an error.
func (e *Extractor) Extract(doc match.Document) match.ExtractedText {
	suffix := doc.Suffix()
	log := e.logger.With(logger.DocumentFields(doc.Name, suffix)...)

	e.sniff(log, doc.Data, suffix)

	var (
		text string
		err  error
	)

	switch suffix {
	case match.FormatPDF:
		text, err = extractPDF(doc.Data)
	case match.FormatDOCX, match.FormatDOC:
		text, err = extractDOCX(doc.Data)
	case match.FormatTXT:
		text, err = decodeText(doc.Data)
		if err != nil {
			err = match.NewError(match.KindDecoding, doc.Name, "error decoding file content", err)
		}
	default:
		log.Warn("unsupported document format, skipping")
		return match.ExtractedText{}
	}

	if err != nil {
		if match.KindOf(err) == "" {
			err = match.NewError(match.KindExtraction, doc.Name, "error extracting text from "+formatLabel(suffix), err)
		}
		log.Warn("text extraction failed", zap.Error(err))
		return match.ExtractedText{Err: err}
	}

	log.Debug("text extracted", zap.Int("length", len(text)))
	return match.ExtractedText{Text: text}
}

func (e *Extractor) sniff(log *zap.Logger, data []byte, suffix string) {
	expected, ok := expectedMIME[suffix]
	if !ok || len(data) == 0 {
		return
	}

	detected := mimetype.Detect(data)
	log.Debug("sniffed document content", zap.String("mime", detected.String()))

	for m := detected; m != nil; m = m.Parent() {
		if m.Is(expected) {
			return
		}
	}

	log.Warn("document content does not match its suffix",
		zap.String("expected_mime", expected),
		zap.String("detected_mime", detected.String()),
	)
}

func formatLabel(suffix string) string {
	switch suffix {
	case match.FormatPDF:
		return "PDF"
	case match.FormatDOCX, match.FormatDOC:
		return "DOCX"
	default:
		return suffix
	}
}
