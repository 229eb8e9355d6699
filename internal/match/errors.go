package match

import (
	"errors"
	"fmt"
)

// Kind classifies failures surfaced next to the document they concern.
type Kind string

const (
	KindExtraction        Kind = "ExtractionError"
	KindDecoding          Kind = "DecodingError"
	KindOracleUnavailable Kind = "OracleUnavailable"
	KindOracle            Kind = "OracleError"
	KindValidation        Kind = "ValidationError"
	KindEmbedding         Kind = "EmbeddingError"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrExtraction        = &Error{Kind: KindExtraction}
	ErrDecoding          = &Error{Kind: KindDecoding}
	ErrOracleUnavailable = &Error{Kind: KindOracleUnavailable}
	ErrOracle            = &Error{Kind: KindOracle}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrEmbedding         = &Error{Kind: KindEmbedding}
)

type Error struct {
	Kind Kind
	// Doc is the document name the failure belongs to, empty for batch-level errors.
	Doc string
	Msg string
	Err error
}

func NewError(kind Kind, doc, msg string, err error) *Error {
	return &Error{Kind: kind, Doc: doc, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Doc != "" {
		return fmt.Sprintf("%s: %s", e.Doc, msg)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Doc == "" && t.Msg == "" && t.Err == nil
}

// KindOf returns the kind of the first *Error in the chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
