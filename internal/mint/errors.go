package mint

import (
	"fmt"
	"strings"
)

// Stage identifies where a submission stopped.
type Stage int

const (
	StageValidation Stage = iota + 1
	StageUpload
	StageMint
)

func (s Stage) String() string {
	switch s {
	case StageValidation:
		return "validation"
	case StageUpload:
		return "upload"
	case StageMint:
		return "mint"
	default:
		return ""
	}
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return "invalid submission: " + strings.Join(e.Fields.Fields(), ", ")
}

// UploadErrorKind classifies upload failures.
type UploadErrorKind int

const (
	UploadTransport UploadErrorKind = iota + 1
	UploadServerStatus
	UploadMalformed
)

// UploadError is returned by Uploader implementations.
type UploadError struct {
	Kind   UploadErrorKind
	Status int
	Err    error
}

func (e *UploadError) Error() string {
	switch e.Kind {
	case UploadServerStatus:
		return fmt.Sprintf("upload service responded with status %d", e.Status)
	case UploadMalformed:
		if e.Err != nil {
			return "upload service returned an unexpected response: " + e.Err.Error()
		}
		return "upload service returned an unexpected response"
	default:
		if e.Err != nil {
			return "upload service unreachable: " + e.Err.Error()
		}
		return "upload service unreachable"
	}
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// MintErrorKind classifies contract call failures.
type MintErrorKind int

const (
	MintTransport MintErrorKind = iota + 1
	MintSignatureRejected
	MintReverted
)

// MintError is returned by Minter implementations.
type MintError struct {
	Kind MintErrorKind
	Err  error
}

func (e *MintError) Error() string {
	var msg string
	switch e.Kind {
	case MintSignatureRejected:
		msg = "transaction signature rejected"
	case MintReverted:
		msg = "transaction reverted"
	default:
		msg = "could not submit transaction"
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *MintError) Unwrap() error {
	return e.Err
}
