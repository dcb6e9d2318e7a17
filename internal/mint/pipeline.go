// Package mint turns a filled-in player card form into an on-chain token:
// validate the draft, upload artwork and metadata, then send the mint call
// through the connected wallet.
package mint

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Its-donkey/dynamix-mint/internal/wallet"
	"github.com/Its-donkey/dynamix-mint/logging"
)

const tracerName = "github.com/Its-donkey/dynamix-mint/internal/mint"

// SessionSource exposes the current wallet session.
type SessionSource interface {
	CurrentSession() wallet.Session
}

// Uploader stores artwork and metadata and returns the metadata content id.
type Uploader interface {
	Upload(ctx context.Context, req Request) (string, error)
}

// Minter sends the mint transaction and returns its reference.
type Minter interface {
	Mint(ctx context.Context, call MintCall) (string, error)
}

// Outcome is the final state of a submission.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeSuccess
)

func (o Outcome) String() string {
	if o == OutcomeSuccess {
		return "success"
	}
	return "failed"
}

// Result describes one Submit call. On failure Stage, Reason and Err are set.
// An upload that succeeded before a mint failure still reports ContentID.
type Result struct {
	Outcome     Outcome
	AttemptID   string
	Submitter   string
	Epoch       uint64
	ContentID   string
	MetadataURI string
	TxRef       string
	Stage       Stage
	Reason      string
	Err         error
}

// Succeeded reports whether the token was minted.
func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// StaleFor reports whether session has moved on (account switch or chain
// change) since the submission captured its submitter.
func (r Result) StaleFor(session wallet.Session) bool {
	if r.Submitter == "" {
		return false
	}
	return session.Epoch != r.Epoch || session.Address != r.Submitter
}

// Options configures a Pipeline.
type Options struct {
	Logger       *logging.Logger
	Tracer       trace.Tracer
	NewAttemptID func() string
}

// Pipeline runs submissions. It holds no per-submission state and may be
// shared between goroutines.
type Pipeline struct {
	sessions SessionSource
	uploader Uploader
	minter   Minter
	logger   *logging.Logger
	tracer   trace.Tracer
	newID    func() string
}

// NewPipeline wires the pipeline to its collaborators.
func NewPipeline(sessions SessionSource, uploader Uploader, minter Minter, opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	if opts.NewAttemptID == nil {
		opts.NewAttemptID = uuid.NewString
	}
	return &Pipeline{
		sessions: sessions,
		uploader: uploader,
		minter:   minter,
		logger:   opts.Logger,
		tracer:   opts.Tracer,
		newID:    opts.NewAttemptID,
	}
}

// Submit validates d, uploads it and mints it. Each external call is made at
// most once and nothing is retried; calling Submit again starts a new
// attempt. The submitter is captured once validation passes, so later
// session changes do not alter an attempt already in flight.
func (p *Pipeline) Submit(ctx context.Context, d Draft) Result {
	attemptID := p.newID()
	log := p.logger.WithRequestID(attemptID).WithCategory("mint")

	ctx, span := p.tracer.Start(ctx, "mint.submit", trace.WithAttributes(attribute.String("mint.attempt_id", attemptID)))
	defer span.End()

	result := Result{AttemptID: attemptID}

	session := p.sessions.CurrentSession()
	if errs := p.validate(ctx, d, session); len(errs) > 0 {
		err := &ValidationError{Fields: errs}
		log.Warn("draft rejected", map[string]any{"fields": errs.Fields()})
		return p.fail(span, result, StageValidation, err.Error(), err)
	}

	result.Submitter = session.Address
	result.Epoch = session.Epoch
	log.WithField("submitter", session.Address).WithField("epoch", session.Epoch)
	span.SetAttributes(attribute.String("mint.submitter", session.Address))

	req := newRequest(attemptID, session.Address, d)
	contentID, err := p.upload(ctx, req)
	if err != nil {
		log.Error("upload failed", err, nil)
		return p.fail(span, result, StageUpload, err.Error(), err)
	}
	result.ContentID = contentID
	result.MetadataURI = MetadataURI(contentID)
	log.Info("metadata uploaded", map[string]any{"content_id": contentID})

	txRef, err := p.mint(ctx, req, result.MetadataURI)
	if err != nil {
		log.Error("mint failed", err, map[string]any{"content_id": contentID})
		return p.fail(span, result, StageMint, err.Error(), err)
	}
	result.TxRef = txRef
	result.Outcome = OutcomeSuccess
	log.Info("token minted", map[string]any{"content_id": contentID, "tx": txRef})
	span.SetAttributes(attribute.String("mint.tx", txRef))
	return result
}

func (p *Pipeline) validate(ctx context.Context, d Draft, session wallet.Session) FieldErrors {
	_, span := p.tracer.Start(ctx, "mint.validate")
	defer span.End()

	errs := Validate(d)
	if !session.Connected() {
		errs[FieldAccount] = "Connect a wallet before minting"
	}
	return errs
}

func (p *Pipeline) upload(ctx context.Context, req Request) (string, error) {
	ctx, span := p.tracer.Start(ctx, "mint.upload")
	defer span.End()

	contentID, err := p.uploader.Upload(ctx, req)
	if err != nil {
		var uerr *UploadError
		if !errors.As(err, &uerr) {
			err = &UploadError{Kind: UploadTransport, Err: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		return "", err
	}
	if contentID == "" {
		err := &UploadError{Kind: UploadMalformed}
		span.SetStatus(codes.Error, "empty content id")
		return "", err
	}
	span.SetAttributes(attribute.String("mint.content_id", contentID))
	return contentID, nil
}

func (p *Pipeline) mint(ctx context.Context, req Request, metadataURI string) (string, error) {
	ctx, span := p.tracer.Start(ctx, "mint.mint")
	defer span.End()

	txRef, err := p.minter.Mint(ctx, MintCall{
		From:          req.Submitter,
		To:            req.Submitter,
		Name:          req.DisplayName,
		Nationality:   req.Nationality,
		Position:      string(req.Position),
		Goals:         uint64(req.GoalCount),
		TitlesWon:     uint64(req.TitlesWon),
		MatchesPlayed: uint64(req.MatchesPlayed),
		MetadataURI:   metadataURI,
	})
	if err != nil {
		var merr *MintError
		if !errors.As(err, &merr) {
			kind := MintTransport
			if errors.Is(err, wallet.ErrProviderRejected) {
				kind = MintSignatureRejected
			}
			err = &MintError{Kind: kind, Err: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "mint failed")
		return "", err
	}
	return txRef, nil
}

func (p *Pipeline) fail(span trace.Span, result Result, stage Stage, reason string, err error) Result {
	span.SetStatus(codes.Error, stage.String()+" failed")
	result.Outcome = OutcomeFailed
	result.Stage = stage
	result.Reason = reason
	result.Err = err
	return result
}
