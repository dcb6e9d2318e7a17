package mint

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Its-donkey/dynamix-mint/internal/wallet"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

const submitter = "0x1111111111111111111111111111111111111111"

type staticSessions struct {
	mu      sync.Mutex
	session wallet.Session
}

func (s *staticSessions) CurrentSession() wallet.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *staticSessions) set(session wallet.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
}

func connected() *staticSessions {
	return &staticSessions{session: wallet.Session{Status: wallet.StatusConnected, Address: submitter}}
}

type fakeUploader struct {
	calls     int
	contentID string
	err       error
	got       Request
	during    func()
}

func (f *fakeUploader) Upload(ctx context.Context, req Request) (string, error) {
	f.calls++
	f.got = req
	if f.during != nil {
		f.during()
	}
	return f.contentID, f.err
}

type fakeMinter struct {
	calls       int
	txRef       string
	err         error
	got         MintCall
	onCall      func()
	hadDeadline bool
}

func (f *fakeMinter) Mint(ctx context.Context, call MintCall) (string, error) {
	f.calls++
	f.got = call
	_, f.hadDeadline = ctx.Deadline()
	if f.onCall != nil {
		f.onCall()
	}
	return f.txRef, f.err
}

func testPlayer() Draft {
	return Draft{
		DisplayName:   "Test Player",
		Position:      PositionForward,
		Nationality:   "X",
		GoalCount:     10,
		MatchesPlayed: 20,
		TitlesWon:     0,
		Image:         &Image{Filename: "card.png", Data: pngHeader},
	}
}

func newTestPipeline(sessions SessionSource, up *fakeUploader, mn *fakeMinter) *Pipeline {
	return NewPipeline(sessions, up, mn, Options{NewAttemptID: func() string { return "attempt-1" }})
}

func TestSubmitSuccessScenario(t *testing.T) {
	up := &fakeUploader{contentID: "abc"}
	mn := &fakeMinter{txRef: "0xdead"}
	result := newTestPipeline(connected(), up, mn).Submit(context.Background(), testPlayer())

	if !result.Succeeded() {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.ContentID != "abc" || result.TxRef != "0xdead" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.AttemptID != "attempt-1" || result.Submitter != submitter {
		t.Fatalf("expected attempt and submitter to be recorded, got %+v", result)
	}
	if mn.got.To != submitter || mn.got.From != submitter {
		t.Fatalf("expected recipient to be the submitter, got %+v", mn.got)
	}
	if mn.got.Goals != 10 || mn.got.MatchesPlayed != 20 || mn.got.TitlesWon != 0 || mn.got.Position != "Forward" {
		t.Fatalf("unexpected mint arguments %+v", mn.got)
	}
	if up.got.Image.ContentType != "image/png" {
		t.Fatalf("expected sniffed content type, got %q", up.got.Image.ContentType)
	}
}

func TestSubmitAcceptsArbitraryImageBytes(t *testing.T) {
	draft := testPlayer()
	draft.Image = &Image{Data: []byte{1, 2, 3, 4}}
	up := &fakeUploader{contentID: "abc"}
	mn := &fakeMinter{txRef: "0xdead"}

	result := newTestPipeline(connected(), up, mn).Submit(context.Background(), draft)
	if !result.Succeeded() || result.TxRef != "0xdead" {
		t.Fatalf("expected success, got %+v", result)
	}
	if up.calls != 1 || mn.calls != 1 {
		t.Fatalf("expected one upload and one mint, got %d and %d", up.calls, mn.calls)
	}
}

func TestSubmitAddsNoDeadlineToMint(t *testing.T) {
	mn := &fakeMinter{txRef: "0xdead"}
	newTestPipeline(connected(), &fakeUploader{contentID: "abc"}, mn).Submit(context.Background(), testPlayer())
	if mn.calls != 1 || mn.hadDeadline {
		t.Fatalf("expected mint to run without a deadline, calls=%d deadline=%v", mn.calls, mn.hadDeadline)
	}
}

func TestCheckPicture(t *testing.T) {
	if msg := CheckPicture(&Image{Data: pngHeader}); msg != "" {
		t.Fatalf("expected png to pass, got %q", msg)
	}
	if msg := CheckPicture(&Image{Data: []byte{1, 2, 3, 4}}); msg == "" {
		t.Fatalf("expected non-picture bytes to be reported")
	}
	if msg := CheckPicture(nil); msg != "" {
		t.Fatalf("expected missing image to be left to Validate, got %q", msg)
	}
}

func TestSubmitMetadataURIUsesContentID(t *testing.T) {
	up := &fakeUploader{contentID: "Qm123"}
	mn := &fakeMinter{txRef: "0x1"}
	result := newTestPipeline(connected(), up, mn).Submit(context.Background(), testPlayer())

	if mn.got.MetadataURI != "ipfs://Qm123" || result.MetadataURI != "ipfs://Qm123" {
		t.Fatalf("expected ipfs://Qm123, got call=%q result=%q", mn.got.MetadataURI, result.MetadataURI)
	}
}

func TestSubmitEmptyPositionFailsValidation(t *testing.T) {
	draft := testPlayer()
	draft.Position = ""
	up := &fakeUploader{contentID: "abc"}
	mn := &fakeMinter{txRef: "0xdead"}

	result := newTestPipeline(connected(), up, mn).Submit(context.Background(), draft)
	if result.Outcome != OutcomeFailed || result.Stage != StageValidation {
		t.Fatalf("expected validation failure, got %+v", result)
	}
	var verr *ValidationError
	if !errors.As(result.Err, &verr) {
		t.Fatalf("expected ValidationError, got %v", result.Err)
	}
	if _, ok := verr.Fields[FieldPosition]; !ok || len(verr.Fields) != 1 {
		t.Fatalf("expected only position to fail, got %v", verr.Fields)
	}
	if up.calls != 0 || mn.calls != 0 {
		t.Fatalf("expected no collaborator calls, got upload=%d mint=%d", up.calls, mn.calls)
	}
}

func TestSubmitInvalidDraftsMakeNoCalls(t *testing.T) {
	mutations := map[string]func(*Draft){
		"blank name":        func(d *Draft) { d.DisplayName = "  " },
		"blank nationality": func(d *Draft) { d.Nationality = "" },
		"unknown position":  func(d *Draft) { d.Position = "Striker" },
		"negative goals":    func(d *Draft) { d.GoalCount = -1 },
		"negative matches":  func(d *Draft) { d.MatchesPlayed = -3 },
		"negative titles":   func(d *Draft) { d.TitlesWon = -1 },
		"missing image":     func(d *Draft) { d.Image = nil },
		"empty image":       func(d *Draft) { d.Image = &Image{} },
		"oversized image":   func(d *Draft) { d.Image = &Image{Data: make([]byte, MaxImageBytes+1)} },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			draft := testPlayer()
			mutate(&draft)
			up := &fakeUploader{contentID: "abc"}
			mn := &fakeMinter{txRef: "0xdead"}

			result := newTestPipeline(connected(), up, mn).Submit(context.Background(), draft)
			if result.Stage != StageValidation || result.Outcome != OutcomeFailed {
				t.Fatalf("expected validation failure, got %+v", result)
			}
			if up.calls != 0 || mn.calls != 0 {
				t.Fatalf("expected no calls, got upload=%d mint=%d", up.calls, mn.calls)
			}
		})
	}
}

func TestValidateReportsEveryField(t *testing.T) {
	errs := Validate(Draft{GoalCount: -1, MatchesPlayed: -1, TitlesWon: -1})
	want := []string{FieldGoals, FieldImage, FieldMatches, FieldName, FieldNationality, FieldPosition, FieldTitles}
	got := errs.Fields()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSubmitWithoutSessionFailsValidation(t *testing.T) {
	up := &fakeUploader{contentID: "abc"}
	mn := &fakeMinter{}
	sessions := &staticSessions{session: wallet.Session{Status: wallet.StatusDisconnected}}

	result := newTestPipeline(sessions, up, mn).Submit(context.Background(), testPlayer())
	var verr *ValidationError
	if result.Stage != StageValidation || !errors.As(result.Err, &verr) {
		t.Fatalf("expected validation failure, got %+v", result)
	}
	if _, ok := verr.Fields[FieldAccount]; !ok {
		t.Fatalf("expected account field error, got %v", verr.Fields)
	}
	if up.calls != 0 {
		t.Fatalf("expected no upload, got %d", up.calls)
	}
}

func TestSubmitUploadStatusFailureSkipsMint(t *testing.T) {
	up := &fakeUploader{err: &UploadError{Kind: UploadServerStatus, Status: 502}}
	mn := &fakeMinter{txRef: "0xdead"}

	result := newTestPipeline(connected(), up, mn).Submit(context.Background(), testPlayer())
	if result.Stage != StageUpload || result.Outcome != OutcomeFailed {
		t.Fatalf("expected upload failure, got %+v", result)
	}
	if up.calls != 1 || mn.calls != 0 {
		t.Fatalf("expected upload=1 mint=0, got upload=%d mint=%d", up.calls, mn.calls)
	}
	var uerr *UploadError
	if !errors.As(result.Err, &uerr) || uerr.Status != 502 {
		t.Fatalf("expected status 502 upload error, got %v", result.Err)
	}
}

func TestSubmitUploadTransportAndEmptyID(t *testing.T) {
	up := &fakeUploader{err: errors.New("connection refused")}
	mn := &fakeMinter{}
	result := newTestPipeline(connected(), up, mn).Submit(context.Background(), testPlayer())
	var uerr *UploadError
	if !errors.As(result.Err, &uerr) || uerr.Kind != UploadTransport {
		t.Fatalf("expected transport upload error, got %v", result.Err)
	}

	up = &fakeUploader{contentID: ""}
	result = newTestPipeline(connected(), up, mn).Submit(context.Background(), testPlayer())
	if !errors.As(result.Err, &uerr) || uerr.Kind != UploadMalformed {
		t.Fatalf("expected malformed upload error, got %v", result.Err)
	}
	if mn.calls != 0 {
		t.Fatalf("expected no mint calls, got %d", mn.calls)
	}
}

func TestSubmitMintFailureKeepsContentID(t *testing.T) {
	up := &fakeUploader{contentID: "abc"}
	mn := &fakeMinter{err: &wallet.ProviderError{Code: wallet.CodeUserRejected, Message: "denied"}}

	result := newTestPipeline(connected(), up, mn).Submit(context.Background(), testPlayer())
	if result.Stage != StageMint || result.ContentID != "abc" {
		t.Fatalf("expected mint failure after upload, got %+v", result)
	}
	var merr *MintError
	if !errors.As(result.Err, &merr) || merr.Kind != MintSignatureRejected {
		t.Fatalf("expected signature rejection, got %v", result.Err)
	}
	if up.calls != 1 || mn.calls != 1 {
		t.Fatalf("expected one call each, got upload=%d mint=%d", up.calls, mn.calls)
	}
}

func TestSubmitUploadPrecedesMint(t *testing.T) {
	var order []string
	up := &fakeUploader{contentID: "abc", during: func() { order = append(order, "upload") }}
	mn := &fakeMinter{txRef: "0x1", onCall: func() { order = append(order, "mint") }}

	newTestPipeline(connected(), up, mn).Submit(context.Background(), testPlayer())
	if len(order) != 2 || order[0] != "upload" || order[1] != "mint" {
		t.Fatalf("expected upload then mint, got %v", order)
	}
}

func TestSubmitKeepsSubmitterAcrossAccountSwitch(t *testing.T) {
	sessions := connected()
	other := "0x2222222222222222222222222222222222222222"
	up := &fakeUploader{contentID: "abc", during: func() {
		sessions.set(wallet.Session{Status: wallet.StatusConnected, Address: other, Epoch: 1})
	}}
	mn := &fakeMinter{txRef: "0x1"}

	result := newTestPipeline(sessions, up, mn).Submit(context.Background(), testPlayer())
	if !result.Succeeded() {
		t.Fatalf("expected success, got %+v", result)
	}
	if mn.got.To != submitter {
		t.Fatalf("expected mint to captured submitter, got %s", mn.got.To)
	}
	if !result.StaleFor(sessions.CurrentSession()) {
		t.Fatalf("expected result to be stale for the new session")
	}
}

func TestSubmitDoesNotMutateDraft(t *testing.T) {
	draft := testPlayer()
	draft.DisplayName = "  Test Player  "
	up := &fakeUploader{contentID: "abc"}
	newTestPipeline(connected(), up, &fakeMinter{txRef: "0x1"}).Submit(context.Background(), draft)

	if draft.DisplayName != "  Test Player  " || draft.Image.ContentType != "" {
		t.Fatalf("draft was modified: %+v", draft)
	}
	if up.got.DisplayName != "Test Player" {
		t.Fatalf("expected trimmed name in request, got %q", up.got.DisplayName)
	}
}

func TestParsePosition(t *testing.T) {
	if p, ok := ParsePosition(" goalkeeper "); !ok || p != PositionGoalkeeper {
		t.Fatalf("expected Goalkeeper, got %q %v", p, ok)
	}
	if _, ok := ParsePosition("Winger"); ok {
		t.Fatalf("expected Winger to be rejected")
	}
}
