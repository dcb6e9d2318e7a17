package mint

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// MaxImageBytes caps the card artwork accepted for upload.
const MaxImageBytes = 10 << 20

// Upload field names. Validation errors are keyed by the same names.
const (
	FieldName        = "name"
	FieldPosition    = "position"
	FieldNationality = "nationality"
	FieldGoals       = "goals"
	FieldMatches     = "matches"
	FieldTitles      = "worldCups"
	FieldImage       = "image"
	FieldAccount     = "account"
)

// Position is the player's role on the pitch.
type Position string

const (
	PositionForward    Position = "Forward"
	PositionMidfielder Position = "Midfielder"
	PositionDefender   Position = "Defender"
	PositionGoalkeeper Position = "Goalkeeper"
)

// Positions lists the accepted positions in display order.
var Positions = []Position{PositionForward, PositionMidfielder, PositionDefender, PositionGoalkeeper}

// ParsePosition matches a position name case-insensitively.
func ParsePosition(value string) (Position, bool) {
	value = strings.TrimSpace(value)
	for _, p := range Positions {
		if strings.EqualFold(value, string(p)) {
			return p, true
		}
	}
	return "", false
}

// Valid reports whether p is one of Positions.
func (p Position) Valid() bool {
	return slices.Contains(Positions, p)
}

// Image is the uploaded card artwork.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Draft is what the user typed into the mint form.
type Draft struct {
	DisplayName   string
	Position      Position
	Nationality   string
	GoalCount     int
	MatchesPlayed int
	TitlesWon     int
	Image         *Image
}

// FieldErrors maps an upload field name to a user-facing message.
type FieldErrors map[string]string

// Fields returns the failing field names in sorted order.
func (f FieldErrors) Fields() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Validate checks every field of d and reports all violations at once. It
// performs no I/O.
func Validate(d Draft) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(d.DisplayName) == "" {
		errs[FieldName] = "Name is required"
	}
	if !d.Position.Valid() {
		errs[FieldPosition] = "Select a position"
	}
	if strings.TrimSpace(d.Nationality) == "" {
		errs[FieldNationality] = "Nationality is required"
	}
	if d.GoalCount < 0 {
		errs[FieldGoals] = "Goals must be zero or more"
	}
	if d.MatchesPlayed < 0 {
		errs[FieldMatches] = "Matches played must be zero or more"
	}
	if d.TitlesWon < 0 {
		errs[FieldTitles] = "World Cups won must be zero or more"
	}
	if msg := validateImage(d.Image); msg != "" {
		errs[FieldImage] = msg
	}
	return errs
}

func validateImage(img *Image) string {
	if img == nil || len(img.Data) == 0 {
		return "Image is required"
	}
	if len(img.Data) > MaxImageBytes {
		return fmt.Sprintf("Image must be %d MB or smaller", MaxImageBytes>>20)
	}
	return ""
}

// CheckPicture reports a message when img is present but its bytes are not a
// recognised picture format. Validate accepts any payload; the browser form
// and the upload service add this check on top.
func CheckPicture(img *Image) string {
	if img == nil || len(img.Data) == 0 {
		return ""
	}
	if !strings.HasPrefix(http.DetectContentType(img.Data), "image/") {
		return "Image must be a picture file"
	}
	return ""
}

// Request is a validated Draft bound to the account submitting it.
type Request struct {
	AttemptID     string
	Submitter     string
	DisplayName   string
	Position      Position
	Nationality   string
	GoalCount     int
	MatchesPlayed int
	TitlesWon     int
	Image         Image
}

func newRequest(attemptID, submitter string, d Draft) Request {
	img := *d.Image
	if img.ContentType == "" {
		img.ContentType = http.DetectContentType(img.Data)
	}
	if img.Filename == "" {
		img.Filename = "card"
	}
	return Request{
		AttemptID:     attemptID,
		Submitter:     submitter,
		DisplayName:   strings.TrimSpace(d.DisplayName),
		Position:      d.Position,
		Nationality:   strings.TrimSpace(d.Nationality),
		GoalCount:     d.GoalCount,
		MatchesPlayed: d.MatchesPlayed,
		TitlesWon:     d.TitlesWon,
		Image:         img,
	}
}

// MintCall carries the arguments of the contract's mint function.
type MintCall struct {
	From          string
	To            string
	Name          string
	Nationality   string
	Position      string
	Goals         uint64
	TitlesWon     uint64
	MatchesPlayed uint64
	MetadataURI   string
}

// MetadataURI builds the token URI for an uploaded metadata document.
func MetadataURI(contentID string) string {
	return "ipfs://" + contentID
}
