package forms

import (
	"strconv"
	"strings"

	"github.com/Its-donkey/dynamix-mint/internal/mint"
	"github.com/Its-donkey/dynamix-mint/internal/ui/model"
	"github.com/Its-donkey/dynamix-mint/internal/ui/state"
)

// ParseDraft converts the typed form into a mint.Draft. Numeric fields that
// are blank or not whole numbers are returned as field errors; all other
// checks are left to mint.Validate.
func ParseDraft(form *model.MintFormState) (mint.Draft, mint.FieldErrors) {
	errs := mint.FieldErrors{}
	if form == nil {
		return mint.Draft{}, errs
	}
	draft := mint.Draft{
		DisplayName: form.Name,
		Nationality: form.Nationality,
	}
	if p, ok := mint.ParsePosition(form.Position); ok {
		draft.Position = p
	}

	number := func(field, raw, label string) int {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			errs[field] = "Valid number of " + label + " is required"
			return 0
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errs[field] = "Valid number of " + label + " is required"
			return 0
		}
		return n
	}
	draft.GoalCount = number(mint.FieldGoals, form.Goals, "goals")
	draft.MatchesPlayed = number(mint.FieldMatches, form.Matches, "matches")
	draft.TitlesWon = number(mint.FieldTitles, form.WorldCups, "World Cups")

	if form.Image != nil {
		draft.Image = &mint.Image{
			Filename:    form.Image.Filename,
			ContentType: form.Image.ContentType,
			Data:        form.Image.Data,
		}
	}
	return draft, errs
}

// ValidateMintForm parses the form and runs the draft checks, merging both
// sets of messages. Parse messages win for the same field. The form only
// accepts picture files.
func ValidateMintForm(form *model.MintFormState) (mint.Draft, mint.FieldErrors) {
	draft, errs := ParseDraft(form)
	if msg := mint.CheckPicture(draft.Image); msg != "" {
		errs[mint.FieldImage] = msg
	}
	for field, msg := range mint.Validate(draft) {
		if _, ok := errs[field]; !ok {
			errs[field] = msg
		}
	}
	return draft, errs
}

func validateSubmission() (mint.Draft, bool) {
	draft, errs := ValidateMintForm(&state.Mint)
	state.Mint.Errors = errs
	return draft, len(errs) == 0
}
