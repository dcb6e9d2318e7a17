package wallet

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNormalizeAddress(t *testing.T) {
	got, err := NormalizeAddress(" 0xAbCdEf0123456789aBcDeF0123456789AbCdEf01 ")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "0xabcdef0123456789abcdef0123456789abcdef01" {
		t.Fatalf("unexpected address %q", got)
	}
	if _, err := NormalizeAddress("0x1234"); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("expected ErrInvalidAccount, got %v", err)
	}
}

func TestProviderErrorMatchesRejection(t *testing.T) {
	rejected := &ProviderError{Code: CodeUserRejected, Message: "denied"}
	if !errors.Is(rejected, ErrProviderRejected) {
		t.Fatalf("expected 4001 to match ErrProviderRejected")
	}
	other := &ProviderError{Code: CodeUnauthorized}
	if errors.Is(other, ErrProviderRejected) {
		t.Fatalf("expected 4100 not to match ErrProviderRejected")
	}
	if other.ErrorCode() != CodeUnauthorized {
		t.Fatalf("expected code %d, got %d", CodeUnauthorized, other.ErrorCode())
	}
}

func TestSessionJSONUsesStatusNames(t *testing.T) {
	data, err := json.Marshal(Session{Status: StatusConnected, Address: "0x1", Cause: errors.New("hidden")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"address":"0x1","status":"connected","epoch":0}`
	if string(data) != want {
		t.Fatalf("expected %s, got %s", want, data)
	}
}

func TestListenersUnsubscribeIsIdempotent(t *testing.T) {
	var l Listeners[string]
	var got []string
	first := l.Add(func(v string) { got = append(got, "first:"+v) })
	l.Add(func(v string) { got = append(got, "second:"+v) })

	l.Emit("a")
	first.Unsubscribe()
	first.Unsubscribe()
	l.Emit("b")

	want := []string{"first:a", "second:a", "second:b"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if l.Len() != 1 {
		t.Fatalf("expected 1 listener, got %d", l.Len())
	}
}
