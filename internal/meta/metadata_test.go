package meta

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestAccountNumber(t *testing.T) {
	m := New(map[string]string{"accountNumber": "10042", "plan": "annual"})
	got, ok := m.AccountNumber()
	if !ok || got != "10042" {
		t.Errorf("AccountNumber() = %q, %v", got, ok)
	}
	if _, ok := (Metadata{}).AccountNumber(); ok {
		t.Error("empty metadata reported an account number")
	}
}

func TestValidateLimits(t *testing.T) {
	cases := map[string]Metadata{
		"empty key":      {"": "x"},
		"key too long":   {strings.Repeat("k", MaxKeyLen+1): "x"},
		"value too long": {"k": strings.Repeat("v", MaxValLen+1)},
	}
	for name, m := range cases {
		if err := m.Validate(); err == nil {
			t.Errorf("%s: Validate() = nil", name)
		}
	}

	big := make(Metadata, MaxPairs+1)
	for i := 0; i < MaxPairs+1; i++ {
		big[strings.Repeat("a", (i/26)+1)+string(rune('a'+i%26))] = "v"
	}
	if err := big.Validate(); err == nil {
		t.Error("too many pairs passed validation")
	}

	ok := New(map[string]string{"accountNumber": "10042"})
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestMarshalStableJSON(t *testing.T) {
	m := New(map[string]string{"b": "2", "a": "1", "c": "3"})
	want := `{"a":"1","b":"2","c":"3"}`
	for i := 0; i < 5; i++ {
		got, err := m.MarshalStableJSON()
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != want {
			t.Fatalf("iteration %d: got %s, want %s", i, got, want)
		}
	}
	if b, _ := (Metadata{}).MarshalStableJSON(); string(b) != "{}" {
		t.Errorf("empty metadata marshals to %s", b)
	}
}

func TestUnmarshalRoundTrip(t *testing.T) {
	in := New(map[string]string{"accountNumber": "10042", "plan": "annual"})
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out Metadata
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d pairs, want %d", len(out), len(in))
	}
	for k, v := range in {
		if out[k] != v {
			t.Errorf("key %q: got %q, want %q", k, out[k], v)
		}
	}

	var null Metadata
	if err := json.Unmarshal([]byte("null"), &null); err != nil {
		t.Fatal(err)
	}
	if null == nil {
		t.Error("null did not decode to an empty map")
	}
}
