package workflow

import "testing"

type examplePayload struct {
	Name  string
	Count int
}

func TestDecodePayloadDirect(t *testing.T) {
	var got examplePayload
	ok := DecodePayload(examplePayload{Name: "a", Count: 3}, &got)
	if !ok {
		t.Fatal("expected direct assignment to succeed")
	}
	if got.Name != "a" || got.Count != 3 {
		t.Errorf("got %+v", got)
	}
}

func TestDecodePayloadFromMap(t *testing.T) {
	// Simulates what arrives over daemonrpc: a signal payload that's
	// round-tripped through JSON and lands as a generic map.
	raw := map[string]interface{}{"Name": "b", "Count": float64(7)}
	var got examplePayload
	ok := DecodePayload(raw, &got)
	if !ok {
		t.Fatal("expected JSON fallback to succeed")
	}
	if got.Name != "b" || got.Count != 7 {
		t.Errorf("got %+v", got)
	}
}

func TestDecodePayloadNil(t *testing.T) {
	var got examplePayload
	if DecodePayload(nil, &got) {
		t.Fatal("expected nil payload to report false")
	}
}

func TestDecodePayloadTypeMismatchFallsBackToJSON(t *testing.T) {
	type other struct{ Name string }
	var got examplePayload
	ok := DecodePayload(other{Name: "c"}, &got)
	if !ok {
		t.Fatal("expected cross-type payload to still decode via JSON")
	}
	if got.Name != "c" {
		t.Errorf("got %+v", got)
	}
}
