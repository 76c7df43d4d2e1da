package workflow

import (
	"encoding/json"
	"reflect"
)

// DecodePayload extracts a signal's payload into target (a pointer). A
// signal sent in-process carries payload as the concrete struct already,
// so the fast path is a direct assignment; one sent over daemonrpc
// arrives JSON-decoded as a generic map, so the fallback round-trips it
// through encoding/json into target's concrete type. Reports whether
// target was populated.
func DecodePayload(payload interface{}, target interface{}) bool {
	if payload == nil {
		return false
	}

	if assignDirect(payload, target) {
		return true
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, target) == nil
}

// assignDirect sets *target = payload.(T) when payload's dynamic type
// already matches T, the common in-process case.
func assignDirect(payload interface{}, target interface{}) bool {
	tv := reflect.ValueOf(target)
	if tv.Kind() != reflect.Ptr || tv.IsNil() {
		return false
	}
	pv := reflect.ValueOf(payload)
	if !pv.IsValid() || pv.Type() != tv.Elem().Type() {
		return false
	}
	tv.Elem().Set(pv)
	return true
}
