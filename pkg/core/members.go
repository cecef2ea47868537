package core

import (
	"encoding/json"
	"strings"
)

// UnknownMembers returns the members of the JSON object data whose names
// match none of known, or nil when there are none. Names are compared
// case-insensitively, as encoding/json matches them.
func UnknownMembers(data []byte, known ...string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for name := range all {
		if isKnown(name, known) {
			delete(all, name)
		}
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// mergeMembers adds extra to the JSON object data. Members already present
// in data win.
func mergeMembers(data []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return data, nil
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for name, v := range extra {
		if _, ok := all[name]; !ok && json.Valid(v) {
			all[name] = v
		}
	}
	return json.Marshal(all)
}

func isKnown(name string, known []string) bool {
	for _, k := range known {
		if strings.EqualFold(name, k) {
			return true
		}
	}
	return false
}
